package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
)

type Service interface {
	SalesForPeriod(ctx context.Context, period Period) ([]SaleRow, error)
	DailySales(ctx context.Context) ([]SaleRow, error)
	ExportSales(ctx context.Context, period Period, w io.Writer) error
	AnalyticsSummary(ctx context.Context) (*Analytics, error)
	UserInfo(ctx context.Context) ([]UserInfo, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SalesForPeriod(ctx context.Context, period Period) ([]SaleRow, error) {
	start, end, err := PeriodWindow(period, s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.SalesBetween(ctx, start, end)
	if err != nil {
		log.Error().Err(err).Str("period", string(period)).Msg("Failed to fetch sales")
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}
	for i := range rows {
		if rows[i].CardNumber != NotAvailable {
			rows[i].CardNumber = checkout.MaskCardNumber(rows[i].CardNumber)
		}
	}
	return rows, nil
}

func (s *service) DailySales(ctx context.Context) ([]SaleRow, error) {
	return s.SalesForPeriod(ctx, PeriodDaily)
}

var exportHeaders = []string{
	"Sale ID", "Username", "Product ID", "Product Name", "Quantity", "Total Price", "Created At",
	"Payment Method", "Card Number", "Card Holder", "Expiration Date",
	"Shipping Name", "Address Line 1", "Address Line 2", "City", "Province", "Postal Code", "Phone Number",
}

// ExportSales writes the period's sales to w as an xlsx workbook.
func (s *service) ExportSales(ctx context.Context, period Period, w io.Writer) error {
	rows, err := s.SalesForPeriod(ctx, period)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("failed to create sales sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, sale := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(sale.SaleID.String())
		row.AddCell().SetString(sale.Username)
		row.AddCell().SetString(sale.ProductID.String())
		row.AddCell().SetString(sale.ProductName)
		row.AddCell().SetInt(sale.Quantity)
		row.AddCell().SetString(sale.TotalPrice.StringFixed(2))
		row.AddCell().SetString(sale.CreatedAt)
		row.AddCell().SetString(sale.PaymentMethod)
		row.AddCell().SetString(sale.CardNumber)
		row.AddCell().SetString(sale.CardHolderName)
		row.AddCell().SetString(sale.ExpirationDate)
		row.AddCell().SetString(sale.ShippingFullName)
		row.AddCell().SetString(sale.AddressLine1)
		row.AddCell().SetString(sale.AddressLine2)
		row.AddCell().SetString(sale.City)
		row.AddCell().SetString(sale.Province)
		row.AddCell().SetString(sale.PostalCode)
		row.AddCell().SetString(sale.PhoneNumber)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write sales workbook: %w", err)
	}
	return nil
}

// AnalyticsSummary reports gender shares over all users (an empty user table
// counts as one), the top buyers, items and spenders, and purchases per
// category.
func (s *service) AnalyticsSummary(ctx context.Context) (*Analytics, error) {
	a, err := s.analytics(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build analytics")
		return nil, fmt.Errorf("failed to build analytics: %w", err)
	}
	return a, nil
}

func (s *service) analytics(ctx context.Context) (*Analytics, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		total = 1
	}

	genders, err := s.repo.GenderCounts(ctx)
	if err != nil {
		return nil, err
	}
	buyers, err := s.repo.TopBuyers(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.TopItems(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	spenders, err := s.repo.TopSpenders(ctx, topLimit)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	a := &Analytics{
		GenderPercentage: make(map[string]float64, len(genders)),
		FrequentBuyers:   buyers,
		FrequentItems:    items,
		SpendingStats:    make([]Spending, 0, len(spenders)),
		CategoryData:     make(map[string]int, len(categories)),
	}
	for _, g := range genders {
		a.GenderPercentage[g.Gender] = float64(g.Count) / float64(total) * 100
	}
	for _, sp := range spenders {
		a.SpendingStats = append(a.SpendingStats, Spending{Username: sp.Username, TotalSpent: sp.TotalSpent.Round(2)})
	}
	for _, c := range categories {
		a.CategoryData[c.Category] = c.Count
	}
	return a, nil
}

func (s *service) UserInfo(ctx context.Context) ([]UserInfo, error) {
	infos, err := s.userInfo(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load user info")
		return nil, fmt.Errorf("failed to load user info: %w", err)
	}
	return infos, nil
}

func (s *service) userInfo(ctx context.Context) ([]UserInfo, error) {
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return nil, err
	}
	shipping, err := s.repo.Shipping(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.Sales(ctx)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uuid.UUID]*UserInfo, len(customers))
	infos := make([]UserInfo, len(customers))
	for i, c := range customers {
		infos[i] = UserInfo{
			User:       c,
			Payments:   make([]PaymentRecord, 0),
			TotalSpent: decimal.Zero,
			Shipping:   make([]ShippingRecord, 0),
			Sales:      make([]SaleRecord, 0),
		}
		byUser[c.ID] = &infos[i]
	}

	// Users registered after the customer query are skipped.
	for _, p := range payments {
		if info, ok := byUser[p.UserID]; ok {
			info.Payments = append(info.Payments, p)
		}
	}
	for _, sh := range shipping {
		if info, ok := byUser[sh.UserID]; ok {
			info.Shipping = append(info.Shipping, sh)
		}
	}
	for _, sale := range sales {
		if info, ok := byUser[sale.UserID]; ok {
			info.Sales = append(info.Sales, sale)
			info.TotalSpent = info.TotalSpent.Add(sale.TotalPrice)
		}
	}

	for i := range infos {
		infos[i].TotalSpent = infos[i].TotalSpent.Round(2)
	}
	return infos, nil
}
