package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AddProductRequest struct {
	ProductName string          `json:"product_name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	ImageURL    string          `json:"image_url"`
}

type UpdateProductRequest struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"required"`
	ProductName *string          `json:"product_name"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`
}

type ProductResponse struct {
	Message string           `json:"message"`
	Product *catalog.Product `json:"product"`
}

type ShowcaseImagesRequest struct {
	ImageLinks []string `json:"imageLinks" validate:"required,min=1"`
}

type ShowcaseImagesResponse struct {
	Message string `json:"message"`
	Added   int    `json:"added"`
}

type RemoveImageRequest struct {
	ImageURL string `json:"image_url" validate:"required"`
}

type PaymentStatusRequest struct {
	PaymentID uuid.UUID `json:"payment_id" validate:"required"`
	Status    string    `json:"status" validate:"required"`
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin_dashboard.html", "Admin", nil)
}

func (h *Handler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load users page")
		h.flashRedirect(w, r, flashError, "Failed to load users.", "/admin")
		return
	}
	h.render(w, r, http.StatusOK, "admin_users.html", "Users", users)
}

func (h *Handler) handleAdminProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load admin products page")
		h.flashRedirect(w, r, flashError, "Failed to load products.", "/admin")
		return
	}
	h.render(w, r, http.StatusOK, "admin_products.html", "Products", products)
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	product, err := h.catalog.Create(r.Context(), &catalog.Product{
		Name:     req.ProductName,
		Price:    req.Price,
		Stock:    req.Stock,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add product")
		return
	}

	respondWithJSON(w, http.StatusCreated, ProductResponse{Message: "Product added successfully", Product: product})
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	product, err := h.catalog.Update(r.Context(), req.ProductID, catalog.ProductUpdate{
		Name:     req.ProductName,
		Price:    req.Price,
		Stock:    req.Stock,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductResponse{Message: "Product updated successfully", Product: product})
}

func (h *Handler) handleShowcasePage(w http.ResponseWriter, r *http.Request) {
	images, err := h.catalog.ListShowcase(r.Context(), true)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load showcase page")
		h.flashRedirect(w, r, flashError, "Failed to load showcase images.", "/admin")
		return
	}
	h.render(w, r, http.StatusOK, "showcase.html", "Showcase", images)
}

func (h *Handler) handleAddShowcaseImages(w http.ResponseWriter, r *http.Request) {
	var req ShowcaseImagesRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	added, err := h.catalog.AddShowcaseImages(r.Context(), req.ImageLinks)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add images")
		return
	}

	respondWithJSON(w, http.StatusOK, ShowcaseImagesResponse{Message: "Images added successfully", Added: added})
}

func (h *Handler) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	var req RemoveImageRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	if err := h.catalog.RemoveShowcaseImage(r.Context(), req.ImageURL); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove image")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Image removed from menu successfully"})
}

func (h *Handler) handleUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req PaymentStatusRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	if err := h.checkout.UpdatePaymentStatus(r.Context(), req.PaymentID, checkout.PaymentStatus(req.Status)); err != nil {
		respondWithServiceError(w, r, err, "Failed to update payment status")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Payment status updated"})
}

func (h *Handler) handleSalesPage(w http.ResponseWriter, r *http.Request) {
	sales, err := h.reports.DailySales(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load sales page")
		h.flashRedirect(w, r, flashError, "Unable to load sales data. Please try again.", "/admin")
		return
	}
	h.render(w, r, http.StatusOK, "sales.html", "Sales", sales)
}

func (h *Handler) handleGetSales(w http.ResponseWriter, r *http.Request) {
	period := report.Period(r.URL.Query().Get("period"))

	sales, err := h.reports.SalesForPeriod(r.Context(), period)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch sales data")
		return
	}
	respondWithJSON(w, http.StatusOK, sales)
}

// handleExportSales buffers the whole workbook so a failure can still be
// reported as JSON.
func (h *Handler) handleExportSales(w http.ResponseWriter, r *http.Request) {
	period := report.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = report.PeriodDaily
	}

	var buf bytes.Buffer
	if err := h.reports.ExportSales(r.Context(), period, &buf); err != nil {
		respondWithServiceError(w, r, err, "Failed to export sales data")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=sales_%s.xlsx", period))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Str("period", string(period)).Msg("Failed to write sales export")
	}
}

func (h *Handler) handleAnalyticsPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "analytics.html", "Analytics", nil)
}

func (h *Handler) handleAnalyticsData(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.reports.AnalyticsSummary(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch analytics data")
		return
	}
	respondWithJSON(w, http.StatusOK, analytics)
}

func (h *Handler) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.reports.UserInfo(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load user info page")
		h.flashRedirect(w, r, flashError, "Failed to load user information.", "/admin")
		return
	}
	h.render(w, r, http.StatusOK, "user_info.html", "User info", info)
}
