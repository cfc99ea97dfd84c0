package checkout_test

import (
	"context"
	"errors"
	"sort"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
)

var errInjected = errors.New("injected failure")

type fakeProduct struct {
	name     string
	category string
	price    decimal.Decimal
	stock    int
}

// fakeStore is an in-memory Repository. WithTx snapshots all state and
// restores it when the callback fails, and failOn makes the named method
// return errInjected.
type fakeStore struct {
	products  map[uuid.UUID]fakeProduct
	usernames map[uuid.UUID]string
	cart      map[uuid.UUID]map[uuid.UUID]int
	payments  map[uuid.UUID]checkout.Payment
	sales     []checkout.Sale
	orders    []checkout.Order
	shipping  []checkout.ShippingInfo
	cards     []checkout.Card
	failOn    string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  map[uuid.UUID]fakeProduct{},
		usernames: map[uuid.UUID]string{},
		cart:      map[uuid.UUID]map[uuid.UUID]int{},
		payments:  map[uuid.UUID]checkout.Payment{},
	}
}

func (f *fakeStore) addUser(name string) uuid.UUID {
	id := uuid.Must(uuid.NewV4())
	f.usernames[id] = name
	f.cart[id] = map[uuid.UUID]int{}
	return id
}

func (f *fakeStore) addProduct(name, price string, stock int) uuid.UUID {
	id := uuid.Must(uuid.NewV4())
	f.products[id] = fakeProduct{name: name, category: "Meals", price: decimal.RequireFromString(price), stock: stock}
	return id
}

func (f *fakeStore) putInCart(userID, productID uuid.UUID, qty int) {
	f.cart[userID][productID] = qty
}

func (f *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range f.products {
		c.products[k] = v
	}
	for k, v := range f.usernames {
		c.usernames[k] = v
	}
	for u, lines := range f.cart {
		c.cart[u] = map[uuid.UUID]int{}
		for p, q := range lines {
			c.cart[u][p] = q
		}
	}
	for k, v := range f.payments {
		c.payments[k] = v
	}
	c.sales = append([]checkout.Sale(nil), f.sales...)
	c.orders = append([]checkout.Order(nil), f.orders...)
	c.shipping = append([]checkout.ShippingInfo(nil), f.shipping...)
	c.cards = append([]checkout.Card(nil), f.cards...)
	c.failOn = f.failOn
	return c
}

func (f *fakeStore) restore(from *fakeStore) {
	*f = *from
}

func (f *fakeStore) fail(method string) error {
	if f.failOn == method {
		return errInjected
	}
	return nil
}

func (f *fakeStore) WithTx(_ context.Context, fn func(repo checkout.Repository) error) error {
	snapshot := f.clone()
	if err := fn(f); err != nil {
		f.restore(snapshot)
		return err
	}
	return nil
}

func (f *fakeStore) CartLines(_ context.Context, userID uuid.UUID, _ bool) ([]checkout.Line, error) {
	if err := f.fail("CartLines"); err != nil {
		return nil, err
	}
	lines := make([]checkout.Line, 0)
	for pid, qty := range f.cart[userID] {
		p := f.products[pid]
		lines = append(lines, checkout.Line{
			ProductID: pid, ProductName: p.name, Category: p.category,
			Quantity: qty, UnitPrice: p.price, Stock: p.stock,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductName < lines[j].ProductName })
	return lines, nil
}

func (f *fakeStore) Username(_ context.Context, userID uuid.UUID) (string, error) {
	return f.usernames[userID], f.fail("Username")
}

func (f *fakeStore) CreatePayment(_ context.Context, p *checkout.Payment) (uuid.UUID, error) {
	if err := f.fail("CreatePayment"); err != nil {
		return uuid.Nil, err
	}
	for _, existing := range f.payments {
		if existing.TransactionID == p.TransactionID {
			return uuid.Nil, checkout.ErrDuplicateTransaction
		}
	}
	id := uuid.Must(uuid.NewV4())
	stored := *p
	stored.ID = id
	f.payments[id] = stored
	return id, nil
}

func (f *fakeStore) GetPayment(_ context.Context, id uuid.UUID) (*checkout.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, checkout.ErrPaymentNotFound
	}
	return &p, nil
}

func (f *fakeStore) LinkPaymentOrder(_ context.Context, paymentID, orderID uuid.UUID) error {
	if err := f.fail("LinkPaymentOrder"); err != nil {
		return err
	}
	p, ok := f.payments[paymentID]
	if !ok || p.OrderID.Valid {
		return checkout.ErrPaymentNotFound
	}
	p.OrderID = uuid.NullUUID{UUID: orderID, Valid: true}
	f.payments[paymentID] = p
	return nil
}

func (f *fakeStore) UpdatePaymentStatus(_ context.Context, id uuid.UUID, status checkout.PaymentStatus) error {
	p, ok := f.payments[id]
	if !ok {
		return checkout.ErrPaymentNotFound
	}
	p.Status = status
	f.payments[id] = p
	return nil
}

func (f *fakeStore) DecrementStock(_ context.Context, productID uuid.UUID, qty int) (bool, error) {
	if err := f.fail("DecrementStock"); err != nil {
		return false, err
	}
	p := f.products[productID]
	if p.stock < qty {
		return false, nil
	}
	p.stock -= qty
	f.products[productID] = p
	return true, nil
}

func (f *fakeStore) CreateSale(_ context.Context, s *checkout.Sale) (uuid.UUID, error) {
	if err := f.fail("CreateSale"); err != nil {
		return uuid.Nil, err
	}
	stored := *s
	stored.ID = uuid.Must(uuid.NewV4())
	f.sales = append(f.sales, stored)
	return stored.ID, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o *checkout.Order) (uuid.UUID, error) {
	if err := f.fail("CreateOrder"); err != nil {
		return uuid.Nil, err
	}
	stored := *o
	stored.ID = uuid.Must(uuid.NewV4())
	f.orders = append(f.orders, stored)
	return stored.ID, nil
}

func (f *fakeStore) CreateShipping(_ context.Context, s *checkout.ShippingInfo) (uuid.UUID, error) {
	if err := f.fail("CreateShipping"); err != nil {
		return uuid.Nil, err
	}
	stored := *s
	stored.ID = uuid.Must(uuid.NewV4())
	f.shipping = append(f.shipping, stored)
	return stored.ID, nil
}

func (f *fakeStore) ClearCart(_ context.Context, userID uuid.UUID) error {
	if err := f.fail("ClearCart"); err != nil {
		return err
	}
	f.cart[userID] = map[uuid.UUID]int{}
	return nil
}

func (f *fakeStore) SaveCard(_ context.Context, c *checkout.Card) (uuid.UUID, error) {
	stored := *c
	stored.ID = uuid.Must(uuid.NewV4())
	f.cards = append(f.cards, stored)
	return stored.ID, nil
}

func (f *fakeStore) LatestCard(_ context.Context, userID uuid.UUID) (*checkout.Card, error) {
	for i := len(f.cards) - 1; i >= 0; i-- {
		if f.cards[i].UserID == userID {
			c := f.cards[i]
			return &c, nil
		}
	}
	return nil, checkout.ErrCardNotFound
}

func (f *fakeStore) ListOrders(_ context.Context, userID uuid.UUID) ([]checkout.Order, error) {
	orders := make([]checkout.Order, 0)
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			orders = append(orders, f.orders[i])
		}
	}
	return orders, nil
}
