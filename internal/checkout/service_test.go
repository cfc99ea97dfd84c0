package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
)

var fixedNow = time.Date(2024, 5, 15, 9, 30, 45, 0, time.UTC)

func newCheckout(store *fakeStore) checkout.Service {
	return checkout.NewService(store, checkout.WithClock(func() time.Time { return fixedNow }))
}

func shipping() checkout.ShippingInfo {
	return checkout.ShippingInfo{
		FullName:     "Juan Dela Cruz",
		AddressLine1: "123 Rizal St",
		City:         "Quezon City",
		Province:     "Metro Manila",
		PostalCode:   "1100",
		PhoneNumber:  "09171234567",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckout_FullScenario(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	productA := store.addProduct("Product A", "10", 10)
	productB := store.addProduct("Product B", "5", 10)
	store.putInCart(user, productA, 2)
	store.putInCart(user, productB, 1)
	svc := newCheckout(store)
	ctx := context.Background()

	summary, err := svc.InitiateCheckout(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "25.00", summary.Subtotal.StringFixed(2))
	require.Len(t, summary.Items, 2)
	assert.Equal(t, "20", summary.Items[0].LineTotal.String())

	payment, err := svc.RecordPayment(ctx, user, checkout.PaymentRequest{Method: checkout.MethodCashOnDelivery})
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(dec("25")))
	assert.Equal(t, checkout.StatusPending, payment.Status)
	assert.Equal(t, "TXN_20240515093045_"+user.String(), payment.TransactionID)

	receipt, err := svc.CompleteOrder(ctx, user, checkout.CompleteRequest{
		PaymentID: uuid.NullUUID{UUID: payment.ID, Valid: true},
		Method:    checkout.MethodCashOnDelivery,
		Shipping:  shipping(),
	})
	require.NoError(t, err)

	assert.Len(t, store.sales, 2)
	assert.Len(t, store.orders, 2)
	require.Len(t, store.shipping, 1)
	assert.Equal(t, payment.ID, store.shipping[0].PaymentID)
	assert.Equal(t, 8, store.products[productA].stock)
	assert.Equal(t, 9, store.products[productB].stock)
	assert.Empty(t, store.cart[user])
	assert.True(t, receipt.Total.Equal(dec("25")))
	assert.Equal(t, checkout.StateOrderCommitted, receipt.State)

	for i, sale := range store.sales {
		assert.Equal(t, "juan", sale.Username)
		assert.Equal(t, payment.ID, sale.PaymentID)
		assert.Equal(t, sale.ID, store.orders[i].SaleID)
		assert.True(t, sale.TotalPrice.Equal(store.orders[i].Price))
	}

	linked := store.payments[payment.ID].OrderID
	require.True(t, linked.Valid)
	assert.Equal(t, receipt.Orders[0].ID, linked.UUID)
	assert.Len(t, store.payments, 1)
}

func TestCheckout_CompleteOrder_RollsBackOnLateFailure(t *testing.T) {
	for _, step := range []string{"DecrementStock", "CreateSale", "CreateOrder", "LinkPaymentOrder", "CreateShipping", "ClearCart"} {
		t.Run(step, func(t *testing.T) {
			store := newFakeStore()
			user := store.addUser("juan")
			productA := store.addProduct("Product A", "10", 10)
			productB := store.addProduct("Product B", "5", 10)
			store.putInCart(user, productA, 2)
			store.putInCart(user, productB, 1)
			svc := newCheckout(store)

			before := store.clone()
			store.failOn = step

			_, err := svc.CompleteOrder(context.Background(), user, checkout.CompleteRequest{
				Method:   checkout.MethodCashOnDelivery,
				Shipping: shipping(),
			})

			require.ErrorIs(t, err, errInjected)
			assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
			assert.Equal(t, before.products, store.products, "stock changed")
			assert.Equal(t, before.cart, store.cart, "cart changed")
			assert.Empty(t, store.sales)
			assert.Empty(t, store.orders)
			assert.Empty(t, store.shipping)
			assert.Empty(t, store.payments, "inline payment survived rollback")
		})
	}
}

func TestCheckout_CompleteOrder_InsufficientStockIsAllOrNothing(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	plenty := store.addProduct("Adobo", "10", 10)
	scarce := store.addProduct("Bibingka", "5", 1)
	store.putInCart(user, plenty, 2)
	store.putInCart(user, scarce, 2)
	svc := newCheckout(store)

	_, err := svc.CompleteOrder(context.Background(), user, checkout.CompleteRequest{
		Method:   checkout.MethodCashOnDelivery,
		Shipping: shipping(),
	})

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Bibingka", stockErr.Product)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Equal(t, 10, store.products[plenty].stock)
	assert.Equal(t, 1, store.products[scarce].stock)
	assert.Len(t, store.cart[user], 2)
	assert.Empty(t, store.sales)
	assert.Empty(t, store.payments)
}

func TestCheckout_StockConservation(t *testing.T) {
	store := newFakeStore()
	productID := store.addProduct("Lechon", "300", 10)
	svc := newCheckout(store)

	purchases := []int{3, 4, 2, 5, 1}
	bought := 0
	for i, qty := range purchases {
		user := store.addUser("buyer")
		store.putInCart(user, productID, qty)

		_, err := svc.CompleteOrder(context.Background(), user, checkout.CompleteRequest{
			Method:   checkout.MethodCashOnDelivery,
			Shipping: shipping(),
		})
		if bought+qty <= 10 {
			require.NoError(t, err, "purchase %d", i)
			bought += qty
		} else {
			require.Error(t, err, "purchase %d", i)
		}
		assert.Equal(t, 10-bought, store.products[productID].stock)
		assert.GreaterOrEqual(t, store.products[productID].stock, 0)
	}
	assert.Equal(t, 10-3-4-2-1, store.products[productID].stock)
}

func TestCheckout_CompleteOrder_PaymentResolution(t *testing.T) {
	tests := []struct {
		name      string
		method    checkout.Method
		ownPay    bool
		otherPay  bool
		missing   bool
		wantErr   error
		wantNewCO bool
	}{
		{name: "cod without payment creates one inline", method: checkout.MethodCashOnDelivery, wantNewCO: true},
		{name: "e-wallet without payment", method: checkout.MethodEWallet, wantErr: checkout.ErrPaymentRequired},
		{name: "card without payment", method: checkout.MethodCard, wantErr: checkout.ErrPaymentRequired},
		{name: "unknown method", method: "Barter", wantErr: checkout.ErrInvalidPaymentMethod},
		{name: "payment of another user", method: checkout.MethodCard, otherPay: true, wantErr: checkout.ErrPaymentNotFound},
		{name: "unknown payment", method: checkout.MethodCard, missing: true, wantErr: checkout.ErrPaymentNotFound},
		{name: "own card payment", method: checkout.MethodCard, ownPay: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			user := store.addUser("juan")
			other := store.addUser("pedro")
			productID := store.addProduct("Adobo", "10", 10)
			store.putInCart(user, productID, 1)
			store.putInCart(other, productID, 1)
			svc := newCheckout(store)

			req := checkout.CompleteRequest{Method: tc.method, Shipping: shipping()}
			switch {
			case tc.ownPay:
				p, err := svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: checkout.MethodCard, Provider: "BPI"})
				require.NoError(t, err)
				req.PaymentID = uuid.NullUUID{UUID: p.ID, Valid: true}
			case tc.otherPay:
				p, err := svc.RecordPayment(context.Background(), other, checkout.PaymentRequest{Method: checkout.MethodCard, Provider: "BPI"})
				require.NoError(t, err)
				req.PaymentID = uuid.NullUUID{UUID: p.ID, Valid: true}
			case tc.missing:
				req.PaymentID = uuid.NullUUID{UUID: uuid.Must(uuid.NewV4()), Valid: true}
			}
			paymentsBefore := len(store.payments)

			receipt, err := svc.CompleteOrder(context.Background(), user, req)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Len(t, store.payments, paymentsBefore)
				assert.Len(t, store.cart[user], 1)
				return
			}
			require.NoError(t, err)
			if tc.wantNewCO {
				require.Len(t, store.payments, paymentsBefore+1)
				inline := store.payments[receipt.PaymentID]
				assert.True(t, inline.Amount.IsZero())
				assert.Equal(t, checkout.MethodCashOnDelivery, inline.Method)
				assert.Equal(t, checkout.StatusPending, inline.Status)
				assert.Equal(t, "COD_20240515093045_"+user.String(), inline.TransactionID)
			}
		})
	}
}

func TestCheckout_CompleteOrder_PaymentSettlesOneCheckout(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	productID := store.addProduct("Adobo", "10", 10)
	store.putInCart(user, productID, 1)
	svc := newCheckout(store)

	p, err := svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: checkout.MethodEWallet, Provider: "GCASH"})
	require.NoError(t, err)
	req := checkout.CompleteRequest{PaymentID: uuid.NullUUID{UUID: p.ID, Valid: true}, Method: checkout.MethodEWallet, Shipping: shipping()}

	_, err = svc.CompleteOrder(context.Background(), user, req)
	require.NoError(t, err)

	store.putInCart(user, productID, 1)
	_, err = svc.CompleteOrder(context.Background(), user, req)
	require.ErrorIs(t, err, checkout.ErrPaymentNotFound)
	assert.Equal(t, 9, store.products[productID].stock)
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	svc := newCheckout(store)
	ctx := context.Background()

	_, err := svc.InitiateCheckout(ctx, user)
	require.ErrorIs(t, err, checkout.ErrEmptyCart)

	_, err = svc.RecordPayment(ctx, user, checkout.PaymentRequest{Method: checkout.MethodCashOnDelivery})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)

	_, err = svc.CompleteOrder(ctx, user, checkout.CompleteRequest{Method: checkout.MethodCashOnDelivery, Shipping: shipping()})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Empty(t, store.payments, "inline payment must roll back with the empty cart")
}

func TestCheckout_CompleteOrder_ShippingValidation(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	productID := store.addProduct("Adobo", "10", 10)
	store.putInCart(user, productID, 1)
	svc := newCheckout(store)

	info := shipping()
	info.PostalCode = "   "
	_, err := svc.CompleteOrder(context.Background(), user, checkout.CompleteRequest{Method: checkout.MethodCashOnDelivery, Shipping: info})

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Missing required shipping information", err.Error())
	assert.Equal(t, 10, store.products[productID].stock)
}

func TestCheckout_RecordPayment_Validation(t *testing.T) {
	tests := []struct {
		name     string
		req      checkout.PaymentRequest
		wantErr  error
		wantTxID string
	}{
		{name: "missing method", req: checkout.PaymentRequest{}, wantErr: checkout.ErrInvalidPaymentMethod},
		{name: "unknown method", req: checkout.PaymentRequest{Method: "Crypto"}, wantErr: checkout.ErrInvalidPaymentMethod},
		{name: "e-wallet without provider", req: checkout.PaymentRequest{Method: checkout.MethodEWallet}, wantErr: checkout.ErrInvalidProvider},
		{name: "e-wallet with card provider", req: checkout.PaymentRequest{Method: checkout.MethodEWallet, Provider: "BDO"}, wantErr: checkout.ErrInvalidProvider},
		{name: "card with wallet provider", req: checkout.PaymentRequest{Method: checkout.MethodCard, Provider: "MAYA"}, wantErr: checkout.ErrInvalidProvider},
		{name: "cod with provider", req: checkout.PaymentRequest{Method: checkout.MethodCashOnDelivery, Provider: "GCASH"}, wantErr: checkout.ErrInvalidProvider},
		{name: "maya", req: checkout.PaymentRequest{Method: checkout.MethodEWallet, Provider: "MAYA"}, wantTxID: "TXN_20240515093045_"},
		{name: "metrobank", req: checkout.PaymentRequest{Method: checkout.MethodCard, Provider: "MetroBank"}, wantTxID: "TXN_20240515093045_"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			user := store.addUser("juan")
			store.putInCart(user, store.addProduct("Adobo", "10", 10), 1)
			svc := newCheckout(store)

			p, err := svc.RecordPayment(context.Background(), user, tc.req)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, store.payments)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTxID+user.String(), p.TransactionID)
			stored := store.payments[p.ID]
			if tc.req.Method == checkout.MethodEWallet {
				assert.Equal(t, tc.req.Provider, stored.EWalletProvider)
				assert.Empty(t, stored.CardProvider)
			} else {
				assert.Equal(t, tc.req.Provider, stored.CardProvider)
				assert.Empty(t, stored.EWalletProvider)
			}
		})
	}
}

func TestCheckout_RecordPayment_ValidatesBeforeReadingCart(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	svc := newCheckout(store)

	_, err := svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: "Crypto"})
	require.ErrorIs(t, err, checkout.ErrInvalidPaymentMethod)

	store.putInCart(user, store.addProduct("Adobo", "10", 10), 1)
	p, err := svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: checkout.MethodEWallet, Provider: "  GCASH "})
	require.NoError(t, err)
	assert.Equal(t, "GCASH", store.payments[p.ID].EWalletProvider)
	assert.True(t, p.Amount.Equal(dec("10")))
}

func TestCheckout_RecordPayment_DuplicateTransaction(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	store.putInCart(user, store.addProduct("Adobo", "10", 10), 1)
	svc := newCheckout(store)

	_, err := svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: checkout.MethodCashOnDelivery})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: checkout.MethodCashOnDelivery})
	require.ErrorIs(t, err, checkout.ErrDuplicateTransaction)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestTransactionID(t *testing.T) {
	user := uuid.Must(uuid.FromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	manila := time.FixedZone("PHT", 8*60*60)
	at := time.Date(2024, 1, 2, 8, 4, 5, 0, manila)

	assert.Equal(t, "TXN_20240102000405_6ba7b810-9dad-11d1-80b4-00c04fd430c8", checkout.TransactionID(checkout.PrefixRecorded, at, user))
	assert.Equal(t, "COD_20240102000405_6ba7b810-9dad-11d1-80b4-00c04fd430c8", checkout.TransactionID(checkout.PrefixCashOnDelivery, at, user))
}

func TestCheckout_RecordedAndInlineCODPaymentsDoNotCollide(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	productID := store.addProduct("Adobo", "10", 10)
	store.putInCart(user, productID, 1)
	svc := newCheckout(store)

	recorded, err := svc.RecordPayment(context.Background(), user, checkout.PaymentRequest{Method: checkout.MethodCashOnDelivery})
	require.NoError(t, err)

	receipt, err := svc.CompleteOrder(context.Background(), user, checkout.CompleteRequest{
		Method:   checkout.MethodCashOnDelivery,
		Shipping: shipping(),
	})
	require.NoError(t, err)

	require.Len(t, store.payments, 2)
	assert.NotEqual(t, recorded.ID, receipt.PaymentID)
	assert.NotEqual(t, recorded.TransactionID, store.payments[receipt.PaymentID].TransactionID)
	assert.Equal(t, checkout.StateOrderCommitted, receipt.State)
}

func TestCheckout_ListOrders_NewestFirst(t *testing.T) {
	store := newFakeStore()
	user := store.addUser("juan")
	first := store.addProduct("First", "1", 5)
	second := store.addProduct("Second", "2", 5)
	tick := fixedNow
	svc := checkout.NewService(store, checkout.WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))

	for _, pid := range []uuid.UUID{first, second} {
		store.putInCart(user, pid, 1)
		_, err := svc.CompleteOrder(context.Background(), user, checkout.CompleteRequest{Method: checkout.MethodCashOnDelivery, Shipping: shipping()})
		require.NoError(t, err)
	}

	orders, err := svc.ListOrders(context.Background(), user)
	require.NoError(t, err)

	got := make([]string, 0, len(orders))
	for _, o := range orders {
		got = append(got, o.ProductName)
	}
	if diff := cmp.Diff([]string{"Second", "First"}, got); diff != "" {
		t.Errorf("ListOrders() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckout_UpdatePaymentStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    checkout.PaymentStatus
		to      checkout.PaymentStatus
		wantErr error
	}{
		{name: "pending to paid", from: checkout.StatusPending, to: checkout.StatusPaid},
		{name: "pending to failed", from: checkout.StatusPending, to: checkout.StatusFailed},
		{name: "pending to cancelled", from: checkout.StatusPending, to: checkout.StatusCancelled},
		{name: "paid to refunded", from: checkout.StatusPaid, to: checkout.StatusRefunded},
		{name: "same status is a no-op", from: checkout.StatusPaid, to: checkout.StatusPaid},
		{name: "paid back to pending", from: checkout.StatusPaid, to: checkout.StatusPending, wantErr: checkout.ErrInvalidStatusTransition},
		{name: "cancelled to paid", from: checkout.StatusCancelled, to: checkout.StatusPaid, wantErr: checkout.ErrInvalidStatusTransition},
		{name: "unknown status", from: checkout.StatusPending, to: "shipped", wantErr: checkout.ErrInvalidStatus},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			id := uuid.Must(uuid.NewV4())
			store.payments[id] = checkout.Payment{ID: id, Status: tc.from}
			svc := newCheckout(store)

			err := svc.UpdatePaymentStatus(context.Background(), id, tc.to)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.from, store.payments[id].Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, store.payments[id].Status)
		})
	}

	svc := newCheckout(newFakeStore())
	err := svc.UpdatePaymentStatus(context.Background(), uuid.Must(uuid.NewV4()), checkout.StatusPaid)
	require.ErrorIs(t, err, checkout.ErrPaymentNotFound)
}
