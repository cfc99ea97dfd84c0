package http

import (
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
)

type CheckoutResponse struct {
	Message      string            `json:"message"`
	OrderSummary *checkout.Summary `json:"order_summary"`
}

type ProcessPaymentRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"required"`
	EWalletProvider string `json:"e_wallet_provider"`
	CardProvider    string `json:"card_provider"`
}

type ProcessPaymentResponse struct {
	Message       string    `json:"message"`
	PaymentID     uuid.UUID `json:"payment_id"`
	TransactionID string    `json:"transaction_id"`
}

type AddCardRequest struct {
	CardNumber     string `json:"card_number" validate:"required"`
	CardHolderName string `json:"card_holder_name" validate:"required"`
	ExpirationDate string `json:"expiration_date" validate:"required"`
	CVV            string `json:"cvv" validate:"required"`
}

type ShippingRequest struct {
	PaymentID     *uuid.UUID `json:"payment_id"`
	PaymentMethod string     `json:"payment_method"`
	FullName      string     `json:"full_name"`
	AddressLine1  string     `json:"address_line1"`
	AddressLine2  string     `json:"address_line2"`
	City          string     `json:"city"`
	Province      string     `json:"province"`
	PostalCode    string     `json:"postal_code"`
	PhoneNumber   string     `json:"phone_number"`
}

type CompleteOrderResponse struct {
	Message string            `json:"message"`
	Receipt *checkout.Receipt `json:"receipt"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ClearPendingPayment(w, r); err != nil {
		log.Warn().Err(err).Msg("Failed to clear pending payment")
	}

	summary, err := h.checkout.InitiateCheckout(r.Context(), identity(r).UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to initialize checkout")
		return
	}

	respondWithJSON(w, http.StatusOK, CheckoutResponse{
		Message:      "Checkout initialized. Please provide card details.",
		OrderSummary: summary,
	})
}

func (h *Handler) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req ProcessPaymentRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}
	if req.EWalletProvider != "" && req.CardProvider != "" {
		respondWithServiceError(w, r, checkout.ErrInvalidProvider, "")
		return
	}

	provider := req.EWalletProvider
	if provider == "" {
		provider = req.CardProvider
	}

	payment, err := h.checkout.RecordPayment(r.Context(), identity(r).UserID, checkout.PaymentRequest{
		Method:   checkout.Method(req.PaymentMethod),
		Provider: provider,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to process payment")
		return
	}

	if err := h.sessions.SetPendingPayment(w, r, payment.ID); err != nil {
		log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("Failed to remember pending payment")
	}

	respondWithJSON(w, http.StatusOK, ProcessPaymentResponse{
		Message:       "Payment processed successfully",
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
	})
}

func (h *Handler) handleAddCardDetails(w http.ResponseWriter, r *http.Request) {
	var req AddCardRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	_, err := h.checkout.SaveCard(r.Context(), identity(r).UserID, checkout.CardInput{
		Number:         req.CardNumber,
		HolderName:     req.CardHolderName,
		ExpirationDate: req.ExpirationDate,
		CVV:            req.CVV,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to save card details")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Card details submitted successfully!"})
}

func (h *Handler) handleGetSavedCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.checkout.GetSavedCard(r.Context(), identity(r).UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch saved card")
		return
	}
	respondWithJSON(w, http.StatusOK, card)
}

func (h *Handler) handleAddShippingInfo(w http.ResponseWriter, r *http.Request) {
	h.completeOrder(w, r)
}

func (h *Handler) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.completeOrder(w, r)
}

// completeOrder settles the cart with the payment named in the body or, when
// absent, the one recorded earlier in this session.
func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	complete := checkout.CompleteRequest{
		Method: checkout.Method(req.PaymentMethod),
		Shipping: checkout.ShippingInfo{
			FullName:     req.FullName,
			AddressLine1: req.AddressLine1,
			AddressLine2: req.AddressLine2,
			City:         req.City,
			Province:     req.Province,
			PostalCode:   req.PostalCode,
			PhoneNumber:  req.PhoneNumber,
		},
	}
	if req.PaymentID != nil {
		complete.PaymentID = uuid.NullUUID{UUID: *req.PaymentID, Valid: true}
	} else if id, ok := h.sessions.PendingPayment(r); ok {
		complete.PaymentID = uuid.NullUUID{UUID: id, Valid: true}
	}

	receipt, err := h.checkout.CompleteOrder(r.Context(), identity(r).UserID, complete)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to complete order")
		return
	}

	if err := h.sessions.ClearPendingPayment(w, r); err != nil {
		log.Warn().Err(err).Msg("Failed to clear pending payment")
	}

	respondWithJSON(w, http.StatusOK, CompleteOrderResponse{
		Message: "Order completed successfully!",
		Receipt: receipt,
	})
}

func (h *Handler) handleOrdersPage(w http.ResponseWriter, r *http.Request) {
	orders, err := h.checkout.ListOrders(r.Context(), identity(r).UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load orders page")
		h.flashRedirect(w, r, flashError, "An error occurred while fetching orders.", "/menu")
		return
	}
	h.render(w, r, http.StatusOK, "orders.html", "Orders", orders)
}
