package http

import (
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity"`
}

type UpdateCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity" validate:"required"`
}

type UpdateCartResponse struct {
	Message     string          `json:"message"`
	NewSubtotal decimal.Decimal `json:"new_subtotal"`
}

func (h *Handler) handleCartPage(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.GetCart(r.Context(), identity(r).UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load cart page")
		h.flashRedirect(w, r, flashError, "Failed to load cart. Please try again later.", "/menu")
		return
	}
	h.render(w, r, http.StatusOK, "cart.html", "Cart", c)
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	if err := h.cart.AddItem(r.Context(), identity(r).UserID, req.ProductID, qty); err != nil {
		respondWithServiceError(w, r, err, "Failed to add item to cart")
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Item added to cart"})
}

func (h *Handler) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartRequest
	if !decodeJSON(w, r, h.validate, &req) {
		return
	}

	subtotal, err := h.cart.UpdateItem(r.Context(), identity(r).UserID, req.ProductID, *req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update cart")
		return
	}
	respondWithJSON(w, http.StatusOK, UpdateCartResponse{
		Message:     "Cart updated successfully",
		NewSubtotal: subtotal,
	})
}
