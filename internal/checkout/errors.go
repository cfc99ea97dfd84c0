package checkout

import "github.com/vasiliy-maslov/storefront/internal/apperr"

var (
	ErrEmptyCart               = apperr.New(apperr.KindValidation, "Cart is empty")
	ErrInvalidPaymentMethod    = apperr.New(apperr.KindValidation, "Payment method is required")
	ErrInvalidProvider         = apperr.New(apperr.KindValidation, "Invalid payment provider for the selected method")
	ErrPaymentRequired         = apperr.New(apperr.KindValidation, "Payment information not found for processing order.")
	ErrPaymentNotFound         = apperr.New(apperr.KindNotFound, "Payment not found")
	ErrDuplicateTransaction    = apperr.New(apperr.KindConflict, "A payment with this transaction id already exists")
	ErrCardNotFound            = apperr.New(apperr.KindNotFound, "No saved card found")
	ErrInvalidStatus           = apperr.New(apperr.KindValidation, "Unknown payment status")
	ErrInvalidStatusTransition = apperr.New(apperr.KindValidation, "Invalid payment status transition")
)
