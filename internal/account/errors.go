package account

import "github.com/vasiliy-maslov/storefront/internal/apperr"

var (
	ErrNotFound           = apperr.New(apperr.KindNotFound, "User not found.")
	ErrEmailExists        = apperr.New(apperr.KindConflict, "Email is already registered. Please use another.")
	ErrUsernameTaken      = apperr.New(apperr.KindConflict, "Username is already taken. Please try another.")
	ErrWeakPassword       = apperr.New(apperr.KindValidation, "Password must be at least 6 characters long.")
	ErrInvalidCredentials = apperr.New(apperr.KindValidation, "Invalid username or password.")
	ErrWrongPassword      = apperr.New(apperr.KindValidation, "You entered the wrong current password!")
	ErrInvalidResetToken  = apperr.New(apperr.KindValidation, "The reset link is invalid or has expired.")
)
