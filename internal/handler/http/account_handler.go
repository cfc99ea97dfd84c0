package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/account"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/auth"
)

// homeFor is where a signed-in user lands.
func homeFor(id auth.Identity) string {
	if id.IsAdmin() {
		return "/admin"
	}
	return "/menu"
}

// pageError flashes err for a page flow and redirects to the given path.
// Validation problems are flashed one by one.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error, to string) {
	var invalid *apperr.ValidationError
	if errors.As(err, &invalid) && len(invalid.Problems) > 1 {
		for _, p := range invalid.Problems[:len(invalid.Problems)-1] {
			h.sessions.AddFlash(w, r, flashError, p)
		}
		h.flashRedirect(w, r, flashError, invalid.Problems[len(invalid.Problems)-1], to)
		return
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	h.flashRedirect(w, r, flashError, apperr.Message(err), to)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, homeFor(id), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login.html", "Log in", nil)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	user, err := h.accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		h.pageError(w, r, err, "/login")
		return
	}

	if err := h.sessions.SignIn(w, r, user); err != nil {
		h.pageError(w, r, err, "/login")
		return
	}

	log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("User logged in")
	http.Redirect(w, r, homeFor(auth.Identity{UserID: user.ID, Role: user.Role}), http.StatusSeeOther)
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", "Register", map[string]any{
		"Genders": account.Genders,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	in := account.RegisterInput{
		FirstName:   r.PostFormValue("first_name"),
		LastName:    r.PostFormValue("last_name"),
		Gender:      r.PostFormValue("gender"),
		Email:       r.PostFormValue("email"),
		PhoneNumber: r.PostFormValue("phone_number"),
		Username:    r.PostFormValue("username"),
		Password:    r.PostFormValue("password"),
	}

	if _, err := h.accounts.Register(r.Context(), in); err != nil {
		h.pageError(w, r, err, "/register")
		return
	}

	h.flashRedirect(w, r, flashSuccess, "Registration successful! Please log in.", "/login")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		log.Error().Err(err).Msg("Failed to clear session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "forgot_password.html", "Forgot password", nil)
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email == "" {
		h.flashRedirect(w, r, flashError, "Email is required.", "/forgot-password")
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), email); err != nil {
		h.pageError(w, r, err, "/forgot-password")
		return
	}

	h.flashRedirect(w, r, flashSuccess, "If that email is registered, a reset link was sent.", "/forgot-password")
}

func (h *Handler) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if _, err := h.accounts.VerifyResetToken(r.Context(), token); err != nil {
		h.resetFailed(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "reset_password.html", "Reset password", map[string]any{
		"Token": token,
	})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	password := r.PostFormValue("password")
	back := "/reset-password/" + url.PathEscape(token)

	if confirm := r.PostFormValue("confirm_password"); confirm != "" && confirm != password {
		h.flashRedirect(w, r, flashError, "Passwords do not match.", back)
		return
	}

	err := h.accounts.ResetPassword(r.Context(), token, password)
	switch {
	case err == nil:
		h.flashRedirect(w, r, flashSuccess, "Your password has been updated.", "/login")
	case errors.Is(err, account.ErrWeakPassword):
		h.flashRedirect(w, r, flashError, apperr.Message(err), back)
	default:
		h.resetFailed(w, r, err)
	}
}

func (h *Handler) resetFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, account.ErrInvalidResetToken) {
		h.flashRedirect(w, r, "danger", apperr.Message(err), "/forgot-password")
		return
	}
	h.pageError(w, r, err, "/forgot-password")
}

func (h *Handler) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.pageError(w, r, err, "/login")
		return
	}

	h.render(w, r, http.StatusOK, "profile.html", "Profile", map[string]any{
		"User":    user,
		"Genders": account.Genders,
	})
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	in := account.ProfileInput{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Gender:          r.PostFormValue("gender"),
		Email:           r.PostFormValue("email"),
		PhoneNumber:     r.PostFormValue("phone_number"),
		Username:        r.PostFormValue("username"),
		CurrentPassword: r.PostFormValue("current_password"),
		NewPassword:     r.PostFormValue("new_password"),
	}

	if _, err := h.accounts.UpdateProfile(r.Context(), identity(r).UserID, in); err != nil {
		h.pageError(w, r, err, "/profile")
		return
	}

	h.flashRedirect(w, r, flashSuccess, "Profile updated successfully!", "/profile")
}
