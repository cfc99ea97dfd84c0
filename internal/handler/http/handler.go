package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/account"
	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/cart"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/checkout"
	"github.com/vasiliy-maslov/storefront/internal/render"
	"github.com/vasiliy-maslov/storefront/internal/report"
)

const (
	flashError   = "error"
	flashSuccess = "success"

	genericErrorMessage = "Something went wrong. Please try again later."
)

type Services struct {
	Accounts account.Service
	Catalog  catalog.Service
	Cart     cart.Service
	Checkout checkout.Service
	Reports  report.Service
}

// Renderer writes a full HTML page.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page render.Page) error
}

type Handler struct {
	accounts account.Service
	catalog  catalog.Service
	cart     cart.Service
	checkout checkout.Service
	reports  report.Service

	sessions *auth.SessionManager
	views    Renderer
	validate *validator.Validate
	health   func(ctx context.Context) error
}

type Option func(*Handler)

// WithHealthCheck makes GET /health report the result of check.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(h *Handler) { h.health = check }
}

func NewHandler(svc Services, sessions *auth.SessionManager, views Renderer, opts ...Option) *Handler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	h := &Handler{
		accounts: svc.Accounts,
		catalog:  svc.Catalog,
		cart:     svc.Cart,
		checkout: svc.Checkout,
		reports:  svc.Reports,
		sessions: sessions,
		views:    views,
		validate: validate,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// identity returns the caller resolved by the session middleware. Routes
// behind RequireUser or RequireAdmin always have one.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	id, signedIn := auth.FromContext(r.Context())
	page := render.Page{
		Title:     title,
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
		Flashes:   h.sessions.Flashes(w, r),
		Identity:  id,
		SignedIn:  signedIn,
		Data:      data,
	}
	if err := h.views.Render(w, status, name, page); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
	}
}

func (h *Handler) flashRedirect(w http.ResponseWriter, r *http.Request, typ, msg, to string) {
	h.sessions.AddFlash(w, r, typ, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error.html", "Not found", map[string]any{
		"Status":  http.StatusNotFound,
		"Message": "The page you are looking for does not exist.",
	})
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, "error.html", "Method not allowed", map[string]any{
		"Status":  http.StatusMethodNotAllowed,
		"Message": "This action is not allowed here.",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			log.Error().Err(err).Msg("Health check failed")
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
