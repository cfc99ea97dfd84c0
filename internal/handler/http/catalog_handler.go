package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
)

func (h *Handler) handleMenu(w http.ResponseWriter, r *http.Request) {
	images, err := h.catalog.ListShowcase(r.Context(), false)
	if err != nil {
		h.pageError(w, r, err, "/login")
		return
	}
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.pageError(w, r, err, "/login")
		return
	}

	h.render(w, r, http.StatusOK, "menu.html", "Menu", map[string]any{
		"Showcase": images,
		"Products": products,
	})
}

func (h *Handler) handleProductsPage(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load products page")
		h.flashRedirect(w, r, flashError, "An error occurred while trying to fetch products.", "/menu")
		return
	}

	h.render(w, r, http.StatusOK, "products.html", "Products", map[string]any{
		"Products": products,
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	products, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		h.pageError(w, r, err, "/menu")
		return
	}

	h.render(w, r, http.StatusOK, "search_results.html", "Search", map[string]any{
		"Query":    query,
		"Products": products,
	})
}

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	productID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("product_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusNotFound, catalog.ErrProductNotFound.Error())
		return
	}

	product, err := h.catalog.Get(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}
