package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/catalog"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// GetCatalog handles GET /api/v1/catalog/{name}
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	doc, err := h.catalog.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: doc})
}

// ListProducts handles GET /api/v1/catalog/{name}/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, []string{chi.URLParam(r, "name")})
}

// SearchCatalog handles GET /api/v1/catalog/search?documents=a,b
func (h *Handler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	names := splitList(r.URL.Query().Get("documents"))
	if len(names) == 0 {
		httputil.WriteError(w, r, apperrors.InvalidInput("documents is required"), h.logger)
		return
	}
	h.search(w, r, names)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, names []string) {
	res, err := h.catalog.Search(r.Context(), names, catalog.ParseQuery(r.URL.Query()), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
