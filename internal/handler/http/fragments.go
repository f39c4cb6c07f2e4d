package http

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/render"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// StoreFragment handles GET /fragments/{store}?regions=badge,list
func (h *Handler) StoreFragment(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "store"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	s := h.shopper(r)
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, s.store(string(kind)).Snapshot(), render.ParseRegions(r.URL.Query().Get("regions"))...); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// ToastsFragment handles GET /fragments/toasts. Rendering drains the queue.
func (h *Handler) ToastsFragment(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	var buf bytes.Buffer
	if err := h.renderer.RenderToasts(&buf, s.toasts.Drain(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if buf.Len() == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// ProductsFragment handles GET /fragments/catalog/{name}. Cards carry the
// shopper's wishlist state.
func (h *Handler) ProductsFragment(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalog.Search(r.Context(), []string{chi.URLParam(r, "name")}, catalog.ParseQuery(r.URL.Query()), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	s := h.shopper(r)
	var buf bytes.Buffer
	err = h.renderer.RenderProducts(&buf, render.Listing{
		Page:       page,
		Query:      r.URL.Query(),
		InWishlist: s.wishlist.Contains,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

// SubcategoriesFragment handles GET /fragments/catalog/{name}/subcategories
func (h *Handler) SubcategoriesFragment(w http.ResponseWriter, r *http.Request) {
	doc, err := h.catalog.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.RenderSubcategories(&buf, doc); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}
