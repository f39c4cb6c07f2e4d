// Package http exposes the storefront stores, checkout and catalog over HTTP.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/render"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Catalog loads product documents.
type Catalog interface {
	Load(ctx context.Context, name string) (*catalog.Document, error)
	Search(ctx context.Context, names []string, q catalog.Query, params pagination.Params) (pagination.Result[catalog.Product], error)
}

// Handler holds the dependencies shared by every storefront endpoint.
type Handler struct {
	adapter  *storage.Adapter
	stores   *store.Factory
	checkout *checkout.Service
	catalog  Catalog
	renderer *render.Renderer
	logger   *slog.Logger
}

// NewHandler creates a storefront HTTP handler.
func NewHandler(
	adapter *storage.Adapter,
	stores *store.Factory,
	checkoutService *checkout.Service,
	cat Catalog,
	renderer *render.Renderer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		adapter:  adapter,
		stores:   stores,
		checkout: checkoutService,
		catalog:  cat,
		renderer: renderer,
		logger:   logger,
	}
}

// shopper is the per-request view of one session's state.
type shopper struct {
	id       string
	toasts   *notify.Queue
	cart     *store.Cart
	wishlist *store.Wishlist
}

// shopper builds the stores of the request's session. Stores are cheap and
// reload from the backend, so one set per request keeps requests isolated.
func (h *Handler) shopper(r *http.Request) *shopper {
	id := sessionID(r)
	q := notify.NewQueue(h.adapter, id, h.logger)
	s := &shopper{
		id:       id,
		toasts:   q,
		cart:     h.stores.Cart(id, q),
		wishlist: h.stores.Wishlist(id, q),
	}
	s.cart.Init(r.Context())
	s.wishlist.Init(r.Context())
	return s
}

func (s *shopper) store(kind string) *store.Store {
	if kind == "wishlist" {
		return s.wishlist.Store
	}
	return s.cart.Store
}
