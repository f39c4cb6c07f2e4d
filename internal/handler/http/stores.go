package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// --- Request DTOs ---

// UpdateQuantityRequest is the JSON body for setting a cart line's quantity.
// Zero or less removes the line; the field itself is required.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=9999"`
}

// --- Response DTOs ---

// MutationResponse reports the store state after a mutation together with
// the toasts it queued.
type MutationResponse struct {
	Changed bool             `json:"changed"`
	Item    *domain.LineItem `json:"item,omitempty"`
	Store   domain.Snapshot  `json:"store"`
	Toasts  []notify.Message `json:"toasts,omitempty"`
}

func (h *Handler) writeMutation(w http.ResponseWriter, r *http.Request, s *shopper, st *store.Store, changed bool, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: MutationResponse{
		Changed: changed,
		Store:   st.Snapshot(),
		Toasts:  s.toasts.Drain(r.Context()),
	}})
}

// --- Cart ---

// GetCart handles GET /api/v1/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: s.cart.Snapshot()})
}

// AddToCart handles POST /api/v1/cart/items
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	item, err := s.cart.Add(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: MutationResponse{
		Changed: true,
		Item:    &item,
		Store:   s.cart.Snapshot(),
		Toasts:  s.toasts.Drain(r.Context()),
	}})
}

// UpdateCartItem handles PUT /api/v1/cart/items/{itemID}
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	changed, err := s.cart.SetQuantity(r.Context(), chi.URLParam(r, "itemID"), *req.Quantity)
	h.writeMutation(w, r, s, s.cart.Store, changed, err)
}

// IncrementCartItem handles POST /api/v1/cart/items/{itemID}/increment
func (h *Handler) IncrementCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	changed, err := s.cart.Increment(r.Context(), chi.URLParam(r, "itemID"))
	h.writeMutation(w, r, s, s.cart.Store, changed, err)
}

// DecrementCartItem handles POST /api/v1/cart/items/{itemID}/decrement
func (h *Handler) DecrementCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	changed, err := s.cart.Decrement(r.Context(), chi.URLParam(r, "itemID"))
	h.writeMutation(w, r, s, s.cart.Store, changed, err)
}

// RemoveCartItem handles DELETE /api/v1/cart/items/{itemID}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	changed, err := s.cart.Remove(r.Context(), chi.URLParam(r, "itemID"))
	h.writeMutation(w, r, s, s.cart.Store, changed, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	err := s.cart.Clear(r.Context())
	h.writeMutation(w, r, s, s.cart.Store, err == nil, err)
}

// --- Wishlist ---

// GetWishlist handles GET /api/v1/wishlist
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: s.wishlist.Snapshot()})
}

// AddToWishlist handles POST /api/v1/wishlist/items. A product already in
// the wishlist answers changed=false.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	added, err := s.wishlist.Add(r.Context(), in)
	h.writeMutation(w, r, s, s.wishlist.Store, added, err)
}

// ToggleWishlist handles POST /api/v1/wishlist/toggle. changed reports
// whether the product is now in the wishlist.
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := h.shopper(r)
	added, err := s.wishlist.Toggle(r.Context(), in)
	h.writeMutation(w, r, s, s.wishlist.Store, added, err)
}

// RemoveWishlistItem handles DELETE /api/v1/wishlist/items/{itemID}
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	changed, err := s.wishlist.Remove(r.Context(), chi.URLParam(r, "itemID"))
	h.writeMutation(w, r, s, s.wishlist.Store, changed, err)
}

// MoveWishlistItemToCart handles POST /api/v1/wishlist/items/{itemID}/move-to-cart
func (h *Handler) MoveWishlistItemToCart(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	moved, err := s.wishlist.MoveToCart(r.Context(), chi.URLParam(r, "itemID"), s.cart)
	h.writeMutation(w, r, s, s.cart.Store, moved, err)
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	s := h.shopper(r)
	err := s.wishlist.Clear(r.Context())
	h.writeMutation(w, r, s, s.wishlist.Store, err == nil, err)
}

// --- Notifications ---

// DrainNotifications handles GET /api/v1/notifications
func (h *Handler) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	msgs := notify.NewQueue(h.adapter, sessionID(r), h.logger).Drain(r.Context())
	if msgs == nil {
		msgs = []notify.Message{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: msgs})
}
