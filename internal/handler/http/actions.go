package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/render"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Control names a delegated page control, taken from its data-control
// attribute.
type Control string

const (
	ControlIncrement  Control = "increment"
	ControlDecrement  Control = "decrement"
	ControlQuantity   Control = "quantity"
	ControlRemove     Control = "remove"
	ControlToggle     Control = "toggle"
	ControlAdd        Control = "add"
	ControlClear      Control = "clear"
	ControlMoveToCart Control = "move-to-cart"
)

// ActionRequest is one delegated control activation, posted as a form.
type ActionRequest struct {
	Control  Control             `json:"control" validate:"required"`
	Store    domain.Kind         `json:"store" validate:"oneof=cart wishlist"`
	ID       string              `json:"id"`
	Quantity *int                `json:"quantity" validate:"omitempty,lte=9999"`
	Regions  []render.Region     `json:"-"`
	Product  domain.ProductInput `json:"-"`
}

// ActionResponse carries the re-rendered regions of every store the action
// touched, keyed by store then region, plus the rendered toasts.
type ActionResponse struct {
	Control   Control                      `json:"control"`
	Changed   bool                         `json:"changed"`
	Fragments map[string]map[string]string `json:"fragments"`
	Toasts    string                       `json:"toasts,omitempty"`
}

// controlFunc runs a control and reports the stores it touched.
type controlFunc func(ctx context.Context, s *shopper, req ActionRequest) (touched []domain.Kind, changed bool, err error)

// Dispatcher routes delegated controls to store operations.
type Dispatcher struct {
	h        *Handler
	once     sync.Once
	controls map[Control]controlFunc
}

// NewDispatcher creates a dispatcher. Wire must run before it serves, and
// ServeHTTP calls it on first use.
func NewDispatcher(h *Handler) *Dispatcher {
	return &Dispatcher{h: h}
}

// Wire registers the control table. Later calls are no-ops.
func (d *Dispatcher) Wire() {
	d.once.Do(func() {
		d.controls = map[Control]controlFunc{
			ControlIncrement:  cartOnly(func(ctx context.Context, s *shopper, req ActionRequest) (bool, error) { return s.cart.Increment(ctx, req.ID) }),
			ControlDecrement:  cartOnly(func(ctx context.Context, s *shopper, req ActionRequest) (bool, error) { return s.cart.Decrement(ctx, req.ID) }),
			ControlQuantity:   cartOnly(setQuantity),
			ControlRemove:     removeItem,
			ControlToggle:     toggleWishlist,
			ControlAdd:        addItem,
			ControlClear:      clearStore,
			ControlMoveToCart: moveToCart,
		}
	})
}

// ServeHTTP handles POST /actions. Unknown controls answer 204 so stray
// clicks inside a container do nothing.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.Wire()

	req, err := parseAction(w, r)
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	fn, ok := d.controls[req.Control]
	if !ok {
		logger.FromContext(r.Context()).DebugContext(r.Context(), "ignoring unknown control",
			slog.String("control", string(req.Control)),
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s := d.h.shopper(r)
	touched, changed, err := fn(r.Context(), s, req)
	if err != nil {
		httputil.WriteError(w, r, err, d.h.logger)
		return
	}

	resp := ActionResponse{
		Control:   req.Control,
		Changed:   changed,
		Fragments: make(map[string]map[string]string, len(touched)),
	}
	for _, kind := range touched {
		frags, err := d.h.renderer.Fragments(s.store(string(kind)).Snapshot(), req.Regions...)
		if err != nil {
			httputil.WriteError(w, r, err, d.h.logger)
			return
		}
		resp.Fragments[string(kind)] = frags
	}

	var toasts bytes.Buffer
	if err := d.h.renderer.RenderToasts(&toasts, s.toasts.Drain(r.Context())); err != nil {
		httputil.WriteError(w, r, err, d.h.logger)
		return
	}
	resp.Toasts = toasts.String()

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

func parseAction(w http.ResponseWriter, r *http.Request) (ActionRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, validator.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return ActionRequest{}, err
	}
	f := r.PostForm

	req := ActionRequest{
		Control: Control(strings.TrimSpace(f.Get("control"))),
		Store:   domain.Kind(strings.TrimSpace(f.Get("store"))),
		ID:      strings.TrimSpace(f.Get("id")),
		Regions: render.ParseRegions(f.Get("regions")),
		Product: domain.ProductInput{
			ID:    domain.FlexString(f.Get("product_id")),
			Name:  f.Get("name"),
			Price: domain.PriceText(f.Get("price")),
			Image: f.Get("image"),
			Alt:   f.Get("alt"),
			Note:  f.Get("note"),
			Link:  f.Get("link"),
		},
	}
	if req.Store == "" {
		req.Store = domain.KindCart
	}
	if q := strings.TrimSpace(f.Get("quantity")); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return ActionRequest{}, apperrors.InvalidInput("quantity must be a whole number")
		}
		req.Quantity = &n
	}
	return req, nil
}

func cartOnly(op func(ctx context.Context, s *shopper, req ActionRequest) (bool, error)) controlFunc {
	return func(ctx context.Context, s *shopper, req ActionRequest) ([]domain.Kind, bool, error) {
		if req.Store != domain.KindCart {
			return nil, false, apperrors.InvalidInput(string(req.Control) + " applies to the cart only")
		}
		changed, err := op(ctx, s, req)
		return []domain.Kind{domain.KindCart}, changed, err
	}
}

// setQuantity requires an explicit quantity. Only a posted value of zero or
// less removes the line.
func setQuantity(ctx context.Context, s *shopper, req ActionRequest) (bool, error) {
	if req.Quantity == nil {
		return false, apperrors.Validation("quantity", "Quantity is required.")
	}
	return s.cart.SetQuantity(ctx, req.ID, *req.Quantity)
}

func removeItem(ctx context.Context, s *shopper, req ActionRequest) ([]domain.Kind, bool, error) {
	changed, err := s.store(string(req.Store)).Remove(ctx, req.ID)
	return []domain.Kind{req.Store}, changed, err
}

func toggleWishlist(ctx context.Context, s *shopper, req ActionRequest) ([]domain.Kind, bool, error) {
	added, err := s.wishlist.Toggle(ctx, req.Product)
	return []domain.Kind{domain.KindWishlist}, added, err
}

func addItem(ctx context.Context, s *shopper, req ActionRequest) ([]domain.Kind, bool, error) {
	if req.Store == domain.KindWishlist {
		added, err := s.wishlist.Add(ctx, req.Product)
		return []domain.Kind{domain.KindWishlist}, added, err
	}
	_, err := s.cart.Add(ctx, req.Product)
	return []domain.Kind{domain.KindCart}, err == nil, err
}

func clearStore(ctx context.Context, s *shopper, req ActionRequest) ([]domain.Kind, bool, error) {
	err := s.store(string(req.Store)).Clear(ctx)
	return []domain.Kind{req.Store}, err == nil, err
}

func moveToCart(ctx context.Context, s *shopper, req ActionRequest) ([]domain.Kind, bool, error) {
	moved, err := s.wishlist.MoveToCart(ctx, req.ID, s.cart)
	return []domain.Kind{domain.KindCart, domain.KindWishlist}, moved, err
}
