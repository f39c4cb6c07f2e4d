// Package checkout hands the cart over to the checkout page and turns a
// submitted order form into an order confirmation.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/validator"
)

// DefaultHandoffTTL is how long a started checkout survives.
const DefaultHandoffTTL = 30 * time.Minute

// MsgCartEmpty is returned when checkout starts with nothing in the cart.
const MsgCartEmpty = "Your cart is empty"

// Selections are the shipping choices made on the cart page.
type Selections struct {
	Country       string `json:"country"`
	State         string `json:"state,omitempty"`
	Zip           string `json:"zip,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty" validate:"omitempty,oneof=card paypal other"`
}

// Handoff is the cart copy carried from the cart page to checkout.
type Handoff struct {
	Items           []domain.LineItem `json:"items"`
	Subtotal        float64           `json:"subtotal"`
	ItemCount       int               `json:"item_count"`
	Shipping        float64           `json:"shipping"`
	ShippingCountry string            `json:"shipping_country,omitempty"`
	ShippingState   string            `json:"shipping_state,omitempty"`
	ShippingZip     string            `json:"shipping_zip,omitempty"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Total is the subtotal plus shipping.
func (h Handoff) Total() float64 { return h.Subtotal + h.Shipping }

// Form is the customer form submitted on the checkout page.
type Form struct {
	Name          string `json:"name" validate:"notblank,max=200"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address       string `json:"address" validate:"notblank,max=500"`
	City          string `json:"city" validate:"notblank,max=200"`
	State         string `json:"state,omitempty" validate:"max=100"`
	Zip           string `json:"zip" validate:"notblank,max=20"`
	Country       string `json:"country" validate:"required,len=2"`
	Notes         string `json:"notes,omitempty" validate:"max=2000"`
	PaymentMethod string `json:"payment_method,omitempty" validate:"omitempty,oneof=card paypal other"`
}

func (f *Form) trim() {
	for _, s := range []*string{&f.Name, &f.Email, &f.Phone, &f.Address, &f.City, &f.State, &f.Zip, &f.Country, &f.Notes, &f.PaymentMethod} {
		*s = strings.TrimSpace(*s)
	}
	f.Country = strings.ToUpper(f.Country)
	if f.PaymentMethod == "" {
		f.PaymentMethod = "other"
	}
}

// Address is where an order ships.
type Address struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// OrderConfirmation is shown on the confirmation page. Payment is never
// captured here.
type OrderConfirmation struct {
	OrderNumber     string            `json:"order_number"`
	OrderDate       time.Time         `json:"order_date"`
	Items           []domain.LineItem `json:"items"`
	Subtotal        float64           `json:"subtotal"`
	Shipping        float64           `json:"shipping"`
	Total           float64           `json:"total"`
	ShippingAddress Address           `json:"shipping_address"`
	Email           string            `json:"email"`
	PaymentMethod   string            `json:"payment_method"`
	Notes           string            `json:"notes,omitempty"`
}

// Events publishes completed checkouts.
type Events interface {
	PublishCheckoutCompleted(ctx context.Context, data event.CheckoutCompletedData) error
}

// Clearer empties the shopper's cart once the order is placed.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Service runs the checkout handoff.
type Service struct {
	adapter *storage.Adapter
	events  Events
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	suffix  func() int
}

// NewService creates a checkout service. ttl bounds both the handoff and
// the stored confirmation.
func NewService(adapter *storage.Adapter, events Events, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultHandoffTTL
	}
	return &Service{
		adapter: adapter,
		events:  events,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		suffix:  func() int { return rand.IntN(1000) },
	}
}

// Begin stores a handoff built from the cart snapshot and the shopper's
// shipping selections. A zip code triggers a shipping estimate.
func (s *Service) Begin(ctx context.Context, session string, cart domain.Snapshot, sel Selections) (Handoff, error) {
	if cart.Empty() {
		return Handoff{}, apperrors.Validation("cart", MsgCartEmpty)
	}
	if err := validator.Validate(sel); err != nil {
		return Handoff{}, err
	}

	h := Handoff{
		Items:           cart.Items,
		Subtotal:        cart.Total,
		ItemCount:       cart.Count,
		ShippingCountry: strings.ToUpper(strings.TrimSpace(sel.Country)),
		ShippingState:   strings.TrimSpace(sel.State),
		ShippingZip:     strings.TrimSpace(sel.Zip),
		PaymentMethod:   sel.PaymentMethod,
		CreatedAt:       s.now().UTC(),
	}
	if h.ShippingZip != "" {
		shipping, err := EstimateShipping(h.ShippingCountry, h.ShippingZip, h.Subtotal)
		if err != nil {
			return Handoff{}, err
		}
		h.Shipping = shipping
	}

	if err := s.adapter.SetTTL(ctx, storage.CheckoutKey(session), h, s.ttl); err != nil {
		return Handoff{}, apperrors.Unavailable("Unable to start checkout. Please try again.", err)
	}
	s.logger.InfoContext(ctx, "checkout started",
		slog.String("session_id", session),
		slog.Int("item_count", h.ItemCount),
		slog.Float64("subtotal", h.Subtotal),
	)
	return h, nil
}

// Peek returns the pending handoff without consuming it.
func (s *Service) Peek(ctx context.Context, session string) (Handoff, error) {
	h := storage.Get(ctx, s.adapter, storage.CheckoutKey(session), Handoff{})
	if len(h.Items) == 0 {
		return Handoff{}, apperrors.NotFound("checkout", session)
	}
	return h, nil
}

// Take returns the pending handoff and removes it.
func (s *Service) Take(ctx context.Context, session string) (Handoff, error) {
	h, ok := storage.Take[Handoff](ctx, s.adapter, storage.CheckoutKey(session))
	if !ok || len(h.Items) == 0 {
		return Handoff{}, apperrors.NotFound("checkout", session)
	}
	return h, nil
}

// Complete validates form, consumes the handoff and records the order. The
// cart is cleared and checkout.completed published; failures of either are
// logged but do not undo the order.
func (s *Service) Complete(ctx context.Context, session string, form Form, cart Clearer) (OrderConfirmation, error) {
	form.trim()
	if err := validator.Validate(form); err != nil {
		return OrderConfirmation{}, err
	}

	h, err := s.Take(ctx, session)
	if err != nil {
		return OrderConfirmation{}, err
	}

	shipping := h.Shipping
	if h.ShippingZip == "" {
		// shipping was never estimated on the cart page
		shipping, _ = EstimateShipping(form.Country, form.Zip, h.Subtotal)
	}

	now := s.now().UTC()
	conf := OrderConfirmation{
		OrderNumber: fmt.Sprintf("EFC-%d-%d", now.UnixMilli(), s.suffix()),
		OrderDate:   now,
		Items:       h.Items,
		Subtotal:    h.Subtotal,
		Shipping:    shipping,
		Total:       h.Subtotal + shipping,
		ShippingAddress: Address{
			Name:    form.Name,
			Address: form.Address,
			City:    form.City,
			State:   form.State,
			Zip:     form.Zip,
			Country: form.Country,
		},
		Email:         form.Email,
		PaymentMethod: form.PaymentMethod,
		Notes:         form.Notes,
	}

	if err := s.adapter.SetTTL(ctx, storage.OrderConfirmationKey(session), conf, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to store order confirmation",
			slog.String("order_number", conf.OrderNumber),
			slog.String("error", err.Error()),
		)
	}
	if cart != nil {
		if err := cart.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to clear cart after checkout",
				slog.String("session_id", session),
				slog.String("error", err.Error()),
			)
		}
	}
	if s.events != nil {
		err := s.events.PublishCheckoutCompleted(ctx, event.CheckoutCompletedData{
			SessionID:     session,
			OrderNumber:   conf.OrderNumber,
			Items:         event.Items(conf.Items),
			Subtotal:      conf.Subtotal,
			Shipping:      conf.Shipping,
			Total:         conf.Total,
			PaymentMethod: conf.PaymentMethod,
			Country:       form.Country,
			CompletedAt:   now,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to publish checkout event",
				slog.String("order_number", conf.OrderNumber),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("session_id", session),
		slog.String("order_number", conf.OrderNumber),
		slog.Float64("total", conf.Total),
	)
	return conf, nil
}

// Confirmation returns the last order placed in session.
func (s *Service) Confirmation(ctx context.Context, session string) (OrderConfirmation, error) {
	conf := storage.Get(ctx, s.adapter, storage.OrderConfirmationKey(session), OrderConfirmation{})
	if conf.OrderNumber == "" {
		return OrderConfirmation{}, apperrors.NotFound("order confirmation", session)
	}
	return conf, nil
}
