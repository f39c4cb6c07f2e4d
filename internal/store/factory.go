package store

import (
	"log/slog"

	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/storage"
)

// Factory builds the stores of a session with shared dependencies and
// listeners.
type Factory struct {
	adapter   *storage.Adapter
	logger    *slog.Logger
	listeners []Listener
}

// NewFactory creates a factory. Every store it builds gets listeners.
func NewFactory(adapter *storage.Adapter, logger *slog.Logger, listeners ...Listener) *Factory {
	return &Factory{adapter: adapter, logger: logger, listeners: listeners}
}

// Cart builds the cart of session.
func (f *Factory) Cart(session string, n notify.Notifier) *Cart {
	c := NewCart(session, f.adapter, n, f.logger)
	f.attach(c.Store)
	return c
}

// Wishlist builds the wishlist of session.
func (f *Factory) Wishlist(session string, n notify.Notifier) *Wishlist {
	w := NewWishlist(session, f.adapter, n, f.logger)
	f.attach(w.Store)
	return w
}

func (f *Factory) attach(s *Store) {
	for _, l := range f.listeners {
		s.OnChange(l)
	}
}
