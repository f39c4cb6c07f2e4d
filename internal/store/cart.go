package store

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/storage"
)

// Cart is the shopping cart of one session.
type Cart struct {
	*Store
}

// NewCart builds a cart persisted under cart:<session>.
func NewCart(session string, adapter *storage.Adapter, notifier notify.Notifier, logger *slog.Logger) *Cart {
	return &Cart{newStore(domain.KindCart, session, storage.CartKey(session), adapter, notifier, logger)}
}

// Add validates in and adds one unit of it. An existing entry gets its
// quantity incremented and the note merged. Invalid input leaves the cart
// untouched.
func (c *Cart) Add(ctx context.Context, in domain.ProductInput) (domain.LineItem, error) {
	item, err := domain.NewCartItem(in)
	if err != nil {
		return domain.LineItem{}, c.reject(ctx, err)
	}

	c.mu.Lock()
	c.ensureLoaded(ctx)
	if i := c.indexOf(item.ItemID); i >= 0 {
		c.items[i].Quantity++
		c.items[i].Note = domain.MergeNote(c.items[i].Note, item.Note)
		item = c.items[i]
	} else {
		c.items = append(c.items, item)
	}
	msg := notify.Success("Item added to cart!")
	return item, c.commit(ctx, Change{Op: OpAdd, ItemID: item.ItemID}, &msg)
}

// SetQuantity sets the quantity of itemID. n <= 0 removes the entry; an
// unknown id is a no-op returning false.
func (c *Cart) SetQuantity(ctx context.Context, itemID string, n int) (bool, error) {
	return c.update(ctx, itemID, func(int) int { return n })
}

// Increment adds one to the quantity of itemID.
func (c *Cart) Increment(ctx context.Context, itemID string) (bool, error) {
	return c.update(ctx, itemID, func(q int) int { return q + 1 })
}

// Decrement subtracts one from the quantity of itemID, removing the entry
// when it reaches zero.
func (c *Cart) Decrement(ctx context.Context, itemID string) (bool, error) {
	return c.update(ctx, itemID, func(q int) int { return q - 1 })
}

func (c *Cart) update(ctx context.Context, itemID string, next func(int) int) (bool, error) {
	c.mu.Lock()
	c.ensureLoaded(ctx)
	i := c.indexOf(itemID)
	if i < 0 {
		c.mu.Unlock()
		return false, nil
	}

	n := next(c.items[i].Quantity)
	if n <= 0 {
		c.items = append(c.items[:i:i], c.items[i+1:]...)
		return true, c.commit(ctx, Change{Op: OpRemove, ItemID: itemID}, c.removedMessage())
	}
	c.items[i].Quantity = n
	return true, c.commit(ctx, Change{Op: OpQuantity, ItemID: itemID}, nil)
}

// Total is the sum of unit price times quantity, 0 when empty.
func (c *Cart) Total() float64 {
	return c.Snapshot().Total
}

// Contains reports whether the product identified by in is in the cart.
func (c *Cart) Contains(in domain.ProductInput) bool {
	return c.Has(domain.CartItemID(in))
}
