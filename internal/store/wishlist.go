package store

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/storage"
)

// Wishlist is the presence-only product list of one session.
type Wishlist struct {
	*Store
}

// NewWishlist builds a wishlist persisted under wishlist:<session>.
func NewWishlist(session string, adapter *storage.Adapter, notifier notify.Notifier, logger *slog.Logger) *Wishlist {
	return &Wishlist{newStore(domain.KindWishlist, session, storage.WishlistKey(session), adapter, notifier, logger)}
}

// Add appends in unless it is already present, in which case it returns
// false and tells the shopper. Only a missing name is a validation error.
func (w *Wishlist) Add(ctx context.Context, in domain.ProductInput) (bool, error) {
	item, err := domain.NewWishlistItem(in, w.now())
	if err != nil {
		return false, w.reject(ctx, err)
	}

	w.mu.Lock()
	w.ensureLoaded(ctx)
	if w.indexOf(item.ItemID) >= 0 {
		w.mu.Unlock()
		w.notifier.Notify(ctx, notify.Info("Item is already in your wishlist"))
		return false, nil
	}
	w.items = append(w.items, item)
	msg := notify.Success("Added to wishlist!")
	return true, w.commit(ctx, Change{Op: OpAdd, ItemID: item.ItemID}, &msg)
}

// Toggle adds in when absent and removes it when present, deciding under
// one hold of the lock. added reports which happened.
func (w *Wishlist) Toggle(ctx context.Context, in domain.ProductInput) (added bool, err error) {
	item, itemErr := domain.NewWishlistItem(in, w.now())
	itemID := domain.WishlistItemID(in)

	w.mu.Lock()
	w.ensureLoaded(ctx)
	if i := w.indexOf(itemID); i >= 0 {
		w.items = append(w.items[:i:i], w.items[i+1:]...)
		return false, w.commit(ctx, Change{Op: OpRemove, ItemID: itemID}, w.removedMessage())
	}
	if itemErr != nil {
		w.mu.Unlock()
		return false, w.reject(ctx, itemErr)
	}
	w.items = append(w.items, item)
	msg := notify.Success("Added to wishlist!")
	return true, w.commit(ctx, Change{Op: OpAdd, ItemID: item.ItemID}, &msg)
}

// Contains reports whether the product identified by in is wishlisted.
func (w *Wishlist) Contains(in domain.ProductInput) bool {
	return w.Has(domain.WishlistItemID(in))
}

// Product rebuilds the product input of a wishlisted entry, used to add it
// to the cart. ok is false for an unknown id.
func (w *Wishlist) Product(itemID string) (domain.ProductInput, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureLoaded(context.Background())

	i := w.indexOf(itemID)
	if i < 0 {
		return domain.ProductInput{}, false
	}
	it := w.items[i]
	in := domain.ProductInput{
		Name:  it.Name,
		Price: domain.PriceText(strconv.FormatFloat(it.UnitPrice, 'f', 2, 64)),
		Image: it.ImageURL,
		Alt:   it.AltText,
		Link:  it.Link,
	}
	if it.ProductID != nil {
		in.ID = domain.FlexString(*it.ProductID)
	}
	return in, true
}

// MoveToCart adds the wishlisted entry itemID to cart. The entry stays in
// the wishlist. An unknown id is a no-op returning false.
func (w *Wishlist) MoveToCart(ctx context.Context, itemID string, cart *Cart) (bool, error) {
	in, ok := w.Product(itemID)
	if !ok {
		return false, nil
	}
	if _, err := cart.Add(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}
