// Package storage is the key-value persistence layer behind carts,
// wishlists, toasts and the checkout handoff. Values are JSON documents.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Backend when the key is absent or expired.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned when a write would exceed the backend quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrPersistence wraps every failure reported by Adapter.Set.
	ErrPersistence = errors.New("storage: persistence failed")
)

// Backend stores raw values by key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ExpiringBackend can store a value that expires after ttl, overriding the
// backend default.
type ExpiringBackend interface {
	Backend
	WriteTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Keys under which session state is persisted.
func CartKey(session string) string              { return "cart:" + session }
func WishlistKey(session string) string          { return "wishlist:" + session }
func ToastsKey(session string) string            { return "toasts:" + session }
func CheckoutKey(session string) string          { return "checkout:" + session }
func OrderConfirmationKey(session string) string { return "order_confirmation:" + session }
