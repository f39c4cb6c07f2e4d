// Package memory is an in-process storage backend. An optional byte quota
// reproduces the quota failures of browser storage.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/storage"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Backend is a mutex-guarded map.
type Backend struct {
	mu      sync.Mutex
	entries map[string]entry
	used    int
	quota   int
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithQuota limits the summed size of keys and values to n bytes. Zero
// means unlimited.
func WithQuota(n int) Option { return func(b *Backend) { b.quota = n } }

// WithTTL sets the default expiry applied by Write. Zero means never.
func WithTTL(d time.Duration) Option { return func(b *Backend) { b.ttl = d } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(b *Backend) { b.now = now } }

// New creates an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{entries: make(map[string]entry), now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Read implements storage.Backend.
func (b *Backend) Read(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if e.expired(b.now()) {
		b.drop(key, e)
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Write implements storage.Backend.
func (b *Backend) Write(ctx context.Context, key string, value []byte) error {
	return b.WriteTTL(ctx, key, value, b.ttl)
}

// WriteTTL implements storage.ExpiringBackend.
func (b *Backend) WriteTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := len(key) + len(value)
	used := b.used
	if old, ok := b.entries[key]; ok {
		used -= len(key) + len(old.value)
	}
	if b.quota > 0 && used+size > b.quota {
		return storage.ErrQuotaExceeded
	}

	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = b.now().Add(ttl)
	}
	b.entries[key] = e
	b.used = used + size
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[key]; ok {
		b.drop(key, e)
	}
	return nil
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error { return nil }

// Len returns the number of live keys.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	n := 0
	for _, e := range b.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// PurgeExpired removes expired keys and returns how many were removed.
func (b *Backend) PurgeExpired(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	var n int64
	for k, e := range b.entries {
		if e.expired(now) {
			b.drop(k, e)
			n++
		}
	}
	return n, nil
}

// drop must be called with mu held.
func (b *Backend) drop(key string, e entry) {
	delete(b.entries, key)
	b.used -= len(key) + len(e.value)
}
