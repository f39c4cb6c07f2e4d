package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/storage/memory"
	"github.com/utafrali/storefront/pkg/logger"
)

type handoff struct {
	Items    []string `json:"items"`
	Shipping float64  `json:"shipping"`
}

func newAdapter(t *testing.T, opts ...memory.Option) (*storage.Adapter, *memory.Backend, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	b := memory.New(opts...)
	return storage.NewAdapter(b, logger.NewWithWriter("test", "debug", &buf)), b, &buf
}

func TestGet_MissingReturnsFallback(t *testing.T) {
	a, _, logs := newAdapter(t)
	got := storage.Get(context.Background(), a, "cart:s1", []string{"fallback"})
	assert.Equal(t, []string{"fallback"}, got)
	assert.Empty(t, logs.String(), "absence is not worth a warning")
}

func TestGet_CorruptReturnsFallbackAndWarns(t *testing.T) {
	a, b, logs := newAdapter(t)
	require.NoError(t, b.Write(context.Background(), "cart:s1", []byte(`{"object":"not array"}`)))

	got := storage.Get[[]string](context.Background(), a, "cart:s1", nil)
	assert.Nil(t, got)
	assert.Contains(t, logs.String(), "stored value is corrupt")
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestSetThenGet_RoundTrip(t *testing.T) {
	a, _, _ := newAdapter(t)
	ctx := context.Background()

	in := handoff{Items: []string{"product-1", "product-2"}, Shipping: 12}
	require.NoError(t, a.Set(ctx, "checkout:s1", in))
	assert.Equal(t, in, storage.Get(ctx, a, "checkout:s1", handoff{}))
}

func TestSet_QuotaFailureWrapsPersistence(t *testing.T) {
	a, _, logs := newAdapter(t, memory.WithQuota(8))

	err := a.Set(context.Background(), "cart:s1", []string{"too", "large"})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrPersistence)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
	assert.Contains(t, logs.String(), "storage write failed")
}

func TestSet_EncodeFailureWrapsPersistence(t *testing.T) {
	a, _, _ := newAdapter(t)
	err := a.Set(context.Background(), "k", map[string]any{"bad": make(chan int)})

	assert.ErrorIs(t, err, storage.ErrPersistence)
	var syntaxErr *json.UnsupportedTypeError
	assert.True(t, errors.As(err, &syntaxErr))
}

func TestSetTTL_UsesExpiringBackend(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, _, _ := newAdapter(t, memory.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, a.SetTTL(ctx, "checkout:s1", handoff{Shipping: 1}, time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok := storage.Take[handoff](ctx, a, "checkout:s1")
	assert.False(t, ok)
}

func TestTake_ReadsOnce(t *testing.T) {
	a, b, _ := newAdapter(t)
	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "checkout:s1", handoff{Items: []string{"x"}}))

	got, ok := storage.Take[handoff](ctx, a, "checkout:s1")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, got.Items)
	assert.Zero(t, b.Len())

	_, ok = storage.Take[handoff](ctx, a, "checkout:s1")
	assert.False(t, ok)
}

func TestRemove_Idempotent(t *testing.T) {
	a, _, _ := newAdapter(t)
	assert.NoError(t, a.Remove(context.Background(), "nothing"))
	assert.NoError(t, a.Remove(context.Background(), "nothing"))
}

type failingBackend struct{ err error }

func (f failingBackend) Read(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingBackend) Write(context.Context, string, []byte) error  { return f.err }
func (f failingBackend) Delete(context.Context, string) error         { return f.err }

func TestAdapter_BackendFailures(t *testing.T) {
	boom := errors.New("connection refused")
	a := storage.NewAdapter(failingBackend{err: boom}, logger.Discard())
	ctx := context.Background()

	assert.Equal(t, 7, storage.Get(ctx, a, "k", 7))

	err := a.Remove(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrPersistence)
	assert.ErrorIs(t, err, boom)

	// A backend without per-key expiry falls back to Write.
	err = a.SetTTL(ctx, "k", 1, time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cart:s1", storage.CartKey("s1"))
	assert.Equal(t, "wishlist:s1", storage.WishlistKey("s1"))
	assert.Equal(t, "toasts:s1", storage.ToastsKey("s1"))
	assert.Equal(t, "checkout:s1", storage.CheckoutKey("s1"))
	assert.Equal(t, "order_confirmation:s1", storage.OrderConfirmationKey("s1"))
}
