package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_storage_operations_total",
	Help: "Key-value operations by kind and outcome.",
}, []string{"op", "result"})

// Adapter wraps a Backend with JSON encoding and failure containment.
// Reads never fail: absence or corruption yields the caller's fallback.
type Adapter struct {
	backend Backend
	logger  *slog.Logger
}

// NewAdapter creates an adapter over backend.
func NewAdapter(backend Backend, logger *slog.Logger) *Adapter {
	return &Adapter{backend: backend, logger: logger}
}

// Backend returns the wrapped backend.
func (a *Adapter) Backend() Backend { return a.backend }

// Get decodes the value stored under key into a T. It returns fallback when
// the key is absent, the backend fails or the value does not decode; the
// last two are logged as warnings.
func Get[T any](ctx context.Context, a *Adapter, key string, fallback T) T {
	v, _ := lookup(ctx, a, key, fallback)
	return v
}

// Take reads key once and deletes it. ok is false when nothing usable was
// stored.
func Take[T any](ctx context.Context, a *Adapter, key string) (T, bool) {
	var zero T
	v, ok := lookup(ctx, a, key, zero)
	if !ok {
		return zero, false
	}
	if err := a.Remove(ctx, key); err != nil {
		a.logger.WarnContext(ctx, "failed to clear key after take",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return v, true
}

func lookup[T any](ctx context.Context, a *Adapter, key string, fallback T) (T, bool) {
	raw, err := a.backend.Read(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		operations.WithLabelValues("get", "miss").Inc()
		return fallback, false
	case err != nil:
		operations.WithLabelValues("get", "error").Inc()
		a.logger.WarnContext(ctx, "storage read failed, using fallback",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fallback, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		operations.WithLabelValues("get", "corrupt").Inc()
		a.logger.WarnContext(ctx, "stored value is corrupt, using fallback",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fallback, false
	}
	operations.WithLabelValues("get", "hit").Inc()
	return v, true
}

// Set encodes value and writes it under key with the backend's default
// expiry. Any failure is logged once and returned wrapped in ErrPersistence.
func (a *Adapter) Set(ctx context.Context, key string, value any) error {
	return a.SetTTL(ctx, key, value, 0)
}

// SetTTL is Set with an explicit expiry. A zero ttl, or a backend without
// per-key expiry, uses the backend default.
func (a *Adapter) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return a.persistFailure(ctx, key, fmt.Errorf("encode: %w", err))
	}

	if eb, ok := a.backend.(ExpiringBackend); ok && ttl > 0 {
		err = eb.WriteTTL(ctx, key, data, ttl)
	} else {
		err = a.backend.Write(ctx, key, data)
	}
	if err != nil {
		return a.persistFailure(ctx, key, err)
	}
	operations.WithLabelValues("set", "ok").Inc()
	return nil
}

// Remove deletes key. Deleting an absent key succeeds.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if err := a.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		operations.WithLabelValues("remove", "error").Inc()
		a.logger.ErrorContext(ctx, "storage delete failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return errors.Join(ErrPersistence, fmt.Errorf("remove %s: %w", key, err))
	}
	operations.WithLabelValues("remove", "ok").Inc()
	return nil
}

func (a *Adapter) persistFailure(ctx context.Context, key string, err error) error {
	operations.WithLabelValues("set", "error").Inc()
	a.logger.ErrorContext(ctx, "storage write failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
	return errors.Join(ErrPersistence, fmt.Errorf("set %s: %w", key, err))
}
