// Package redis stores session state in Redis with a per-key expiry.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/database"
)

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "storefront:"

// Backend implements storage.ExpiringBackend on top of go-redis.
type Backend struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// New creates a backend whose writes expire after ttl. A zero ttl keeps
// keys until deleted.
func New(client *goredis.Client, ttl time.Duration) *Backend {
	return &Backend{client: client, prefix: DefaultPrefix, ttl: ttl}
}

// Read implements storage.Backend.
func (b *Backend) Read(ctx context.Context, key string) (_ []byte, err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "kv.read", "")
	defer func() { end(err) }()

	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Write implements storage.Backend.
func (b *Backend) Write(ctx context.Context, key string, value []byte) error {
	return b.WriteTTL(ctx, key, value, b.ttl)
}

// WriteTTL implements storage.ExpiringBackend.
func (b *Backend) WriteTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "kv.write", "")
	defer func() { end(err) }()

	if err = b.client.Set(ctx, b.prefix+key, value, ttl).Err(); err != nil {
		if isOOM(err) {
			return errors.Join(storage.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "redis", "kv.delete", "")
	defer func() { end(err) }()

	if err = b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// isOOM reports a Redis maxmemory rejection, the server-side analogue of a
// browser storage quota error.
func isOOM(err error) bool {
	return goredis.HasErrorPrefix(err, "OOM")
}
