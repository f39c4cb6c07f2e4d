// Package postgres stores session state as JSONB rows in a kv_store table.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/database"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the schema migrations for the kv_store table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}

const (
	readSQL = `SELECT value FROM kv_store
WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`

	upsertSQL = `INSERT INTO kv_store (key, value, expires_at, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()`

	deleteSQL = `DELETE FROM kv_store WHERE key = $1`

	purgeSQL = `DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
)

// Backend implements storage.ExpiringBackend over a pgx connection pool.
type Backend struct {
	db  database.DBTX
	ttl time.Duration
	now func() time.Time
}

// New creates a backend whose writes expire after ttl. A zero ttl keeps
// rows until deleted.
func New(db database.DBTX, ttl time.Duration) *Backend {
	return &Backend{db: db, ttl: ttl, now: time.Now}
}

// Read implements storage.Backend.
func (b *Backend) Read(ctx context.Context, key string) (_ []byte, err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.read", readSQL)
	defer func() { end(err) }()

	var value []byte
	err = b.db.QueryRow(ctx, readSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

// Write implements storage.Backend.
func (b *Backend) Write(ctx context.Context, key string, value []byte) error {
	return b.WriteTTL(ctx, key, value, b.ttl)
}

// WriteTTL implements storage.ExpiringBackend.
func (b *Backend) WriteTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.write", upsertSQL)
	defer func() { end(err) }()

	var expiresAt *time.Time
	if ttl > 0 {
		t := b.now().Add(ttl).UTC()
		expiresAt = &t
	}
	if _, err = b.db.Exec(ctx, upsertSQL, key, value, expiresAt); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete implements storage.Backend.
func (b *Backend) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.delete", deleteSQL)
	defer func() { end(err) }()

	if _, err = b.db.Exec(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (b *Backend) PurgeExpired(ctx context.Context) (_ int64, err error) {
	ctx, end := database.TraceQuery(ctx, "postgresql", "kv.purge", purgeSQL)
	defer func() { end(err) }()

	tag, err := b.db.Exec(ctx, purgeSQL)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
