package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// CatalogUpdatedData is the payload of catalog.updated. An empty Documents
// list means every document may have changed.
type CatalogUpdatedData struct {
	Documents []string `json:"documents"`
}

// CatalogCache is the part of the catalog loader the handler needs.
type CatalogCache interface {
	Invalidate(name string)
	Purge()
}

// CatalogUpdatedHandler evicts the documents named by a catalog.updated
// event from cache.
func CatalogUpdatedHandler(cache CatalogCache, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, event *pkgkafka.Event) error {
		var data CatalogUpdatedData
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.EventType, err)
		}

		if len(data.Documents) == 0 {
			cache.Purge()
			logger.InfoContext(ctx, "catalog cache purged", slog.String("event_id", event.EventID))
			return nil
		}
		for _, name := range data.Documents {
			cache.Invalidate(name)
		}
		logger.InfoContext(ctx, "catalog documents invalidated",
			slog.String("event_id", event.EventID),
			slog.Int("count", len(data.Documents)),
		)
		return nil
	}
}
