// Package event publishes storefront domain events and reacts to catalog
// updates.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/store"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
const (
	TopicCartUpdated       = "storefront.cart.updated"
	TopicCartCleared       = "storefront.cart.cleared"
	TopicWishlistUpdated   = "storefront.wishlist.updated"
	TopicCheckoutCompleted = "storefront.checkout.completed"
	TopicCatalogUpdated    = "storefront.catalog.updated"
)

// Aggregate types of storefront events.
const (
	AggregateTypeSession = "session"
	AggregateTypeCatalog = "catalog"
)

// SourceStorefront identifies events produced by this service.
const SourceStorefront = "storefront"

// Publisher sends an envelope to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// ItemData is a line item within store events.
type ItemData struct {
	ItemID    string  `json:"item_id"`
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity,omitempty"`
}

// StoreUpdatedData is the payload of cart.updated and wishlist.updated.
type StoreUpdatedData struct {
	SessionID string     `json:"session_id"`
	Op        string     `json:"op"`
	ItemID    string     `json:"item_id,omitempty"`
	Items     []ItemData `json:"items"`
	ItemCount int        `json:"item_count"`
	Total     float64    `json:"total,omitempty"`
}

// CartClearedData is the payload of cart.cleared.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// CheckoutCompletedData is the payload of checkout.completed.
type CheckoutCompletedData struct {
	SessionID     string     `json:"session_id"`
	OrderNumber   string     `json:"order_number"`
	Items         []ItemData `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	Shipping      float64    `json:"shipping"`
	Total         float64    `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	Country       string     `json:"country"`
	CompletedAt   time.Time  `json:"completed_at"`
}

// Producer publishes storefront domain events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a producer. A nil pub disables publishing.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Producer{pub: pub, logger: logger}
}

// Items converts line items to their event form.
func Items(items []domain.LineItem) []ItemData {
	out := make([]ItemData, len(items))
	for i, it := range items {
		out[i] = ItemData{
			ItemID:    it.ItemID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
		if it.ProductID != nil {
			out[i].ProductID = *it.ProductID
		}
	}
	return out
}

// PublishStoreChanged publishes the event matching a cart or wishlist
// mutation.
func (p *Producer) PublishStoreChanged(ctx context.Context, change store.Change, snap domain.Snapshot) error {
	if snap.Kind == domain.KindCart && change.Op == store.OpClear {
		return p.publish(ctx, TopicCartCleared, AggregateTypeSession, change.Session, CartClearedData{SessionID: change.Session})
	}

	topic := TopicCartUpdated
	if snap.Kind == domain.KindWishlist {
		topic = TopicWishlistUpdated
	}
	return p.publish(ctx, topic, AggregateTypeSession, change.Session, StoreUpdatedData{
		SessionID: change.Session,
		Op:        string(change.Op),
		ItemID:    change.ItemID,
		Items:     Items(snap.Items),
		ItemCount: snap.Count,
		Total:     snap.Total,
	})
}

// PublishCheckoutCompleted publishes checkout.completed.
func (p *Producer) PublishCheckoutCompleted(ctx context.Context, data CheckoutCompletedData) error {
	return p.publish(ctx, TopicCheckoutCompleted, AggregateTypeSession, data.SessionID, data)
}

// PublishCatalogUpdated publishes catalog.updated for the named documents.
// No names means every document may have changed.
func (p *Producer) PublishCatalogUpdated(ctx context.Context, names []string) error {
	return p.publish(ctx, TopicCatalogUpdated, AggregateTypeCatalog, "catalog", CatalogUpdatedData{Documents: names})
}

// Listener adapts the producer to store change notifications. Failures are
// logged and never reach the shopper.
func (p *Producer) Listener() store.Listener {
	return func(ctx context.Context, change store.Change, snap domain.Snapshot) {
		if err := p.PublishStoreChanged(ctx, change, snap); err != nil {
			p.logger.WarnContext(ctx, "failed to publish store event",
				slog.String("session_id", change.Session),
				slog.String("op", string(change.Op)),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType, id string, data any) error {
	event, err := pkgkafka.NewEvent(topic, id, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.pub.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", id),
	)
	return nil
}
