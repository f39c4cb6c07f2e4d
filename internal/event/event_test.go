package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/store"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func cartSnapshot(t *testing.T) domain.Snapshot {
	t.Helper()
	item, err := domain.NewCartItem(domain.ProductInput{ID: "1", Name: "Bodkin", Price: domain.PriceText("$12.50")})
	require.NoError(t, err)
	item.Quantity = 2
	return domain.NewSnapshot(domain.KindCart, []domain.LineItem{item})
}

func TestPublishStoreChanged_CartUpdated(t *testing.T) {
	pub := new(mockPublisher)
	var got *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicCartUpdated, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { got = args.Get(2).(*pkgkafka.Event) }).
		Return(nil).Once()

	p := NewProducer(pub, logger.Discard())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	err := p.PublishStoreChanged(ctx, store.Change{Session: "sess-1", Op: store.OpAdd, ItemID: "product-1"}, cartSnapshot(t))
	require.NoError(t, err)
	pub.AssertExpectations(t)

	require.NotNil(t, got)
	assert.Equal(t, TopicCartUpdated, got.EventType)
	assert.Equal(t, "sess-1", got.AggregateID)
	assert.Equal(t, AggregateTypeSession, got.AggregateType)
	assert.Equal(t, "corr-1", got.CorrelationID)

	var data StoreUpdatedData
	require.NoError(t, got.UnmarshalData(&data))
	assert.Equal(t, "add", data.Op)
	assert.Equal(t, 2, data.ItemCount)
	assert.Equal(t, 25.0, data.Total)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "1", data.Items[0].ProductID)
}

func TestPublishStoreChanged_Topics(t *testing.T) {
	tests := []struct {
		name  string
		kind  domain.Kind
		op    store.Op
		topic string
	}{
		{"cart clear", domain.KindCart, store.OpClear, TopicCartCleared},
		{"cart remove", domain.KindCart, store.OpRemove, TopicCartUpdated},
		{"wishlist add", domain.KindWishlist, store.OpAdd, TopicWishlistUpdated},
		{"wishlist clear", domain.KindWishlist, store.OpClear, TopicWishlistUpdated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(mockPublisher)
			pub.On("Publish", mock.Anything, tt.topic, mock.Anything).Return(nil).Once()

			p := NewProducer(pub, logger.Discard())
			err := p.PublishStoreChanged(context.Background(), store.Change{Session: "s", Op: tt.op}, domain.NewSnapshot(tt.kind, nil))
			require.NoError(t, err)
			pub.AssertExpectations(t)
		})
	}
}

func TestPublishStoreChanged_WrapsPublishError(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	p := NewProducer(pub, logger.Discard())
	err := p.PublishStoreChanged(context.Background(), store.Change{Session: "s", Op: store.OpAdd}, cartSnapshot(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.cart.updated event")
}

func TestListener_SwallowsErrors(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	listener := NewProducer(pub, logger.Discard()).Listener()
	assert.NotPanics(t, func() {
		listener(context.Background(), store.Change{Session: "s", Op: store.OpAdd}, cartSnapshot(t))
	})
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestNewProducer_NilPublisherIsNoop(t *testing.T) {
	p := NewProducer(nil, logger.Discard())
	assert.NoError(t, p.PublishCheckoutCompleted(context.Background(), CheckoutCompletedData{SessionID: "s"}))
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishCheckoutCompleted_ThroughKafkaProducer(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducer(pkgkafka.NewProducerWithWriter(w, nil, logger.Discard()), logger.Discard())

	data := CheckoutCompletedData{
		SessionID:     "sess-2",
		OrderNumber:   "EFC-1700000000000-42",
		Subtotal:      25,
		Shipping:      12,
		Total:         37,
		PaymentMethod: "card",
		Country:       "US",
		CompletedAt:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishCheckoutCompleted(context.Background(), data))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, TopicCheckoutCompleted, msg.Topic)
	assert.Equal(t, "sess-2", string(msg.Key))

	event, err := pkgkafka.DecodeMessage(msg)
	require.NoError(t, err)
	var got CheckoutCompletedData
	require.NoError(t, event.UnmarshalData(&got))
	assert.Equal(t, data, got)
}

type fakeCache struct {
	invalidated []string
	purged      int
}

func (c *fakeCache) Invalidate(name string) { c.invalidated = append(c.invalidated, name) }
func (c *fakeCache) Purge()                 { c.purged++ }

func catalogEvent(t *testing.T, data any) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(TopicCatalogUpdated, "catalog", "catalog", "catalog-admin", data)
	require.NoError(t, err)
	return e
}

func TestCatalogUpdatedHandler(t *testing.T) {
	cache := &fakeCache{}
	h := CatalogUpdatedHandler(cache, logger.Discard())

	require.NoError(t, h(context.Background(), catalogEvent(t, CatalogUpdatedData{Documents: []string{"product-bodkins", "knives"}})))
	assert.Equal(t, []string{"product-bodkins", "knives"}, cache.invalidated)
	assert.Zero(t, cache.purged)

	require.NoError(t, h(context.Background(), catalogEvent(t, CatalogUpdatedData{})))
	assert.Equal(t, 1, cache.purged)
}

func TestCatalogUpdatedHandler_BadPayload(t *testing.T) {
	h := CatalogUpdatedHandler(&fakeCache{}, logger.Discard())
	e := catalogEvent(t, nil)
	e.Data = json.RawMessage(`"not an object"`)
	assert.Error(t, h(context.Background(), e))
}

func TestCatalogUpdatedHandler_IdempotentWrapper(t *testing.T) {
	cache := &fakeCache{}
	h := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Minute), TopicCatalogUpdated, "storefront",
		CatalogUpdatedHandler(cache, logger.Discard()), logger.Discard())

	e := catalogEvent(t, CatalogUpdatedData{Documents: []string{"knives"}})
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Equal(t, []string{"knives"}, cache.invalidated)
}

func TestPublishCatalogUpdated_RoundTrip(t *testing.T) {
	pub := new(mockPublisher)
	var got *pkgkafka.Event
	pub.On("Publish", mock.Anything, TopicCatalogUpdated, mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { got = args.Get(2).(*pkgkafka.Event) }).
		Return(nil).Once()

	require.NoError(t, NewProducer(pub, logger.Discard()).PublishCatalogUpdated(context.Background(), []string{"knives"}))
	pub.AssertExpectations(t)
	require.NotNil(t, got)
	assert.Equal(t, AggregateTypeCatalog, got.AggregateType)

	cache := &fakeCache{}
	require.NoError(t, CatalogUpdatedHandler(cache, logger.Discard())(context.Background(), got))
	assert.Equal(t, []string{"knives"}, cache.invalidated)
}
