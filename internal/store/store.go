// Package store holds the cart and wishlist of one session: an ordered list
// of line items mirrored into the storage adapter after every mutation.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/notify"
	"github.com/utafrali/storefront/internal/storage"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_store_mutations_total",
	Help: "Successful cart and wishlist mutations by operation.",
}, []string{"store", "op"})

// Op names a mutation.
type Op string

const (
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
	OpQuantity Op = "quantity"
	OpClear    Op = "clear"
)

// Change describes the mutation a listener is told about.
type Change struct {
	Session string
	Op      Op
	ItemID  string
}

// Listener is invoked synchronously after every successful mutation, even
// when persisting it failed.
type Listener func(ctx context.Context, change Change, snap domain.Snapshot)

// Store is the state shared by Cart and Wishlist. Operations on one Store
// are serialised; two Stores over the same key are last-writer-wins.
type Store struct {
	kind     domain.Kind
	session  string
	key      string
	adapter  *storage.Adapter
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	loaded    bool
	items     []domain.LineItem
	listeners []Listener
}

func newStore(kind domain.Kind, session, key string, adapter *storage.Adapter, notifier notify.Notifier, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	return &Store{
		kind:     kind,
		session:  session,
		key:      key,
		adapter:  adapter,
		notifier: notifier,
		logger:   logger.With(slog.String("store", string(kind))),
		now:      time.Now,
	}
}

// Kind reports whether this is a cart or a wishlist.
func (s *Store) Kind() domain.Kind { return s.kind }

// Session returns the owning session id.
func (s *Store) Session() string { return s.session }

// OnChange registers fn to run after each mutation.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Init loads the persisted list if it has not been loaded yet. Missing or
// corrupt data yields an empty store; nothing is reported to the shopper.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)
}

// Reset forgets the in-memory list; the next operation reloads it.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.items = nil
}

// ensureLoaded must be called with mu held.
func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	raw := storage.Get[[]domain.LineItem](ctx, s.adapter, s.key, nil)
	items, dropped := domain.Sanitize(s.kind, raw)
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped malformed entries on load",
			slog.String("key", s.key),
			slog.Int("dropped", dropped),
		)
	}
	s.items = items
	s.loaded = true
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(context.Background())
	return domain.NewSnapshot(s.kind, s.items)
}

// Count is the summed quantity for a cart and the entry count for a wishlist.
func (s *Store) Count() int {
	return s.Snapshot().Count
}

// Has reports whether an entry with itemID exists.
func (s *Store) Has(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(context.Background())
	return s.indexOf(itemID) >= 0
}

// Remove deletes the entry with itemID. An absent id is a silent no-op that
// returns false.
func (s *Store) Remove(ctx context.Context, itemID string) (bool, error) {
	s.mu.Lock()
	s.ensureLoaded(ctx)
	i := s.indexOf(itemID)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return true, s.commit(ctx, Change{Op: OpRemove, ItemID: itemID}, s.removedMessage())
}

// Clear empties the store.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.ensureLoaded(ctx)
	s.items = nil
	return s.commit(ctx, Change{Op: OpClear}, nil)
}

func (s *Store) indexOf(itemID string) int {
	for i := range s.items {
		if s.items[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

func (s *Store) removedMessage() *notify.Message {
	var m notify.Message
	if s.kind == domain.KindCart {
		m = notify.Success("Item removed from cart")
	} else {
		m = notify.Info("Removed from wishlist")
	}
	return &m
}

// commit persists the list, releases mu and runs the listeners. It must be
// called with mu held. The in-memory mutation stands even when persisting
// fails; the shopper is warned and the error is returned.
func (s *Store) commit(ctx context.Context, change Change, confirm *notify.Message) error {
	change.Session = s.session
	snap := domain.NewSnapshot(s.kind, s.items)
	listeners := append([]Listener(nil), s.listeners...)

	var err error
	if setErr := s.adapter.Set(ctx, s.key, snap.Items); setErr != nil {
		msg := "Unable to save " + string(s.kind) + ". Your changes may be lost."
		err = apperrors.Unavailable(msg, setErr)
		confirm = nil
		s.notifier.Notify(ctx, notify.Error(msg))
	}
	s.mu.Unlock()

	mutations.WithLabelValues(string(s.kind), string(change.Op)).Inc()
	if confirm != nil {
		s.notifier.Notify(ctx, *confirm)
	}
	for _, fn := range listeners {
		fn(ctx, change, snap)
	}
	return err
}

// reject reports a validation failure to the shopper and returns it.
func (s *Store) reject(ctx context.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		s.notifier.Notify(ctx, notify.Error(appErr.Message))
	} else {
		s.notifier.Notify(ctx, notify.Error(domain.MsgInvalidProduct))
	}
	return err
}
