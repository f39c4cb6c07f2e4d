package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// DefaultCacheSize is the number of documents kept when the caller does not
// choose.
const DefaultCacheSize = 128

// fetchTimeout bounds a shared fetch, which outlives the request that
// started it.
const fetchTimeout = 30 * time.Second

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_catalog_cache_lookups_total",
	Help: "Catalog document cache lookups by result.",
}, []string{"result"})

// Loader serves parsed documents from an LRU cache. Concurrent misses for
// the same document share one fetch. A fetch that overlaps an invalidation
// is returned to its callers but not cached.
type Loader struct {
	source Source
	cache  *lru.Cache[string, *Document]
	group  singleflight.Group
	epoch  atomic.Uint64
	logger *slog.Logger
}

// NewLoader creates a loader over source caching up to size documents.
func NewLoader(source Source, size int, logger *slog.Logger) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Document](size)
	if err != nil {
		return nil, fmt.Errorf("creating catalog cache: %w", err)
	}
	return &Loader{source: source, cache: cache, logger: logger}, nil
}

// Load returns the named document. The returned value is shared and must
// not be modified.
func (l *Loader) Load(ctx context.Context, name string) (*Document, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if doc, ok := l.cache.Get(name); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return doc, nil
	}
	cacheLookups.WithLabelValues("miss").Inc()

	epoch := l.epoch.Load()
	v, err, shared := l.group.Do(name, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		data, err := l.source.Fetch(fctx, name)
		if err != nil {
			return nil, err
		}
		doc := &Document{Name: name}
		if err := json.Unmarshal(data, doc); err != nil {
			l.logger.WarnContext(ctx, "catalog document is not valid JSON",
				slog.String("document", name),
				slog.String("error", err.Error()),
			)
			return nil, apperrors.Unavailable("Unable to load products. Please refresh the page and try again.", err)
		}
		doc.normalize()
		if l.epoch.Load() == epoch {
			l.cache.Add(name, doc)
		}
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.DebugContext(ctx, "catalog load coalesced", slog.String("document", name))
	}
	return v.(*Document), nil
}

// Invalidate drops name from the cache.
func (l *Loader) Invalidate(name string) {
	l.epoch.Add(1)
	l.group.Forget(name)
	if l.cache.Remove(name) {
		l.logger.Info("catalog document evicted", slog.String("document", name))
	}
}

// Purge empties the cache.
func (l *Loader) Purge() {
	l.epoch.Add(1)
	l.cache.Purge()
}

// Len is the number of cached documents.
func (l *Loader) Len() int {
	return l.cache.Len()
}

// Search loads every named document concurrently, merges their products in
// the order the names were given, filters them with q and returns one page.
func (l *Loader) Search(ctx context.Context, names []string, q Query, params pagination.Params) (pagination.Result[Product], error) {
	docs := make([]*Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		g.Go(func() error {
			doc, err := l.Load(gctx, name)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pagination.Result[Product]{}, err
	}

	var all []Product
	for _, d := range docs {
		all = append(all, d.Products...)
	}
	return pagination.Paginate(Filter(all, q), params), nil
}
