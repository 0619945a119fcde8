// Package cache memoises canonical tables per source.
//
// An entry is keyed by source identity (a file path or upload name) and
// validated by a fingerprint of the source bytes. Storing new content under
// an existing key replaces the old entry; a lookup with a different
// fingerprint misses and drops the stale entry.
package cache

import (
	"log/slog"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spektr-org/factboard/engine"
)

// Cache stores canonical tables.
type Cache interface {
	// Get returns the table stored under key if its fingerprint matches.
	Get(key string, fingerprint uint64) (*engine.Table, bool)
	// Put stores table under key, replacing any previous entry.
	Put(key string, fingerprint uint64, table *engine.Table)
	// Invalidate drops the entry stored under key.
	Invalidate(key string)
}

// Fingerprint hashes source content.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

type entry struct {
	fingerprint uint64
	table       *engine.Table
}

// Metrics counts cache outcomes.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	invalidations prometheus.Counter
	evictions     prometheus.Counter
}

// NewMetrics creates cache metrics. A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "factboard",
			Subsystem: "table_cache",
			Name:      "hits_total",
			Help:      "Total number of table cache hits.",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "factboard",
			Subsystem: "table_cache",
			Name:      "misses_total",
			Help:      "Total number of table cache misses.",
		}),
		invalidations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "factboard",
			Subsystem: "table_cache",
			Name:      "invalidations_total",
			Help:      "Total number of entries dropped because their source changed.",
		}),
		evictions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "factboard",
			Subsystem: "table_cache",
			Name:      "evictions_total",
			Help:      "Total number of entries evicted for capacity.",
		}),
	}
}

// LRU is a size-bounded Cache. Safe for concurrent use.
type LRU struct {
	entries *lru.Cache[string, entry]
	metrics *Metrics
	logger  *slog.Logger
}

// NewLRU creates a cache holding at most size tables.
func NewLRU(size int, metrics *Metrics, logger *slog.Logger) (*LRU, error) {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: entries, metrics: metrics, logger: logger}, nil
}

func (c *LRU) Get(key string, fingerprint uint64) (*engine.Table, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		c.metrics.misses.Inc()
		return nil, false
	}
	if e.fingerprint != fingerprint {
		c.entries.Remove(key)
		c.metrics.invalidations.Inc()
		c.metrics.misses.Inc()
		c.logger.Debug("table cache entry is stale", slog.String("key", key))
		return nil, false
	}
	c.metrics.hits.Inc()
	return e.table, true
}

func (c *LRU) Put(key string, fingerprint uint64, table *engine.Table) {
	if evicted := c.entries.Add(key, entry{fingerprint: fingerprint, table: table}); evicted {
		c.metrics.evictions.Inc()
		c.logger.Debug("table cache eviction", slog.String("stored", key))
	}
}

func (c *LRU) Invalidate(key string) {
	if c.entries.Remove(key) {
		c.metrics.invalidations.Inc()
	}
}

// Len returns the number of cached tables.
func (c *LRU) Len() int { return c.entries.Len() }

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(string, uint64) (*engine.Table, bool) { return nil, false }
func (Nop) Put(string, uint64, *engine.Table)        {}
func (Nop) Invalidate(string)                        {}
