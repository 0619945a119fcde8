package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spektr-org/factboard/cache"
	"github.com/spektr-org/factboard/engine"
	"github.com/spektr-org/factboard/schema"
)

// Source is raw dataset content with a stable identity.
type Source struct {
	ID   string // file path or upload name
	Data []byte
}

// Loader parses and canonicalises sources, memoising the result per source.
type Loader struct {
	cache  cache.Cache
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil cache disables memoisation.
func NewLoader(c cache.Cache, logger *slog.Logger) *Loader {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{cache: c, logger: logger}
}

// Load returns the canonical table of src for ds. Identical content under the
// same ID and dataset is parsed once.
func (l *Loader) Load(ctx context.Context, src Source, ds schema.Dataset) (*engine.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := ds.Name + "\x00" + src.ID
	fp := cache.Fingerprint(src.Data)
	log := l.logger.With(slog.String("dataset", ds.Name), slog.String("source", src.ID))

	if t, ok := l.cache.Get(key, fp); ok {
		log.Debug("table cache hit", slog.Int("rows", t.Len()))
		return t, nil
	}

	raw, skipped, err := ParseCSV(src.Data, ds)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.ID, err)
	}
	if skipped > 0 {
		log.Warn("skipped malformed rows", slog.Int("skipped", skipped))
	}

	table, err := engine.Canonicalize(raw, ds)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %s: %w", src.ID, err)
	}

	l.cache.Put(key, fp, table)
	log.Info("loaded table", slog.Int("rows", table.Len()), slog.Int("columns", len(table.Columns())))
	return table, nil
}

// LoadFile reads path and loads it as a source.
func (l *Loader) LoadFile(ctx context.Context, path string, ds schema.Dataset) (*engine.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file: %w", err)
	}
	return l.Load(ctx, Source{ID: path, Data: data}, ds)
}
