// Package cache stores provider datasets as CSV files, one file per
// symbol, dataset kind and interval or frequency.
//
// A cached file is authoritative: once written it is returned as-is on every
// later lookup and never refreshed or expired. Removing the file is the only
// way to force a new download.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"MarketScout/internal/model"

	"github.com/rs/zerolog"
)

// Kind identifies the dataset stored under a key.
type Kind string

const (
	KindPrice        Kind = "price"
	KindFundamentals Kind = "fundamentals"
)

// Key identifies one cached dataset. Param is a price interval or a
// statement frequency.
type Key struct {
	Symbol string
	Kind   Kind
	Param  string
}

// FileName is the single key to file name mapping: <SYMBOL>_<param>-<kind>.csv.
func (k Key) FileName() string {
	sym := strings.ToUpper(strings.TrimSpace(k.Symbol))
	sym = strings.NewReplacer("/", "-", `\`, "-").Replace(sym)
	return fmt.Sprintf("%s_%s-%s.csv", sym, k.Param, k.Kind)
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", strings.ToUpper(k.Symbol), k.Kind, k.Param)
}

// FetchFunc produces the dataset for a key on a cache miss.
type FetchFunc func(ctx context.Context) (*model.Table, error)

// Cache is a directory of cached tables.
type Cache struct {
	dir string
	log zerolog.Logger
}

// New returns a cache rooted at dir, creating the directory when missing.
func New(dir string, logger zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir: dir,
		log: logger.With().Str("component", "cache").Logger(),
	}, nil
}

func (c *Cache) Dir() string { return c.dir }

// Path returns the file backing key.
func (c *Cache) Path(key Key) string {
	return filepath.Join(c.dir, key.FileName())
}

// Has reports whether a file exists for key.
func (c *Cache) Has(key Key) bool {
	info, err := os.Stat(c.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Load reads the table stored for key. It returns fs.ErrNotExist on a miss.
func (c *Cache) Load(key Key) (*model.Table, error) {
	return ReadFile(c.Path(key))
}

// Store writes t for key.
func (c *Cache) Store(key Key, t *model.Table) error {
	return WriteFile(c.Path(key), t)
}

// LoadOrFetch returns the cached table for key, or calls fetch and caches a
// non-empty result. A fetch error is logged and returned together with an
// empty table; callers are expected to move on to the next key.
func (c *Cache) LoadOrFetch(ctx context.Context, key Key, fetch FetchFunc) (*model.Table, error) {
	t, err := c.Load(key)
	switch {
	case err == nil:
		c.log.Debug().Str("key", key.String()).Msg("cache hit")
		return t, nil
	case errors.Is(err, fs.ErrNotExist):
		c.log.Debug().Str("key", key.String()).Msg("cache miss")
	default:
		c.log.Warn().Err(err).Str("key", key.String()).Msg("unreadable cache file, fetching again")
	}

	t, err = fetch(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", key.Symbol).Str("key", key.String()).Msg("fetch failed")
		return model.NewTable(""), err
	}
	if t.Empty() {
		return t, nil
	}
	if err := c.Store(key, t); err != nil {
		c.log.Error().Err(err).Str("key", key.String()).Msg("write cache file")
	}
	return t, nil
}
