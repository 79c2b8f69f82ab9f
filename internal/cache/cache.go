// Package cache indexes the latest suggestion per device and persists the
// index as a single JSON document.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/RMahshie/apscanner/internal/observability"
	"github.com/RMahshie/apscanner/pkg/models"
)

// Entry is what the cache remembers about one device
type Entry struct {
	SSID       string            `json:"ssid"`
	File       string            `json:"file"`
	Suggestion models.Suggestion `json:"suggestion"`
}

// SuggestionCache maps a MAC address to the latest suggestion ingested for it.
// All methods are safe for concurrent use.
type SuggestionCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	fs      afero.Fs
}

// Option configures a SuggestionCache
type Option func(*SuggestionCache)

// WithFs sets the filesystem used by Load and Save
func WithFs(fs afero.Fs) Option {
	return func(c *SuggestionCache) { c.fs = fs }
}

// New creates an empty cache
func New(opts ...Option) *SuggestionCache {
	c := &SuggestionCache{
		entries: make(map[string]Entry),
		fs:      afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest upserts every device of the reading, keyed by MAC. The last ingest wins.
func (c *SuggestionCache) Ingest(r *models.Reading, file string) {
	var batch []models.Pair
	r.Each(func(p models.Pair) bool {
		batch = append(batch, p)
		return true
	})

	c.mu.Lock()
	for _, p := range batch {
		c.entries[p.Observation.MAC] = Entry{
			SSID:       p.Observation.SSID,
			File:       file,
			Suggestion: p.Suggestion,
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	observability.AddCacheIngested(len(batch))
	observability.SetCacheEntries(n)
}

// Lookup returns the stored suggestion for mac, but only when it was recorded
// under the same ssid. A MAC reused under another network name is a miss.
func (c *SuggestionCache) Lookup(ssid, mac string) (models.Suggestion, bool) {
	c.mu.RLock()
	e, ok := c.entries[mac]
	c.mu.RUnlock()

	hit := ok && e.SSID == ssid
	observability.IncCacheLookup(hit)
	if !hit {
		return models.Suggestion{}, false
	}
	return e.Suggestion, true
}

// Get returns the raw entry for mac
func (c *SuggestionCache) Get(mac string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[mac]
	return e, ok
}

// Len reports the number of devices held
func (c *SuggestionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot serializes the whole map. Only the copy happens under the lock.
func (c *SuggestionCache) Snapshot() ([]byte, error) {
	c.mu.RLock()
	entries := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		entries[k] = v
	}
	c.mu.RUnlock()

	return json.Marshal(entries)
}

// Restore replaces the whole map with a previously taken snapshot. The
// snapshot must be a JSON object whose every entry has a MAC and a usable
// suggestion. Otherwise the cache is left untouched.
func (c *SuggestionCache) Restore(data []byte) error {
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("invalid cache snapshot: %w", err)
	}
	if entries == nil {
		return fmt.Errorf("invalid cache snapshot: not an object")
	}
	for mac, e := range entries {
		if mac == "" {
			return fmt.Errorf("invalid cache snapshot: entry without mac")
		}
		if err := e.Suggestion.Valid(); err != nil {
			return fmt.Errorf("invalid cache snapshot entry %s: %w", mac, err)
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	observability.SetCacheEntries(len(entries))
	return nil
}

// LoadFrom replaces the cache with the snapshot held by sink. ErrNoSnapshot is
// returned when the sink is empty. On any error the cache keeps its content.
func (c *SuggestionCache) LoadFrom(ctx context.Context, sink Sink) error {
	data, err := sink.Read(ctx)
	if err != nil {
		return err
	}
	return c.Restore(data)
}

// SaveTo writes a snapshot of the whole cache to sink and reports its size
func (c *SuggestionCache) SaveTo(ctx context.Context, sink Sink) (int, error) {
	data, err := c.Snapshot()
	if err != nil {
		return 0, err
	}
	if err := sink.Write(ctx, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Load replaces the cache with the snapshot at path if it exists and parses.
// Otherwise the cache keeps its current content and false is returned.
func (c *SuggestionCache) Load(path string) bool {
	err := c.LoadFrom(context.Background(), NewFileSink(c.fs, path))
	switch {
	case errors.Is(err, ErrNoSnapshot):
		log.Debug().Str("path", path).Msg("No cache snapshot loaded")
		return false
	case err != nil:
		log.Warn().Err(err).Str("path", path).Msg("Ignoring unreadable cache snapshot")
		return false
	}
	log.Info().Str("path", path).Int("entries", c.Len()).Msg("Cache snapshot loaded")
	return true
}

// Save overwrites path with a snapshot of the whole cache
func (c *SuggestionCache) Save(path string) error {
	_, err := c.SaveTo(context.Background(), NewFileSink(c.fs, path))
	return err
}
