// Package cursor implements BlockCursor: a durable, per-network "last
// processed block height" with atomic updates (spec.md §4.2). Durability
// is a write-temp-then-rename of a single JSON file, the same idiom the
// teacher's backup/restore path uses for atomic file replacement.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	logger "github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/blockwatch/sentinel/internal/model"
)

var log = logger.With().Str("component", "cursor").Logger()

// entry mirrors model's BlockCursor entry (spec.md §3).
type entry struct {
	LastProcessedHeight uint64    `json:"last_processed_height"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Cursor persists per-network last-processed heights to
// <data_dir>/block_cursors.json.
type Cursor struct {
	path string

	mu       sync.Mutex // guards file writes and the heights map
	heights  map[string]entry
	networks map[string]*atomic.Uint64 // fast in-memory mirror per network
}

// Load opens (or lazily creates) the cursor file at dataDir/block_cursors.json.
func Load(dataDir string) (*Cursor, error) {
	path := filepath.Join(dataDir, "block_cursors.json")
	c := &Cursor{
		path:     path,
		heights:  make(map[string]entry),
		networks: make(map[string]*atomic.Uint64),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cursor file %s: %w", path, err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.heights); err != nil {
		return nil, fmt.Errorf("decoding cursor file %s: %w", path, err)
	}
	for slug, e := range c.heights {
		c.networks[slug] = atomic.NewUint64(e.LastProcessedHeight)
	}
	return c, nil
}

// Get returns the last processed height for slug and whether one has
// ever been recorded (spec.md §4.2 Option<height>).
func (c *Cursor) Get(slug string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.networks[slug]
	if !ok {
		return 0, false
	}
	return a.Load(), true
}

// Set durably records height as the last processed height for slug. Per
// spec.md invariants, callers must ensure height is monotonic
// non-decreasing and that Set is called at most once per successful
// block-acquisition pass, after all notifications up to height have been
// dispatched.
func (c *Cursor) Set(slug string, height uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.networks[slug]; ok && height < a.Load() {
		return fmt.Errorf("cursor for %q would move backward: %d -> %d", slug, a.Load(), height)
	}

	c.heights[slug] = entry{LastProcessedHeight: height, UpdatedAt: time.Now()}
	if err := c.writeLocked(); err != nil {
		return &model.StorageError{Network: slug, Cause: err}
	}

	a, ok := c.networks[slug]
	if !ok {
		a = atomic.NewUint64(0)
		c.networks[slug] = a
	}
	a.Store(height)
	return nil
}

// writeLocked serializes c.heights and atomically replaces the cursor
// file via write-temp-then-rename. Caller must hold c.mu.
func (c *Cursor) writeLocked() error {
	data, err := json.MarshalIndent(c.heights, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cursor state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".block_cursors-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cursor file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp cursor file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cursor file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp cursor file: %w", err)
	}
	log.Debug().Str("path", c.path).Msg("wrote cursor state")
	return nil
}
