// Package blockstore optionally archives raw fetched blocks to
// <data_dir>/blocks/<network>/<height>.json when a Network's store_blocks
// flag is set (spec.md §6). It reuses the same write-temp-then-rename
// durability idiom as pkg/cursor.
package blockstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes raw blocks for networks with StoreBlocks enabled.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Save persists block (any JSON-serializable raw block representation)
// for network at height. It always writes; callers decide whether to
// call it based on Network.StoreBlocks.
func (s *Store) Save(network string, height uint64, block interface{}) error {
	dir := filepath.Join(s.dataDir, "blocks", network)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating block store dir: %w", err)
	}

	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("marshaling block %d: %w", height, err)
	}

	final := filepath.Join(dir, fmt.Sprintf("%d.json", height))
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%d-*.tmp", height))
	if err != nil {
		return fmt.Errorf("creating temp block file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp block file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp block file: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp block file: %w", err)
	}
	return nil
}
