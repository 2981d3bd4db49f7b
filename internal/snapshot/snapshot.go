// Package snapshot persists in-memory collections as JSON files on disk.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Persistence writes named snapshots into DataDir.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // serializes filesystem writes
}

// NewPersistence ensures dir exists.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

func (p *Persistence) path(name string) string {
	return filepath.Join(p.DataDir, name+".json")
}

// Save writes v as name.json atomically: a temp file is written then renamed
// over the old snapshot, so readers see either the old or the new file.
func (p *Persistence) Save(name string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", name, err)
	}

	target := p.path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// Load reads name.json into v. It reports false when no snapshot exists.
func (p *Persistence) Load(name string, v any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return true, nil
}
