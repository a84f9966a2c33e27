package sortify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LabelCache is a durable per-image label store: one JSON file per image
// under <dir>/json/, holding the unified LabelRecord for both classification
// passes. Writes are field-scoped read-modify-writes serialized per image, so
// the scale and material pipelines can run concurrently against the same
// record without losing each other's updates.
type LabelCache struct {
	dir string // resolved <root>/json directory

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// OpenCache opens (creating if needed) the label cache rooted at dir.
// Records written by previous runs over the same dir remain readable.
func OpenCache(dir string) (*LabelCache, error) {
	jsonDir := filepath.Join(dir, "json")
	if err := os.MkdirAll(jsonDir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache %s: %w", dir, err)
	}
	return &LabelCache{
		dir:   jsonDir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (c *LabelCache) path(name string) string {
	return filepath.Join(c.dir, name+".json")
}

// lockFor returns the per-image mutex, creating it on first use.
func (c *LabelCache) lockFor(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.locks[name]
	if l == nil {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	return l
}

// Read returns the record for name, or (nil, nil) if the image was never
// classified. A record that exists but cannot be parsed yields ErrCacheCorrupt.
func (c *LabelCache) Read(name string) (*LabelRecord, error) {
	data, err := os.ReadFile(c.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache record %s: %w", name, err)
	}
	return decodeRecord(name, data)
}

func decodeRecord(name string, data []byte) (*LabelRecord, error) {
	var rec LabelRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheCorrupt, name, err)
	}
	if rec.ImageName == "" {
		return nil, fmt.Errorf("%w: %s: missing image_name", ErrCacheCorrupt, name)
	}
	return &rec, nil
}

// Has reports whether the named field is present and non-null for name.
// Presence of one field is never inferred from presence of the other.
func (c *LabelCache) Has(name string, field Field) bool {
	rec, err := c.Read(name)
	return err == nil && rec.Get(field) != nil
}

// Write performs a field-scoped read-modify-write: the existing record is
// loaded (or a fresh one constructed), exactly the named field is replaced,
// and the full record is persisted atomically. The other field's prior value
// is preserved exactly. Returns ErrWriteConflict if an external writer
// modified the record between the locked read and the replace. A nil result
// is rejected: fields are only ever replaced, never cleared.
func (c *LabelCache) Write(name string, field Field, result *FieldResult) error {
	if result == nil {
		return fmt.Errorf("write cache record %s: nil result for field %s", name, field)
	}

	l := c.lockFor(name)
	l.Lock()
	defer l.Unlock()

	path := c.path(name)
	before, err := modTime(path)
	if err != nil {
		return err
	}

	rec, err := c.Read(name)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &LabelRecord{ImageName: name}
	}
	if err := rec.set(field, result.Clone()); err != nil {
		return err
	}

	after, err := modTime(path)
	if err != nil {
		return err
	}
	if !before.Equal(after) {
		return fmt.Errorf("%w: %s: record changed by another writer", ErrWriteConflict, name)
	}

	return c.replace(path, rec)
}

// replace persists rec as a complete unit: a half-written file can never be
// observed because the temp file is renamed over the target only after a
// successful write.
func (c *LabelCache) replace(path string, rec *LabelRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache record %s: %w", rec.ImageName, err)
	}

	tmp, err := os.CreateTemp(c.dir, ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("write cache record %s: %w", rec.ImageName, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache record %s: %w", rec.ImageName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache record %s: %w", rec.ImageName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache record %s: %w", rec.ImageName, err)
	}
	return nil
}

// Names lists the identities of all cached records, in directory order.
func (c *LabelCache) Names() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache records: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(n), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(n, filepath.Ext(n)))
	}
	return names, nil
}

// modTime returns the file's mtime, or the zero time if it does not exist.
func modTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat cache record: %w", err)
	}
	return fi.ModTime(), nil
}
