// Package cache persists fetched reference documents on disk, one
// subdirectory per document type, one timestamped entry per source URL.
// Corrupted entries are treated as misses and discarded; writes go through
// a temp file and rename so a crash never leaves a half-written entry.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

// Entry is one cached document with its fetch metadata.
type Entry struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	ETag      string    `json:"etag,omitempty"`
	Raw       []byte    `json:"raw"`
}

// Fresh reports whether the entry is younger than maxAge.
func (e *Entry) Fresh(maxAge time.Duration, now time.Time) bool {
	if e == nil || maxAge <= 0 {
		return false
	}
	return now.Sub(e.FetchedAt) < maxAge
}

// LocalCache stores entries under baseDir/<document type>/<url hash>.json.
type LocalCache struct {
	baseDir string
}

// New creates a LocalCache rooted at baseDir, creating the per-type
// subdirectories.
func New(baseDir string) (*LocalCache, error) {
	if baseDir == "" {
		return nil, eris.New("cache: empty base directory")
	}
	for _, t := range model.AllDocumentTypes() {
		if err := os.MkdirAll(filepath.Join(baseDir, string(t)), 0o755); err != nil {
			return nil, eris.Wrapf(err, "cache: create dir for %s", t)
		}
	}
	return &LocalCache{baseDir: baseDir}, nil
}

func (c *LocalCache) entryPath(t model.DocumentType, url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.baseDir, string(t), hex.EncodeToString(sum[:8])+".json")
}

// Get returns the cached entry for the URL, or nil when absent. A corrupted
// entry is removed and reported as a miss, never as an error.
func (c *LocalCache) Get(t model.DocumentType, url string) (*Entry, error) {
	path := c.entryPath(t, url)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "cache: read entry for %s", url)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.URL != url {
		zap.L().Warn("discarding corrupted cache entry",
			zap.String("type", string(t)),
			zap.String("url", url),
			zap.Error(err),
		)
		_ = os.Remove(path)
		return nil, nil
	}

	return &e, nil
}

// Put stores the entry atomically: write to a temp file in the same
// directory, then rename over the final path.
func (c *LocalCache) Put(t model.DocumentType, e Entry) error {
	if e.URL == "" {
		return eris.New("cache: entry without URL")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "cache: marshal entry")
	}

	path := c.entryPath(t, e.URL)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*.tmp")
	if err != nil {
		return eris.Wrap(err, "cache: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "cache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "cache: close temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "cache: install entry for %s", e.URL)
	}

	return nil
}
