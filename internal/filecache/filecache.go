// Package filecache caches the parsed records of transcript files across
// passes. Two tiers: a byte-budgeted in-memory LRU in front of an
// authoritative file-per-source directory on disk. Entries are validated
// against the source file's modification time; a changed file is simply a
// miss.
package filecache

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tokenbar/tokenbar/internal/usage"
)

// DefaultMemoryBudget bounds the memory tier when the config does not.
const DefaultMemoryBudget = 32 << 20

// Stored and probed mtimes may differ below this after a serialization
// roundtrip; treat them as equal.
const modTimeTolerance = time.Second

type Cache struct {
	dir string // "" after a failed create: memory-only mode
	mem *memoryTier
	log *slog.Logger
}

// New opens a cache rooted at dir. A dir that cannot be created degrades
// the cache to memory-only rather than failing.
func New(dir string, memBudget int64, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if memBudget <= 0 {
		memBudget = DefaultMemoryBudget
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Debug("cache dir unavailable, running memory-only", "dir", dir, "err", err)
			dir = ""
		}
	}
	return &Cache{dir: dir, mem: newMemoryTier(memBudget), log: logger}
}

// Lookup returns the cached records for path if the cached modification
// time matches modTime. Disk hits are promoted into the memory tier; stale
// or undecodable disk entries are removed.
func (c *Cache) Lookup(path string, modTime time.Time) ([]usage.Record, bool) {
	if e, ok := c.mem.get(path); ok {
		if sameModTime(e.modTime, modTime) {
			return e.records, true
		}
		c.mem.remove(path)
	}

	if c.dir == "" {
		return nil, false
	}

	file := filepath.Join(c.dir, cacheFileName(path))
	env, err := readEnvelope(file)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Debug("dropping unreadable cache entry", "file", file, "err", err)
			os.Remove(file)
		}
		return nil, false
	}
	if env.Path != path || !sameModTime(time.Unix(0, env.ModTimeNanos), modTime) {
		os.Remove(file)
		return nil, false
	}

	c.mem.put(path, modTime, env.Records)
	return env.Records, true
}

// Store records both tiers. Empty record sets are stored too, so files
// with no usage lines are not re-parsed every pass. Disk failures degrade
// to memory-only for that entry.
func (c *Cache) Store(path string, modTime time.Time, records []usage.Record) {
	c.mem.put(path, modTime, records)

	if c.dir == "" {
		return
	}
	env := diskEnvelope{
		Version:      envelopeVersion,
		Path:         path,
		ModTimeNanos: modTime.UnixNano(),
		Records:      records,
	}
	if err := writeEnvelope(filepath.Join(c.dir, cacheFileName(path)), env); err != nil {
		c.log.Debug("cache write failed", "path", path, "err", err)
	}
}

// Clear wipes both tiers and reports how many disk entries were removed.
// Nothing else ever empties the cache.
func (c *Cache) Clear() (int, error) {
	c.mem.clear()

	if c.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	var lastErr error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), cacheFileExt) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			lastErr = err
			continue
		}
		removed++
	}
	return removed, lastErr
}

func sameModTime(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < modTimeTolerance
}
