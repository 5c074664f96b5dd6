package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/samber/lo"

	"github.com/tokenbar/tokenbar/internal/filecache"
	"github.com/tokenbar/tokenbar/internal/usage"
)

// Stats counts what one pass did per file.
type Stats struct {
	Files     int
	CacheHits int
	Parsed    int
	Failed    int
}

// Engine loads discovered files through the cache in parallel.
type Engine struct {
	cache   *filecache.Cache
	workers int
	log     *slog.Logger
}

// NewEngine builds an engine over the cache. workers ≤ 0 means hardware
// concurrency.
func NewEngine(cache *filecache.Cache, workers int, logger *slog.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cache: cache, workers: workers, log: logger}
}

// Load resolves every file to records, via the cache where valid and by
// parsing otherwise. Files are split into roughly equal batches, one per
// worker; results merge into a single slice under one mutex. A file that
// cannot be read contributes nothing and fails nothing else. Cancelling
// ctx abandons the unprocessed remainder and returns what was merged.
func (e *Engine) Load(ctx context.Context, files []FileInfo) ([]usage.Record, Stats) {
	if len(files) == 0 {
		return nil, Stats{}
	}

	workers := e.workers
	if workers > len(files) {
		workers = len(files)
	}
	chunkSize := (len(files) + workers - 1) / workers
	batches := lo.Chunk(files, chunkSize)

	var (
		mu      sync.Mutex
		records []usage.Record
		stats   = Stats{Files: len(files)}
	)

	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		go func(batch []FileInfo) {
			defer wg.Done()
			for _, f := range batch {
				select {
				case <-ctx.Done():
					return
				default:
				}

				recs, hit, err := e.loadFile(f)

				mu.Lock()
				switch {
				case err != nil:
					stats.Failed++
				case hit:
					stats.CacheHits++
				default:
					stats.Parsed++
				}
				records = append(records, recs...)
				mu.Unlock()
			}
		}(batch)
	}
	wg.Wait()

	return records, stats
}

func (e *Engine) loadFile(f FileInfo) ([]usage.Record, bool, error) {
	if recs, ok := e.cache.Lookup(f.Path, f.ModTime); ok {
		return recs, true, nil
	}

	recs, err := parseFile(f.Path)
	if err != nil {
		// Not cached: the next pass retries the file.
		e.log.Debug("skipping unreadable transcript", "path", f.Path, "err", err)
		return nil, false, err
	}

	e.cache.Store(f.Path, f.ModTime, recs)
	return recs, false, nil
}

func parseFile(path string) ([]usage.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var records []usage.Record
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 256*1024)
	scanner.Buffer(buf, 10*1024*1024) // transcript lines can be huge

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if rec, ok := usage.ParseLine(line); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: scanning %s: %w", filepath.Base(path), err)
	}
	return records, nil
}
