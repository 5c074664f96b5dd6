// Package ingest turns a set of transcript directories into usage records:
// recursive discovery with a staleness horizon, then a parallel
// cache-aware load of the surviving files.
package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// FileInfo is one discovered transcript file with the mtime observed at
// discovery. The same mtime is what the cache validates against later.
type FileInfo struct {
	Path    string
	ModTime time.Time
}

// DefaultHorizon skips files untouched for this long. A transcript that
// old cannot contribute to the current month.
const DefaultHorizon = 30 * 24 * time.Hour

// Discover walks each root for .jsonl files, drops those older than the
// horizon (0 disables the heuristic), and returns the rest newest-first.
// Missing or unreadable roots are skipped, not errors.
func Discover(roots []string, horizon time.Duration, now time.Time) []FileInfo {
	var files []FileInfo
	for _, root := range roots {
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable subtrees
			}
			if d.IsDir() || !strings.HasSuffix(path, ".jsonl") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files = append(files, FileInfo{Path: path, ModTime: info.ModTime()})
			return nil
		})
	}

	// Overlapping roots must not double-count a transcript.
	files = lo.UniqBy(files, func(f FileInfo) string { return f.Path })

	if horizon > 0 {
		cutoff := now.Add(-horizon)
		files = lo.Filter(files, func(f FileInfo, _ int) bool {
			return !f.ModTime.Before(cutoff)
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files
}
