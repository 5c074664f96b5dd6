package filecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/tokenbar/tokenbar/internal/usage"
)

const envelopeVersion = 1

type diskEnvelope struct {
	Version      int            `json:"version"`
	Path         string         `json:"path"`
	ModTimeNanos int64          `json:"mod_time_unix_nanos"`
	Records      []usage.Record `json:"records"`
}

func readEnvelope(path string) (diskEnvelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return diskEnvelope{}, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return diskEnvelope{}, fmt.Errorf("filecache: opening zstd reader: %w", err)
	}
	defer zr.Close()

	var env diskEnvelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return diskEnvelope{}, fmt.Errorf("filecache: decoding %s: %w", filepath.Base(path), err)
	}
	if env.Version != envelopeVersion {
		return diskEnvelope{}, fmt.Errorf("filecache: %s has version %d, want %d", filepath.Base(path), env.Version, envelopeVersion)
	}
	return env, nil
}

func writeEnvelope(path string, env diskEnvelope) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filecache: creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("filecache: creating temp file: %w", err)
	}

	zw, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("filecache: opening zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(env); err != nil {
		zw.Close()
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("filecache: encoding envelope: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("filecache: flushing zstd writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("filecache: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("filecache: replacing cache file: %w", err)
	}
	return nil
}
