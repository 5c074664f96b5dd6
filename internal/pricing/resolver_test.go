package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const catalogJSON = `{
	"sample_spec": {"max_tokens": "set to max output tokens"},
	"claude-sonnet-4-20250514": {
		"input_cost_per_token": 0.000003,
		"output_cost_per_token": 0.000015,
		"cache_creation_input_token_cost": 0.00000375,
		"cache_read_input_token_cost": 0.0000003
	},
	"anthropic/claude-opus-4-1": {
		"input_cost_per_token": 0.000015,
		"output_cost_per_token": 0.000075
	},
	"claude-no-prices": {"litellm_provider": "anthropic"},
	"gpt-4o": {
		"input_cost_per_token": 0.0000025,
		"output_cost_per_token": 0.00001
	}
}`

func newCatalogServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(catalogJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolverEnsureFetches(t *testing.T) {
	srv := newCatalogServer(t, nil)
	r := NewResolver(Options{URL: srv.URL})

	r.Ensure(context.Background())

	rates, ok := r.Rate("claude-sonnet-4-20250514")
	if !ok {
		t.Fatal("Rate: model missing after Ensure")
	}
	if rates.Input != 0.000003 || rates.Output != 0.000015 {
		t.Errorf("rates = %+v", rates)
	}
	if rates.CacheWrite != 0.00000375 || rates.CacheRead != 0.0000003 {
		t.Errorf("cache rates = %+v", rates)
	}

	if _, ok := r.Rate("gpt-4o"); ok {
		t.Error("non-claude catalog entry survived the filter")
	}
	if _, ok := r.Rate("claude-no-prices"); ok {
		t.Error("entry without input/output costs survived the filter")
	}
	if _, ok := r.Rate("claude-opus-4-1"); !ok {
		t.Error("provider-prefixed key should resolve via variant lookup")
	}
}

func TestResolverEnsureRespectsTTL(t *testing.T) {
	var hits atomic.Int64
	srv := newCatalogServer(t, &hits)

	clock := time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC)
	r := NewResolver(Options{URL: srv.URL, Now: func() time.Time { return clock }})

	r.Ensure(context.Background())
	r.Ensure(context.Background())
	if hits.Load() != 1 {
		t.Fatalf("fetches within TTL = %d, want 1", hits.Load())
	}

	clock = clock.Add(25 * time.Hour)
	r.Ensure(context.Background())
	if hits.Load() != 2 {
		t.Fatalf("fetches after TTL expiry = %d, want 2", hits.Load())
	}
}

func TestResolverKeepsTableOnFetchFailure(t *testing.T) {
	srv := newCatalogServer(t, nil)
	clock := time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC)
	r := NewResolver(Options{URL: srv.URL, Now: func() time.Time { return clock }})

	r.Ensure(context.Background())
	srv.Close()

	clock = clock.Add(48 * time.Hour)
	r.Ensure(context.Background())

	if _, ok := r.Rate("claude-sonnet-4-20250514"); !ok {
		t.Error("table lost after a failed refresh; the last good table must be kept")
	}
}

func TestResolverPersistsAndRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	srv := newCatalogServer(t, nil)

	first := NewResolver(Options{URL: srv.URL, CachePath: path})
	first.Ensure(context.Background())
	srv.Close()

	// A new process with the network down starts from the persisted table.
	second := NewResolver(Options{URL: srv.URL, CachePath: path})
	second.Ensure(context.Background())

	rates, ok := second.Rate("claude-sonnet-4-20250514")
	if !ok {
		t.Fatal("persisted table not restored")
	}
	if rates.Input != 0.000003 {
		t.Errorf("restored Input = %v, want 0.000003", rates.Input)
	}
}

func TestResolverStaleDiskBeatsNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.json")
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := storedTable{
		FetchedAt: old,
		Rates:     map[string]Rates{"claude-sonnet-4-20250514": {Input: 1e-6, Output: 2e-6}},
	}
	if err := writeStoredTable(path, stored); err != nil {
		t.Fatalf("writeStoredTable: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(Options{URL: srv.URL, CachePath: path})
	r.Ensure(context.Background())

	if _, ok := r.Rate("claude-sonnet-4-20250514"); !ok {
		t.Error("a stale disk table must still beat an empty one when the fetch fails")
	}
}

func TestResolverEmptyEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewResolver(Options{URL: srv.URL})
	r.Ensure(context.Background())

	if _, ok := r.Rate("claude-sonnet-4-20250514"); ok {
		t.Error("no fetch, no disk copy: Rate should miss")
	}
}
