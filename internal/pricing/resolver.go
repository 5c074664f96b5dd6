package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultURL is the LiteLLM community pricing catalog: a JSON map of model
// name to per-token USD costs.
const DefaultURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// DefaultTTL is how long a fetched table stays fresh.
const DefaultTTL = 24 * time.Hour

const fetchTimeout = 10 * time.Second

// Options configures a Resolver. Zero fields take defaults.
type Options struct {
	URL       string
	TTL       time.Duration
	CachePath string // disk copy of the last good table; empty disables persistence
	Client    *http.Client
	Logger    *slog.Logger
	Now       func() time.Time
}

// Resolver owns the pricing table and all of its freshness logic. Callers
// never inspect table age: Ensure is invoked once at the start of a refresh
// pass, and Rate serves lookups against whatever table is current. Fetch
// failures keep the previous table (memory, else the disk copy regardless
// of age, else empty — in which case every computed cost is zero).
type Resolver struct {
	url    string
	ttl    time.Duration
	path   string
	client *http.Client
	log    *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	table     Table
	fetchedAt time.Time
	restored  bool // disk copy consulted
}

func NewResolver(opts Options) *Resolver {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Resolver{
		url:    opts.URL,
		ttl:    opts.TTL,
		path:   opts.CachePath,
		client: opts.Client,
		log:    opts.Logger,
		now:    opts.Now,
	}
}

// Rate resolves a model id against the current table.
func (r *Resolver) Rate(model string) (Rates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table.Lookup(model)
}

// Ensure makes the table as fresh as circumstances allow. Within the TTL it
// is a no-op; past it, the catalog is refetched. It never returns an error:
// every failure degrades to the last good table.
func (r *Resolver) Ensure(ctx context.Context) {
	r.restoreOnce()

	r.mu.RLock()
	fresh := r.table.Len() > 0 && r.now().Sub(r.fetchedAt) < r.ttl
	r.mu.RUnlock()
	if fresh {
		return
	}

	table, err := fetchTable(ctx, r.client, r.url)
	if err != nil {
		r.log.Debug("pricing fetch failed, keeping last table", "url", r.url, "err", err)
		return
	}

	now := r.now()
	r.mu.Lock()
	r.table = table
	r.fetchedAt = now
	r.mu.Unlock()

	if r.path != "" {
		if err := writeStoredTable(r.path, storedTable{FetchedAt: now, Rates: table.rates}); err != nil {
			r.log.Debug("persisting pricing table failed", "path", r.path, "err", err)
		}
	}
	r.log.Debug("pricing table refreshed", "models", table.Len())
}

// restoreOnce loads the persisted table the first time the resolver is
// used, so a fresh process starts from the last good table instead of
// zero costs.
func (r *Resolver) restoreOnce() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.restored {
		return
	}
	r.restored = true
	if r.path == "" {
		return
	}
	stored, err := readStoredTable(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Debug("reading persisted pricing table failed", "path", r.path, "err", err)
		}
		return
	}
	r.table = NewTable(stored.Rates)
	r.fetchedAt = stored.FetchedAt
}

type liteLLMEntry struct {
	InputCostPerToken  *float64 `json:"input_cost_per_token"`
	OutputCostPerToken *float64 `json:"output_cost_per_token"`
	CacheCreationCost  *float64 `json:"cache_creation_input_token_cost"`
	CacheReadCost      *float64 `json:"cache_read_input_token_cost"`
}

func fetchTable(ctx context.Context, client *http.Client, url string) (Table, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Table{}, fmt.Errorf("pricing: creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("pricing: fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("pricing: catalog fetch: HTTP %d", resp.StatusCode)
	}

	var raw map[string]liteLLMEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Table{}, fmt.Errorf("pricing: decoding catalog: %w", err)
	}

	rates := make(map[string]Rates)
	for key, entry := range raw {
		if !strings.Contains(strings.ToLower(key), "claude") {
			continue
		}
		if entry.InputCostPerToken == nil || entry.OutputCostPerToken == nil {
			continue
		}
		rt := Rates{
			Input:  *entry.InputCostPerToken,
			Output: *entry.OutputCostPerToken,
		}
		if entry.CacheCreationCost != nil {
			rt.CacheWrite = *entry.CacheCreationCost
		}
		if entry.CacheReadCost != nil {
			rt.CacheRead = *entry.CacheReadCost
		}
		rates[key] = rt
	}
	return NewTable(rates), nil
}

type storedTable struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Rates     map[string]Rates `json:"rates"`
}

func readStoredTable(path string) (storedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storedTable{}, err
	}
	var stored storedTable
	if err := json.Unmarshal(data, &stored); err != nil {
		return storedTable{}, fmt.Errorf("pricing: parsing persisted table %s: %w", path, err)
	}
	return stored, nil
}

func writeStoredTable(path string, stored storedTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pricing: creating cache dir: %w", err)
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("pricing: marshaling table: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("pricing: creating temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("pricing: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pricing: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pricing: replacing table file: %w", err)
	}
	return nil
}
