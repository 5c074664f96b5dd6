package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tokenbar/tokenbar/internal/pricing"
)

// Config is the persisted settings file. Unknown cost modes and
// out-of-range numbers are clamped back to defaults on load rather than
// rejected.
type Config struct {
	DataDirs               []string `json:"data_dirs"`
	RefreshIntervalSeconds int      `json:"refresh_interval_seconds"`
	CostMode               string   `json:"cost_mode"`
	MaxFileAgeDays         int      `json:"max_file_age_days"`
	MemoryCacheMB          int      `json:"memory_cache_mb"`
	CacheDir               string   `json:"cache_dir"`
	PricingURL             string   `json:"pricing_url"`
	PricingTTLHours        int      `json:"pricing_ttl_hours"`
	DisableUpdateCheck     bool     `json:"disable_update_check"`
}

func DefaultConfig() Config {
	return Config{
		DataDirs:               DefaultDataDirs(),
		RefreshIntervalSeconds: 60,
		CostMode:               string(pricing.ModeAuto),
		MaxFileAgeDays:         30,
		MemoryCacheMB:          32,
		CacheDir:               DefaultCacheDir(),
		PricingTTLHours:        24,
	}
}

// DefaultDataDirs lists the transcript roots the assistant writes to.
// Roots that do not exist are skipped at scan time.
func DefaultDataDirs() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".claude", "projects"),
		filepath.Join(home, ".config", "claude", "projects"),
	}
}

// DefaultCacheDir is where the file cache and the pricing snapshot live.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "tokenbar")
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "tokenbar")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tokenbar")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.DataDirs) == 0 {
		cfg.DataDirs = DefaultDataDirs()
	}
	if cfg.RefreshIntervalSeconds <= 0 {
		cfg.RefreshIntervalSeconds = 60
	}
	if _, err := pricing.ParseMode(cfg.CostMode); err != nil {
		cfg.CostMode = string(pricing.ModeAuto)
	}
	// Zero disables the age cutoff; only negatives are nonsense.
	if cfg.MaxFileAgeDays < 0 {
		cfg.MaxFileAgeDays = 30
	}
	if cfg.MemoryCacheMB <= 0 {
		cfg.MemoryCacheMB = 32
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir()
	}
	if cfg.PricingTTLHours <= 0 {
		cfg.PricingTTLHours = 24
	}

	return cfg, nil
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
