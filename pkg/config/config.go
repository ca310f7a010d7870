package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Request   RequestConfig   `yaml:"request"`
	Cache     CacheConfig     `yaml:"cache"`
	DB        DBConfig        `yaml:"db"`
	Index     IndexConfig     `yaml:"index"`
	Palette   PaletteConfig   `yaml:"palette"`
	Animation AnimationConfig `yaml:"animation"`
	Distance  DistanceConfig  `yaml:"distance"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Trace    bool        `yaml:"trace"` // Super-verbose animation tick logs
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string   `yaml:"address"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	StreamBuffer    int      `yaml:"stream_buffer"` // Effects queued per websocket client
}

// SourceConfig selects where route and metadata records come from.
type SourceConfig struct {
	Kind          string   `yaml:"kind"` // "carto" or "file"
	Account       string   `yaml:"account"`
	RoutesTable   string   `yaml:"routes_table"`
	MetadataTable string   `yaml:"metadata_table"`
	RoutesFile    string   `yaml:"routes_file"`
	MetadataFile  string   `yaml:"metadata_file"`
	RetryInterval Duration `yaml:"retry_interval"` // Re-fetch cadence while a table is missing
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend       string   `yaml:"backend"` // "sqlite", "redis" or "none"
	TTL           Duration `yaml:"ttl"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisDB       int      `yaml:"redis_db"`
	PruneInterval Duration `yaml:"prune_interval"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig controls how records become waypoints.
type IndexConfig struct {
	Jitter    float64 `yaml:"jitter"`    // Degrees per axis, 0 disables
	Seed      int64   `yaml:"seed"`      // 0 seeds from the clock
	Threshold float64 `yaml:"threshold"` // Missing-text fraction above which a narrative is excluded
}

// PaletteConfig controls narrative display order.
type PaletteConfig struct {
	Order string `yaml:"order"` // "shuffle" or "sorted"
	Seed  int64  `yaml:"seed"`  // 0 seeds from the clock
}

// AnimationConfig holds the timing of visual transitions.
type AnimationConfig struct {
	ActivateDelay Duration `yaml:"activate_delay"`
	RevealStep    Duration `yaml:"reveal_step"`
	FlyDuration   Duration `yaml:"fly_duration"`
	FlyZoom       int      `yaml:"fly_zoom"`
	ProgressDelay Duration `yaml:"progress_delay"`
	CounterDelay  Duration `yaml:"counter_delay"`
}

// DistanceConfig holds the travelled-distance unit.
type DistanceConfig struct {
	Unit string `yaml:"unit"` // miles, kilometers, nautical
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server:   LogSettings{Path: "logs/server.log", Level: "INFO"},
			Requests: LogSettings{Path: "logs/requests.log", Level: "INFO"},
		},
		Server: ServerConfig{
			Address:         "localhost:1920",
			ShutdownTimeout: Duration(5 * time.Second),
			StreamBuffer:    256,
		},
		Source: SourceConfig{
			Kind:          "carto",
			Account:       "gravistar",
			RoutesTable:   "table_34_reordered_data",
			MetadataTable: "table_34_narratives_metadata",
			RetryInterval: Duration(1 * time.Minute),
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(1 * time.Second),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Cache: CacheConfig{
			Backend:       "sqlite",
			TTL:           Duration(Day),
			PruneInterval: Duration(1 * time.Hour),
		},
		DB: DBConfig{
			Path: "data/passages.db",
		},
		Index: IndexConfig{
			Jitter:    0.1,
			Threshold: 0.3,
		},
		Palette: PaletteConfig{
			Order: "shuffle",
		},
		Animation: AnimationConfig{
			ActivateDelay: Duration(500 * time.Millisecond),
			RevealStep:    Duration(100 * time.Millisecond),
			FlyDuration:   Duration(1500 * time.Millisecond),
			FlyZoom:       9,
			ProgressDelay: Duration(1500 * time.Millisecond),
			CounterDelay:  Duration(1500 * time.Millisecond),
		},
		Distance: DistanceConfig{
			Unit: "miles",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty settings from the environment (never saved back to disk).
func applyEnv(cfg *Config) {
	if cfg.Source.Account == "" {
		if v := os.Getenv("CARTO_ACCOUNT"); v != "" {
			cfg.Source.Account = v
		}
	}
	if cfg.Cache.RedisAddr == "" {
		if v := os.Getenv("REDIS_ADDR"); v != "" {
			cfg.Cache.RedisAddr = v
		}
	}
	if cfg.Cache.RedisPassword == "" {
		if v := os.Getenv("REDIS_PASSWORD"); v != "" {
			cfg.Cache.RedisPassword = v
		}
	}
}

// Validate checks enum fields and ranges.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "carto":
		if c.Source.Account == "" {
			return fmt.Errorf("source.account is required for the carto source")
		}
	case "file":
		if c.Source.RoutesFile == "" {
			return fmt.Errorf("source.routes_file is required for the file source")
		}
	default:
		return fmt.Errorf("invalid source.kind '%s': must be 'carto' or 'file'", c.Source.Kind)
	}
	switch c.Cache.Backend {
	case "sqlite", "redis", "none":
	default:
		return fmt.Errorf("invalid cache.backend '%s': must be 'sqlite', 'redis' or 'none'", c.Cache.Backend)
	}
	switch c.Palette.Order {
	case "shuffle", "sorted":
	default:
		return fmt.Errorf("invalid palette.order '%s': must be 'shuffle' or 'sorted'", c.Palette.Order)
	}
	if !isValidUnit(c.Distance.Unit) {
		return fmt.Errorf("invalid distance.unit '%s': must be 'miles', 'kilometers' or 'nautical'", c.Distance.Unit)
	}
	if c.Index.Threshold < 0 || c.Index.Threshold > 1 {
		return fmt.Errorf("invalid index.threshold %.2f: must be within [0, 1]", c.Index.Threshold)
	}
	if c.Index.Jitter < 0 {
		return fmt.Errorf("invalid index.jitter %.3f: must not be negative", c.Index.Jitter)
	}
	return nil
}

func isValidUnit(s string) bool {
	matched, _ := regexp.MatchString(`^(miles|kilometers|nautical)$`, s)
	return matched
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Passages Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Environment fallbacks: CARTO_ACCOUNT, REDIS_ADDR, REDIS_PASSWORD

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reKind := regexp.MustCompile(`(?m)^(\s+)kind:`)
	data = reKind.ReplaceAll(data, []byte("${1}# Options: carto, file\n${1}kind:"))

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: sqlite, redis, none\n${1}backend:"))

	reOrder := regexp.MustCompile(`(?m)^(\s+)order:`)
	data = reOrder.ReplaceAll(data, []byte("${1}# Options: shuffle (seeded, 0 = clock), sorted\n${1}order:"))

	reUnit := regexp.MustCompile(`(?m)^(\s+)unit:`)
	data = reUnit.ReplaceAll(data, []byte("${1}# Options: miles, kilometers, nautical\n${1}unit:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
