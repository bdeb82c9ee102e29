package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML or YAML file.
type Config struct {
	Sync       SyncConfig       `toml:"sync" yaml:"sync"`
	Database   DatabaseConfig   `toml:"database" yaml:"database"`
	Journal    JournalConfig    `toml:"journal" yaml:"journal"`
	Simulation SimulationConfig `toml:"simulation" yaml:"simulation"`
}

// SyncConfig contains the sync group settings.
//
// Numeric fields are pointers: an omitted key stays nil and the group substitutes its default,
// while an explicit value (zero included) is validated as given.
type SyncConfig struct {
	IntervalMS          *int     `toml:"interval_ms" yaml:"interval_ms"`
	MinimumPlaybackRate *float64 `toml:"minimum_playback_rate" yaml:"minimum_playback_rate"`
	MaximumPlaybackRate *float64 `toml:"maximum_playback_rate" yaml:"maximum_playback_rate"`
	Policy              string   `toml:"policy" yaml:"policy"`
	ExactSyncWhenPaused bool     `toml:"exact_sync_when_paused" yaml:"exact_sync_when_paused"`
	Debug               bool     `toml:"debug" yaml:"debug"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" yaml:"path"`
	MaxOpenConns int    `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns" yaml:"max_idle_conns"`
}

// JournalConfig controls persistence of sync loop decisions.
type JournalConfig struct {
	Enabled          bool    `toml:"enabled" yaml:"enabled"`
	SamplesPerSecond float64 `toml:"samples_per_second" yaml:"samples_per_second"`
	Burst            int     `toml:"burst" yaml:"burst"`
}

// SimulationConfig contains the defaults for `vsync simulate` and `vsync watch`.
type SimulationConfig struct {
	Followers       int     `toml:"followers" yaml:"followers"`
	MediaDuration   float64 `toml:"media_duration" yaml:"media_duration"`
	RunFor          float64 `toml:"run_for" yaml:"run_for"`
	MaxInitialDrift float64 `toml:"max_initial_drift" yaml:"max_initial_drift"`
	Skew            float64 `toml:"skew" yaml:"skew"`
	Seed            int64   `toml:"seed" yaml:"seed"`
}

// LoadConfig reads and parses a configuration file from the specified path.
//
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML config: %v", ErrInvalidConfig, err)
		}
	default:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from a dotenv file into the process environment.
// A missing file is not an error.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides configuration values from VSYNC_* environment variables.
//
//   - VSYNC_SYNC_INTERVAL_MS, VSYNC_MIN_RATE, VSYNC_MAX_RATE, VSYNC_POLICY, VSYNC_DEBUG
//   - VSYNC_DATABASE_PATH, VSYNC_JOURNAL
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("VSYNC_SYNC_INTERVAL_MS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: VSYNC_SYNC_INTERVAL_MS=%q", ErrInvalidConfig, v)
		}
		c.Sync.IntervalMS = &n
	}
	if v, ok := os.LookupEnv("VSYNC_MIN_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: VSYNC_MIN_RATE=%q", ErrInvalidConfig, v)
		}
		c.Sync.MinimumPlaybackRate = &f
	}
	if v, ok := os.LookupEnv("VSYNC_MAX_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: VSYNC_MAX_RATE=%q", ErrInvalidConfig, v)
		}
		c.Sync.MaximumPlaybackRate = &f
	}
	if v, ok := os.LookupEnv("VSYNC_POLICY"); ok {
		c.Sync.Policy = v
	}
	if v, ok := os.LookupEnv("VSYNC_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: VSYNC_DEBUG=%q", ErrInvalidConfig, v)
		}
		c.Sync.Debug = b
	}
	if v, ok := os.LookupEnv("VSYNC_DATABASE_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := os.LookupEnv("VSYNC_JOURNAL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: VSYNC_JOURNAL=%q", ErrInvalidConfig, v)
		}
		c.Journal.Enabled = b
	}
	return nil
}

// Validate checks the non-sync sections. Sync values are validated by the group that consumes them.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}
	if c.Journal.Enabled && c.Journal.SamplesPerSecond <= 0 {
		return fmt.Errorf("%w: journal samples_per_second must be larger than zero", ErrInvalidConfig)
	}
	if c.Simulation.Followers < 1 {
		return fmt.Errorf("%w: simulation needs at least one follower", ErrInvalidConfig)
	}
	if c.Simulation.MediaDuration <= 0 || c.Simulation.RunFor <= 0 {
		return fmt.Errorf("%w: simulation durations must be larger than zero", ErrInvalidConfig)
	}
	return nil
}
