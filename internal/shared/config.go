package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Lucida   LucidaConfig   `toml:"lucida"`
	Download DownloadConfig `toml:"download"`
	Database DatabaseConfig `toml:"database"`
}

// LucidaConfig describes the conversion API endpoints, credentials and polling behavior.
type LucidaConfig struct {
	APIURL         string   `toml:"api_url"`
	JobURL         string   `toml:"job_url"` // {server} is replaced by the job's server name
	SourceURL      string   `toml:"source_url"`
	Token          string   `toml:"token"`
	TokenExpiry    int64    `toml:"token_expiry"`
	UploadService  string   `toml:"upload_service"`
	PollInterval   Duration `toml:"poll_interval"`
	MaxWait        Duration `toml:"max_wait"` // 0 waits forever
	RequestTimeout Duration `toml:"request_timeout"`
	UserAgent      string   `toml:"user_agent"`
}

// DownloadConfig contains defaults for download requests.
type DownloadConfig struct {
	OutputDir      string `toml:"output_dir"`
	Region         string `toml:"region"`
	Format         string `toml:"format"`
	CleanupPartial bool   `toml:"cleanup_partial"`
	SniffContent   bool   `toml:"sniff_content"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Duration wraps [time.Duration] so TOML files can use strings like "1s" or "10m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports configuration values that would make every download fail.
func (c *Config) Validate() error {
	if c.Lucida.APIURL == "" {
		return fmt.Errorf("%w: lucida.api_url is empty", ErrInvalidConfig)
	}
	if c.Lucida.JobURL == "" {
		return fmt.Errorf("%w: lucida.job_url is empty", ErrInvalidConfig)
	}
	if c.Lucida.PollInterval.Duration < 0 || c.Lucida.MaxWait.Duration < 0 || c.Lucida.RequestTimeout.Duration < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
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

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
