package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidDedupBackend   = errors.New("invalid dedup backend")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.3.0"

// CurrentVersion is the current version of the config file.
const CurrentVersion = 1

// FileName is the name of the config file looked up in every search path.
const FileName = "scanner.toml"

const (
	DedupBackendMemory = "memory"
	DedupBackendRedis  = "redis"
)

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	Discord        Discord        `koanf:"discord"`
	Webhook        Webhook        `koanf:"webhook"`
	Dashboard      Dashboard      `koanf:"dashboard"`
	Scan           Scan           `koanf:"scan"`
	Dedup          Dedup          `koanf:"dedup"`
	Redis          Redis          `koanf:"redis"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Retry          Retry          `koanf:"retry"`

	// EnvFile is the dotenv file holding the credentials.
	EnvFile string `koanf:"env_file"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Also write logs to stdout.
	Console bool `koanf:"console"`
}

// Discord contains the user session configuration.
type Discord struct {
	// User token for the scanning session.
	Token string `koanf:"token"`
	// Optional HTTP proxy URL for REST and gateway traffic.
	ProxyURL string `koanf:"proxy_url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Maximum time in milliseconds to wait for a member list to load.
	MemberListTimeout int `koanf:"member_list_timeout"`
	// Base interval between profile fetches in milliseconds.
	EnrichmentInterval int `koanf:"enrichment_interval"`
	// Random jitter applied to the enrichment interval in milliseconds.
	EnrichmentJitter int `koanf:"enrichment_jitter"`
}

// Webhook contains the notification webhook configuration.
type Webhook struct {
	// Webhook URL. Empty disables notifications.
	URL string `koanf:"url"`
	// Delivery timeout in milliseconds.
	Timeout int `koanf:"timeout"`
}

// Dashboard contains the HTTP dashboard configuration.
type Dashboard struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// Value of the Access-Control-Allow-Origin header.
	AllowedOrigin string `koanf:"allowed_origin"`
}

// Scan contains scan loop configuration.
type Scan struct {
	// Pause after each confirmed match in milliseconds.
	MatchDelay int `koanf:"match_delay"`
	// Number of scanned members between progress updates.
	ProgressEvery int `koanf:"progress_every"`
	// Fetch extended profiles for members with composite indicators.
	EnrichComposite bool `koanf:"enrich_composite"`
	// Start one scan as soon as the session is ready.
	AutoStart bool `koanf:"auto_start"`
}

// Dedup selects the dedup cache backend.
type Dedup struct {
	// Backend is "memory" or "redis".
	Backend string `koanf:"backend"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// CircuitBreaker contains circuit breaker configuration.
type CircuitBreaker struct {
	// Maximum number of requests allowed to pass through when the circuit is half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// The cyclic period of the closed state for the circuit breaker to clear the internal counts.
	Interval int `koanf:"interval"`
	// The period of the open state after which the state of the circuit breaker becomes half-open.
	Timeout int `koanf:"timeout"`
}

// Retry contains retry configuration.
type Retry struct {
	// Maximum retry attempts.
	MaxRetries uint64 `koanf:"max_retries"`
	// Initial retry delay in milliseconds.
	Delay int `koanf:"delay"`
	// Maximum retry delay in milliseconds.
	MaxDelay int `koanf:"max_delay"`
}

// SearchPaths returns the directories searched for the config file, in order.
func SearchPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return []string{
		".tagscout",
		homeDir + "/.tagscout/config",
		"/etc/tagscout/config",
		"config",
		".",
	}, nil
}

// LoadConfig loads the configuration from the first search path holding it.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	paths, err := SearchPaths()
	if err != nil {
		return nil, "", err
	}

	return LoadConfigFrom(paths)
}

// LoadConfigFrom loads the configuration from the first of paths holding it,
// then overlays credentials from the environment and the dotenv file.
func LoadConfigFrom(paths []string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	for _, path := range paths {
		configPath := filepath.Join(path, FileName)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, FileName)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	config.applyDefaults()

	if config.Dedup.Backend != DedupBackendMemory && config.Dedup.Backend != DedupBackendRedis {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidDedupBackend, config.Dedup.Backend)
	}

	if err := ApplyEnv(&config); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// applyDefaults fills zero values with the built-in defaults.
func (c *Config) applyDefaults() {
	setDefault(&c.Debug.LogLevel, "info")
	setDefault(&c.Debug.MaxLogsToKeep, 10)
	setDefault(&c.Debug.MaxLogLines, 100000)
	setDefault(&c.Discord.RequestTimeout, 30000)
	setDefault(&c.Discord.MemberListTimeout, 60000)
	setDefault(&c.Discord.EnrichmentInterval, 1500)
	setDefault(&c.Discord.EnrichmentJitter, 500)
	setDefault(&c.Webhook.Timeout, 10000)
	setDefault(&c.Dashboard.Host, "0.0.0.0")
	setDefault(&c.Dashboard.Port, 3000)
	setDefault(&c.Dashboard.AllowedOrigin, "*")
	setDefault(&c.Scan.MatchDelay, 1000)
	setDefault(&c.Scan.ProgressEvery, 50)
	setDefault(&c.Dedup.Backend, DedupBackendMemory)
	setDefault(&c.Redis.Host, "localhost")
	setDefault(&c.Redis.Port, 6379)
	setDefault(&c.CircuitBreaker.MaxRequests, 1)
	setDefault(&c.CircuitBreaker.Timeout, 60000)
	setDefault(&c.Retry.MaxRetries, 3)
	setDefault(&c.Retry.Delay, 1000)
	setDefault(&c.Retry.MaxDelay, 10000)
	setDefault(&c.EnvFile, ".env")
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s", ErrConfigVersionMissing, FileName)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/tagscout/tagscout/tree/%s/config/%s",
			ErrConfigVersionMismatch,
			FileName,
			current,
			expected,
			RepositoryVersion,
			FileName,
		)
	}

	return nil
}
