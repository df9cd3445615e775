// Package config provides configuration management for the chatpulse command-line tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/chatpulse/pkg/events"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is the human-readable result card.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultOutputFormat        = OutputFormatText
	DefaultTimezone            = "Local"
	DefaultMaxInputBytes int64 = 32 << 20
	DefaultListenAddress       = ":8080"
	DefaultReadTimeout         = 30 * time.Second
	DefaultEventsBackend       = events.BackendNone
	DefaultRedisAddress        = "localhost:6379"
	DefaultNATSURL             = "nats://127.0.0.1:4222"
	DefaultConfigDir           = ".chatpulse"
	DefaultConfigFile          = "config.yaml"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "CHATPULSE_"

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	// ListenAddress is the host:port the API binds to.
	ListenAddress string `yaml:"listen_address" json:"listen_address"`

	// ReadTimeout bounds how long a client may take to send a request.
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`
}

// RedisConfig holds Redis pub/sub settings.
type RedisConfig struct {
	Address  string `yaml:"address,omitempty" json:"address,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	DB       int    `yaml:"db,omitempty" json:"db,omitempty"`
	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
}

// NATSConfig holds NATS settings.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
	Token   string `yaml:"token,omitempty" json:"token,omitempty"`
	Subject string `yaml:"subject,omitempty" json:"subject,omitempty"`
}

// EventsConfig selects where analysis events are published.
type EventsConfig struct {
	// Backend is none, redis or nats.
	Backend string      `yaml:"backend" json:"backend"`
	Redis   RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
	NATS    NATSConfig  `yaml:"nats,omitempty" json:"nats,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// OutputFormat specifies the default output format for results.
	OutputFormat OutputFormat `yaml:"output_format" json:"output_format"`

	// Timezone is the IANA zone transcripts are read in, or "Local".
	// It decides which calendar day a reply belongs to.
	Timezone string `yaml:"timezone" json:"timezone"`

	// MaxInputBytes limits transcript size for files, stdin and uploads.
	MaxInputBytes int64 `yaml:"max_input_bytes" json:"max_input_bytes"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty" json:"debug,omitempty"`

	// LogJSON writes logs as JSON instead of console text.
	LogJSON bool `yaml:"log_json,omitempty" json:"log_json,omitempty"`

	// Server contains the HTTP API settings.
	Server ServerConfig `yaml:"server" json:"server"`

	// Events contains the event publishing settings.
	Events EventsConfig `yaml:"events" json:"events"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		OutputFormat:  DefaultOutputFormat,
		Timezone:      DefaultTimezone,
		MaxInputBytes: DefaultMaxInputBytes,
		Server: ServerConfig{
			ListenAddress: DefaultListenAddress,
			ReadTimeout:   DefaultReadTimeout,
		},
		Events: EventsConfig{
			Backend: DefaultEventsBackend,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $CHATPULSE_CONFIG_DIR if set, otherwise ~/.chatpulse
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the default file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.chatpulse/config.yaml or $CHATPULSE_CONFIG_DIR/config.yaml)
// 3. Environment variables (CHATPULSE_OUTPUT_FORMAT, CHATPULSE_TIMEZONE, ...)
func LoadConfig() (*CLIConfig, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom is LoadConfig with an explicit file. An explicit file must
// exist; the default file is optional.
func LoadConfigFrom(path string) (*CLIConfig, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting config path: %w", err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	// Overlay environment variables.
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	// Validate the configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// configFile mirrors CLIConfig with durations as strings.
type configFile struct {
	OutputFormat  OutputFormat `yaml:"output_format,omitempty"`
	Timezone      string       `yaml:"timezone,omitempty"`
	MaxInputBytes int64        `yaml:"max_input_bytes,omitempty"`
	Debug         bool         `yaml:"debug,omitempty"`
	LogJSON       bool         `yaml:"log_json,omitempty"`
	Server        struct {
		ListenAddress string `yaml:"listen_address,omitempty"`
		ReadTimeout   string `yaml:"read_timeout,omitempty"`
	} `yaml:"server,omitempty"`
	Events EventsConfig `yaml:"events,omitempty"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	if fileCfg.Timezone != "" {
		cfg.Timezone = fileCfg.Timezone
	}
	if fileCfg.MaxInputBytes != 0 {
		cfg.MaxInputBytes = fileCfg.MaxInputBytes
	}
	if fileCfg.Server.ListenAddress != "" {
		cfg.Server.ListenAddress = fileCfg.Server.ListenAddress
	}
	if fileCfg.Server.ReadTimeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Server.ReadTimeout)
		if err != nil {
			return fmt.Errorf("parsing server.read_timeout: %w", err)
		}
		cfg.Server.ReadTimeout = timeout
	}
	if err := openSecrets(&fileCfg.Events); err != nil {
		return err
	}
	if fileCfg.Events.Backend != "" {
		cfg.Events.Backend = fileCfg.Events.Backend
	}
	cfg.Events.Redis = fileCfg.Events.Redis
	cfg.Events.NATS = fileCfg.Events.NATS
	cfg.Debug = fileCfg.Debug
	cfg.LogJSON = fileCfg.LogJSON

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) error {
	for _, key := range SettableKeys() {
		name := EnvName(key)
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := cfg.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// EnvName returns the environment variable for a settable key, for example
// events.redis.address becomes CHATPULSE_EVENTS_REDIS_ADDRESS.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setters maps each settable key to its parser.
var setters = map[string]func(c *CLIConfig, v string) error{
	"output_format": func(c *CLIConfig, v string) error {
		format := OutputFormat(v)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", v)
		}
		c.OutputFormat = format
		return nil
	},
	"timezone": func(c *CLIConfig, v string) error {
		if _, err := time.LoadLocation(v); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
		c.Timezone = v
		return nil
	},
	"max_input_bytes": func(c *CLIConfig, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid max_input_bytes value: %s (must be a positive integer)", v)
		}
		c.MaxInputBytes = n
		return nil
	},
	"debug": func(c *CLIConfig, v string) error {
		return parseBool(v, &c.Debug)
	},
	"log_json": func(c *CLIConfig, v string) error {
		return parseBool(v, &c.LogJSON)
	},
	"server.listen_address": func(c *CLIConfig, v string) error {
		c.Server.ListenAddress = v
		return nil
	},
	"server.read_timeout": func(c *CLIConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid read_timeout value: %w", err)
		}
		c.Server.ReadTimeout = d
		return nil
	},
	"events.backend": func(c *CLIConfig, v string) error {
		c.Events.Backend = strings.ToLower(v)
		return nil
	},
	"events.redis.address": func(c *CLIConfig, v string) error {
		c.Events.Redis.Address = v
		return nil
	},
	"events.redis.password": func(c *CLIConfig, v string) error {
		c.Events.Redis.Password = v
		return nil
	},
	"events.redis.db": func(c *CLIConfig, v string) error {
		db, err := strconv.Atoi(v)
		if err != nil || db < 0 {
			return fmt.Errorf("invalid redis db value: %s (must be a non-negative integer)", v)
		}
		c.Events.Redis.DB = db
		return nil
	},
	"events.redis.channel": func(c *CLIConfig, v string) error {
		c.Events.Redis.Channel = v
		return nil
	},
	"events.nats.url": func(c *CLIConfig, v string) error {
		c.Events.NATS.URL = v
		return nil
	},
	"events.nats.token": func(c *CLIConfig, v string) error {
		c.Events.NATS.Token = v
		return nil
	},
	"events.nats.subject": func(c *CLIConfig, v string) error {
		c.Events.NATS.Subject = v
		return nil
	},
}

func parseBool(v string, dst *bool) error {
	switch v {
	case "true", "1":
		*dst = true
	case "false", "0":
		*dst = false
	default:
		return fmt.Errorf("invalid boolean value: %s (must be true or false)", v)
	}
	return nil
}

// SettableKeys returns every key accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value into the setting named key.
func (c *CLIConfig) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return set(c, value)
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.MaxInputBytes <= 0 {
		return fmt.Errorf("max_input_bytes must be positive")
	}

	if c.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	switch c.Events.Backend {
	case events.BackendNone, "":
	case events.BackendRedis:
		if c.Events.Redis.Address == "" {
			return fmt.Errorf("events.redis.address is required when events.backend is redis")
		}
	case events.BackendNATS:
		if c.Events.NATS.URL == "" {
			return fmt.Errorf("events.nats.url is required when events.backend is nats")
		}
	default:
		return fmt.Errorf("invalid events.backend: %q (must be none, redis, or nats)", c.Events.Backend)
	}

	return nil
}

// Location resolves Timezone. Empty and "Local" mean the system zone.
func (c *CLIConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PublisherConfig converts the events settings for events.New.
func (c *CLIConfig) PublisherConfig() events.Config {
	return events.Config{
		Backend: c.Events.Backend,
		Redis: events.RedisConfig{
			Address:  c.Events.Redis.Address,
			Password: c.Events.Redis.Password,
			DB:       c.Events.Redis.DB,
			Channel:  c.Events.Redis.Channel,
		},
		NATS: events.NATSConfig{
			URL:     c.Events.NATS.URL,
			Token:   c.Events.NATS.Token,
			Subject: c.Events.NATS.Subject,
		},
	}
}

// Redacted returns a copy with secrets masked, for display.
func (c *CLIConfig) Redacted() *CLIConfig {
	out := *c
	if out.Events.Redis.Password != "" {
		out.Events.Redis.Password = "********"
	}
	if out.Events.NATS.Token != "" {
		out.Events.NATS.Token = "********"
	}
	return &out
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the default config file.
func SaveConfig(cfg *CLIConfig) error {
	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("getting config path: %w", err)
	}
	return SaveConfigTo(cfg, configPath)
}

// SaveConfigTo saves the configuration to path, creating its directory.
// The Redis password and NATS token are sealed with a key from the system
// keyring or CHATPULSE_ENCRYPTION_KEY.
func SaveConfigTo(cfg *CLIConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var fileCfg configFile
	fileCfg.OutputFormat = cfg.OutputFormat
	fileCfg.Timezone = cfg.Timezone
	fileCfg.MaxInputBytes = cfg.MaxInputBytes
	fileCfg.Debug = cfg.Debug
	fileCfg.LogJSON = cfg.LogJSON
	fileCfg.Server.ListenAddress = cfg.Server.ListenAddress
	fileCfg.Server.ReadTimeout = cfg.Server.ReadTimeout.String()
	fileCfg.Events = cfg.Events
	if err := sealSecrets(&fileCfg.Events); err != nil {
		return err
	}

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
