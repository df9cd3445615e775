package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/otherjamesbrown/chatpulse/credentials"
	"github.com/otherjamesbrown/chatpulse/pkg/events"
)

const (
	testSealKey  = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	otherSealKey = "abababababababababababababababababababababababababababababababab"
)

// isolate points the config directory at a temp dir and clears CHATPULSE_ variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range SettableKeys() {
		t.Setenv(EnvName(key), "")
	}
	t.Setenv("CHATPULSE_CONFIG_DIR", dir)
	return dir
}

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.Timezone != "Local" {
		t.Errorf("Timezone = %v, want Local", cfg.Timezone)
	}
	if cfg.MaxInputBytes != 32<<20 {
		t.Errorf("MaxInputBytes = %v, want 32 MiB", cfg.MaxInputBytes)
	}
	if cfg.Server.ListenAddress != ":8080" {
		t.Errorf("Server.ListenAddress = %v, want :8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Events.Backend != events.BackendNone {
		t.Errorf("Events.Backend = %v, want none", cfg.Events.Backend)
	}
	if cfg.Debug || cfg.LogJSON {
		t.Error("Debug and LogJSON should be false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false}, // Case sensitive
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestCLIConfig_Validate verifies configuration validation.
func TestCLIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*CLIConfig)
		wantErr string
	}{
		{"defaults", func(c *CLIConfig) {}, ""},
		{"utc", func(c *CLIConfig) { c.Timezone = "UTC" }, ""},
		{"bad output", func(c *CLIConfig) { c.OutputFormat = "xml" }, "output_format"},
		{"bad timezone", func(c *CLIConfig) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"zero max bytes", func(c *CLIConfig) { c.MaxInputBytes = 0 }, "max_input_bytes"},
		{"no listen address", func(c *CLIConfig) { c.Server.ListenAddress = "" }, "listen_address"},
		{"zero read timeout", func(c *CLIConfig) { c.Server.ReadTimeout = 0 }, "read_timeout"},
		{"unknown backend", func(c *CLIConfig) { c.Events.Backend = "kafka" }, "events.backend"},
		{"redis without address", func(c *CLIConfig) { c.Events.Backend = "redis" }, "events.redis.address"},
		{"nats without url", func(c *CLIConfig) { c.Events.Backend = "nats" }, "events.nats.url"},
		{"redis with address", func(c *CLIConfig) {
			c.Events.Backend = "redis"
			c.Events.Redis.Address = DefaultRedisAddress
		}, ""},
		{"nats with url", func(c *CLIConfig) {
			c.Events.Backend = "nats"
			c.Events.NATS.URL = DefaultNATSURL
		}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

// TestCLIConfig_Location verifies timezone resolution.
func TestCLIConfig_Location(t *testing.T) {
	cfg := DefaultConfig()

	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Location() = %v, %v; want Local", loc, err)
	}

	cfg.Timezone = ""
	if loc, _ := cfg.Location(); loc != time.Local {
		t.Errorf("empty timezone should resolve to Local, got %v", loc)
	}

	cfg.Timezone = "UTC"
	if loc, _ := cfg.Location(); loc.String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", loc)
	}
}

// TestConfigDir verifies the config directory override.
func TestConfigDir(t *testing.T) {
	t.Setenv("CHATPULSE_CONFIG_DIR", "/tmp/chatpulse-test")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error: %v", err)
	}
	if dir != "/tmp/chatpulse-test" {
		t.Errorf("ConfigDir() = %v, want /tmp/chatpulse-test", dir)
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath() error: %v", err)
	}
	if path != filepath.Join("/tmp/chatpulse-test", "config.yaml") {
		t.Errorf("ConfigPath() = %v", path)
	}
}

// TestLoadConfig_Defaults verifies loading without a file or environment.
func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.OutputFormat != OutputFormatText {
		t.Errorf("OutputFormat = %v, want text", cfg.OutputFormat)
	}
	if cfg.MaxInputBytes != DefaultMaxInputBytes {
		t.Errorf("MaxInputBytes = %v, want default", cfg.MaxInputBytes)
	}
}

// TestLoadConfig_FromFile verifies loading values from the YAML file.
func TestLoadConfig_FromFile(t *testing.T) {
	dir := isolate(t)

	content := `output_format: json
timezone: UTC
max_input_bytes: 1048576
debug: true
server:
  listen_address: 127.0.0.1:9090
  read_timeout: 5s
events:
  backend: redis
  redis:
    address: redis:6379
    db: 2
    channel: chat.scores
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
	if cfg.MaxInputBytes != 1048576 {
		t.Errorf("MaxInputBytes = %v, want 1048576", cfg.MaxInputBytes)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:9090" {
		t.Errorf("Server.ListenAddress = %v", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Events.Backend != "redis" || cfg.Events.Redis.Address != "redis:6379" ||
		cfg.Events.Redis.DB != 2 || cfg.Events.Redis.Channel != "chat.scores" {
		t.Errorf("Events = %+v", cfg.Events)
	}
}

// TestLoadConfig_InvalidTimeout verifies a bad duration in the file is reported.
func TestLoadConfig_InvalidTimeout(t *testing.T) {
	dir := isolate(t)

	content := "server:\n  read_timeout: soon\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "read_timeout") {
		t.Errorf("LoadConfig() error = %v, want read_timeout parse error", err)
	}
}

// TestLoadConfig_WithEnvOverrides verifies environment variables override the file.
func TestLoadConfig_WithEnvOverrides(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("output_format: json\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("CHATPULSE_OUTPUT_FORMAT", "yaml")
	t.Setenv("CHATPULSE_TIMEZONE", "UTC")
	t.Setenv("CHATPULSE_LOG_JSON", "1")
	t.Setenv("CHATPULSE_EVENTS_BACKEND", "NATS")
	t.Setenv("CHATPULSE_EVENTS_NATS_URL", "nats://bus:4222")
	t.Setenv("CHATPULSE_EVENTS_NATS_TOKEN", "s3cret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.OutputFormat != OutputFormatYAML {
		t.Errorf("OutputFormat = %v, want yaml", cfg.OutputFormat)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON should be true")
	}
	if cfg.Events.Backend != "nats" || cfg.Events.NATS.URL != "nats://bus:4222" || cfg.Events.NATS.Token != "s3cret" {
		t.Errorf("Events = %+v", cfg.Events)
	}
}

// TestLoadConfig_InvalidEnv verifies a bad environment value names the variable.
func TestLoadConfig_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CHATPULSE_MAX_INPUT_BYTES", "lots")

	_, err := LoadConfig()
	if err == nil || !strings.Contains(err.Error(), "CHATPULSE_MAX_INPUT_BYTES") {
		t.Errorf("LoadConfig() error = %v, want mention of CHATPULSE_MAX_INPUT_BYTES", err)
	}
}

// TestLoadConfigFrom_Explicit verifies an explicit --config path.
func TestLoadConfigFrom_Explicit(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("LoadConfigFrom() should fail when the explicit file is missing")
	}

	if err := os.WriteFile(path, []byte("timezone: UTC\n"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error: %v", err)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
}

// TestCLIConfig_Set verifies setting each kind of key.
func TestCLIConfig_Set(t *testing.T) {
	cfg := DefaultConfig()

	valid := map[string]string{
		"output_format":         "json",
		"timezone":              "UTC",
		"max_input_bytes":       "2048",
		"debug":                 "true",
		"log_json":              "0",
		"server.listen_address": ":9000",
		"server.read_timeout":   "1m",
		"events.backend":        "redis",
		"events.redis.address":  "localhost:6380",
		"events.redis.password": "pw",
		"events.redis.db":       "3",
		"events.redis.channel":  "c",
		"events.nats.url":       "nats://x:4222",
		"events.nats.token":     "tok",
		"events.nats.subject":   "s",
	}
	for key, value := range valid {
		if err := cfg.Set(key, value); err != nil {
			t.Errorf("Set(%q, %q) error: %v", key, value, err)
		}
	}

	if cfg.OutputFormat != OutputFormatJSON || cfg.MaxInputBytes != 2048 || !cfg.Debug ||
		cfg.Server.ReadTimeout != time.Minute || cfg.Events.Redis.DB != 3 {
		t.Errorf("values not applied: %+v", cfg)
	}
	if len(valid) != len(SettableKeys()) {
		t.Errorf("test covers %d keys, SettableKeys has %d", len(valid), len(SettableKeys()))
	}

	invalid := map[string]string{
		"output_format":       "xml",
		"timezone":            "Nowhere/Special",
		"max_input_bytes":     "-1",
		"debug":               "yes",
		"server.read_timeout": "soon",
		"events.redis.db":     "-2",
		"no_such_key":         "x",
	}
	for key, value := range invalid {
		if err := cfg.Set(key, value); err == nil {
			t.Errorf("Set(%q, %q) should fail", key, value)
		}
	}
}

// TestEnvName verifies key to environment variable mapping.
func TestEnvName(t *testing.T) {
	if got := EnvName("events.redis.address"); got != "CHATPULSE_EVENTS_REDIS_ADDRESS" {
		t.Errorf("EnvName() = %v", got)
	}
	if got := EnvName("timezone"); got != "CHATPULSE_TIMEZONE" {
		t.Errorf("EnvName() = %v", got)
	}
}

// TestSaveConfig verifies a saved config loads back unchanged.
func TestSaveConfig(t *testing.T) {
	dir := isolate(t)

	cfg := DefaultConfig()
	cfg.OutputFormat = OutputFormatYAML
	cfg.Timezone = "UTC"
	cfg.Server.ReadTimeout = 45 * time.Second
	cfg.Events.Backend = events.BackendNATS
	cfg.Events.NATS.URL = "nats://bus:4222"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 600", perm)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if loaded.OutputFormat != OutputFormatYAML || loaded.Timezone != "UTC" ||
		loaded.Server.ReadTimeout != 45*time.Second || loaded.Events.NATS.URL != "nats://bus:4222" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

// TestSaveConfigTo_CreatesDirectory verifies missing directories are created.
func TestSaveConfigTo_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	if err := SaveConfigTo(DefaultConfig(), path); err != nil {
		t.Fatalf("SaveConfigTo() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

// TestCLIConfig_Redacted verifies secrets are masked without touching the original.
func TestCLIConfig_Redacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Events.Redis.Password = "pw"
	cfg.Events.NATS.Token = "tok"

	r := cfg.Redacted()
	if r.Events.Redis.Password != "********" || r.Events.NATS.Token != "********" {
		t.Errorf("secrets not masked: %+v", r.Events)
	}
	if cfg.Events.Redis.Password != "pw" {
		t.Error("Redacted modified the original config")
	}
}

// TestCLIConfig_PublisherConfig verifies conversion to the events package.
func TestCLIConfig_PublisherConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Events.Backend = events.BackendRedis
	cfg.Events.Redis = RedisConfig{Address: "r:6379", DB: 1, Channel: "c"}

	pc := cfg.PublisherConfig()
	if pc.Backend != events.BackendRedis || pc.Redis.Address != "r:6379" || pc.Redis.DB != 1 || pc.Redis.Channel != "c" {
		t.Errorf("PublisherConfig() = %+v", pc)
	}
}

// TestExpandPath verifies ~ expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := ExpandPath("~/chats/export.txt")
	if err != nil {
		t.Fatalf("ExpandPath() error: %v", err)
	}
	if got != filepath.Join(home, "chats/export.txt") {
		t.Errorf("ExpandPath() = %v", got)
	}

	if got, _ := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath() = %v, want unchanged", got)
	}
	if got, _ := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath(\"\") = %v, want empty", got)
	}
}

// TestSaveConfigTo_SealsSecrets verifies secrets never reach the file in plaintext.
func TestSaveConfigTo_SealsSecrets(t *testing.T) {
	dir := isolate(t)
	t.Setenv(credentials.EnvEncryptionKey, testSealKey)
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Events.Backend = events.BackendRedis
	cfg.Events.Redis.Address = "cache:6379"
	cfg.Events.Redis.Password = "hunter2"
	cfg.Events.NATS.Token = "nats-s3cret"

	if err := SaveConfigTo(cfg, path); err != nil {
		t.Fatalf("SaveConfigTo() error: %v", err)
	}
	if cfg.Events.Redis.Password != "hunter2" {
		t.Error("SaveConfigTo() modified the caller's config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "hunter2") || strings.Contains(content, "nats-s3cret") {
		t.Errorf("secret written in plaintext:\n%s", content)
	}
	if strings.Count(content, credentials.SealedPrefix) != 2 {
		t.Errorf("expected two sealed values:\n%s", content)
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() error: %v", err)
	}
	if loaded.Events.Redis.Password != "hunter2" || loaded.Events.NATS.Token != "nats-s3cret" {
		t.Errorf("round trip mismatch: %+v", loaded.Events)
	}

	// Saving again re-seals the opened values.
	if err := SaveConfigTo(loaded, path); err != nil {
		t.Fatalf("second SaveConfigTo() error: %v", err)
	}
	again, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("second LoadConfigFrom() error: %v", err)
	}
	if again.Events.Redis.Password != "hunter2" {
		t.Errorf("Redis.Password = %q after second round trip", again.Events.Redis.Password)
	}
}

// TestSaveConfigTo_NoSecretsNeedsNoKey verifies plain configs save without a key.
func TestSaveConfigTo_NoSecretsNeedsNoKey(t *testing.T) {
	dir := isolate(t)
	t.Setenv(credentials.EnvEncryptionKey, "not-hex")

	if err := SaveConfigTo(DefaultConfig(), filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("SaveConfigTo() error: %v", err)
	}
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
}

// TestSaveConfigTo_KeyUnavailable verifies a secret is not written when it cannot be sealed.
func TestSaveConfigTo_KeyUnavailable(t *testing.T) {
	dir := isolate(t)
	t.Setenv(credentials.EnvEncryptionKey, "not-hex")
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Events.NATS.Token = "tok"
	if err := SaveConfigTo(cfg, path); err == nil {
		t.Fatal("SaveConfigTo() expected error")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("config file written despite sealing failure")
	}
}

// TestLoadConfig_WrongSealKey verifies sealed secrets fail loudly under another key.
func TestLoadConfig_WrongSealKey(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")

	t.Setenv(credentials.EnvEncryptionKey, testSealKey)
	cfg := DefaultConfig()
	cfg.Events.Redis.Password = "hunter2"
	if err := SaveConfigTo(cfg, path); err != nil {
		t.Fatalf("SaveConfigTo() error: %v", err)
	}

	t.Setenv(credentials.EnvEncryptionKey, otherSealKey)
	_, err := LoadConfigFrom(path)
	if !errors.Is(err, ErrSealedSecrets) {
		t.Fatalf("LoadConfigFrom() error = %v, want ErrSealedSecrets", err)
	}
	if !errors.Is(err, credentials.ErrEncryptionFailed) {
		t.Errorf("LoadConfigFrom() error = %v, want ErrEncryptionFailed", err)
	}
	if !strings.Contains(err.Error(), "events.redis.password") {
		t.Errorf("error should name the key: %v", err)
	}
}

// TestLoadConfig_PlaintextSecret verifies hand-written secrets still load.
func TestLoadConfig_PlaintextSecret(t *testing.T) {
	dir := isolate(t)
	t.Setenv(credentials.EnvEncryptionKey, "")

	content := "events:\n  backend: nats\n  nats:\n    url: nats://bus:4222\n    token: plain-token\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Events.NATS.Token != "plain-token" {
		t.Errorf("NATS.Token = %q, want plain-token", cfg.Events.NATS.Token)
	}
}

func TestIsSecretKey(t *testing.T) {
	for _, key := range []string{"events.redis.password", "events.nats.token"} {
		if !IsSecretKey(key) {
			t.Errorf("IsSecretKey(%q) = false", key)
		}
	}
	if IsSecretKey("events.nats.url") {
		t.Error("IsSecretKey(events.nats.url) = true")
	}
}
