// ABOUTME: Configuration loading and parsing for the wellness client
// ABOUTME: YAML or TOML files with ${VAR} expansion, env overrides and durations

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/2389/wellness-client/internal/chat"
)

// Config represents the complete wellness client configuration
type Config struct {
	Service  ServiceConfig  `yaml:"service" toml:"service"`
	Chat     ChatConfig     `yaml:"chat" toml:"chat"`
	Web      WebConfig      `yaml:"web" toml:"web"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServiceConfig locates the remote conversation service
type ServiceConfig struct {
	URL string `yaml:"url" toml:"url" env:"WELLNESS_SERVICE_URL"`

	// Timeout bounds each turn's round-trip
	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout" env:"WELLNESS_SERVICE_TIMEOUT"`
}

// ChatConfig holds conversation behaviour
type ChatConfig struct {
	Greeting              string            `yaml:"greeting" toml:"greeting" env:"WELLNESS_GREETING"`
	HeuristicConfirmation bool              `yaml:"heuristic_confirmation" toml:"heuristic_confirmation" env:"WELLNESS_HEURISTIC_CONFIRMATION"`
	PlaceholderImage      string            `yaml:"placeholder_image" toml:"placeholder_image"`
	AgentLabels           map[string]string `yaml:"agent_labels" toml:"agent_labels"`
	Pacing                PacingConfig      `yaml:"pacing" toml:"pacing"`
}

// PacingConfig holds the conversational delays
type PacingConfig struct {
	Greeting    time.Duration `yaml:"-" toml:"-"`
	Reply       time.Duration `yaml:"-" toml:"-"`
	Suggestions time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	GreetingRaw    string `yaml:"greeting" toml:"greeting"`
	ReplyRaw       string `yaml:"reply" toml:"reply"`
	SuggestionsRaw string `yaml:"suggestions" toml:"suggestions"`
}

// WebConfig holds the browser frontend's settings
type WebConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"WELLNESS_HTTP_ADDR"`

	// SessionTTL is how long an idle browser session is kept
	SessionTTL    time.Duration `yaml:"-" toml:"-"`
	SessionTTLRaw string        `yaml:"session_ttl" toml:"session_ttl"`

	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key" env:"TS_AUTHKEY"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // public Funnel, implies HTTPS
}

// DatabaseConfig holds the transcript ledger location
type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps nothing after exit
	Path string `yaml:"path" toml:"path" env:"WELLNESS_DB_PATH"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"WELLNESS_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"WELLNESS_LOG_FORMAT"`
	File   string `yaml:"file" toml:"file" env:"WELLNESS_LOG_FILE"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			URL:        "http://localhost:8000",
			TimeoutRaw: "60s",
		},
		Chat: ChatConfig{
			Greeting:              chat.DefaultGreeting,
			HeuristicConfirmation: true,
			PlaceholderImage:      "/static/images/medicine/medicine-placeholder.jpg",
			Pacing: PacingConfig{
				GreetingRaw:    chat.DefaultPacing.Greeting.String(),
				ReplyRaw:       chat.DefaultPacing.Reply.String(),
				SuggestionsRaw: chat.DefaultPacing.Suggestions.String(),
			},
		},
		Web: WebConfig{
			HTTPAddr:      "127.0.0.1:8080",
			SessionTTLRaw: "30m",
			Tailscale: TailscaleConfig{
				Hostname: "wellness",
			},
		},
		Database: DatabaseConfig{
			Path: ":memory:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the config file location: $WELLNESS_CONFIG, else
// $XDG_CONFIG_HOME/wellness/client.yaml, else ~/.config/wellness/client.yaml.
func DefaultPath() string {
	if p := os.Getenv("WELLNESS_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wellness", "client.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "wellness", "client.yaml")
	}
	return filepath.Join(home, ".config", "wellness", "client.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, anything else as YAML. Values
// absent from the file keep their defaults. Environment variables in the
// format ${VAR_NAME} are expanded, then WELLNESS_* variables override.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(&cfg)
}

// LoadOrDefault loads path when it exists and otherwise starts from
// Default(). Environment overrides apply either way.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	def := Default()
	return finish(&def)
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Service.URL == "" {
		return fmt.Errorf("service.url is required")
	}
	u, err := url.Parse(c.Service.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("service.url must be an http(s) URL, got %q", c.Service.URL)
	}

	if c.Service.Timeout <= 0 {
		return fmt.Errorf("service.timeout must be positive")
	}

	if c.Chat.Pacing.Greeting < 0 || c.Chat.Pacing.Reply < 0 || c.Chat.Pacing.Suggestions < 0 {
		return fmt.Errorf("chat.pacing delays must not be negative")
	}

	if c.Web.Tailscale.Enabled && c.Web.Tailscale.Hostname == "" {
		return fmt.Errorf("web.tailscale.hostname is required when tailscale is enabled")
	}
	if !c.Web.Tailscale.Enabled && c.Web.HTTPAddr == "" {
		return fmt.Errorf("web.http_addr is required (or enable tailscale)")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"service.timeout", cfg.Service.TimeoutRaw, &cfg.Service.Timeout},
		{"chat.pacing.greeting", cfg.Chat.Pacing.GreetingRaw, &cfg.Chat.Pacing.Greeting},
		{"chat.pacing.reply", cfg.Chat.Pacing.ReplyRaw, &cfg.Chat.Pacing.Reply},
		{"chat.pacing.suggestions", cfg.Chat.Pacing.SuggestionsRaw, &cfg.Chat.Pacing.Suggestions},
		{"web.session_ttl", cfg.Web.SessionTTLRaw, &cfg.Web.SessionTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}
