package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/audit"
	"github.com/biasbench/biasbench/internal/judge"
	"github.com/biasbench/biasbench/internal/model"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	ProviderGemini = "gemini"
	ProviderGroq   = "groq"

	// EnvConfigPath names the env var consulted when --config is not given.
	EnvConfigPath = "BIASBENCH_CONFIG"
	// DefaultPath is used when neither --config nor BIASBENCH_CONFIG is set.
	DefaultPath = "config.yaml"

	defaultAddr            = ":8000"
	defaultSQLitePath      = "biasbench.db"
	defaultProviderTimeout = 60 * time.Second
	slackWebhookPrefix     = "https://hooks.slack.com/"
)

// Config is the root configuration for BiasBench.
type Config struct {
	Server        ServerConfig
	Storage       StorageConfig
	Providers     ProvidersConfig
	Models        map[model.ModelKey]string // per-key model identifier overrides
	DefaultModels []model.ModelKey
	Judge         JudgeConfig
	HistoryLimit  int
	Notification  NotificationConfig
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// StorageConfig selects the audit store.
type StorageConfig struct {
	Driver string // "sqlite" or "mysql"
	Path   string // sqlite database file
	DSN    string // mysql data source name
}

// ProvidersConfig holds credentials for the remote model providers.
type ProvidersConfig struct {
	Timeout time.Duration // per-call timeout for every adapter
	Gemini  ProviderConfig
	Groq    ProviderConfig
}

// ProviderConfig is the connection info for one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// JudgeConfig selects the evaluation model.
type JudgeConfig struct {
	Provider    string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" (also when empty) or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Server        rawServerConfig           `yaml:"server"`
	Storage       rawStorageConfig          `yaml:"storage"`
	Providers     rawProvidersConfig        `yaml:"providers"`
	Models        map[string]rawModelConfig `yaml:"models"`
	DefaultModels []string                  `yaml:"default_models"`
	Judge         rawJudgeConfig            `yaml:"judge"`
	HistoryLimit  int                       `yaml:"history_limit"`
	Notification  NotificationConfig        `yaml:"notification"`
}

type rawServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type rawStorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type rawProvidersConfig struct {
	Timeout string         `yaml:"timeout"`
	Gemini  ProviderConfig `yaml:"gemini"`
	Groq    ProviderConfig `yaml:"groq"`
}

type rawModelConfig struct {
	Model string `yaml:"model"`
}

type rawJudgeConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	Timeout     string   `yaml:"timeout"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg, err := build(rawConfig{})
	if err != nil {
		// The zero rawConfig always builds.
		panic(err)
	}
	return cfg
}

// Resolve picks the config path: flagPath, then $BIASBENCH_CONFIG, then
// DefaultPath. explicit reports whether the user named the file.
func Resolve(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, true
	}
	return DefaultPath, false
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads path. When the file is missing and was not named
// explicitly, defaults are returned instead.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	var err error

	providerTimeout := defaultProviderTimeout
	if raw.Providers.Timeout != "" {
		providerTimeout, err = time.ParseDuration(raw.Providers.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse providers.timeout %q: %w", raw.Providers.Timeout, err)
		}
	}

	judgeTimeout := providerTimeout
	if raw.Judge.Timeout != "" {
		judgeTimeout, err = time.ParseDuration(raw.Judge.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse judge.timeout %q: %w", raw.Judge.Timeout, err)
		}
	}

	judgeTemperature := judge.DefaultTemperature
	if raw.Judge.Temperature != nil {
		judgeTemperature = *raw.Judge.Temperature
	}

	overrides := make(map[model.ModelKey]string, len(raw.Models))
	for key, m := range raw.Models {
		if m.Model != "" {
			overrides[model.ModelKey(key)] = m.Model
		}
	}

	defaults := make([]model.ModelKey, 0, len(raw.DefaultModels))
	for _, k := range raw.DefaultModels {
		defaults = append(defaults, model.ModelKey(strings.TrimSpace(k)))
	}
	if len(defaults) == 0 {
		defaults = model.DefaultSelection()
	}

	historyLimit := raw.HistoryLimit
	if historyLimit == 0 {
		historyLimit = audit.DefaultHistoryLimit
	}

	cors := raw.Server.CORSOrigins
	if len(cors) == 0 {
		cors = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:        withDefault(raw.Server.Addr, defaultAddr),
			CORSOrigins: cors,
		},
		Storage: StorageConfig{
			Driver: withDefault(raw.Storage.Driver, DriverSQLite),
			Path:   withDefault(raw.Storage.Path, defaultSQLitePath),
			DSN:    raw.Storage.DSN,
		},
		Providers: ProvidersConfig{
			Timeout: providerTimeout,
			Gemini: ProviderConfig{
				APIKey:  withDefault(raw.Providers.Gemini.APIKey, os.Getenv("GEMINI_API_KEY")),
				BaseURL: withDefault(raw.Providers.Gemini.BaseURL, ai.DefaultGeminiBaseURL),
			},
			Groq: ProviderConfig{
				APIKey:  withDefault(raw.Providers.Groq.APIKey, os.Getenv("GROQ_API_KEY")),
				BaseURL: withDefault(raw.Providers.Groq.BaseURL, ai.DefaultGroqBaseURL),
			},
		},
		Models:        overrides,
		DefaultModels: defaults,
		Judge: JudgeConfig{
			Provider:    withDefault(raw.Judge.Provider, ProviderGroq),
			Model:       withDefault(raw.Judge.Model, judge.DefaultModel),
			Temperature: judgeTemperature,
			Timeout:     judgeTimeout,
		},
		HistoryLimit: historyLimit,
		Notification: raw.Notification,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case DriverSQLite:
	case DriverMySQL:
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.driver is %q", DriverMySQL)
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverMySQL, cfg.Storage.Driver)
	}

	if cfg.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive, got %v", cfg.Providers.Timeout)
	}

	for key := range cfg.Models {
		if !key.IsKnown() {
			return fmt.Errorf("models: unknown model key %q", key)
		}
	}
	for _, key := range cfg.DefaultModels {
		if !key.IsKnown() {
			return fmt.Errorf("default_models: unknown model key %q", key)
		}
	}

	if cfg.Judge.Provider != ProviderGemini && cfg.Judge.Provider != ProviderGroq {
		return fmt.Errorf("judge.provider must be %q or %q, got %q", ProviderGemini, ProviderGroq, cfg.Judge.Provider)
	}
	if cfg.Judge.Temperature < 0 || cfg.Judge.Temperature > 2 {
		return fmt.Errorf("judge.temperature must be between 0 and 2, got %v", cfg.Judge.Temperature)
	}
	if cfg.Judge.Timeout <= 0 {
		return fmt.Errorf("judge.timeout must be positive, got %v", cfg.Judge.Timeout)
	}

	if cfg.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be at least 1, got %d", cfg.HistoryLimit)
	}

	switch cfg.Notification.Type {
	case "", "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
