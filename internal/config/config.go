// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.cpxbuddy/config.yaml, or ./config.yaml)
//  3. Default values
//
// Categories:
//   - AI: model provider and name for the two language-model passes
//   - Copperx: platform API base URL and API key
//   - Sessions: directory for the file-backed session store
//   - Pusher: deposit-notification credentials (optional)
//   - Serve: HTTP listen address
//
// Sensitive fields (Copperx API key, Pusher secret) are masked in
// MarshalJSON and String. Validation is fail-fast with sentinel errors
// so callers can use errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingCopperxAPIKey indicates COPPERX_API_KEY is not set.
	ErrMissingCopperxAPIKey = errors.New("missing Copperx API key")

	// ErrInvalidCopperxURL indicates the Copperx base URL is not an absolute http(s) URL.
	ErrInvalidCopperxURL = errors.New("invalid Copperx API URL")

	// ErrMissingModelAPIKey indicates the model provider's API key is not set.
	ErrMissingModelAPIKey = errors.New("missing model API key")

	// ErrInvalidModelName indicates the model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidSessionsDir indicates the session directory is empty.
	ErrInvalidSessionsDir = errors.New("invalid sessions directory")

	// ErrInvalidHistoryBudget indicates the history token budget is out of range.
	ErrInvalidHistoryBudget = errors.New("invalid history token budget")

	// ErrIncompletePusherConfig indicates some but not all Pusher credentials are set.
	ErrIncompletePusherConfig = errors.New("incomplete Pusher configuration")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultModelName is the model used for both passes when unconfigured.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultHistoryTokens bounds the transcript sent on the first pass.
	DefaultHistoryTokens = 8000

	// MaxHistoryTokens is the absolute cap to keep requests within context windows.
	MaxHistoryTokens = 100000
)

// PusherConfig holds deposit-notification credentials.
// All four fields must be set together; leaving all empty disables notifications.
type PusherConfig struct {
	AppID   string `mapstructure:"app_id" json:"app_id"`
	Key     string `mapstructure:"key" json:"key"`
	Secret  string `mapstructure:"secret" json:"secret"` // SENSITIVE: masked in MarshalJSON
	Cluster string `mapstructure:"cluster" json:"cluster"`
}

// Enabled reports whether notification credentials are fully configured.
func (p PusherConfig) Enabled() bool {
	return p.AppID != "" && p.Key != "" && p.Secret != "" && p.Cluster != ""
}

// partial reports whether some but not all credentials are set.
func (p PusherConfig) partial() bool {
	any := p.AppID != "" || p.Key != "" || p.Secret != "" || p.Cluster != ""
	return any && !p.Enabled()
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// AI provider and model for both language-model passes.
	Provider  string `mapstructure:"provider" json:"provider"`
	ModelName string `mapstructure:"model_name" json:"model_name"`

	// Copperx platform access.
	CopperxAPIURL string `mapstructure:"copperx_api_url" json:"copperx_api_url"`
	CopperxAPIKey string `mapstructure:"copperx_api_key" json:"copperx_api_key"` // SENSITIVE: masked in MarshalJSON

	// Session persistence.
	SessionsDir string `mapstructure:"sessions_dir" json:"sessions_dir"`

	// Transcript budget for the first model pass.
	HistoryTokens int `mapstructure:"history_tokens" json:"history_tokens"`

	// HTTP transport.
	Addr string `mapstructure:"addr" json:"addr"`

	// Deposit notifications (optional).
	Pusher PusherConfig `mapstructure:"pusher" json:"pusher"`
}

// Load reads configuration with priority env > file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".cpxbuddy")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("provider", ProviderGoogleAI)
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("copperx_api_url", "https://income-api.copperx.io")
	viper.SetDefault("sessions_dir", filepath.Join(configDir, "sessions"))
	viper.SetDefault("history_tokens", DefaultHistoryTokens)
	viper.SetDefault("addr", "127.0.0.1:3000")
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is read directly by the Genkit plugin, not via Viper;
// Validate only checks its presence.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("copperx_api_key", "COPPERX_API_KEY")
	mustBind("copperx_api_url", "COPPERX_API_URL")
	mustBind("provider", "CPXBUDDY_PROVIDER")
	mustBind("model_name", "CPXBUDDY_MODEL_NAME")
	mustBind("sessions_dir", "CPXBUDDY_SESSIONS_DIR")
	mustBind("addr", "CPXBUDDY_ADDR")
	mustBind("pusher.app_id", "PUSHER_APP_ID")
	mustBind("pusher.key", "PUSHER_KEY")
	mustBind("pusher.secret", "PUSHER_SECRET")
	mustBind("pusher.cluster", "PUSHER_CLUSTER")
}

// Validate checks the configuration and fails fast with sentinel errors.
func (c *Config) Validate() error {
	if c.CopperxAPIKey == "" {
		return fmt.Errorf("%w: set COPPERX_API_KEY", ErrMissingCopperxAPIKey)
	}
	u, err := url.Parse(c.CopperxAPIURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidCopperxURL, c.CopperxAPIURL)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return ErrInvalidModelName
	}
	if strings.TrimSpace(c.SessionsDir) == "" {
		return ErrInvalidSessionsDir
	}
	if c.HistoryTokens <= 0 || c.HistoryTokens > MaxHistoryTokens {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidHistoryBudget, c.HistoryTokens, MaxHistoryTokens)
	}
	if c.Pusher.partial() {
		return fmt.Errorf("%w: set all of PUSHER_APP_ID, PUSHER_KEY, PUSHER_SECRET, PUSHER_CLUSTER or none", ErrIncompletePusherConfig)
	}
	if c.Provider == ProviderGoogleAI && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingModelAPIKey)
	}
	return nil
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash". Names already containing "/" pass through.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return c.Provider + "/" + c.ModelName
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep two characters at each end for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.CopperxAPIKey = maskSecret(a.CopperxAPIKey)
	a.Pusher.Secret = maskSecret(a.Pusher.Secret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
