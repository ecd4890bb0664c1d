package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration, loaded from environment
// variables with a .env fallback handled by the caller.
type Config struct {
	// HTTP listen port
	Port int `env:"PORT" envDefault:"3000"`

	// Gemini (OpenAI-compatible endpoint) configuration
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	TextModel     string `env:"TEXT_MODEL" envDefault:"gemini-2.0-flash"`
	VisionModel   string `env:"VISION_MODEL" envDefault:"gemini-1.5-flash"`

	// Provider rate limit, requests per minute
	SynthRPM int `env:"SYNTH_RPM" envDefault:"30"`

	// Auth: the shared-secret login name and the JWT signing secret
	SecretName string `env:"SECRET_NAME"`
	JWTSecret  string `env:"JWT_SECRET" envDefault:"your-default-secret"`

	// The single logical session id
	SessionID string `env:"SESSION_ID" envDefault:"single-user-session"`

	// Message store path; defaults to ~/.companion/messages.db
	DBPath string `env:"DB_PATH"`

	// Scheduled proactive triggers, wall-clock in Timezone
	Timezone     string `env:"TIMEZONE" envDefault:"Asia/Jakarta"`
	MorningHour  int    `env:"MORNING_HOUR" envDefault:"6"`
	DeepTalkHour int    `env:"DEEP_TALK_HOUR" envDefault:"22"`

	// Prompts YAML path (optional, falls back to built-in defaults)
	PromptsConfigPath string `env:"PROMPTS_CONFIG_PATH"`

	// Debug mode
	Debug bool `env:"DEBUG"`

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig `env:"-"`
}

// LoadFromEnv loads configuration from environment variables and the
// prompts YAML file.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.DBPath = filepath.Join(homeDir, ".companion", "messages.db")
	}

	prompts, err := LoadPromptsConfig(cfg.PromptsConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Prompts = prompts

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return &ConfigError{Field: "GEMINI_API_KEY", Message: "required"}
	}
	if c.SecretName == "" {
		return &ConfigError{Field: "SECRET_NAME", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
