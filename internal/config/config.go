package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Backends selectable for the generation client.
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// Config holds the application configuration, loaded from environment
// variables.
type Config struct {
	ThemeDir        string        `envconfig:"THEME_DIR" default:"assets/themes/orizon"`
	SaveDir         string        `envconfig:"SAVE_DIR" default:".saves"`
	LogDir          string        `envconfig:"LOG_DIR" default:"logs"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	MaxTurns        int           `envconfig:"MAX_TURNS" default:"20"`
	HistoryCapacity int           `envconfig:"HISTORY_CAPACITY" default:"10"`

	GenBackend string        `envconfig:"GEN_BACKEND" default:"gemini"`
	GenTimeout time.Duration `envconfig:"GEN_TIMEOUT" default:"30s"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.MaxTurns < 1 {
		return nil, fmt.Errorf("MAX_TURNS must be at least 1, got %d", cfg.MaxTurns)
	}
	if cfg.HistoryCapacity < 1 {
		return nil, fmt.Errorf("HISTORY_CAPACITY must be at least 1, got %d", cfg.HistoryCapacity)
	}

	switch cfg.GenBackend {
	case BackendGemini, BackendOpenAI:
	default:
		return nil, fmt.Errorf("unknown GEN_BACKEND %q (expected %q or %q)", cfg.GenBackend, BackendGemini, BackendOpenAI)
	}

	return &cfg, nil
}
