// Package config loads runtime configuration from defaults, an optional
// .env file, and TCA_* environment variables, in that order of precedence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Ollama   OllamaConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Query    QueryConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type OllamaConfig struct {
	BaseURL       string
	AnnotateModel string
	FastModel     string
	SQLModel      string
	SummaryModel  string
}

type StorageConfig struct {
	DataDir string
}

type PipelineConfig struct {
	PollInterval       time.Duration
	RateLimitDelay     time.Duration
	MaxAnnotateRetries int
}

type QueryConfig struct {
	MaxRows   int
	CellLimit int
	Timeout   time.Duration
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Ollama: OllamaConfig{
			BaseURL:       "http://localhost:11434",
			AnnotateModel: "mistral-nemo",
			FastModel:     "phi3.5",
			SQLModel:      "mistral-nemo",
			SummaryModel:  "mistral-nemo",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Pipeline: PipelineConfig{
			PollInterval:       2 * time.Second,
			RateLimitDelay:     500 * time.Millisecond,
			MaxAnnotateRetries: 2,
		},
		Query: QueryConfig{
			MaxRows:   100,
			CellLimit: 2000,
			Timeout:   15 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then values from a .env file in
// the working directory if present, then TCA_* environment variables.
// Real environment variables win over .env entries.
func Load() (Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	cfg := defaults()
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tca")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", "tca")
}
