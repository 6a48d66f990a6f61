package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("base url = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.AnnotateModel != "mistral-nemo" || cfg.Ollama.FastModel != "phi3.5" {
		t.Errorf("models = %+v", cfg.Ollama)
	}
	if cfg.Pipeline.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v", cfg.Pipeline.PollInterval)
	}
	if cfg.Query.MaxRows != 100 || cfg.Query.CellLimit != 2000 {
		t.Errorf("query = %+v", cfg.Query)
	}
	if cfg.Query.Timeout != 15*time.Second {
		t.Errorf("query timeout = %v", cfg.Query.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("data dir is empty")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TCA_SERVER_PORT", "8080")
	t.Setenv("TCA_API_TOKEN", "secret-token")
	t.Setenv("TCA_OLLAMA_BASE_URL", "http://ollama.internal:11434")
	t.Setenv("TCA_OLLAMA_ANNOTATE_MODEL", "llama3.1")
	t.Setenv("TCA_STORAGE_DATA_DIR", "/tmp/tca-test")
	t.Setenv("TCA_PIPELINE_POLL_INTERVAL", "250ms")
	t.Setenv("TCA_PIPELINE_MAX_ANNOTATE_RETRIES", "5")
	t.Setenv("TCA_QUERY_MAX_ROWS", "25")
	t.Setenv("TCA_QUERY_TIMEOUT", "3s")
	t.Setenv("TCA_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.APIToken != "secret-token" {
		t.Errorf("token = %q", cfg.Server.APIToken)
	}
	if cfg.Ollama.BaseURL != "http://ollama.internal:11434" {
		t.Errorf("base url = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.AnnotateModel != "llama3.1" {
		t.Errorf("annotate model = %q", cfg.Ollama.AnnotateModel)
	}
	// Unset models keep their defaults.
	if cfg.Ollama.FastModel != "phi3.5" {
		t.Errorf("fast model = %q", cfg.Ollama.FastModel)
	}
	if cfg.Storage.DataDir != "/tmp/tca-test" {
		t.Errorf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Pipeline.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.Pipeline.PollInterval)
	}
	if cfg.Pipeline.MaxAnnotateRetries != 5 {
		t.Errorf("retries = %d", cfg.Pipeline.MaxAnnotateRetries)
	}
	if cfg.Query.MaxRows != 25 || cfg.Query.Timeout != 3*time.Second {
		t.Errorf("query = %+v", cfg.Query)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

// Unparseable values keep the default instead of failing startup.
func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("TCA_SERVER_PORT", "not-a-number")
	t.Setenv("TCA_QUERY_TIMEOUT", "eventually")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want default 4000", cfg.Server.Port)
	}
	if cfg.Query.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want default 15s", cfg.Query.Timeout)
	}
}
