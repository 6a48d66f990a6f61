package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "TCA_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "TCA_API_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
	},
	{
		env: "TCA_OLLAMA_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
	},
	{
		env: "TCA_OLLAMA_ANNOTATE_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Ollama.AnnotateModel = v.(string) },
	},
	{
		env: "TCA_OLLAMA_FAST_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Ollama.FastModel = v.(string) },
	},
	{
		env: "TCA_OLLAMA_SQL_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Ollama.SQLModel = v.(string) },
	},
	{
		env: "TCA_OLLAMA_SUMMARY_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Ollama.SummaryModel = v.(string) },
	},
	{
		env: "TCA_STORAGE_DATA_DIR", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		env: "TCA_PIPELINE_POLL_INTERVAL", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Pipeline.PollInterval = v.(time.Duration) },
	},
	{
		env: "TCA_PIPELINE_RATE_LIMIT_DELAY", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Pipeline.RateLimitDelay = v.(time.Duration) },
	},
	{
		env: "TCA_PIPELINE_MAX_ANNOTATE_RETRIES", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Pipeline.MaxAnnotateRetries = v.(int) },
	},
	{
		env: "TCA_QUERY_MAX_ROWS", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Query.MaxRows = v.(int) },
	},
	{
		env: "TCA_QUERY_CELL_LIMIT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Query.CellLimit = v.(int) },
	},
	{
		env: "TCA_QUERY_TIMEOUT", typ: kDuration,
		apply: func(cfg *Config, v any) { cfg.Query.Timeout = v.(time.Duration) },
	},
	{
		env: "TCA_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
