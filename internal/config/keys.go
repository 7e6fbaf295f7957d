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
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "VIDQA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.request_timeout", typ: kDuration, env: "VIDQA_SERVER_REQUEST_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.RequestTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Server.RequestTimeout },
	},
	{
		key: "server.cors_origins", typ: kString, env: "VIDQA_SERVER_CORS_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.CORSOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.CORSOrigins },
	},
	{
		key: "storage.driver", typ: kString, env: "VIDQA_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "VIDQA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.dsn", typ: kString, env: "VIDQA_STORAGE_DSN",
		apply:   func(cfg *Config, v any) { cfg.Storage.DSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DSN },
	},
	{
		key: "storage.mongo_uri", typ: kString, env: "VIDQA_STORAGE_MONGO_URI",
		apply:   func(cfg *Config, v any) { cfg.Storage.MongoURI = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MongoURI },
	},
	{
		key: "storage.mongo_database", typ: kString, env: "VIDQA_STORAGE_MONGO_DATABASE",
		apply:   func(cfg *Config, v any) { cfg.Storage.MongoDatabase = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.MongoDatabase },
	},
	{
		key: "storage.write_timeout", typ: kDuration, env: "VIDQA_STORAGE_WRITE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Storage.WriteTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Storage.WriteTimeout },
	},
	{
		key: "inference.provider", typ: kString, env: "VIDQA_INFERENCE_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Inference.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.Provider },
	},
	{
		key: "inference.endpoint", typ: kString, env: "VIDQA_INFERENCE_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Inference.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.Endpoint },
	},
	{
		key: "inference.openai_base_url", typ: kString, env: "VIDQA_INFERENCE_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Inference.OpenAIBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.OpenAIBaseURL },
	},
	{
		key: "inference.model", typ: kString, env: "VIDQA_INFERENCE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Inference.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.Model },
	},
	{
		key: "inference.max_length", typ: kInt, env: "VIDQA_INFERENCE_MAX_LENGTH",
		apply:   func(cfg *Config, v any) { cfg.Inference.MaxLength = v.(int) },
		extract: func(cfg Config) any { return cfg.Inference.MaxLength },
	},
	{
		key: "inference.timeout", typ: kDuration, env: "VIDQA_INFERENCE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Inference.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Inference.Timeout },
	},
	{
		key: "inference.max_retries", typ: kInt, env: "VIDQA_INFERENCE_MAX_RETRIES",
		apply:   func(cfg *Config, v any) { cfg.Inference.MaxRetries = v.(int) },
		extract: func(cfg Config) any { return cfg.Inference.MaxRetries },
	},
	{
		key: "inference.api_key", typ: kString, env: "VIDQA_INFERENCE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Inference.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Inference.APIKey },
	},
	{
		key: "metadata.endpoint", typ: kString, env: "VIDQA_METADATA_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Metadata.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Metadata.Endpoint },
	},
	{
		key: "log.level", typ: kString, env: "VIDQA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
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
