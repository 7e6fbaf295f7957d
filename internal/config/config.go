package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Inference InferenceConfig
	Metadata  MetadataConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           int
	RequestTimeout time.Duration
	CORSOrigins    string
}

// Origins splits the comma-separated CORS origin list.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type StorageConfig struct {
	Driver        string
	DataDir       string
	DSN           string
	MongoURI      string
	MongoDatabase string
	WriteTimeout  time.Duration
}

type InferenceConfig struct {
	Provider      string
	Endpoint      string
	OpenAIBaseURL string
	Model         string
	APIKey        string
	MaxLength     int
	Timeout       time.Duration
	MaxRetries    int
}

type MetadataConfig struct {
	Endpoint string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			RequestTimeout: 30 * time.Second,
			CORSOrigins:    "*",
		},
		Storage: StorageConfig{
			Driver:        "sqlite",
			DataDir:       defaultDataDir(),
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "vidqa",
			WriteTimeout:  5 * time.Second,
		},
		Inference: InferenceConfig{
			Provider:      "huggingface",
			Endpoint:      "https://api-inference.huggingface.co/models/facebook/blenderbot-400M-distill",
			OpenAIBaseURL: "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			MaxLength:     512,
			Timeout:       30 * time.Second,
		},
		Metadata: MetadataConfig{
			Endpoint: "https://noembed.com/embed",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// The backend is a sectioned config.json in ~/Library/Application Support/vidqa
// on macOS and $XDG_CONFIG_HOME/vidqa elsewhere. The API key falls back to
// the login Keychain on macOS and to secrets.json in the data dir elsewhere.
//
// Environment variables (VIDQA_*) override backend values on all platforms.
// Load does not require the API key; commands that call the inference
// service check it with RequireAPIKey.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(account string) (string, error)
}

const (
	keychainService    = "vidqa"
	keychainAPIKeyAcct = "inference_api_key"
)

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Inference.APIKey == "" && kc != nil {
		if key, err := kc.Get(keychainAPIKeyAcct); err == nil && key != "" {
			cfg.Inference.APIKey = key
		}
	}

	return cfg, nil
}

// RequireAPIKey returns an error when no inference API key is configured.
func (c Config) RequireAPIKey() error {
	if c.Inference.APIKey != "" {
		return nil
	}
	return fmt.Errorf("%s", "missing required config: inference API key. "+
		"Set it via environment variable VIDQA_INFERENCE_API_KEY"+
		apiKeyHint())
}

// keychainReader reads secrets through the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(account string) (string, error) {
	out, err := keychainGet(account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// SetAPIKey stores the inference API key in the platform secret store.
func SetAPIKey(value string) error {
	return keychainSet(keychainAPIKeyAcct, value)
}
