// Package inference wraps the outbound call to a text-generation service.
//
// A reachable service that produces nothing usable yields FallbackAnswer and
// a nil error; only transport failures, timeouts and rejected requests are
// reported as *GatewayError.
package inference

import (
	"context"
	"fmt"
	"time"
)

const (
	// FallbackAnswer is returned when the service replies without usable text.
	FallbackAnswer = "No response from AI"

	DefaultMaxLength = 512
	DefaultTimeout   = 30 * time.Second

	defaultRetryBase = 500 * time.Millisecond
	maxResponseSize  = 1 << 20 // 1MB
	maxErrorBody     = 2048
)

// Gateway turns a question into an answer using a remote text-generation service.
type Gateway interface {
	Answer(ctx context.Context, question string) (string, error)
}

// Config selects and tunes a Gateway implementation.
type Config struct {
	Provider      string // "huggingface" (default) or "openai"
	Endpoint      string
	OpenAIBaseURL string
	Model         string
	APIKey        string
	MaxLength     int
	Timeout       time.Duration
	MaxRetries    int
}

// New builds the Gateway described by cfg. Retries are only added when
// cfg.MaxRetries is positive.
func New(cfg Config) (Gateway, error) {
	var g Gateway
	switch cfg.Provider {
	case "", "huggingface":
		g = NewHuggingFace(cfg.Endpoint, cfg.APIKey, cfg.MaxLength, cfg.Timeout)
	case "openai":
		g = NewOpenAI(cfg.OpenAIBaseURL, cfg.APIKey, cfg.Model, cfg.MaxLength, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
	if cfg.MaxRetries > 0 {
		g = WithRetry(g, cfg.MaxRetries, defaultRetryBase)
	}
	return g, nil
}
