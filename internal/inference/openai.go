package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI answers questions through an OpenAI-compatible chat completion API.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewOpenAI creates a client. An empty baseURL selects the public OpenAI API.
func NewOpenAI(baseURL, apiKey, model string, maxTokens int, timeout time.Duration) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxLength
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{}
	return &OpenAI{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Answer asks the model and returns the first choice, or FallbackAnswer when
// the completion carries no content.
func (c *OpenAI) Answer(ctx context.Context, question string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", openAIError(err)
	}

	if len(resp.Choices) == 0 {
		return FallbackAnswer, nil
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

func openAIError(err error) *GatewayError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return rejected(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return rejected(reqErr.HTTPStatusCode, reqErr.Error())
	}
	return transportError(err)
}
