package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultEndpoint = "https://api-inference.huggingface.co/models/facebook/blenderbot-400M-distill"

// HuggingFace calls a Hugging Face text-generation inference endpoint.
type HuggingFace struct {
	apiKey     string
	endpoint   string
	maxLength  int
	timeout    time.Duration
	httpClient *http.Client
}

// NewHuggingFace creates a client for endpoint. Zero maxLength or timeout
// select the defaults.
func NewHuggingFace(endpoint, apiKey string, maxLength int, timeout time.Duration) *HuggingFace {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HuggingFace{
		apiKey:     apiKey,
		endpoint:   endpoint,
		maxLength:  maxLength,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxLength int `json:"max_length"`
}

type hfGeneration struct {
	GeneratedText *string `json:"generated_text"`
}

// Answer sends question to the endpoint and returns the first generated text,
// or FallbackAnswer when the reply carries none. No retries are attempted.
func (c *HuggingFace) Answer(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs:     question,
		Parameters: hfParameters{MaxLength: c.maxLength},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqURL, err := c.requestURL()
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", rejected(resp.StatusCode, string(respBody))
	}

	return extractGeneratedText(respBody), nil
}

// requestURL appends max_length as a query parameter alongside the body field.
func (c *HuggingFace) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("max_length", strconv.Itoa(c.maxLength))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// extractGeneratedText returns the generated_text of the first element of a
// JSON array payload. Anything else yields FallbackAnswer.
func extractGeneratedText(body []byte) string {
	var items []hfGeneration
	if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
		return FallbackAnswer
	}
	if t := items[0].GeneratedText; t != nil && *t != "" {
		return *t
	}
	return FallbackAnswer
}
