// Package metadata resolves YouTube video ids and titles.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kalambet/vidqa/internal/storage"
)

const (
	// DefaultEndpoint is the public oEmbed proxy used for title lookups.
	DefaultEndpoint = "https://noembed.com/embed"
	defaultTimeout  = 10 * time.Second
	maxBodySize     = 256 << 10
)

// ErrNoVideoID is returned when a URL does not carry a YouTube video id.
var ErrNoVideoID = errors.New("no video id in url")

var (
	watchURL = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.)?youtube\.com/watch\?(?:.*&)?v=([\w-]+)`)
	shortURL = regexp.MustCompile(`^(?:https?://)?youtu\.be/([\w-]+)`)
)

// ParseVideoID extracts the video id from a youtube.com/watch?v= or youtu.be URL.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if m := watchURL.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	if m := shortURL.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", ErrNoVideoID, raw)
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// Client looks up video titles through an oEmbed endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client. An empty endpoint selects DefaultEndpoint.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type oembedResponse struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

// Title returns the title of videoID, or storage.UnknownTitle when the
// endpoint answers without one.
func (c *Client) Title(ctx context.Context, videoID string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	q := u.Query()
	q.Set("url", WatchURL(videoID))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out oembedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if title := strings.TrimSpace(out.Title); title != "" {
		return title, nil
	}
	return storage.UnknownTitle, nil
}
