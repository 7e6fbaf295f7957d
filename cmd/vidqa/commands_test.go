package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/vidqa/internal/api"
	"github.com/kalambet/vidqa/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Body:   body.String(),
		})

		key := r.Method + " " + r.URL.EscapedPath()
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAskCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/ask": `{"question":"What is shown?","answer":"A cat"}`,
	})

	var out bytes.Buffer
	err := askQuestion(ctx, ts.client(), &out, api.AskRequest{
		VideoID:    "v1",
		VideoTitle: "My Video",
		Question:   "What is shown?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.TrimSpace(out.String()); got != "A cat" {
		t.Errorf("output = %q, want %q", got, "A cat")
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/api/ask" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["videoId"] != "v1" || body["videoTitle"] != "My Video" || body["question"] != "What is shown?" {
		t.Errorf("body = %v", body)
	}
}

func TestAskCommand_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"could not produce an answer"}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}
	err := askQuestion(ctx, client, &bytes.Buffer{}, api.AskRequest{VideoID: "v1", Question: "q"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "could not produce an answer") {
		t.Errorf("error = %q, want server message", err.Error())
	}
}

func TestQACommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/qa/v1": `[{"id":"e1","videoId":"v1","question":"What is shown?","answer":"A cat","createdAt":"2025-01-01T00:00:00Z"}]`,
	})

	var out bytes.Buffer
	if err := listQA(ctx, ts.client(), &out, "v1", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "What is shown?") || !strings.Contains(out.String(), "A cat") {
		t.Errorf("output missing entry: %q", out.String())
	}
}

func TestQACommand_JSON(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/qa/v1": `[{"id":"e1","videoId":"v1","question":"q","answer":"a","createdAt":"2025-01-01T00:00:00Z"}]`,
	})

	var out bytes.Buffer
	if err := listQA(ctx, ts.client(), &out, "v1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(entries) != 1 || entries[0]["id"] != "e1" {
		t.Errorf("entries = %v", entries)
	}
}

func TestQACommand_PathEscaping(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	listQA(ctx, ts.client(), &bytes.Buffer{}, "a b", false)

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if got := ts.requests[0].Path; got != "/api/qa/a%20b" {
		t.Errorf("path = %q, want /api/qa/a%%20b", got)
	}
}

func TestVideosCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/videos": `[{"videoId":"v2","title":"Second","createdAt":"2025-01-02T00:00:00Z"},{"videoId":"v1","title":"First","createdAt":"2025-01-01T00:00:00Z"}]`,
	})

	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var out bytes.Buffer
	if err := listVideos(ctx, ts.client(), &out, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "v2") || !strings.Contains(lines[0], "Second") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestResolveVideoID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=abc", "abc", false},
		{"https://youtu.be/xyz", "xyz", false},
		{"https://example.com/video", "", true},
		{"  ", "", true},
	}
	for _, tt := range tests {
		got, err := resolveVideoID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveVideoID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveVideoID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":"invalid videoId: must not be empty"}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}
	resp, err := client.get(ctx, "/api/qa/x")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "must not be empty") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAPIClient_Unreachable(t *testing.T) {
	client := &apiClient{baseURL: "http://127.0.0.1:1", httpClient: &http.Client{Timeout: time.Second}}
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "is vidqa running") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 5000
	cfg.Inference.Provider = "openai"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "5000" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=5000 in ShowAll output")
	}
}

func TestOpenBackend_UnknownDriver(t *testing.T) {
	_, err := openBackend(ctx, config.StorageConfig{Driver: "cassandra"})
	if err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Errorf("error = %v", err)
	}
}

func TestOpenBackend_SQLite(t *testing.T) {
	store, err := openBackend(ctx, config.StorageConfig{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("openBackend: %v", err)
	}
	defer store.Close()

	videos, err := store.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("expected empty store, got %d videos", len(videos))
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(t.TempDir())
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removing PID file")
	}
}
