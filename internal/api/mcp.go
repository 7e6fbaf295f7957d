package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/vidqa/internal/qa"
)

const recentVideosLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Coordinator *qa.Coordinator
	Titles      qa.TitleResolver // optional; used when ask_video_question gets no title
	Logger      *slog.Logger     // defaults to slog.Default()
}

func (d MCPDeps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// NewMCPServer creates an MCP server exposing the Q&A history as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"vidqa",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("vidqa: ask questions about YouTube videos and browse the recorded answers."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_video_question",
			mcp.WithDescription("Ask a question about a video. The answer is recorded in the video's Q&A history."),
			mcp.WithString("video_id", mcp.Description("YouTube video id"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithString("video_title", mcp.Description("Video title; looked up when omitted")),
		),
		mcpAskVideoQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("list_video_qa",
			mcp.WithDescription("List every recorded question and answer for a video, oldest first."),
			mcp.WithString("video_id", mcp.Description("YouTube video id"), mcp.Required()),
		),
		mcpListVideoQA(deps),
	)

	s.AddTool(
		mcp.NewTool("list_videos",
			mcp.WithDescription("List videos that have been asked about, most recent first."),
		),
		mcpListVideos(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"videos://recent",
			"Recent Videos",
			mcp.WithResourceDescription("The 10 most recently seen videos"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpAskVideoQuestion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		videoID, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		title := req.GetString("video_title", "")
		if title == "" && deps.Titles != nil {
			if t, err := deps.Titles.Title(ctx, videoID); err == nil {
				title = t
			}
		}

		entry, err := deps.Coordinator.AskAndRecord(ctx, videoID, title, question)
		var sErr *qa.StoreFailure
		switch {
		case err == nil:
		case errors.As(err, &sErr) && sErr.Partial():
			return mcpText(fmt.Sprintf("%s\n\n(warning: %s)", entry.Answer, partialWarning)), nil
		default:
			deps.logger().ErrorContext(ctx, "ask tool failed",
				"kind", askErrorKind(err), "video_id", videoID, "error", err)
			return mcpError(askFailed), nil
		}

		return mcpText(entry.Answer), nil
	}
}

func mcpListVideoQA(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		videoID, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}

		entries, err := deps.Coordinator.ListQA(ctx, videoID)
		if err != nil {
			return mcpError(fmt.Sprintf("listing qa failed: %v", err)), nil
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal entries: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListVideos(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		videos, err := deps.Coordinator.ListVideos(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing videos failed: %v", err)), nil
		}

		b, err := json.Marshal(videos)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal videos: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		videos, err := deps.Coordinator.ListVideos(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list videos: %w", err)
		}
		if len(videos) > recentVideosLimit {
			videos = videos[:recentVideosLimit]
		}

		b, err := json.Marshal(videos)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal videos: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
