package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/vidqa/internal/api"
	"github.com/kalambet/vidqa/internal/config"
	"github.com/kalambet/vidqa/internal/metadata"
	"github.com/kalambet/vidqa/internal/qa"
	"github.com/kalambet/vidqa/internal/storage"
)

// titleLookup is swapped in tests.
var titleLookup = func(ctx context.Context, videoID string) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return metadata.NewClient(cfg.Metadata.Endpoint).Title(ctx, videoID)
}

// resolveVideoID accepts either a bare id or a YouTube URL.
func resolveVideoID(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "/") {
		return metadata.ParseVideoID(arg)
	}
	if arg == "" {
		return "", fmt.Errorf("video id is required")
	}
	return arg, nil
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about a video",
	Long: `Ask a question about a video and record the answer.

Examples:
  vidqa ask --video dQw4w9WgXcQ "What is shown?"
  vidqa ask --url https://www.youtube.com/watch?v=dQw4w9WgXcQ "What is shown?"
  vidqa ask --url https://youtu.be/dQw4w9WgXcQ --title "My Video" "Who is singing?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoFlag, _ := cmd.Flags().GetString("video")
		urlFlag, _ := cmd.Flags().GetString("url")
		title, _ := cmd.Flags().GetString("title")

		var (
			videoID string
			err     error
		)
		switch {
		case videoFlag != "" && urlFlag != "":
			return fmt.Errorf("use only one of --video or --url")
		case videoFlag != "":
			videoID, err = resolveVideoID(videoFlag)
		case urlFlag != "":
			videoID, err = metadata.ParseVideoID(urlFlag)
		default:
			return fmt.Errorf("one of --video or --url is required")
		}
		if err != nil {
			return err
		}

		if title == "" {
			t, err := titleLookup(cmd.Context(), videoID)
			if err != nil {
				printWarning("could not look up title: %v", err)
				t = storage.UnknownTitle
			}
			title = t
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return askQuestion(cmd.Context(), client, cmd.OutOrStdout(), api.AskRequest{
			VideoID:    videoID,
			VideoTitle: title,
			Question:   strings.Join(args, " "),
		})
	},
}

func askQuestion(ctx context.Context, client *apiClient, w io.Writer, req api.AskRequest) error {
	resp, err := client.post(ctx, "/api/ask", req)
	if err != nil {
		return err
	}

	var result api.AskResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	fmt.Fprintln(w, result.Answer)
	if result.Warning != "" {
		printWarning("%s", result.Warning)
	}
	return nil
}

func init() {
	askCmd.Flags().String("video", "", "video id (or URL)")
	askCmd.Flags().String("url", "", "YouTube watch URL")
	askCmd.Flags().String("title", "", "video title (looked up when omitted)")
}

// --- qa ---

var qaCmd = &cobra.Command{
	Use:   "qa <video-id|url>",
	Short: "Show the Q&A history of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		videoID, err := resolveVideoID(args[0])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listQA(cmd.Context(), client, cmd.OutOrStdout(), videoID, asJSON)
	},
}

func listQA(ctx context.Context, client *apiClient, w io.Writer, videoID string, asJSON bool) error {
	resp, err := client.get(ctx, "/api/qa/"+url.PathEscape(videoID))
	if err != nil {
		return err
	}

	var entries []storage.QAEntry
	if err := decodeJSON(resp, &entries); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		printStep("No questions recorded for %s", videoID)
		return nil
	}
	writeQA(w, entries)
	return nil
}

func init() {
	qaCmd.Flags().Bool("json", false, "print raw JSON")
}

// --- videos ---

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List videos that have been asked about, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return listVideos(cmd.Context(), client, cmd.OutOrStdout(), asJSON)
	},
}

func listVideos(ctx context.Context, client *apiClient, w io.Writer, asJSON bool) error {
	resp, err := client.get(ctx, "/api/videos")
	if err != nil {
		return err
	}

	var videos []storage.VideoRecord
	if err := decodeJSON(resp, &videos); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(videos)
	}
	if len(videos) == 0 {
		printStep("No videos yet")
		return nil
	}
	writeVideos(w, videos)
	return nil
}

func init() {
	videosCmd.Flags().Bool("json", false, "print raw JSON")
}

// --- reconcile ---

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Register videos that have answers but are missing from the history",
	Long: `Register videos that have recorded answers but no entry in the video
history. This repairs the store after an ask whose video registration failed.
Titles are looked up through the metadata endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openBackend(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		coord := qa.New(qa.Deps{
			Store:        store,
			Titles:       metadata.NewClient(cfg.Metadata.Endpoint),
			WriteTimeout: cfg.Storage.WriteTimeout,
		})

		printStep("Looking for unregistered videos")
		n, err := coord.Reconcile(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			printSuccess("Video history is complete")
			return nil
		}
		printSuccess("Registered %d video(s)", n)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		if key == "inference.api_key" {
			printSuccess("Stored %s in the secret store", key)
			return nil
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
