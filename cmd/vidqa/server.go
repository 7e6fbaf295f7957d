package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/vidqa/internal/api"
	"github.com/kalambet/vidqa/internal/config"
	"github.com/kalambet/vidqa/internal/inference"
	"github.com/kalambet/vidqa/internal/metadata"
	"github.com/kalambet/vidqa/internal/qa"
	"github.com/kalambet/vidqa/internal/storage"
	"github.com/kalambet/vidqa/internal/storage/mongo"
	"github.com/kalambet/vidqa/internal/storage/postgres"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vidqa HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running vidqa server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vidqa server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Q&A tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "vidqa.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// backend is a Q&A store that owns a connection.
type backend interface {
	qa.Store
	Close() error
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (backend, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return storage.Open(cfg.DataDir)
	case "postgres":
		return postgres.Open(ctx, cfg.DSN)
	case "mongo":
		return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want sqlite, postgres or mongo)", cfg.Driver)
	}
}

func newGateway(cfg config.InferenceConfig) (inference.Gateway, error) {
	return inference.New(inference.Config{
		Provider:      cfg.Provider,
		Endpoint:      cfg.Endpoint,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		Model:         cfg.Model,
		APIKey:        cfg.APIKey,
		MaxLength:     cfg.MaxLength,
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
	})
}

// app bundles the wired components shared by serve and mcp.
type app struct {
	store       backend
	coordinator *qa.Coordinator
	titles      *metadata.Client
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	gw, err := newGateway(cfg.Inference)
	if err != nil {
		return nil, fmt.Errorf("configuring inference: %w", err)
	}

	store, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	titles := metadata.NewClient(cfg.Metadata.Endpoint)
	coord := qa.New(qa.Deps{
		Gateway:      gw,
		Store:        store,
		Titles:       titles,
		WriteTimeout: cfg.Storage.WriteTimeout,
		Logger:       slog.Default(),
	})

	return &app{store: store, coordinator: coord, titles: titles}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "vidqa version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Check if a server is already running via the health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("vidqa is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("vidqa is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	handler := api.NewHandler(api.Deps{
		Coordinator:    a.coordinator,
		Titles:         a.titles,
		Logger:         slog.Default(),
		CORSOrigins:    cfg.Server.Origins(),
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("vidqa listening",
			"addr", addr,
			"storage", cfg.Storage.Driver,
			"inference", cfg.Inference.Provider,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Coordinator: a.coordinator,
		Titles:      a.titles,
		Logger:      slog.Default(),
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	slog.Info("MCP server started (stdio transport)")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("vidqa is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop vidqa (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to vidqa (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Storage", "%s", cfg.Storage.Driver)
	printStatus("Inference", "%s", cfg.Inference.Provider)
	if cfg.Inference.APIKey == "" {
		printStatus("API key", "%s", colorize(colorYellow, "missing"))
	} else {
		printStatus("API key", "set")
	}

	if running {
		resp, err := client.get(ctx, "/api/videos")
		if err == nil {
			var videos []storage.VideoRecord
			if decodeJSON(resp, &videos) == nil {
				printStatus("Videos", "%d", len(videos))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
