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

	"github.com/kalambet/phoneadvisor/internal/api"
	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/config"
	"github.com/kalambet/phoneadvisor/internal/history"
	"github.com/kalambet/phoneadvisor/internal/imagelookup"
	"github.com/kalambet/phoneadvisor/internal/session"
	"github.com/kalambet/phoneadvisor/internal/storage"
)

const pruneInterval = time.Hour

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the phoneadvisor server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running phoneadvisor server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show phoneadvisor server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "phoneadvisor.pid")
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

// runServer serves the HTTP API until SIGINT or SIGTERM. Everything it
// prints goes to stderr, since stdout carries MCP when it is enabled.
func runServer() error {
	fmt.Fprintf(os.Stderr, "phoneadvisor version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// A catalog that cannot be loaded aborts startup.
	printStep("Loading catalog %s", cfg.Catalog.Path)
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("phoneadvisor is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("phoneadvisor is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	sessions := session.NewManager(cat, store, session.Options{TTL: cfg.Session.TTL})
	images := imagelookup.New(imagelookup.Options{
		Endpoint: cfg.Images.Endpoint,
		Timeout:  cfg.Images.Timeout,
		TTL:      cfg.Images.TTL,
		Disabled: !cfg.Images.Enabled,
	})
	if !cfg.Images.Enabled {
		slog.Info("image lookup disabled, cards use the placeholder")
	}

	pruner := history.NewPruner(store, cfg.Storage.Retention, pruneInterval)
	go pruner.Run(ctx)

	if cfg.API.Token == "" {
		slog.Warn("api.token not set, API is unauthenticated")
	}
	handler := api.NewHandler(api.Deps{
		Catalog:  cat,
		Sessions: sessions,
		Store:    store,
		Images:   images,
		Token:    cfg.API.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	if cfg.Server.MCPEnabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Catalog:  cat,
			Sessions: sessions,
			Store:    store,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "phoneadvisor listening on %s (%d phones)\n", addr, cat.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("phoneadvisor is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop phoneadvisor (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to phoneadvisor (PID %d)", pid)
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Phones   int    `json:"phones"`
	Sessions int    `json:"sessions"`
}

func showStatus(ctx context.Context) error {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	health, err := fetchHealth(ctx, client)
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		printStatus("Server", "%s on port %d", health.Status, cfg.Server.Port)
		printStatus("Phones", "%d", health.Phones)
		printStatus("Sessions", "%d", health.Sessions)
	}

	catalogPath := cfg.Catalog.Path
	if catalogPath == "" {
		catalogPath = "(not set)"
	}
	printStatus("Catalog", "%s", catalogPath)
	images := "disabled"
	if cfg.Images.Enabled {
		images = cfg.Images.Endpoint
	}
	printStatus("Images", "%s", images)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func fetchHealth(ctx context.Context, client *apiClient) (healthResponse, error) {
	resp, err := client.get(ctx, "/health")
	if err != nil {
		return healthResponse{}, err
	}
	var h healthResponse
	if err := decodeJSON(resp, &h); err != nil {
		return healthResponse{}, err
	}
	return h, nil
}
