// ABOUTME: Entry point for the coven-chat server
// ABOUTME: Serves the single-page chat UI and forwards questions to the remote agent

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/agent"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/store"
	"github.com/2389/coven-chat/internal/webui"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  ___ _____   _____ _ __        ___| |__   __ _| |_
 / __/ _ \ \ / / _ \ '_ \ _____/ __| '_ \ / _' | __|
| (_| (_) \ V /  __/ | | |_____| (__| | | | (_| | |_
 \___\___/ \_/ \___|_| |_|      \___|_| |_|\__,_|\__|
`

// getConfigPath returns the path to the chat config file.
// Priority: COVEN_CHAT_CONFIG env var > XDG_CONFIG_HOME/coven-chat/chat.yaml > ~/.config/coven-chat/chat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_CHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "chat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven-chat", "chat.yaml")
}

// getDataPath returns the path to the coven-chat data directory.
// Priority: XDG_DATA_HOME/coven-chat > ~/.local/share/coven-chat
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "coven-chat")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coven-chat <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the chat server")
		fmt.Println("  init     Create a new config file")
		fmt.Println("  health   Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Agent:    %s\n", cfg.Agent.Endpoint)
	fmt.Println()

	logger.Info("starting coven-chat",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"agent_endpoint", cfg.Agent.Endpoint,
	)

	// Open the persistence collaborator
	kv, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer kv.Close()

	// Agent adapter
	client := agent.NewClient(agent.Config{
		Endpoint: cfg.Agent.Endpoint,
		AgentID:  cfg.Agent.ID,
		Timeout:  cfg.Agent.Timeout,
	}, logger)

	// Conversation service, restored from the store
	svc := conversation.New(kv, client, logger)
	svc.Load(ctx)

	// Web UI
	handler := webui.New(svc, webui.Config{Title: cfg.WebUI.Title}, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		logger.Error("server error", "error", serverErr)
	}

	// Fresh context: the original one is already canceled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// runInit writes a starter config file at the default location
func runInit() error {
	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "chat.db")

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configContent := fmt.Sprintf(`# coven-chat configuration
# Generated by coven-chat init

server:
  http_addr: "127.0.0.1:8080"

database:
  path: "%s"

agent:
  endpoint: "${COVEN_CHAT_AGENT_ENDPOINT}"
  id: "${COVEN_CHAT_AGENT_ID}"
  timeout: "60s"

logging:
  level: "info"
  format: "text"

webui:
  title: "Coven Chat"
`, dbPath)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println("  Set COVEN_CHAT_AGENT_ENDPOINT and COVEN_CHAT_AGENT_ID, then run: coven-chat serve")
	return nil
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
