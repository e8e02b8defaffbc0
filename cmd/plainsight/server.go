package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/plainsight/internal/api"
	"github.com/kalambet/plainsight/internal/config"
	"github.com/kalambet/plainsight/internal/groq"
	"github.com/kalambet/plainsight/internal/ingest"
	"github.com/kalambet/plainsight/internal/lexicon"
	"github.com/kalambet/plainsight/internal/lowvision"
	"github.com/kalambet/plainsight/internal/profile"
	"github.com/kalambet/plainsight/internal/reader"
	"github.com/kalambet/plainsight/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the plainsight server in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		return runServer(host, port, dataDir)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is running and what it knows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen address (overrides config)")
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides config)")
	serveCmd.Flags().String("data-dir", "", "data directory (overrides config)")
}

func runServer(host string, port int, dataDir string) error {
	// Credentials commonly arrive via a .env file next to the binary.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	setupLogging(cfg.Log.Level)
	slog.Info("starting plainsight", "version", version, "data_dir", cfg.Storage.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	profiles := profile.NewManager(store)
	if err := profiles.Load(); err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	// Probe the Groq credential once at startup. A missing or broken
	// key is not fatal: the agents fall back to rule-based analysis.
	var groqClient *groq.Client
	if cfg.Groq.APIKey != "" {
		groqClient = groq.NewClientWithBaseURL(cfg.Groq.APIKey, cfg.Groq.BaseURL)
		groqClient.SetTimeout(time.Duration(cfg.Groq.TimeoutSeconds) * time.Second)

		verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := groqClient.Verify(verifyCtx)
		cancel()
		if err != nil {
			slog.Warn("groq verification failed, running rule-based", "error", err)
			groqClient = nil
		} else {
			slog.Info("groq connected", "model", cfg.Groq.Model)
		}
	} else {
		slog.Info("no groq api key configured, agentic features disabled")
	}
	agentic := groqClient != nil

	lex := lexicon.Default()
	var readerAgent *reader.Agent
	if agentic {
		readerAgent = reader.NewAgentWithLLM(lex, profiles, groqClient, cfg.Groq.Model)
	} else {
		readerAgent = reader.NewAgent(lex, profiles)
	}
	healthcare := lowvision.NewAgent(profiles, profile.SystemClock(), agentic)
	slog.Info("agents ready", "analysis_method", readerAgent.Method())

	worker := ingest.NewWorker(store, profiles, 500*time.Millisecond)
	go worker.Run(ctx)

	handler := api.NewAppHandler(api.AppDeps{
		Store:         store,
		Profiles:      profiles,
		Reader:        readerAgent,
		Healthcare:    healthcare,
		GroqConnected: agentic,
		Token:         cfg.Server.Token,
		HTTPClient:    &http.Client{Timeout: 15 * time.Second},
		CORSOrigins:   cfg.Server.CORSOriginList(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Profiles:   profiles,
		Reader:     readerAgent,
		Healthcare: healthcare,
		Lexicon:    lex,
	})
	sseSrv := server.NewSSEServer(mcpSrv)
	mcpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MCPPort)

	go func() {
		slog.Info("mcp server listening", "addr", mcpAddr, "transport", "sse")
		if err := sseSrv.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sseSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("mcp server shutdown", "error", err)
	}
	return srv.Shutdown(shutdownCtx)
}

func setupLogging(level string) {
	lv := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}

// healthReport mirrors the server's /health payload.
type healthReport struct {
	Status    string `json:"status"`
	AgenticAI struct {
		Enabled               bool `json:"enabled"`
		GroqConnected         bool `json:"groq_connected"`
		PatientsProfiled      int  `json:"patients_profiled"`
		FormAdaptations       int  `json:"form_adaptations"`
		VoiceGuidanceSessions int  `json:"voice_guidance_sessions"`
		TextsAnalyzed         int  `json:"texts_analyzed"`
	} `json:"agentic_ai"`
	APIVersion string `json:"api_version"`
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("http://%s:%d/health", host, cfg.Server.Port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		printStatus("Server", "stopped")
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		printError("server returned HTTP %d", resp.StatusCode)
		return nil
	}

	var health healthReport
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}

	printStatus("Server", "running on port %d (api %s)", cfg.Server.Port, health.APIVersion)
	if health.AgenticAI.Enabled {
		printStatus("Agentic AI", "enabled (groq connected: %t)", health.AgenticAI.GroqConnected)
	} else {
		printStatus("Agentic AI", "disabled, rule-based analysis")
	}
	printStatus("Patients profiled", "%d", health.AgenticAI.PatientsProfiled)
	printStatus("Texts analyzed", "%d", health.AgenticAI.TextsAnalyzed)
	printStatus("Guidance sessions", "%d", health.AgenticAI.VoiceGuidanceSessions)
	printStatus("Form adaptations", "%d", health.AgenticAI.FormAdaptations)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
