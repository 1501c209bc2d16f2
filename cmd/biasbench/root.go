package main

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/ai"
	"github.com/biasbench/biasbench/internal/audit"
	"github.com/biasbench/biasbench/internal/config"
	"github.com/biasbench/biasbench/internal/dispatch"
	"github.com/biasbench/biasbench/internal/judge"
	"github.com/biasbench/biasbench/internal/model"
	"github.com/biasbench/biasbench/internal/notifier"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "biasbench",
	Short: "Audit LLM answers for political bias",
	Long:  "BiasBench sends one prompt to several LLMs at once and asks a judge model to rate the answers for bias and subjectivity.",
	// Default to `serve` so that `biasbench` with no args runs the API.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: BIASBENCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig loads .env, resolves the config path and parses it.
// Priority: explicit path arg > BIASBENCH_CONFIG env var > "./config.yaml".
// A missing ./config.yaml yields defaults.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	resolved, explicit := config.Resolve(path)
	return config.LoadOrDefault(resolved, explicit)
}

func setupLogger(dbg bool) *slog.Logger {
	return newLogger(os.Stdout, dbg)
}

func newLogger(w io.Writer, dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// auditNotifier returns the notifier for `run`. Dry runs are not saved, so
// nothing is sent for them.
func auditNotifier(cfg *config.Config, dryRun bool, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	if dryRun {
		return nil
	}
	return setupNotifier(cfg, httpClient, logger)
}

// setupClients builds one wire client per provider with an API key.
// Providers without a key stay nil and their models report an error.
func setupClients(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) adapter.Clients {
	var clients adapter.Clients
	if key := cfg.Providers.Gemini.APIKey; key != "" {
		clients.Gemini = ai.NewGeminiClient(cfg.Providers.Gemini.BaseURL, key, httpClient)
	} else {
		logger.Warn("gemini api key not set; gemini models will return errors")
	}
	if key := cfg.Providers.Groq.APIKey; key != "" {
		clients.Groq = ai.NewOpenAIClient(config.ProviderGroq, cfg.Providers.Groq.BaseURL, key, httpClient)
	} else {
		logger.Warn("groq api key not set; groq models will return errors")
	}
	return clients
}

func judgeClient(cfg *config.Config, clients adapter.Clients) ai.Completer {
	if cfg.Judge.Provider == config.ProviderGemini {
		return clients.Gemini
	}
	return clients.Groq
}

// buildService wires clients, adapters, dispatcher, judge and orchestrator
// into an audit service backed by st.
func buildService(cfg *config.Config, st model.AuditStore, n model.Notifier, logger *slog.Logger) (*audit.Service, *adapter.Table) {
	httpClient := &http.Client{}
	clients := setupClients(cfg, httpClient, logger)

	table := adapter.NewTable(clients, adapter.Options{
		Timeout:        cfg.Providers.Timeout,
		Temperature:    adapter.DefaultTemperature,
		ModelOverrides: cfg.Models,
		Logger:         logger,
	})
	evaluator := judge.NewEvaluator(judgeClient(cfg, clients), cfg.Judge.Model, cfg.Judge.Temperature, cfg.Judge.Timeout, logger)
	orch := audit.NewOrchestrator(dispatch.New(table, logger), evaluator, logger)

	svc := audit.NewService(orch, st, n, audit.Options{
		DefaultModels: cfg.DefaultModels,
		HistoryLimit:  cfg.HistoryLimit,
	}, logger)
	return svc, table
}
