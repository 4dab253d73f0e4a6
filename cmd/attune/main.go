package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unsaid-app/attune/internal/analyzer"
	"github.com/unsaid-app/attune/internal/api"
	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/config"
	"github.com/unsaid-app/attune/internal/events"
	"github.com/unsaid-app/attune/internal/rules"
	sig "github.com/unsaid-app/attune/internal/signal"
	"github.com/unsaid-app/attune/internal/store"
	"github.com/unsaid-app/attune/internal/suggest"
	"github.com/unsaid-app/attune/internal/tone"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("attune starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rule tables — the service refuses to start with partial rules.
	ruleCfg, err := rules.Load(cfg.RulesPath)
	if err != nil {
		slog.Error("failed to load rule tables", "error", err)
		os.Exit(1)
	}
	slog.Info("rule tables loaded",
		"micro_expressions", len(ruleCfg.Micro),
		"suggestion_templates", len(ruleCfg.Suggestions.Templates),
	)

	// Profile store
	profiles, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open profile store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	slog.Info("profile store ready", "driver", cfg.StoreDriver)

	// Linguistic analyzer — spaCy sidecar when configured, basic otherwise.
	// An unreachable sidecar degrades per-request, never fatally.
	var an analyzer.Analyzer = analyzer.NewBasic()
	if cfg.SpacyURL != "" {
		an = analyzer.WithFallback(analyzer.NewSpacy(cfg.SpacyURL, cfg.SpacyKey, cfg.SpacyTimeout))
		slog.Info("spacy analyzer ready", "url", cfg.SpacyURL)
	} else {
		slog.Warn("spacy not configured — running with basic analyzer")
	}

	// Analytics (optional — attune works without NATS, just no event loop)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		eventsClient, err = events.NewClient(cfg.NatsURL, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		if err := eventsClient.SubscribeFeedback(); err != nil {
			slog.Error("failed to subscribe to suggestion feedback", "error", err)
			os.Exit(1)
		}
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without analytics")
	}

	// Core components
	extractor, err := sig.New(ruleCfg)
	if err != nil {
		slog.Error("failed to build signal extractor", "error", err)
		os.Exit(1)
	}
	classifier := tone.NewClassifier(ruleCfg, an)
	engine := attachment.NewEngine(profiles, ruleCfg.Attachment, slog.Default())
	generator := suggest.NewGenerator(ruleCfg.Suggestions)

	srv := api.NewServer(cfg.Port, cfg.StoreTimeout, api.Deps{
		Rules:      ruleCfg,
		Extractor:  extractor,
		Classifier: classifier,
		Engine:     engine,
		Generator:  generator,
		Events:     eventsClient,
		Logger:     slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("attune ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("attune stopped")
}

type closableStore interface {
	attachment.ProfileStore
	Close()
}

func openStore(ctx context.Context, cfg config.Config) (closableStore, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(ctx, cfg.SQLitePath)
	default:
		return store.NewMemory(), nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
