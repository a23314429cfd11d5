package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/minidaoom/bundang-review-monitor/internal/adapter/driven/github"
	"github.com/minidaoom/bundang-review-monitor/internal/adapter/driven/jsonfile"
	"github.com/minidaoom/bundang-review-monitor/internal/adapter/driven/naver"
	smtpadapter "github.com/minidaoom/bundang-review-monitor/internal/adapter/driven/smtp"
	sqliteadapter "github.com/minidaoom/bundang-review-monitor/internal/adapter/driven/sqlite"
	httphandler "github.com/minidaoom/bundang-review-monitor/internal/adapter/driving/http"
	"github.com/minidaoom/bundang-review-monitor/internal/application"
	"github.com/minidaoom/bundang-review-monitor/internal/config"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
	"github.com/minidaoom/bundang-review-monitor/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "run a single check and exit (for external schedulers)")
	testMode := flag.Bool("test-mode", false, "force a notification on this run (with -once)")
	threshold := flag.String("change-threshold", "", "minimum change to notify on this run (with -once)")
	flag.Parse()

	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Install the execution log sink before anything else logs.
	logSink := logger.Setup(cfg.LogPath, slog.LevelInfo)
	defer func() {
		if closeErr := logSink.Close(); closeErr != nil {
			slog.Error("error closing log sink", "error", closeErr)
		}
	}()

	slog.Info("config loaded",
		"check_interval", cfg.CheckInterval,
		"history_backend", cfg.HistoryBackend,
		"listen_addr", cfg.ListenAddr,
		"threshold", cfg.MinChangeThreshold,
		"quiet_mode", cfg.QuietMode,
		"mail_configured", cfg.HasMailCredentials(),
		"publisher_configured", cfg.HasPublisher(),
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Wire the history store.
	var history driven.HistoryStore
	switch cfg.HistoryBackend {
	case "json":
		history = jsonfile.NewStore(cfg.HistoryPath, cfg.HistoryLimit)
		slog.Info("history store opened", "backend", "json", "path", cfg.HistoryPath)
	default:
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		history = sqliteadapter.NewHistoryRepo(db)
		slog.Info("history store opened", "backend", "sqlite", "path", cfg.DBPath)
	}

	// 5. Wire the remaining driven adapters.
	source := naver.NewSource(cfg.TargetURL)
	notifier := smtpadapter.NewMailer(cfg.GmailAddress, cfg.GmailPassword, cfg.RecipientEmail)

	var publisher driven.Publisher
	if cfg.HasPublisher() {
		pub, err := githubadapter.NewContentsPublisher(cfg.GitHubToken, cfg.PublishRepo, cfg.PublishBranch)
		if err != nil {
			return err
		}
		publisher = pub
		slog.Info("publisher configured", "repo", cfg.PublishRepo, "branch", cfg.PublishBranch)
	}

	// 6. Create the monitor service.
	monitorSvc := application.NewMonitorService(source, history, notifier, publisher, cfg)

	// 7. Single-shot mode for external schedulers: one check, exit status
	// reflects the run, persistence already happened inside CheckOnce.
	if *once {
		var ov application.Overrides
		if *testMode {
			ov.TestMode = testMode
		}
		if *threshold != "" {
			parsed, err := config.ParseThreshold(*threshold)
			if err != nil {
				return err
			}
			ov.Threshold = &parsed
		}

		_, err := monitorSvc.CheckOnce(ctx, ov)
		return err
	}

	// 8. Long-running mode: monitor loop plus status API.
	go monitorSvc.Start(ctx)

	handler := httphandler.NewHandler(history, monitorSvc, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("review monitor started",
		"check_interval", cfg.CheckInterval,
		"target_url", cfg.TargetURL,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
