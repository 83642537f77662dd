package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mpolunin/eventwatch/app/api"
	"github.com/mpolunin/eventwatch/app/cfg"
	"github.com/mpolunin/eventwatch/app/config"
	"github.com/mpolunin/eventwatch/app/database"
	"github.com/mpolunin/eventwatch/app/event"
	"github.com/mpolunin/eventwatch/app/match"
	"github.com/mpolunin/eventwatch/app/notify"
	"github.com/mpolunin/eventwatch/app/pipeline"
	"github.com/mpolunin/eventwatch/app/scrape"
	"github.com/mpolunin/eventwatch/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting EventWatch server", "version", appCfg.Version)

	if dir := filepath.Dir(appCfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create database directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	loader := config.NewLoader(appCfg.SourcesDir)
	sources, err := loader.LoadAll()
	if err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded source configurations", "count", len(sources), "dir", appCfg.SourcesDir)

	eventRepo := database.NewEventRepository(db)
	userRepo := database.NewUserRepository(db)

	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}
	static := scrape.NewStaticExtractor(httpClient, appCfg.UserAgent)

	var rendered scrape.Extractor
	var session scrape.RenderSession
	if appCfg.DisableRendering {
		slog.Info("Browser rendering disabled, running static-only")
	} else {
		browser := scrape.NewBrowser(appCfg.ChromePath, appCfg.UserAgent,
			time.Duration(appCfg.RenderTimeout)*time.Second)
		rendered = scrape.NewRenderedExtractor(browser)
		session = browser
	}

	orchestrator := scrape.NewOrchestrator(static, rendered, session, appCfg.WorkerCount)

	var smsSender notify.SMSSender
	if appCfg.SMSConfigured() {
		smsSender = notify.NewTwilioSender(appCfg.TwilioAccountSID, appCfg.TwilioAuthToken, appCfg.TwilioFromNumber)
	} else {
		slog.Warn("SMS channel not configured, SMS notifications disabled")
	}

	var emailSender notify.EmailSender
	if appCfg.EmailConfigured() {
		emailSender = notify.NewSMTPSender(appCfg.SMTPHost, appCfg.SMTPPort,
			appCfg.SMTPUser, appCfg.SMTPPassword, appCfg.SMTPFrom)
	} else {
		slog.Warn("Email channel not configured, email notifications disabled")
	}

	notifier := notify.NewNotifier(smsSender, emailSender)

	runner := pipeline.NewRunner(pipeline.RunnerOptions{
		Orchestrator:  orchestrator,
		Feeds:         scrape.NewFeedExtractor(httpClient, appCfg.UserAgent),
		Enricher:      scrape.NewDescriptionEnricher(httpClient, appCfg.UserAgent),
		Normalizer:    event.NewNormalizer(),
		Events:        eventRepo,
		Users:         userRepo,
		Matcher:       match.NewMatcher(),
		Notifier:      notifier,
		NotifyWorkers: appCfg.NotifyWorkers,
		JobTimeout:    time.Duration(appCfg.JobTimeout) * time.Second,
	})

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_s", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(sources, runner)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(eventRepo, userRepo, sources, runner, notifier, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
