package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/folio-pulse/app/api"
	"github.com/lysyi3m/folio-pulse/app/auth"
	"github.com/lysyi3m/folio-pulse/app/cfg"
	"github.com/lysyi3m/folio-pulse/app/dashboard"
	"github.com/lysyi3m/folio-pulse/app/gateway"
	"github.com/lysyi3m/folio-pulse/app/unread"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Folio Pulse", "version", appCfg.Version, "gateway", appCfg.Gateway)

	settings, err := cfg.LoadDashboard(appCfg.DashboardConfig)
	if err != nil {
		slog.Error("Failed to load dashboard settings", "path", appCfg.DashboardConfig, "error", err)
		os.Exit(1)
	}
	slog.Info("Dashboard settings loaded", "default_range", settings.DefaultRange, "feeds", settings.FeedViews())

	authSignal := auth.NewSignal()
	var sessionOpts []auth.SessionOption
	if appCfg.TokenSecret != "" {
		sessionOpts = append(sessionOpts, auth.WithSecret(appCfg.TokenSecret))
	}
	session := auth.NewSession(authSignal, sessionOpts...)

	gw, closeGateway, err := buildGateway(appCfg, session)
	if err != nil {
		slog.Error("Failed to initialize content gateway", "error", err)
		os.Exit(1)
	}
	defer closeGateway()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	counter := unread.NewCounter()
	synchronizer := unread.NewSynchronizer(gw, counter, authSignal, appCfg.PollEvery())
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		synchronizer.Run(ctx)
	}()

	go session.Watch(ctx, time.Minute)

	if appCfg.AccessToken != "" {
		if err := session.Login(appCfg.AccessToken); err != nil {
			slog.Warn("Configured access token rejected", "error", err)
		}
	} else {
		authSignal.Set(auth.State{})
		slog.Info("No access token configured, waiting for POST /api/session")
	}

	engine := dashboard.New(gw, settings, dashboard.WithConcurrency(appCfg.FetchConcurrency))
	go func() {
		if _, err := engine.Refresh(ctx, ""); err != nil {
			slog.Warn("Initial dashboard refresh failed", "error", err)
		}
	}()

	handler := api.NewHandler(engine, counter, synchronizer, session, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
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
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	cancel()
	<-syncDone
	slog.Info("Unread synchronizer stopped")

	slog.Info("Folio Pulse shutdown complete")
}

// buildGateway selects the content source and layers the blog feed on top
// when one is configured.
func buildGateway(appCfg *cfg.Cfg, session *auth.Session) (gateway.Gateway, func(), error) {
	var gw gateway.Gateway
	closeFn := func() {}

	switch appCfg.Gateway {
	case cfg.GatewaySnapshot:
		snapshot, err := gateway.OpenSnapshot(appCfg.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() {
			if err := snapshot.Close(); err != nil {
				slog.Error("Failed to close snapshot", "error", err)
			}
		}

		if appCfg.SnapshotSeed != "" {
			data, err := os.ReadFile(appCfg.SnapshotSeed)
			if err != nil {
				closeFn()
				return nil, nil, fmt.Errorf("failed to read snapshot seed: %w", err)
			}
			if err := snapshot.Import(context.Background(), data); err != nil {
				closeFn()
				return nil, nil, fmt.Errorf("failed to import snapshot seed: %w", err)
			}
			slog.Info("Snapshot seeded", "path", appCfg.SnapshotSeed)
		}

		gw = snapshot
		slog.Info("Using snapshot gateway", "path", appCfg.SnapshotPath)
	default:
		gw = gateway.NewClient(appCfg.ContentAPIURL,
			gateway.WithTokenSource(session),
			gateway.WithUserAgent(appCfg.UserAgent),
			gateway.WithTimeout(appCfg.Timeout()))
		slog.Info("Using content API gateway", "url", appCfg.ContentAPIURL)
	}

	if appCfg.BlogFeedURL != "" {
		gw = gateway.NewFeedSource(gw, appCfg.BlogFeedURL,
			gateway.WithUserAgent(appCfg.UserAgent),
			gateway.WithTimeout(appCfg.Timeout()))
		slog.Info("Reading blog posts from feed", "url", appCfg.BlogFeedURL)
	}

	return gw, closeFn, nil
}
