package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/saml_tracer/internal/api"
	"github.com/dgnsrekt/saml_tracer/internal/browser"
	"github.com/dgnsrekt/saml_tracer/internal/cdp"
	"github.com/dgnsrekt/saml_tracer/internal/config"
	"github.com/dgnsrekt/saml_tracer/internal/control"
	"github.com/dgnsrekt/saml_tracer/internal/export"
	"github.com/dgnsrekt/saml_tracer/internal/netutil"
	"github.com/dgnsrekt/saml_tracer/internal/relay"
	"github.com/dgnsrekt/saml_tracer/internal/saml"
	"github.com/dgnsrekt/saml_tracer/internal/session"
	"github.com/dgnsrekt/saml_tracer/internal/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("tracer config loaded",
		"cdp_url", cfg.GetCDPURL(),
		"bind_addr", cfg.BindAddr,
		"tab_url_filter", cfg.TabURLFilter,
		"profile", cfg.ProfilePath,
		"archive", cfg.ArchiveEnabled,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
	)

	var extraParams []string
	if cfg.ProfilePath != "" {
		profile, err := config.LoadProfile(cfg.ProfilePath)
		if err != nil {
			slog.Error("failed to load detection profile", "path", cfg.ProfilePath, "error", err)
			os.Exit(1)
		}
		extraParams = profile.ExtraParams
		if profile.TabURLFilter != "" {
			cfg.TabURLFilter = profile.TabURLFilter
		}
		slog.Info("detection profile loaded", "extra_params", extraParams, "tab_url_filter", cfg.TabURLFilter)
	}

	bindAddr, err := netutil.PickBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.BrowserStartURL,
			ProfileDir: cfg.BrowserProfileDir,
		})
		if err := launcher.Launch(context.Background()); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		if launcher.Running() {
			defer launcher.Stop()
		}
	}

	registry := session.NewRegistry()
	broker := relay.NewBroker()
	extractor := saml.NewExtractor(extraParams)

	var archive *export.ArchiveRegistry
	if cfg.ArchiveEnabled {
		archive = export.NewArchiveRegistry(cfg.DataDir, cfg.ArchiveBufferSize, cfg.ArchiveMaxSizeMB)
		defer func() {
			if err := archive.Close(); err != nil {
				slog.Warn("archive close failed", "error", err)
			}
		}()
	}

	pipeline := trace.NewPipeline(registry, extractor, broker, archive)
	defer pipeline.Close()

	cdpClient := cdp.NewClient(cfg.GetCDPURL(), cfg.TabURLFilter, pipeline)
	if err := cdpClient.Connect(context.Background()); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.GetCDPURL(), "error", err)
		slog.Info("Make sure Chromium is running with remote debugging enabled")
		os.Exit(1)
	}
	defer func() { _ = cdpClient.Close() }()

	exporter := export.NewExporter(cfg.DataDir)
	svc := control.NewService(registry, broker, cdpClient, exporter)
	h := api.NewServer(svc, broker)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("tracer listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs", "tabs", cdpClient.GetTabCount())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("tracer server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("tracer shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
