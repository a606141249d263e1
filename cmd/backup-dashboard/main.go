package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupdash/internal/api"
	"github.com/edvin/backupdash/internal/backupapi"
	"github.com/edvin/backupdash/internal/backups"
	"github.com/edvin/backupdash/internal/config"
	"github.com/edvin/backupdash/internal/export"
	"github.com/edvin/backupdash/internal/logging"
	"github.com/edvin/backupdash/internal/metrics"
	"github.com/edvin/backupdash/internal/model"
	"github.com/edvin/backupdash/internal/notify"
	"github.com/edvin/backupdash/internal/querycache"
	"github.com/edvin/backupdash/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	sessionPath := cfg.SessionFile
	if sessionPath == "" {
		if sessionPath, err = session.DefaultPath(); err != nil {
			logger.Warn().Err(err).Msg("no config directory, session will not be persisted")
		}
	}
	store, err := session.Open(sessionPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open session store")
	}
	if cfg.BackupAPIToken != "" {
		store.Use(cfg.BackupAPIToken)
	}

	tlsConfig, err := cfg.BackupAPITLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure backup API TLS")
	}
	var clientOpts []backupapi.ClientOption
	if tlsConfig != nil {
		clientOpts = append(clientOpts, backupapi.WithTLSConfig(tlsConfig))
		logger.Info().Msg("backup API TLS configured")
	}
	client := backupapi.NewClient(cfg.BackupAPIURL, store, logger, clientOpts...)

	cache := querycache.New(logger,
		querycache.WithRetry(uint64(cfg.QueryRetry), querycache.DefaultRetryBase),
		querycache.WithGCTime(cfg.QueryGCTime),
	)
	metrics.RegisterCacheMetrics(nil, cache)

	hub := notify.NewHub(logger)
	sink := notify.Multi{notify.NewLogSink(logger), hub}

	orchestrator, err := backups.New(cache, client, sink, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start backup orchestrator")
	}
	connections, err := backups.NewConnections(cache, client, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to subscribe to connections")
	}

	if store.IsAuthenticated() {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := backups.Warm(warmCtx, cache, client); err != nil {
			logger.Warn().Err(err).Msg("initial fetch failed, dashboard will retry on demand")
		}
		warmCancel()
	}

	exporter := export.NewExporter(func(ctx context.Context, params model.ListBackupsParams) (*model.BackupPage, error) {
		return backups.FetchPage(ctx, cache, client, params)
	}, logger)

	deps := api.Deps{
		Backups:       orchestrator,
		Connections:   connections,
		Session:       store,
		Cache:         cache,
		Notifications: hub,
		Exporter:      exporter,
	}
	if cfg.S3ExportEnabled() {
		deps.Uploader = export.NewS3Uploader(export.S3Config{
			Bucket:    cfg.ExportS3Bucket,
			Prefix:    cfg.ExportS3Prefix,
			Region:    cfg.ExportS3Region,
			Endpoint:  cfg.ExportS3Endpoint,
			AccessKey: cfg.ExportS3AccessKey,
			SecretKey: cfg.ExportS3SecretKey,
		}, logger)
		logger.Info().Str("bucket", cfg.ExportS3Bucket).Msg("S3 export enabled")
	}

	srv := api.NewServer(logger, deps, cfg.CORSOrigins)

	// WriteTimeout stays unset: /api/v1/events holds a WebSocket open.
	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Str("backup_api", cfg.BackupAPIURL).Msg("starting backup dashboard")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListenAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsListenAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdown(logger, httpServer, metricsServer)

	orchestrator.Close()
	connections.Close()
	hub.Close()
	cache.Close()
}

func shutdown(logger zerolog.Logger, servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range servers {
		if s == nil {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", s.Addr).Msg("shutdown")
		}
	}
}
