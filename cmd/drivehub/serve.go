package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/archive"
	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/config"
	"github.com/alfredjeanlab/drivehub/internal/events"
	"github.com/alfredjeanlab/drivehub/internal/presence"
	"github.com/alfredjeanlab/drivehub/internal/server"
	"github.com/alfredjeanlab/drivehub/internal/session"
	"github.com/alfredjeanlab/drivehub/internal/store"
	"github.com/alfredjeanlab/drivehub/internal/store/postgres"
	storeredis "github.com/alfredjeanlab/drivehub/internal/store/redis"
	"github.com/spf13/cobra"
)

const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the DriveHub web portal",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// serve reads its settings from config.Load, not from the CLI session.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

		sessions, records, err := openProvider(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				closeRecords(records, logger)
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (DRIVEHUB_NATS_URL not set)")
		}

		tracker := presence.New(logger)
		tracker.StartReaper(&presence.ReaperConfig{
			IdleAfter: cfg.PresenceIdle,
			OnIdle: func(userID int64) {
				logger.Debug("portal user idle", "user_id", userID)
			},
		})

		portal := server.NewPortal(
			client.NewHTTPClient(cfg.APIURL),
			sessions,
			server.WithPublisher(publisher),
			server.WithPresence(tracker),
			server.WithLogger(logger),
		)

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           portal.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startArchive(cfg, tracker, logger)

		purgeCtx, stopPurge := context.WithCancel(context.Background())
		if records != nil {
			go purgeLoop(purgeCtx, records, purgeInterval, logger)
		}

		logger.Info("drivehub portal started",
			"http_addr", cfg.HTTPAddr,
			"api_url", cfg.APIURL,
			"session_backend", cfg.SessionBackend,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		stopPurge()
		if scheduler != nil {
			scheduler.Stop()
			logger.Info("archive scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		tracker.Stop()
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		closeRecords(records, logger)

		logger.Info("shutdown complete")
		return nil
	},
}

// openProvider builds the session provider for cfg.SessionBackend. The
// returned store is nil in cookie mode, where records live in the browser.
func openProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Provider, store.Store, error) {
	opts := session.CookieOptions{Secure: cfg.CookieSecure, TTL: cfg.SessionTTL}

	var records store.Store
	switch cfg.SessionBackend {
	case config.BackendCookie:
		p, err := session.NewCookieProvider([]byte(cfg.SessionSecret), opts)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sessions in signed cookies")
		return p, nil, nil
	case config.BackendRedis:
		rs, err := storeredis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: %w", err)
		}
		records = rs
	case config.BackendPostgres:
		ps, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: %w", err)
		}
		records = ps
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
	logger.Info("sessions in server-side store", "backend", cfg.SessionBackend, "ttl", cfg.SessionTTL)
	return session.NewKeyedProvider(records, opts, logger), records, nil
}

func closeRecords(records store.Store, logger *slog.Logger) {
	if records == nil {
		return
	}
	if err := records.Close(); err != nil {
		logger.Error("error closing session store", "err", err)
	}
}

// startArchive starts the roster snapshot scheduler when an interval and at
// least one usable destination are configured.
func startArchive(cfg *config.Config, source archive.Source, logger *slog.Logger) *archive.Scheduler {
	if !cfg.ArchiveEnabled() {
		return nil
	}

	var dests []archive.Destination
	if cfg.ArchiveS3Bucket != "" {
		s3Dest, err := archive.NewS3Destination(
			context.Background(),
			cfg.ArchiveS3Bucket,
			cfg.ArchiveS3Key,
			cfg.ArchiveS3Region,
			cfg.ArchiveS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 archive destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("archive S3 destination enabled", "bucket", cfg.ArchiveS3Bucket, "key", cfg.ArchiveS3Key)
		}
	}
	if cfg.ArchiveFile != "" {
		dests = append(dests, &archive.FileDestination{Path: cfg.ArchiveFile})
		logger.Info("archive file destination enabled", "path", cfg.ArchiveFile)
	}
	if len(dests) == 0 {
		return nil
	}

	scheduler := archive.NewScheduler(source, dests, cfg.ArchiveInterval, logger)
	scheduler.Start()
	logger.Info("archive scheduler started", "interval", cfg.ArchiveInterval)
	return scheduler
}

// purgeLoop drops expired session records every interval until ctx ends.
func purgeLoop(ctx context.Context, records store.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := records.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("purging expired sessions failed", "err", err)
				}
				continue
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
