// Package main is the murmur server: feeds, bookmarks and direct messages
// over a JSON HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackmichael/murmur/internal/config"
	"github.com/blackmichael/murmur/internal/domain"
	"github.com/blackmichael/murmur/internal/httpserver"
	"github.com/blackmichael/murmur/internal/ingest"
	"github.com/blackmichael/murmur/internal/metrics"
	"github.com/blackmichael/murmur/internal/store"
)

const (
	Version = "0.1.0"
	appName = "murmur"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Social posting and direct messaging service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, logLevel)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the relay subscriber and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, logLevel)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configPath, logLevel)
			if err != nil {
				return err
			}
			repo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema up to date", "driver", cfg.Database.Driver)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func setup(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openRepository(ctx context.Context, cfg *config.Config) (*store.Repository, error) {
	dsn := cfg.Database.URL
	if cfg.Database.Driver == store.DriverSQLite && !strings.HasPrefix(dsn, "file:") {
		dsn = store.SQLiteDSN(dsn)
	}
	repo, err := store.Open(ctx, cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	return repo, nil
}

func serve(ctx context.Context, configPath, logLevel string) error {
	cfg, logger, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	m := metrics.New()
	feedService := domain.NewFeedService(repo, repo, m, logger)
	bookmarkService := domain.NewBookmarkService(repo, repo, m, logger)
	svc := httpserver.Services{
		Feed:      feedService,
		Graph:     domain.NewGraphService(repo, logger),
		Bookmarks: bookmarkService,
		Messaging: domain.NewMessagingService(repo, m, logger),
		Profiles:  domain.NewProfileService(repo),
		Health:    repo,
	}

	if cfg.Ingest.RelayURL != "" {
		subscriber := ingest.NewSubscriber(cfg.Ingest.RelayURL, feedService, cfg.Ingest.CursorInterval, m, logger)
		go func() {
			if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("relay subscriber exited with error", "error", err)
			}
		}()
	} else {
		logger.Info("relay ingest disabled")
	}

	go bookmarkService.StartPruneJob(ctx, cfg.Bookmarks.PruneInterval)

	server := httpserver.NewServer(cfg, svc, m, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("server started", "port", cfg.Server.Port, "hostname", cfg.Server.Hostname)

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}
