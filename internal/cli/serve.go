package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kolamlabs/kolamscan/internal/server"
	"github.com/kolamlabs/kolamscan/pkg/cache"
	"github.com/kolamlabs/kolamscan/pkg/pipeline"
	"github.com/kolamlabs/kolamscan/pkg/report"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		listen     string
		configPath string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP server",
		Long: `Serve starts an HTTP server that accepts image uploads on POST /analyze
and streams analysis progress back as server-sent events. When a MongoDB
URI is configured, finished reports are persisted and can be fetched
from GET /reports and GET /reports/{id}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			store, err := newServerCache(cmd.Context(), noCache, cfg)
			if err != nil {
				return fmt.Errorf("create cache: %w", err)
			}

			runner := pipeline.NewRunner(store, newKeyer(), c.Logger, cfg.Stages)
			defer runner.Close()

			var reports *report.MongoStore
			if cfg.MongoURI != "" {
				reports, err = report.NewMongoStore(cmd.Context(), cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
				if err != nil {
					return fmt.Errorf("connect report store: %w", err)
				}
				defer reports.Close(context.Background())
				c.Logger.Info("report persistence enabled", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
			}

			srv := &http.Server{
				Addr:              cfg.Listen,
				Handler:           server.New(runner, reports, c.Logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("listening", "addr", cfg.Listen)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				c.Logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "bind address (overrides config)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")

	return cmd
}

// newServerCache builds the report cache for server use. Redis wins over
// the file cache when both are configured.
func newServerCache(ctx context.Context, noCache bool, cfg pipeline.FileConfig) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisURL != "" {
		rc, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisCache(ctx, rc)
	}
	return newCache(false, cfg)
}

// parseRedisURL parses a redis://[user:pass@]host:port[/db] URL.
func parseRedisURL(raw string) (cache.RedisConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return cache.RedisConfig{}, fmt.Errorf("parse redis url: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return cache.RedisConfig{}, fmt.Errorf("parse redis url: unsupported scheme %q", u.Scheme)
	}

	cfg := cache.RedisConfig{Addr: u.Host}
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if pw, ok := u.User.Password(); ok {
		cfg.Password = pw
	}
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		db, err := strconv.Atoi(p)
		if err != nil {
			return cache.RedisConfig{}, fmt.Errorf("parse redis url: invalid database %q", p)
		}
		cfg.DB = db
	}
	return cfg, nil
}
