package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourorg/feed-sync/feed"
	httpapi "github.com/yourorg/feed-sync/http"
	"github.com/yourorg/feed-sync/internal/config"
	"github.com/yourorg/feed-sync/internal/env"
	"github.com/yourorg/feed-sync/internal/events"
	"github.com/yourorg/feed-sync/internal/hydrator"
	"github.com/yourorg/feed-sync/internal/logger"
	"github.com/yourorg/feed-sync/internal/metrics"
	"github.com/yourorg/feed-sync/internal/redisx"
	"github.com/yourorg/feed-sync/internal/store"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "feedsync",
		Short: "Sync real-estate listings from a RESO feed into PostgreSQL",
		Long: `feedsync pulls listings from an OData feed, normalizes them and upserts them
into the listings table. Without a subcommand the mode comes from the environment
(BACKFILL, START_PAGE, END_PAGE).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("feedsync %s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var interval time.Duration
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run an incremental sync from the store's watermark",
		Long: `Fetch every listing modified at or after the newest stored modification
timestamp. An empty store is refused; seed it with "feedsync backfill" first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(incrementalOverrides())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg.WithIncremental(interval))
		},
	}
	syncCmd.Flags().DurationVar(&interval, "interval", 0, "Repeat the sync on this interval (e.g. 15m); 0 runs once")
	root.AddCommand(syncCmd)

	var startPage, endPage int
	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Re-import an explicit range of feed pages",
		Long: `Fetch pages start..end of the listing resource without a watermark filter.

Example:
  feedsync backfill --start-page 1 --end-page 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(backfillOverrides(startPage, endPage))
			if err != nil {
				return err
			}
			cfg, err = cfg.WithBackfill(startPage, endPage)
			if err != nil {
				return err
			}
			cfg.Interval = 0
			return run(cmd.Context(), cfg)
		},
	}
	backfillCmd.Flags().IntVar(&startPage, "start-page", 1, "First page to fetch (1-based)")
	backfillCmd.Flags().IntVar(&endPage, "end-page", 0, "Last page to fetch (inclusive, required)")
	_ = backfillCmd.MarkFlagRequired("end-page")
	root.AddCommand(backfillCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Subcommand flags pin the mode, so mode variables left in the environment
// must not fail validation first.
func incrementalOverrides() map[string]string {
	return map[string]string{"BACKFILL": "false"}
}

func backfillOverrides(start, end int) map[string]string {
	return map[string]string{
		"BACKFILL":   "true",
		"START_PAGE": strconv.Itoa(start),
		"END_PAGE":   strconv.Itoa(end),
	}
}

func loadConfig(over map[string]string) (config.Config, error) {
	config.LoadDotEnv(logger.Get())
	cfg, err := config.FromEnv(env.Overlay(os.LookupEnv, over))
	if err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Format == "console",
		Encoding:    cfg.Log.Format,
	}); err != nil {
		return config.Config{}, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	return cfg, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

type migrator interface {
	pinger
	Migrate(ctx context.Context) error
}

// preflight verifies the feed credentials before the store is pinged or
// migrated.
func preflight(ctx context.Context, fd pinger, st migrator, migrate bool) error {
	if err := fd.Ping(ctx); err != nil {
		return fmt.Errorf("auth check: %w", err)
	}
	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	if !migrate {
		return nil
	}
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("store migrate: %w", err)
	}
	return nil
}

func run(ctx context.Context, cfg config.Config) error {
	log := logger.With(zap.String("mode", string(cfg.Mode)))

	client := feed.NewClient(feed.Options{
		BaseURL:        cfg.Feed.BaseURL,
		Token:          cfg.Feed.Token,
		Resource:       cfg.Feed.Resource,
		RetryBaseDelay: cfg.Feed.RetryBaseDelay,
		RequestTimeout: cfg.Feed.RequestTimeout,
		RPS:            cfg.Feed.RPS,
		Logger:         log,
	})

	st, err := store.Open(cfg.Store.URL, cfg.Store.Key)
	if err != nil {
		return err
	}
	defer st.Close()

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = preflight(setupCtx, client, st, cfg.Store.Migrate)
	cancel()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	runs := events.NewInMemory()
	pubs := []events.Publisher{runs}
	if cfg.Redis.Enabled() {
		rc := redisx.New(redisx.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable; events stay in-process", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			rp := events.NewRedis(rc, redisx.ErrMiss, log)
			if prev, ok, err := rp.LastReport(ctx, string(cfg.Mode)); err == nil && ok {
				log.Info("previous run",
					zap.String("outcome", prev.Outcome),
					zap.Int("upserted", prev.Upserted),
					zap.Time("finished_at", prev.FinishedAt),
				)
			}
			pubs = append(pubs, rp)
		}
	}

	job := &hydrator.BulkJob{
		Feed: client,
		Hydrator: &hydrator.Hydrator{
			Store:      st,
			Pub:        events.Multi(pubs...),
			RetryDelay: cfg.Store.RetryDelay,
			Logger:     log,
		},
		Watermark: &hydrator.Watermark{Source: st},
		Metrics:   m,
		Logger:    log,
		Config: hydrator.BulkConfig{
			Mode:      cfg.Mode,
			StartPage: cfg.StartPage,
			EndPage:   cfg.EndPage,
			PageSize:  feed.DefaultPageSize,
			Interval:  cfg.Interval,
			PagePause: cfg.PagePause,
		},
	}

	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           httpapi.BuildRouter(httpapi.StatusDeps{Runs: runs, Store: st}, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("status server listening", zap.String("addr", cfg.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
