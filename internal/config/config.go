// Package config builds the immutable run configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/feed-sync/internal/env"
)

// ErrConfiguration marks a startup-fatal configuration problem.
var ErrConfiguration = errors.New("configuration error")

type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeBackfill    Mode = "backfill"
)

type Feed struct {
	BaseURL        string
	Token          string
	Resource       string
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	RPS            float64
}

type Store struct {
	URL        string
	Key        string
	RetryDelay time.Duration
	Migrate    bool
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type Log struct {
	Level  string
	Format string
}

// Config is built once in main and passed by value; nothing else reads the environment.
type Config struct {
	Feed  Feed
	Store Store
	Redis Redis
	Log   Log

	Mode      Mode
	StartPage int
	EndPage   int
	Interval  time.Duration
	PagePause time.Duration

	StatusAddr string
}

// LoadDotEnv loads .env if present. A missing file is not an error.
func LoadDotEnv(log *zap.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("could not load .env", zap.Error(err))
	}
}

// FromEnv reads every setting from src and validates it for the active mode.
func FromEnv(src env.Source) (Config, error) {
	r := env.NewReader(src)
	cfg := Config{
		Feed: Feed{
			BaseURL:        strings.TrimRight(r.Must("FEED_BASE_URL"), "/"),
			Token:          r.Must("FEED_TOKEN"),
			Resource:       r.Get("FEED_RESOURCE", "Property"),
			RetryBaseDelay: r.GetDuration("FEED_RETRY_BASE_DELAY", time.Second),
			RequestTimeout: r.GetDuration("FEED_REQUEST_TIMEOUT", 30*time.Second),
			RPS:            r.GetFloat("FEED_RPS", 0),
		},
		Store: Store{
			URL:        r.Must("STORE_URL"),
			Key:        r.Must("STORE_KEY"),
			RetryDelay: r.GetDuration("STORE_RETRY_DELAY", 250*time.Millisecond),
			Migrate:    r.GetBool("STORE_MIGRATE", true),
		},
		Redis: Redis{
			Addr:     r.Get("REDIS_ADDR", ""),
			Password: r.Get("REDIS_PASSWORD", ""),
			DB:       r.GetInt("REDIS_DB", 0),
		},
		Log: Log{
			Level:  r.Get("LOG_LEVEL", "info"),
			Format: r.Get("LOG_FORMAT", "json"),
		},
		Mode:       ModeIncremental,
		Interval:   r.GetDuration("SYNC_INTERVAL", 0),
		PagePause:  r.GetDuration("SYNC_PAGE_PAUSE", 0),
		StatusAddr: r.Get("STATUS_ADDR", ""),
	}
	if r.GetBool("BACKFILL", false) {
		cfg.Mode = ModeBackfill
		cfg.StartPage = r.MustInt("START_PAGE")
		cfg.EndPage = r.MustInt("END_PAGE")
	}
	errs := r.Errs()
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return cfg, nil
}

// WithBackfill returns a copy switched to backfill over [start, end].
func (c Config) WithBackfill(start, end int) (Config, error) {
	c.Mode = ModeBackfill
	c.StartPage = start
	c.EndPage = end
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return c, nil
}

// WithIncremental returns a copy switched to incremental mode.
func (c Config) WithIncremental(interval time.Duration) Config {
	c.Mode = ModeIncremental
	c.StartPage, c.EndPage = 0, 0
	if interval > 0 {
		c.Interval = interval
	}
	return c
}

func (c Config) Validate() error {
	var errs []error
	if c.Feed.BaseURL != "" {
		if u, err := url.Parse(c.Feed.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("FEED_BASE_URL %q is not an absolute URL", c.Feed.BaseURL))
		}
	}
	if c.Feed.RPS < 0 {
		errs = append(errs, errors.New("FEED_RPS must not be negative"))
	}
	if c.Mode == ModeBackfill {
		if c.StartPage < 1 {
			errs = append(errs, fmt.Errorf("START_PAGE must be >= 1, got %d", c.StartPage))
		}
		if c.EndPage < c.StartPage {
			errs = append(errs, fmt.Errorf("END_PAGE (%d) must be >= START_PAGE (%d)", c.EndPage, c.StartPage))
		}
	}
	return errors.Join(errs...)
}
