package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/stdlib"

    "github.com/yourorg/feed-sync/internal/normalize"
)

// Store persists normalized listings in one PostgreSQL table keyed by listing_key.
type Store struct {
    DB     *sql.DB
    table  string
    upsert string
}

// Open connects with dsn; a non-empty key overrides the DSN password.
func Open(dsn, key string) (*Store, error) {
    cfg, err := pgx.ParseConfig(dsn)
    if err != nil { return nil, fmt.Errorf("parse store url: %w", err) }
    if key != "" { cfg.Password = key }
    db := stdlib.OpenDB(*cfg)
    db.SetMaxOpenConns(4)
    db.SetMaxIdleConns(2)
    db.SetConnMaxLifetime(30 * time.Minute)
    return New(db, DefaultTable), nil
}

func New(db *sql.DB, table string) *Store {
    if table == "" { table = DefaultTable }
    return &Store{DB: db, table: table, upsert: upsertSQL(table, normalize.Columns(), normalize.ColumnListingKey)}
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Migrate creates the table and any columns it is missing.
func (s *Store) Migrate(ctx context.Context) error {
    for _, q := range createTableSQL(s.table, normalize.Fields) {
        if _, err := s.DB.ExecContext(ctx, q); err != nil { return fmt.Errorf("migrate: %w", err) }
    }
    return nil
}

// LatestModification returns the newest persisted change timestamp, or nil
// when the table holds no timestamped rows.
func (s *Store) LatestModification(ctx context.Context) (*time.Time, error) {
    var ts time.Time
    err := s.DB.QueryRowContext(ctx, watermarkSQL(s.table)).Scan(&ts)
    if errors.Is(err, sql.ErrNoRows) { return nil, nil }
    if err != nil { return nil, fmt.Errorf("read watermark: %w", err) }
    ts = ts.UTC()
    return &ts, nil
}

// UpsertListing inserts rec or replaces every column of the existing row.
func (s *Store) UpsertListing(ctx context.Context, rec normalize.Record) error {
    if rec.Key() == "" { return errors.New("record has no listing key") }
    if _, err := s.DB.ExecContext(ctx, s.upsert, rec.Values()...); err != nil {
        return fmt.Errorf("upsert %s: %w", rec.Key(), err)
    }
    return nil
}
