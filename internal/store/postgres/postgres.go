// Package postgres keeps portal session records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/drivehub/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Pool limits. Session lookups are short single-row queries.
const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
)

// PostgresStore is a store.Store over the portal_sessions table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*PostgresStore)(nil)

// New connects to databaseURL and brings the schema up to date. The caller
// owns the returned store and must Close it.
func New(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := prepare(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newWithDB(db), nil
}

func prepare(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("reaching postgres: %w", err)
	}
	if err := migrateUp(db); err != nil {
		return fmt.Errorf("migrating session schema: %w", err)
	}
	return nil
}

func newWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// migrateUp applies the embedded migrations. An already current schema is
// not an error.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: "portal_schema_migrations"})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// GetSession ignores rows whose expiry has passed even if they have not been
// purged yet.
func (s *PostgresStore) GetSession(ctx context.Context, sid string) ([]byte, error) {
	return queryGetSession(ctx, s.db, sid, s.now())
}

// PutSession upserts the record. A ttl of zero stores it without expiry.
func (s *PostgresStore) PutSession(ctx context.Context, sid string, record []byte, ttl time.Duration) error {
	now := s.now()
	expires := sql.NullTime{}
	if ttl > 0 {
		expires.Time, expires.Valid = now.Add(ttl), true
	}
	return queryPutSession(ctx, s.db, sid, record, now, expires)
}

func (s *PostgresStore) DeleteSession(ctx context.Context, sid string) error {
	return queryDeleteSession(ctx, s.db, sid)
}

// PurgeExpired deletes expired rows and reports how many went.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	return queryPurgeExpired(ctx, s.db, s.now())
}
