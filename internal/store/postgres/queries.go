package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/store"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetSession(ctx context.Context, db executor, sid string, now time.Time) ([]byte, error) {
	row := db.QueryRowContext(ctx, `
		SELECT record FROM portal_sessions
		WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		sid, now,
	)
	var record []byte
	if err := row.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", sid, err)
	}
	return record, nil
}

func queryPutSession(ctx context.Context, db executor, sid string, record []byte, now time.Time, expires sql.NullTime) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO portal_sessions (id, record, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`,
		sid, record, now, expires,
	)
	if err != nil {
		return fmt.Errorf("put session %s: %w", sid, err)
	}
	return nil
}

func queryDeleteSession(ctx context.Context, db executor, sid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE id = $1`, sid); err != nil {
		return fmt.Errorf("delete session %s: %w", sid, err)
	}
	return nil
}

func queryPurgeExpired(ctx context.Context, db executor, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return n, nil
}
