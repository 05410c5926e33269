// Package store defines server-side storage for portal session records.
//
// A record is the serialized identity belonging to one browser session id.
// The portal only uses a store when sessions are kept server-side; the
// default cookie mode needs none.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no live record exists for a session id.
var ErrNotFound = errors.New("session record not found")

// Store persists session records keyed by session id.
type Store interface {
	// GetSession returns the record for sid, or ErrNotFound when it is
	// missing or expired.
	GetSession(ctx context.Context, sid string) ([]byte, error)

	// PutSession replaces the record for sid. A ttl of zero means no expiry.
	PutSession(ctx context.Context, sid string, record []byte, ttl time.Duration) error

	// DeleteSession removes the record for sid. Deleting a missing record is
	// not an error.
	DeleteSession(ctx context.Context, sid string) error

	// PurgeExpired removes expired records and reports how many were removed.
	// Stores that expire records natively return 0.
	PurgeExpired(ctx context.Context) (int64, error)

	Close() error
}
