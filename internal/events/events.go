package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// Event topic constants
const (
	TopicSessionLogin  = "drivehub.session.login"
	TopicSessionLogout = "drivehub.session.logout"
	TopicNavRedirect   = "drivehub.nav.redirect"

	// TopicAll matches every portal event.
	TopicAll = "drivehub.>"
)

// Event types. Every payload carries its topic in "type" so that a wildcard
// subscriber can tell them apart.

type SessionLogin struct {
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`
	Name   string    `json:"name,omitempty"`
	Tier   string    `json:"tier"`
	At     time.Time `json:"at"`
}

type SessionLogout struct {
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// NavRedirect records a navigation the guard turned away.
type NavRedirect struct {
	Type     string    `json:"type"`
	Path     string    `json:"path"`
	Location string    `json:"location"`
	Outcome  string    `json:"outcome"`
	UserID   int64     `json:"user_id,omitempty"`
	Tier     string    `json:"tier"`
	At       time.Time `json:"at"`
}

func NewSessionLogin(id model.Identity, at time.Time) SessionLogin {
	return SessionLogin{
		Type:   TopicSessionLogin,
		UserID: id.ID,
		Name:   id.DisplayName,
		Tier:   id.Tier().String(),
		At:     at.UTC(),
	}
}

func NewSessionLogout(userID int64, at time.Time) SessionLogout {
	return SessionLogout{Type: TopicSessionLogout, UserID: userID, At: at.UTC()}
}

func NewNavRedirect(path, location, outcome string, tier model.Tier, userID int64, at time.Time) NavRedirect {
	return NavRedirect{
		Type:     TopicNavRedirect,
		Path:     path,
		Location: location,
		Outcome:  outcome,
		UserID:   userID,
		Tier:     tier.String(),
		At:       at.UTC(),
	}
}

// Envelope is the part common to every payload.
type Envelope struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// Decode parses a raw payload into its concrete event type.
func Decode(data []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}
	var ev any
	switch env.Type {
	case TopicSessionLogin:
		ev = &SessionLogin{}
	case TopicSessionLogout:
		ev = &SessionLogout{}
	case TopicNavRedirect:
		ev = &NavRedirect{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Type, err)
	}
	return ev, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Emit publishes event and logs, rather than returns, any failure. Portal
// events are informational and never fail the request that raised them.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, topic string, event any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, topic, event); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("publishing event failed", "topic", topic, "err", err)
	}
}
