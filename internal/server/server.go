// Package server is the DriveHub web portal: server-rendered pages guarded by
// the router, form actions that call the rental API, and a small JSON surface
// for scripts and the admin activity stream.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/events"
	"github.com/alfredjeanlab/drivehub/internal/presence"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/session"
)

// Portal serves the DriveHub pages. Each request gets its own session.Store,
// opened through the configured Provider.
type Portal struct {
	api       client.API
	sessions  session.Provider
	router    *router.Router
	publisher events.Publisher
	presence  *presence.Tracker
	hub       *activityHub
	pages     map[router.View]viewHandler
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Portal.
type Option func(*Portal)

// WithPublisher sets where session and navigation events are published.
func WithPublisher(p events.Publisher) Option {
	return func(s *Portal) { s.publisher = p }
}

// WithPresence sets the tracker fed by authenticated requests.
func WithPresence(t *presence.Tracker) Option {
	return func(s *Portal) { s.presence = t }
}

// WithRouter replaces the default route table.
func WithRouter(r *router.Router) Option {
	return func(s *Portal) { s.router = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Portal) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPortal returns a portal backed by api for data and sessions for
// identity persistence.
func NewPortal(api client.API, sessions session.Provider, opts ...Option) *Portal {
	p := &Portal{
		api:       api,
		sessions:  sessions,
		publisher: events.NoopPublisher{},
		hub:       newActivityHub(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.router == nil {
		p.router = router.New(nil)
	}
	if p.presence == nil {
		p.presence = presence.New(p.logger)
	}
	p.pages = p.viewHandlers()
	return p
}

// Presence exposes the tracker so the caller can run its reaper and archive it.
func (p *Portal) Presence() *presence.Tracker {
	return p.presence
}

// emit publishes an event on the bus and fans it out to activity stream
// clients. Both are best-effort.
func (p *Portal) emit(ctx context.Context, topic string, event any) {
	events.Emit(ctx, p.publisher, p.logger, topic, event)

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("encoding activity event failed", "topic", topic, "err", err)
		return
	}
	p.hub.broadcast(topic, payload)
}
