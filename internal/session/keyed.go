package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/drivehub/internal/idgen"
	"github.com/alfredjeanlab/drivehub/internal/store"
)

// SessionCookie names the cookie carrying the session id in keyed mode.
const SessionCookie = "sid"

// KeyedProvider keeps records server-side in a store.Store; the browser only
// holds an opaque session id.
type KeyedProvider struct {
	store  store.Store
	opts   CookieOptions
	logger *slog.Logger
}

// NewKeyedProvider returns a provider backed by st.
func NewKeyedProvider(st store.Store, opts CookieOptions, logger *slog.Logger) *KeyedProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyedProvider{store: st, opts: opts, logger: logger}
}

func (p *KeyedProvider) Open(w http.ResponseWriter, r *http.Request) Backend {
	b := &keyedBackend{p: p, w: w}
	if c, err := r.Cookie(SessionCookie); err == nil && idgen.ValidSessionID(c.Value) {
		b.sid = c.Value
	}
	return b
}

type keyedBackend struct {
	p   *KeyedProvider
	w   http.ResponseWriter
	sid string
}

func (b *keyedBackend) Load(ctx context.Context) ([]byte, error) {
	if b.sid == "" {
		return nil, ErrNoRecord
	}
	data, err := b.p.store.GetSession(ctx, b.sid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoRecord
		}
		return nil, err
	}
	return data, nil
}

// Save always issues a fresh session id so an id seen before login never
// becomes authenticated.
func (b *keyedBackend) Save(ctx context.Context, record []byte) error {
	sid, err := idgen.NewSessionID()
	if err != nil {
		return err
	}
	if err := b.p.store.PutSession(ctx, sid, record, b.p.opts.TTL); err != nil {
		return err
	}
	if b.sid != "" {
		if err := b.p.store.DeleteSession(ctx, b.sid); err != nil {
			b.p.logger.Warn("failed to drop superseded session", "err", err)
		}
	}
	b.sid = sid
	http.SetCookie(b.w, b.p.opts.cookie(SessionCookie, sid))
	return nil
}

func (b *keyedBackend) Delete(ctx context.Context) error {
	http.SetCookie(b.w, b.p.opts.expired(SessionCookie))
	if b.sid == "" {
		return nil
	}
	sid := b.sid
	b.sid = ""
	return b.p.store.DeleteSession(ctx, sid)
}
