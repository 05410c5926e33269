package session

import (
	"context"
	"log/slog"
	"net/http"
)

// Provider opens the persistent slot belonging to the browser behind one
// HTTP exchange.
type Provider interface {
	Open(w http.ResponseWriter, r *http.Request) Backend
}

// Compile-time checks.
var (
	_ Provider = (*CookieProvider)(nil)
	_ Provider = (*KeyedProvider)(nil)
)

// ForRequest builds and initializes the store for one exchange.
func ForRequest(ctx context.Context, p Provider, w http.ResponseWriter, r *http.Request, logger *slog.Logger) *Store {
	s := New(p.Open(w, r), WithLogger(logger))
	s.Initialize(ctx)
	return s
}

type storeContextKey struct{}

// WithStore returns a copy of ctx carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, s)
}

// FromContext returns the store attached by WithStore, if any.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeContextKey{}).(*Store)
	return s, ok && s != nil
}
