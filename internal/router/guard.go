package router

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// State is a step of the per-navigation state machine.
//
//	Pending --ready--> Evaluating --> RedirectLogin | RedirectHome | Rendered
type State int

const (
	Pending State = iota
	Evaluating
	RedirectLogin
	RedirectHome
	Rendered
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Evaluating:
		return "evaluating"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case Rendered:
		return "rendered"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s ends a navigation attempt.
func (s State) Terminal() bool {
	return s == RedirectLogin || s == RedirectHome || s == Rendered
}

// Outcome is the result of one navigation attempt. View is set only for
// Rendered, Location only for the redirect states.
type Outcome struct {
	State    State
	Route    Route
	View     View
	Location string
}

// Session is what the guard needs to know about the current client.
// *session.Store implements it.
type Session interface {
	IsReady() bool
	Ready() <-chan struct{}
	Identity() (model.Identity, bool)
	CurrentRoleTier() model.Tier
}

// Landing is where a tier is sent after login or when it lacks privilege.
func Landing(tier model.Tier) string {
	switch tier {
	case model.TierAdmin:
		return PathAdmin
	case model.TierClient:
		return PathClient
	}
	return PathLogin
}

// Evaluate decides the terminal outcome of navigating to route with a ready
// session.
func Evaluate(route Route, s Session) Outcome {
	if route.ToLogin {
		return Outcome{State: RedirectLogin, Route: route, Location: PathLogin}
	}

	tier := s.CurrentRoleTier()
	switch route.Protection {
	case Public:
		return rendered(route)
	case AuthenticatedOnly:
		if !tier.AtLeast(model.TierClient) {
			return Outcome{State: RedirectLogin, Route: route, Location: PathLogin}
		}
		return rendered(route)
	case AdminOnly:
		switch {
		case !tier.AtLeast(model.TierClient):
			return Outcome{State: RedirectLogin, Route: route, Location: PathLogin}
		case !tier.AtLeast(model.TierAdmin):
			return Outcome{State: RedirectHome, Route: route, Location: Landing(tier)}
		}
		return rendered(route)
	}
	// Unknown protection levels fail closed.
	return Outcome{State: RedirectLogin, Route: route, Location: PathLogin}
}

func rendered(route Route) Outcome {
	return Outcome{State: Rendered, Route: route, View: route.View}
}

// Router resolves paths against a table.
type Router struct {
	table    *Table
	observer func(path string, from, to State)
}

// Option configures a Router.
type Option func(*Router)

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(path string, from, to State)) Option {
	return func(r *Router) { r.observer = fn }
}

// New returns a router over table, or over DefaultTable when table is nil.
func New(table *Table, opts ...Option) *Router {
	if table == nil {
		table = DefaultTable()
	}
	r := &Router{table: table}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the router's route table.
func (r *Router) Table() *Table {
	return r.table
}

// Resolve evaluates path without waiting. It returns a Pending outcome,
// with no view and no location, while the session is not ready.
func (r *Router) Resolve(path string, s Session) Outcome {
	route := r.table.Match(path)
	if !s.IsReady() {
		return Outcome{State: Pending, Route: route}
	}
	return r.evaluate(path, route, s, Evaluating)
}

// Navigate waits out the Pending state and returns exactly one terminal
// outcome. It fails only if ctx ends first.
func (r *Router) Navigate(ctx context.Context, path string, s Session) (Outcome, error) {
	route := r.table.Match(path)
	if !s.IsReady() {
		select {
		case <-s.Ready():
		case <-ctx.Done():
			return Outcome{State: Pending, Route: route}, ctx.Err()
		}
		r.notify(path, Pending, Evaluating)
	}
	return r.evaluate(path, route, s, Evaluating), nil
}

func (r *Router) evaluate(path string, route Route, s Session, from State) Outcome {
	out := Evaluate(route, s)
	r.notify(path, from, out.State)
	return out
}

func (r *Router) notify(path string, from, to State) {
	if r.observer != nil {
		r.observer(path, from, to)
	}
}
