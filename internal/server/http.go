package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/alfredjeanlab/drivehub/internal/events"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/session"
)

// NewHTTPHandler returns the portal's http.Handler with every page, form
// action and JSON endpoint registered.
func (p *Portal) NewHTTPHandler() http.Handler {
	app := http.NewServeMux()
	app.HandleFunc("GET /", p.handlePage)
	app.HandleFunc("GET /api/session", p.handleSession)
	app.HandleFunc("GET /api/roster", p.guard(router.PathAdmin, p.handleRoster))
	app.HandleFunc("GET /admin/activity/stream", p.guard(router.PathAdmin, p.handleActivityStream))

	app.HandleFunc("POST /login", p.handleLogin)
	app.HandleFunc("POST /register", p.handleRegister)
	app.HandleFunc("POST /logout", p.handleLogout)

	app.HandleFunc("POST /client/bookings", p.guard(router.PathClientBookings, p.handleCreateBooking))

	app.HandleFunc("POST /admin/cars", p.guard(router.PathAdminCars, p.handleCreateCar))
	app.HandleFunc("POST /admin/cars/{id}", p.guard(router.PathAdminCars, p.handleUpdateCar))
	app.HandleFunc("POST /admin/cars/{id}/delete", p.guard(router.PathAdminCars, p.handleDeleteCar))
	app.HandleFunc("POST /admin/bookings/{id}/status", p.guard(router.PathAdminBookings, p.handleSetRentalStatus))
	app.HandleFunc("POST /admin/users/{id}/delete", p.guard(router.PathAdminUsers, p.handleDeleteUser))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", p.handleHealth)
	mux.Handle("/", p.withSession(app))

	return RequestID(Logging(p.logger, Recovery(p.logger, mux)))
}

// handleHealth handles GET /healthz.
func (p *Portal) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePage resolves the request path against the route table and renders
// the matched view when the guard allows it.
func (p *Portal) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	out := p.router.Resolve(r.URL.Path, sess)
	if !p.settle(w, r, sess, out) {
		return
	}
	view, ok := p.pages[out.View]
	if !ok {
		writeError(w, http.StatusInternalServerError, "no handler for view "+string(out.View))
		return
	}
	view(w, r, p.newPage(r, sess, out.View))
}

// guard runs h only if the page at viewPath would render for this session.
// Form actions share their page's protection.
func (p *Portal) guard(viewPath string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := mustSession(r)
		if p.settle(w, r, sess, p.router.Resolve(viewPath, sess)) {
			h(w, r)
		}
	}
}

// settle writes the response for any outcome other than Rendered and
// reports whether the caller should go on to render.
func (p *Portal) settle(w http.ResponseWriter, r *http.Request, sess *session.Store, out router.Outcome) bool {
	switch out.State {
	case router.Rendered:
		return true
	case router.RedirectLogin, router.RedirectHome:
		if !out.Route.ToLogin {
			id, _ := sess.Identity()
			p.emit(r.Context(), events.TopicNavRedirect, events.NewNavRedirect(
				r.URL.Path, out.Location, out.State.String(), sess.CurrentRoleTier(), id.ID, p.now()))
		}
		http.Redirect(w, r, out.Location, http.StatusFound)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return false
}

// mustSession returns the store attached by withSession.
func mustSession(r *http.Request) *session.Store {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		panic("server: request reached a handler without a session")
	}
	return sess
}

// redirectWith sends the browser to path with a toast message.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	target := path
	if msg != "" {
		target += "?" + url.Values{key: {msg}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
