package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/router"
)

// sessionResponse is the body of GET /api/session.
type sessionResponse struct {
	Ready    bool              `json:"ready"`
	Tier     string            `json:"tier"`
	Identity *model.Identity   `json:"identity"`
	Menu     []router.MenuItem `json:"menu"`
}

// handleSession handles GET /api/session.
func (p *Portal) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	resp := sessionResponse{
		Ready: sess.IsReady(),
		Tier:  sess.CurrentRoleTier().String(),
		Menu:  router.Menu(sess.CurrentRoleTier()),
	}
	if id, ok := sess.Identity(); ok {
		resp.Identity = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRoster handles GET /api/roster. It returns the users seen recently,
// optionally bounded by stale_threshold_secs (default 30 minutes).
func (p *Portal) handleRoster(w http.ResponseWriter, r *http.Request) {
	stale := 30 * time.Minute
	if v := r.URL.Query().Get("stale_threshold_secs"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			stale = time.Duration(secs) * time.Second
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active": p.presence.ActiveCount(),
		"users":  p.presence.Roster(stale),
	})
}
