package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewFiles = map[router.View]string{
	router.ViewLogin:          "login.html",
	router.ViewRegister:       "register.html",
	router.ViewBrowseCars:     "browse_cars.html",
	router.ViewMyBookings:     "my_bookings.html",
	router.ViewAdminDashboard: "admin_dashboard.html",
	router.ViewManageCars:     "manage_cars.html",
	router.ViewManageBookings: "manage_bookings.html",
	router.ViewManageUsers:    "manage_users.html",
}

var viewTitles = map[router.View]string{
	router.ViewLogin:          "Sign in",
	router.ViewRegister:       "Create account",
	router.ViewBrowseCars:     "Browse Cars",
	router.ViewMyBookings:     "My Bookings",
	router.ViewAdminDashboard: "Dashboard",
	router.ViewManageCars:     "Manage Cars",
	router.ViewManageBookings: "Manage Bookings",
	router.ViewManageUsers:    "Manage Users",
}

var templateFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"roles": func(rs model.RoleSet) string { return strings.Join(rs.Tags(), ", ") },
}

// templates holds one parsed set per view, each combining the shared layout
// with the view's "content" block.
var templates = parseTemplates()

func parseTemplates() map[router.View]*template.Template {
	out := make(map[router.View]*template.Template, len(viewFiles))
	for view, file := range viewFiles {
		out[view] = template.Must(template.New(file).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+file))
	}
	return out
}

// page is the data every view template receives. Identity is a copy; views
// cannot change the session.
type page struct {
	Title    string
	Path     string
	Home     string
	Identity model.Identity
	SignedIn bool
	Tier     model.Tier
	Menu     []router.MenuItem
	Notice   string
	Error    string
	Data     any
}

func (p *Portal) newPage(r *http.Request, sess *session.Store, view router.View) *page {
	id, ok := sess.Identity()
	tier := sess.CurrentRoleTier()
	q := r.URL.Query()
	return &page{
		Title:    viewTitles[view],
		Path:     r.URL.Path,
		Home:     router.Landing(tier),
		Identity: id,
		SignedIn: ok,
		Tier:     tier,
		Menu:     router.Menu(tier),
		Notice:   q.Get("notice"),
		Error:    q.Get("error"),
	}
}

// render executes view into a buffer so that a template failure can still
// produce a clean 500.
func (p *Portal) render(w http.ResponseWriter, status int, view router.View, pg *page) {
	tmpl, ok := templates[view]
	if !ok {
		writeError(w, http.StatusInternalServerError, "unknown view "+string(view))
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pg); err != nil {
		p.logger.Error("rendering view failed", "view", view, "err", err)
		writeError(w, http.StatusInternalServerError, "rendering failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// apiMessage is the user-facing text for a failed API call.
func apiMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "the rental service is unreachable"
}

// validationMessage flattens field errors into one line for a toast.
func validationMessage(err error) string {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		parts[i] = fe.Field + " " + fe.Message
	}
	return strings.Join(parts, "; ")
}
