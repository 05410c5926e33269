// Package router maps portal paths to views and decides, per navigation,
// whether the current session may see them.
package router

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Protection is the access level a route demands.
type Protection int

const (
	Public Protection = iota
	AuthenticatedOnly
	AdminOnly
)

func (p Protection) String() string {
	switch p {
	case Public:
		return "public"
	case AuthenticatedOnly:
		return "authenticated"
	case AdminOnly:
		return "admin"
	}
	return fmt.Sprintf("Protection(%d)", int(p))
}

// View names the page a route renders.
type View string

const (
	ViewNone           View = ""
	ViewLogin          View = "Login"
	ViewRegister       View = "Register"
	ViewBrowseCars     View = "BrowseCars"
	ViewMyBookings     View = "MyBookings"
	ViewAdminDashboard View = "AdminDashboard"
	ViewManageCars     View = "ManageCars"
	ViewManageBookings View = "ManageBookings"
	ViewManageUsers    View = "ManageUsers"
)

// Well-known paths.
const (
	PathRoot           = "/"
	PathLogin          = "/login"
	PathRegister       = "/register"
	PathClient         = "/client"
	PathClientBookings = "/client/bookings"
	PathAdmin          = "/admin"
	PathAdminCars      = "/admin/cars"
	PathAdminBookings  = "/admin/bookings"
	PathAdminUsers     = "/admin/users"
	PathLegacyCars     = "/cars"
	PathLegacyAddCar   = "/cars/add"

	// CatchAll matches any path no other route claims.
	CatchAll = "*"
)

// Route is one static entry of the route table.
type Route struct {
	Path       string
	View       View
	Protection Protection

	// ToLogin makes the route redirect to the login page instead of
	// rendering anything. The catch-all always has it set.
	ToLogin bool
}

func (r Route) IsCatchAll() bool {
	return r.Path == CatchAll
}

var (
	ErrNoCatchAll        = errors.New("route table has no catch-all")
	ErrMultipleCatchAlls = errors.New("route table has more than one catch-all")
	ErrCatchAllNotLast   = errors.New("catch-all must be the last route")
)

// Table is an ordered route table. The first matching route wins.
type Table struct {
	routes []Route
}

// NewTable validates routes: paths must be absolute and unique, and exactly
// one catch-all must close the table.
func NewTable(routes ...Route) (*Table, error) {
	seen := make(map[string]bool, len(routes))
	catchAlls := 0
	for i, r := range routes {
		if r.IsCatchAll() {
			catchAlls++
			if i != len(routes)-1 {
				return nil, ErrCatchAllNotLast
			}
			continue
		}
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route %q: path must start with /", r.Path)
		}
		if seen[r.Path] {
			return nil, fmt.Errorf("route %q: duplicate path", r.Path)
		}
		seen[r.Path] = true
		if r.View == ViewNone && !r.ToLogin {
			return nil, fmt.Errorf("route %q: no view", r.Path)
		}
	}
	switch {
	case catchAlls == 0:
		return nil, ErrNoCatchAll
	case catchAlls > 1:
		return nil, ErrMultipleCatchAlls
	}

	t := &Table{routes: make([]Route, len(routes))}
	copy(t.routes, routes)
	t.routes[len(t.routes)-1].ToLogin = true
	return t, nil
}

// DefaultRoutes is the portal's route table. /cars and /cars/add are the
// older fixed-menu paths, kept as admin aliases of ManageCars.
func DefaultRoutes() []Route {
	return []Route{
		{Path: PathRoot, ToLogin: true},
		{Path: PathLogin, View: ViewLogin, Protection: Public},
		{Path: PathRegister, View: ViewRegister, Protection: Public},
		{Path: PathClient, View: ViewBrowseCars, Protection: AuthenticatedOnly},
		{Path: PathClientBookings, View: ViewMyBookings, Protection: AuthenticatedOnly},
		{Path: PathAdmin, View: ViewAdminDashboard, Protection: AdminOnly},
		{Path: PathAdminCars, View: ViewManageCars, Protection: AdminOnly},
		{Path: PathAdminBookings, View: ViewManageBookings, Protection: AdminOnly},
		{Path: PathAdminUsers, View: ViewManageUsers, Protection: AdminOnly},
		{Path: PathLegacyCars, View: ViewManageCars, Protection: AdminOnly},
		{Path: PathLegacyAddCar, View: ViewManageCars, Protection: AdminOnly},
		{Path: CatchAll, ToLogin: true},
	}
}

// DefaultTable returns the validated default table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultRoutes()...)
	if err != nil {
		panic("router: invalid default table: " + err.Error())
	}
	return t
}

// Match returns the first route claiming p, falling back to the catch-all.
// Trailing slashes and dot segments are ignored.
func (t *Table) Match(p string) Route {
	p = normalize(p)
	for _, r := range t.routes {
		if r.IsCatchAll() || r.Path == p {
			return r
		}
	}
	// Unreachable for tables built by NewTable.
	return Route{Path: CatchAll, ToLogin: true}
}

// Routes returns a copy of the table in match order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

func normalize(p string) string {
	if p == "" {
		return PathRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
