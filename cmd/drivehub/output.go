package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/events"
	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printIdentity(w io.Writer, id model.Identity) {
	fmt.Fprintf(w, "ID:     %d\n", id.ID)
	fmt.Fprintf(w, "Name:   %s\n", id.DisplayName)
	fmt.Fprintf(w, "Email:  %s\n", id.Email)
	fmt.Fprintf(w, "Roles:  %s\n", strings.Join(id.Roles.Tags(), ", "))
	fmt.Fprintf(w, "Tier:   %s\n", ui.RenderTier(id.Tier()))
}

func printMenu(w io.Writer, items []router.MenuItem) {
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label + " " + ui.RenderMuted(it.Path)
	}
	fmt.Fprintf(w, "Menu:   %s\n", strings.Join(labels, " · "))
}

func printCarTable(w io.Writer, cars []model.Car) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAR\tYEAR\tPRICE/DAY\tAVAILABLE")
	for _, c := range cars {
		avail := ui.RenderOK("yes")
		if !c.Available {
			avail = ui.RenderMuted("no")
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t$%.2f\t%s\n", c.ID, c.Title(), c.Year, c.PricePerDay, avail)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d cars\n", len(cars))
}

// routeRow is the machine-readable form of one route.
type routeRow struct {
	Path       string `json:"path"`
	View       string `json:"view,omitempty"`
	Protection string `json:"protection"`
	ToLogin    bool   `json:"to_login,omitempty"`
}

func routeRows(routes []router.Route) []routeRow {
	rows := make([]routeRow, len(routes))
	for i, r := range routes {
		rows[i] = routeRow{Path: r.Path, View: string(r.View), Protection: r.Protection.String(), ToLogin: r.ToLogin}
	}
	return rows
}

func printRouteTable(w io.Writer, routes []router.Route) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVIEW\tPROTECTION")
	for _, r := range routes {
		view := string(r.View)
		if r.ToLogin {
			view = "→ " + router.PathLogin
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Path, view, r.Protection)
	}
	tw.Flush()
}

// navResult is the machine-readable form of one navigation.
type navResult struct {
	Path       string `json:"path"`
	Route      string `json:"route"`
	Protection string `json:"protection"`
	State      string `json:"state"`
	View       string `json:"view,omitempty"`
	Location   string `json:"location,omitempty"`
	Tier       string `json:"tier"`
}

func newNavResult(path string, out router.Outcome, tier model.Tier) navResult {
	return navResult{
		Path:       path,
		Route:      out.Route.Path,
		Protection: out.Route.Protection.String(),
		State:      out.State.String(),
		View:       string(out.View),
		Location:   out.Location,
		Tier:       tier.String(),
	}
}

func printNavResult(w io.Writer, res navResult) {
	switch {
	case res.View != "":
		fmt.Fprintf(w, "%s %s renders %s\n", ui.RenderOK(res.State), res.Path, ui.RenderAccent(res.View))
	case res.Location != "":
		fmt.Fprintf(w, "%s %s → %s\n", ui.RenderWarn(res.State), res.Path, res.Location)
	default:
		fmt.Fprintf(w, "%s %s\n", ui.RenderMuted(res.State), res.Path)
	}
	fmt.Fprintf(w, "  route %s (%s) as %s\n", res.Route, res.Protection, res.Tier)
}

// formatEvent renders one decoded event as a single log line.
func formatEvent(ev any) string {
	stamp := func(t time.Time) string { return ui.RenderMuted(t.Local().Format("15:04:05")) }
	switch e := ev.(type) {
	case *events.SessionLogin:
		return fmt.Sprintf("%s %s user %d %s (%s)", stamp(e.At), ui.RenderOK("login "), e.UserID, e.Name, e.Tier)
	case *events.SessionLogout:
		return fmt.Sprintf("%s %s user %d", stamp(e.At), ui.RenderMuted("logout"), e.UserID)
	case *events.NavRedirect:
		who := e.Tier
		if e.UserID != 0 {
			who = fmt.Sprintf("user %d (%s)", e.UserID, e.Tier)
		}
		return fmt.Sprintf("%s %s %s → %s [%s] %s", stamp(e.At), ui.RenderWarn("denied"), e.Path, e.Location, e.Outcome, who)
	}
	return fmt.Sprintf("%v", ev)
}
