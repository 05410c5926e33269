package ui

import (
	"fmt"

	"github.com/alfredjeanlab/drivehub/internal/model"
)

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorError  = 167 // red
	colorAdmin  = 176 // violet
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

func RenderOK(s string) string    { return paint(colorOK, s) }
func RenderWarn(s string) string  { return paint(colorWarn, s) }
func RenderError(s string) string { return paint(colorError, s) }

// RenderTier renders a tier name in its badge color.
func RenderTier(t model.Tier) string {
	switch t {
	case model.TierAdmin:
		return paint(colorAdmin, t.String())
	case model.TierClient:
		return paint(colorAccent, t.String())
	}
	return paint(colorMuted, t.String())
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
