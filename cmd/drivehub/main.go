package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/session"
	"github.com/alfredjeanlab/drivehub/internal/ui"
	"github.com/spf13/cobra"
)

var (
	apiURL      string
	sessionFile string
	jsonOutput  bool
	verbose     bool

	api client.API
)

func defaultAPIURL() string {
	if s := os.Getenv("DRIVEHUB_API_URL"); s != "" {
		return s
	}
	return client.DefaultBaseURL
}

func defaultSessionFile() string {
	if s := os.Getenv("DRIVEHUB_SESSION_FILE"); s != "" {
		return s
	}
	p, err := session.DefaultFilePath()
	if err != nil {
		return ""
	}
	return p
}

var rootCmd = &cobra.Command{
	Use:           "drivehub <command>",
	Short:         "CLI client for the DriveHub car-rental portal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		api = client.NewHTTPClient(apiURL)
		return nil
	},
}

// cliLogger reports session diagnostics on stderr. Rehydration problems are
// logged at debug level, so they only show with --verbose.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openSession rehydrates the CLI's session from its file. It never fails: a
// missing or unreadable file is an anonymous session.
func openSession(ctx context.Context) *session.Store {
	st := session.New(&session.FileBackend{Path: sessionFile}, session.WithLogger(cliLogger()))
	st.Initialize(ctx)
	return st
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL(), "rental API base URL")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", defaultSessionFile(), "where the signed-in identity is kept")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log session diagnostics")

	rootCmd.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "navigation", Title: "Navigation:"},
		&cobra.Group{ID: "cars", Title: "Cars:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Session
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	// Navigation
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(navCmd)

	// Cars
	rootCmd.AddCommand(carsCmd)
	rootCmd.AddCommand(bookCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(ui.RenderError("Error: ") + err.Error() + "\n")
		os.Exit(1)
	}
}
