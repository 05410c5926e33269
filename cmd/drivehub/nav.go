package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/session"
	"github.com/alfredjeanlab/drivehub/internal/ui"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:     "routes",
	Short:   "List the portal's route table in match order",
	GroupID: "navigation",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		routes := router.DefaultTable().Routes()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), routeRows(routes))
		}
		printRouteTable(cmd.OutOrStdout(), routes)
		return nil
	},
}

var navCmd = &cobra.Command{
	Use:     "nav <path>",
	Short:   "Show where the portal would send the signed-in identity for a path",
	GroupID: "navigation",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trace, _ := cmd.Flags().GetBool("trace")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var opts []router.Option
		if trace {
			w := cmd.ErrOrStderr()
			opts = append(opts, router.WithObserver(func(path string, from, to router.State) {
				fmt.Fprintf(w, "%s %s: %s → %s\n", ui.RenderMuted("trace"), path, from, to)
			}))
		}

		sess := openSession(ctx)
		res, err := navigate(ctx, router.New(nil, opts...), args[0], sess)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printNavResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func navigate(ctx context.Context, r *router.Router, path string, sess *session.Store) (navResult, error) {
	out, err := r.Navigate(ctx, path, sess)
	if err != nil {
		return navResult{}, fmt.Errorf("navigating to %s: %w", path, err)
	}
	return newNavResult(path, out, sess.CurrentRoleTier()), nil
}

// requireView fails unless the CLI session may render the page at path,
// naming where the portal would have sent it instead.
func requireView(ctx context.Context, path string, sess *session.Store) error {
	res, err := navigate(ctx, router.New(nil), path, sess)
	if err != nil {
		return err
	}
	switch res.Location {
	case "":
		return nil
	case router.PathLogin:
		return fmt.Errorf("%s needs a signed-in user: run drivehub login", path)
	default:
		return fmt.Errorf("%s is not available to %s users", path, res.Tier)
	}
}

func init() {
	navCmd.Flags().Bool("trace", false, "print each state transition to stderr")
	navCmd.Flags().Duration("timeout", 5*time.Second, "give up if the session is not ready by then")
}
