package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/alfredjeanlab/drivehub/internal/client"
	"github.com/alfredjeanlab/drivehub/internal/model"
	"github.com/alfredjeanlab/drivehub/internal/router"
	"github.com/alfredjeanlab/drivehub/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Sign in and keep the identity for later commands",
	GroupID: "session",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")

		if password == "" {
			password = os.Getenv("DRIVEHUB_PASSWORD")
		}
		if password == "" {
			p, err := readPassword()
			if err != nil {
				return err
			}
			password = p
		}

		creds := model.Credentials{Email: strings.TrimSpace(email), Password: password}
		if err := model.ValidateCredentials(&creds); err != nil {
			return err
		}

		id, err := api.Login(ctx, creds)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
				return errors.New("invalid email or password")
			}
			return fmt.Errorf("signing in: %w", err)
		}

		sess := openSession(ctx)
		if err := sess.Login(ctx, id); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s), home is %s\n",
			id.DisplayName, ui.RenderTier(id.Tier()), router.Landing(id.Tier()))
		return nil
	},
}

// readPassword prompts on the terminal without echo, or reads one line from
// a piped stdin.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given: use --password, DRIVEHUB_PASSWORD or stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Forget the signed-in identity",
	GroupID: "session",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess := openSession(ctx)
		id, had := sess.Identity()
		if err := sess.Logout(ctx); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]bool{"signed_out": had})
		}
		if had {
			fmt.Fprintf(cmd.OutOrStdout(), "Signed out %s\n", id.DisplayName)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		}
		return nil
	},
}

// whoamiResult is the --json shape of whoami.
type whoamiResult struct {
	Anonymous bool              `json:"anonymous"`
	Tier      string            `json:"tier"`
	Identity  *model.Identity   `json:"identity,omitempty"`
	Menu      []router.MenuItem `json:"menu"`
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the signed-in identity and its menu",
	GroupID: "session",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := openSession(cmd.Context())
		tier := sess.CurrentRoleTier()
		id, ok := sess.Identity()

		w := cmd.OutOrStdout()
		if jsonOutput {
			res := whoamiResult{Anonymous: !ok, Tier: tier.String(), Menu: router.Menu(tier)}
			if ok {
				res.Identity = &id
			}
			return printJSON(w, res)
		}
		if !ok {
			fmt.Fprintf(w, "Not signed in (%s)\n", ui.RenderTier(tier))
		} else {
			printIdentity(w, id)
		}
		printMenu(w, router.Menu(tier))
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email (required)")
	loginCmd.Flags().String("password", "", "account password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("email")
}
