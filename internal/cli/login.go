package cli

import (
	"fmt"
	"time"

	"github.com/law-makers/scrapekit/internal/auth"
	"github.com/law-makers/scrapekit/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var (
		waitSelector string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login <url>",
		Short: "Log in with a visible browser and save the session",
		Long: `Opens a visible Chrome window for you to log in manually. Once the --wait
selector appears (or you press Enter), the cookies are saved under the
--session name in the OS keyring, or in ~/.scrapekit/sessions when no
keyring is available.

Later runs pick the session up with --session.`,
		Example: `  scrapekit login https://example.com/login --session example --wait "#account"
  scrapekit scrape --site site.json --session example`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			name := a.Config.SessionName
			if name == "" {
				return fmt.Errorf("--session is required")
			}

			out := cmd.ErrOrStderr()
			fmt.Fprintf(out, "\n%s\n", ui.Bold("Interactive Login"))
			fmt.Fprintf(out, "  %s\n  %s\n", ui.Label("Session", name), ui.Label("URL", args[0]))
			if waitSelector != "" {
				fmt.Fprintf(out, "  %s\n", ui.Label("Waiting for", waitSelector))
			}
			fmt.Fprintln(out)

			session, err := auth.InteractiveLogin(cmd.Context(), auth.LoginOptions{
				SessionName:  name,
				URL:          args[0],
				WaitSelector: waitSelector,
				Timeout:      timeout,
				ChromePath:   a.Config.ChromePath,
				Headers:      a.Headers,
				Prompt:       cmd.InOrStdin(),
				Out:          out,
			})
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			log.Info().Str("session", name).Msg("Saving session")
			if err := a.Sessions.Save(session); err != nil {
				return err
			}

			fmt.Fprintln(out, ui.Success("Session saved."))
			if !session.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Session expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&waitSelector, "wait", "w", "", "Selector that appears once logged in (e.g., '#dashboard')")
	cmd.Flags().DurationVar(&timeout, "login-timeout", 5*time.Minute, "How long to wait for the login")
	return cmd
}
