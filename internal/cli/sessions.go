package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/law-makers/scrapekit/internal/auth"
	"github.com/law-makers/scrapekit/internal/ui"
	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved login sessions",
		Example: `  scrapekit sessions list
  scrapekit sessions view example
  scrapekit sessions delete example --yes`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return listSessions(cmd.OutOrStdout(), a.Sessions)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "view <name>",
		Short: "Show a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			s, err := a.Sessions.Load(args[0])
			if err != nil {
				return err
			}
			viewSession(cmd.OutOrStdout(), s)
			return nil
		},
	})

	var yes bool
	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			if !yes && !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Delete session %q? [y/N]: ", name)) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled.")
				return nil
			}
			if err := a.Sessions.Delete(name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Session %q deleted.", name)))
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.AddCommand(del)

	return cmd
}

func listSessions(w io.Writer, store *auth.Store) error {
	names, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(w, "No saved sessions. Create one with: scrapekit login <url> --session <name>")
		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"Name", "URL", "Cookies", "Created", "Status"})
	for _, name := range names {
		s, err := store.Load(name)
		switch {
		case errors.Is(err, auth.ErrSessionExpired):
			tbl.AppendRow(table.Row{name, "", "", "", "expired"})
		case err != nil:
			tbl.AppendRow(table.Row{name, "", "", "", "unreadable"})
		default:
			tbl.AppendRow(table.Row{
				name,
				fmt.Sprintf("%.40s", s.URL),
				len(s.Cookies),
				s.CreatedAt.Format(time.DateTime),
				sessionStatus(s, time.Now()),
			})
		}
	}
	tbl.SetStyle(table.StyleLight)
	tbl.Render()
	return nil
}

func sessionStatus(s *auth.SessionData, now time.Time) string {
	if s.ExpiresAt.IsZero() {
		return "valid"
	}
	if now.After(s.ExpiresAt) {
		return "expired"
	}
	return "expires in " + s.ExpiresAt.Sub(now).Round(time.Hour).String()
}

func viewSession(w io.Writer, s *auth.SessionData) {
	fmt.Fprintln(w, ui.Label("Name", s.Name))
	fmt.Fprintln(w, ui.Label("URL", s.URL))
	fmt.Fprintln(w, ui.Label("Created", s.CreatedAt.Format(time.RFC1123)))
	fmt.Fprintln(w, ui.Label("Status", sessionStatus(s, time.Now())))

	fmt.Fprintf(w, "\nCookies (%d):\n", len(s.Cookies))
	for i, c := range s.Cookies {
		if i == 5 {
			fmt.Fprintf(w, "  ... and %d more\n", len(s.Cookies)-5)
			break
		}
		fmt.Fprintf(w, "  - %s (domain: %s)\n", c.Name, c.Domain)
	}

	if len(s.Headers) > 0 {
		fmt.Fprintf(w, "\nHeaders (%d):\n", len(s.Headers))
		keys := make([]string, 0, len(s.Headers))
		for k := range s.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  - %s: %s\n", k, s.Headers[k])
		}
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
