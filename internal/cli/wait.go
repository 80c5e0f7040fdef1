package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/law-makers/scrapekit/internal/utils/output"
	"github.com/law-makers/scrapekit/internal/waiter"
	"github.com/spf13/cobra"
)

var errAbsent = errors.New("element not present")

func newWaitCmd() *cobra.Command {
	var (
		timeout  time.Duration
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "wait <url> <selector>",
		Short: "Wait for an element to appear and print it",
		Long: `Opens the page and waits until the selector matches an element, then prints
its text. When the element does not appear in time a diagnostic is printed
and the command exits non-zero.`,
		Example: `  scrapekit wait https://example.com "#content"
  scrapekit wait https://example.com "//article" --wait-timeout 30s --markdown`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			pageURL, selector := args[0], args[1]
			if timeout <= 0 {
				timeout = a.Config.WaitTimeout
			}

			b, err := a.NewBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLogged("backend", b)

			if err := b.Open(cmd.Context(), pageURL); err != nil {
				return fmt.Errorf("failed to open %s: %w", pageURL, err)
			}

			res, err := waiter.ForPresence(cmd.Context(), b, selector, timeout)
			if err != nil {
				return err
			}
			if !res.Found() {
				fmt.Fprintln(cmd.ErrOrStderr(), res.Diagnostic)
				return errAbsent
			}

			text := res.Element.Text
			if markdown && res.Element.HTML != "" {
				if text, err = output.ElementMarkdown(res.Element.HTML, pageURL); err != nil {
					return fmt.Errorf("failed to convert to markdown: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "wait-timeout", 0, "How long to wait for the element (default from config, 10s)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the element as Markdown")
	return cmd
}
