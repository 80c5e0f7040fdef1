package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/scrapekit/internal/app"
	"github.com/law-makers/scrapekit/internal/config"
	"github.com/law-makers/scrapekit/internal/engine"
	"github.com/law-makers/scrapekit/internal/reqctx"
	"github.com/law-makers/scrapekit/internal/ui"
	"github.com/law-makers/scrapekit/internal/utils/headers"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd builds the scrapekit command tree.
func NewRootCmd() *cobra.Command {
	var rawHeaders []string

	root := &cobra.Command{
		Use:   "scrapekit",
		Short: "Scrape pages by selector and hand videos to a download manager",
		Long: `Scrapekit loads a site description (a target URL plus XPath or CSS selectors),
drives a browser or plain HTTP backend to extract one value per selector, and
queues discovered videos with Internet Download Manager or the built-in downloader.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(root)
	root.PersistentFlags().StringArrayVarP(&rawHeaders, "header", "H", nil, `Extra request header (e.g., -H "Authorization: Bearer token")`)
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpFunc(helpFunc)
	root.SetUsageFunc(usageFunc)

	// The application is built lazily so -h and --version never start anything.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		h, err := headers.Parse(rawHeaders)
		if err != nil {
			return err
		}
		a.Headers = h

		ctx, run := reqctx.WithRun(cmd.Context())
		logger := a.Logger.With().Str("run", run.ID).Logger()
		a.Logger = &logger
		log.Logger = logger

		logger.Debug().Str("command", cmd.Name()).Str("backend", cfg.Backend).Msg("Configuration loaded")
		cmd.SetContext(withApp(ctx, a))
		return nil
	}
	root.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		a, err := appFrom(cmd)
		if err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.Close(ctx)
		if run, ok := reqctx.FromContext(cmd.Context()); ok {
			a.Logger.Debug().Str("command", cmd.Name()).Dur("elapsed", run.Elapsed()).Msg("Command finished")
		}
	}

	root.AddCommand(
		newScrapeCmd(),
		newWaitCmd(),
		newVideosCmd(),
		newLoginCmd(),
		newSessionsCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		return 1
	}
	return 0
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", ui.Error("Error:"), err)
	if engine.Retryable(err) {
		log.Debug().Err(err).Msg("Failure is transient")
		fmt.Fprintln(w, ui.Dim("The failure looks transient; running the command again may succeed."))
	}
}

// closeLogged closes c and logs a failure instead of dropping it.
func closeLogged(what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Str("resource", what).Msg("Failed to close")
	}
}
