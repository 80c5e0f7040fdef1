package cli

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/law-makers/scrapekit/internal/config"
	"github.com/law-makers/scrapekit/internal/scraper"
	"github.com/law-makers/scrapekit/internal/ui"
	"github.com/law-makers/scrapekit/internal/utils/output"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	var (
		sitePath string
		add      []string
		remove   []string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Extract one value per selector from a configured site",
		Long: `Loads a site description and prints "<selector>: <value>" for every selector,
in configuration order. Selectors that match nothing print <not found>;
selectors that fail print <error: ...>. Neither stops the run.

A site description is a JSON object:

  {"base_url": "https://example.com", "xpaths": ["//h1", ".price"]}`,
		Example: `  # Scrape with the selectors from the file
  scrapekit scrape --site site.json

  # Add and drop selectors for this run
  scrapekit scrape --site site.json --add "//title" --remove ".price"

  # Plain HTTP instead of Chrome, saved as JSON
  scrapekit scrape --site site.json --backend static -o result.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			site, err := config.LoadSite(sitePath)
			if err != nil {
				return err
			}

			coord := a.Coordinator(site)
			defer closeLogged("coordinator", coord)
			for _, s := range add {
				coord.AddSelector(s)
			}
			for _, s := range remove {
				coord.RemoveSelector(s)
			}

			spin := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
			spin.Writer = cmd.ErrOrStderr()
			spin.Suffix = " Scraping " + site.TargetURL()
			if !a.Config.JSONLog {
				spin.Start()
			}
			start := time.Now()
			result, err := coord.Scrape(cmd.Context())
			spin.Stop()
			if err != nil {
				return err
			}

			log.Debug().
				Int("selectors", result.Len()).
				Dur("elapsed", time.Since(start)).
				Msg("Scrape finished")

			if outPath != "" {
				if err := output.Save(result, site.TargetURL(), outPath); err != nil {
					return fmt.Errorf("failed to save output: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Success("Saved to "+outPath))
				return nil
			}
			if text := scraper.Format(result); text != "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sitePath, "site", "s", "", "Path to the site description (JSON)")
	cmd.Flags().StringArrayVar(&add, "add", nil, "Selector to add for this run (repeatable)")
	cmd.Flags().StringArrayVar(&remove, "remove", nil, "Selector to drop for this run (repeatable)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Save results to a file (.json, .csv or .md)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}
