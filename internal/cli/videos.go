package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/law-makers/scrapekit/internal/downloader"
	"github.com/law-makers/scrapekit/internal/idm"
	"github.com/law-makers/scrapekit/internal/ui"
	"github.com/law-makers/scrapekit/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newVideosCmd() *cobra.Command {
	var (
		from     string
		save     string
		dir      string
		listOnly bool
		idmCLI   bool
	)

	cmd := &cobra.Command{
		Use:   "videos [url]",
		Short: "Find videos on a page and queue them for download",
		Long: `Discovers videos on a page (video tags, Open Graph tags, embedded JSON and
inline scripts), or reads them from a JSON list, and hands them to the
download manager.

With --idm-cli each video is added to Internet Download Manager's queue
through IDMan.exe; otherwise files are downloaded in-process.`,
		Example: `  # Discover and download
  scrapekit videos https://example.com/watch/42 --dir ./videos

  # Only list what was found, and keep the list
  scrapekit videos https://example.com/watch/42 --list-only --save videos.json

  # Queue a saved list with IDM
  scrapekit videos --from videos.json --idm-cli`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var videos []models.Video
			switch {
			case from != "":
				if videos, err = downloader.LoadVideos(from); err != nil {
					return err
				}
			case len(args) == 1:
				b, err := a.NewBackend(ctx)
				if err != nil {
					return err
				}
				defer closeLogged("backend", b)
				if err := b.Open(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				html, err := b.HTML(ctx)
				if err != nil {
					return err
				}
				if videos, err = downloader.DiscoverVideos(html, args[0]); err != nil {
					return err
				}
			default:
				return fmt.Errorf("a page URL or --from is required")
			}

			if len(videos) == 0 {
				fmt.Fprintln(out, ui.Warn("No videos found."))
				return nil
			}
			printVideos(out, videos)

			if save != "" {
				if err := downloader.SaveVideos(save, videos); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), ui.Success("Saved list to "+save))
			}
			if listOnly {
				return nil
			}
			if dir == "" {
				dir = a.Config.DownloadDir
			}

			var (
				bar      *progressbar.ProgressBar
				onResult func(*downloader.DownloadResult)
			)
			cliMode := idmCLI || a.Config.IDMCLI
			if !cliMode {
				onResult = func(r *downloader.DownloadResult) {
					_ = bar.Add(1)
					if !r.Success {
						log.Debug().Err(r.Error).Str("url", r.URL).Msg("Download failed")
					}
				}
			}
			manager, err := a.DownloadManager(cliMode, onResult)
			if err != nil {
				return err
			}
			if !cliMode {
				bar = progressbar.NewOptions(len(videos),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("Downloading"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}

			report, err := manager.Queue(ctx, videos, dir)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}
			return printReport(out, report)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Read videos from a JSON list instead of a page")
	cmd.Flags().StringVar(&save, "save", "", "Write the discovered videos to a JSON list")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Download directory (default from config)")
	cmd.Flags().BoolVar(&listOnly, "list-only", false, "Only list the videos")
	cmd.Flags().BoolVar(&idmCLI, "idm-cli", false, "Queue with IDMan.exe instead of downloading in-process")
	return cmd
}

func printVideos(w io.Writer, videos []models.Video) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"#", "Id", "Title", "File"})
	for i, v := range videos {
		tbl.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.12s", v.ID),
			fmt.Sprintf("%.40s", v.Title),
			idm.FileName(v),
		})
	}
	tbl.SetStyle(table.StyleLight)
	tbl.Render()
}

func printReport(w io.Writer, r *idm.Report) error {
	fmt.Fprintf(w, "\n%s\n", ui.Label("Queued", fmt.Sprintf("%d", r.Queued)))
	fmt.Fprintln(w, ui.Label("Directory", r.Dir))
	if len(r.Failed) == 0 {
		return nil
	}
	fmt.Fprintln(w, ui.Label("Failed", fmt.Sprintf("%d", len(r.Failed))))
	for _, f := range r.Failed {
		name := f.Video.Title
		if name == "" {
			name = f.Video.DownloadURL
		}
		fmt.Fprintf(w, "  %s %s: %v\n", ui.Error("x"), name, f.Err)
	}
	return fmt.Errorf("%d video(s) could not be queued", len(r.Failed))
}
