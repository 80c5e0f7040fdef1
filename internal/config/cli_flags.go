package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	cmd.PersistentFlags().StringP("backend", "b", "", "Scraping backend: chromedp, rod, playwright, or static")
	cmd.PersistentFlags().Bool("headful", false, "Show the browser window")
	cmd.PersistentFlags().String("proxy", "", "Set HTTP/SOCKS5 proxy (e.g., http://localhost:8080)")
	cmd.PersistentFlags().String("timeout", "", "Navigation timeout (e.g., 30s)")
	cmd.PersistentFlags().String("readiness", "", "Page readiness strategy: poll or fixed")
	cmd.PersistentFlags().String("ready-delay", "", "Delay used by the fixed readiness strategy")
	cmd.PersistentFlags().Int("retries", 0, "Attempts for backend start-up and navigation")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("session", "", "Name of a saved auth session to use")
	cmd.PersistentFlags().String("config", "", "Path to a YAML configuration file (optional)")
}
