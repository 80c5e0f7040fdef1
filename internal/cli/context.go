// Package cli provides the command-line interface for scrapekit.
package cli

import (
	"context"
	"fmt"

	"github.com/law-makers/scrapekit/internal/app"
	"github.com/spf13/cobra"
)

type appKey struct{}

func withApp(ctx context.Context, a *app.Application) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, appKey{}, a)
}

// appFrom returns the Application stored by the root command's pre-run hook.
func appFrom(cmd *cobra.Command) (*app.Application, error) {
	if cmd.Context() != nil {
		if a, ok := cmd.Context().Value(appKey{}).(*app.Application); ok && a != nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("application not initialized")
}
