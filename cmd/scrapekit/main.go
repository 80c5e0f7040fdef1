package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/scrapekit/internal/cli"
)

func main() {
	// Ctrl-C cancels the running command so browsers and downloads are cleaned up.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
