package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Cancel the run on Ctrl+C so batch temp files are cleaned up
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
