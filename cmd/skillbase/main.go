// Package main provides the entry point for the skillbase CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/skillbase/skillbase/cmd/skillbase/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
