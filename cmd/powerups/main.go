package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/conduit-lang/powerups/internal/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
