// Command crudkit serves the demo catalog and generates new CRUDL packages.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(Options{Stdout: os.Stdout, Stderr: os.Stderr})
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Default().Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
