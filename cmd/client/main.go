package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/clipvault/internal/client/cli"
	"github.com/dmitrijs2005/clipvault/internal/client/config"
	"github.com/dmitrijs2005/clipvault/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "run failed", "error", err)
	}

	// the session may still hold a recording; save it even after a signal
	if err := app.Close(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "close failed", "error", err)
	}
}
