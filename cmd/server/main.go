package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/orbit/internal/buildinfo"
	"github.com/dmitrijs2005/orbit/internal/logging"
	"github.com/dmitrijs2005/orbit/internal/server"
	"github.com/dmitrijs2005/orbit/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg := config.LoadConfig()
	log := logging.New(os.Stdout, "json", cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to start", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}
