package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sprintrep/app"
	"sprintrep/internal"
	"sprintrep/internal/config"
	"sprintrep/internal/errors"
	"sprintrep/internal/report"
)

func main() {
	// Load environment variables from .env file
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := app.NewReplicationService(cfg, log).Run(ctx)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"code":  errors.CodeFor(err),
			"stage": errors.GetStage(err),
		}).Error("Analysis failed: %v", err)
		os.Exit(1)
	}

	fmt.Print(report.Markdown(rep))
	fmt.Println(app.Summary(rep))
}
