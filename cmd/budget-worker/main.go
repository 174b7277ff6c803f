// Command budget-worker mirrors appended ledger records into a Google Sheets
// worksheet. It consumes the events published by "budget serve".
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cli"
	"budget/internal/config"
	gsheet "budget/internal/ledger/google"
	"budget/internal/log"
	"budget/internal/worker"
)

func main() {
	envFile := flag.String("env-file", "", "env file to load (default is .env when present)")
	window := flag.Int("seen-window", worker.DefaultSeenWindow, "number of processed event ids remembered for de-duplication")
	flag.Parse()

	if err := cli.LoadEnvFile(*envFile); err != nil {
		cli.SetupLogger("info").Error("Failed to load env file", log.FieldError, err)
		os.Exit(1)
	}

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldOperation, log.OpValidate, log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldOperation, log.OpValidate, log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting budget-worker", log.FieldOperation, log.OpStartup)

	ctx, cancel := cli.GracefulShutdown(context.Background(), logger)
	defer cancel()

	sheetsLogger := logger.WithComponent(log.ComponentSheets)
	target, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		sheetsLogger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if err := target.EnsureInitialized(ctx); err != nil {
		sheetsLogger.Error("Failed to initialize mirror sheet", log.FieldError, err, "sheet", cfg.GoogleSheetName)
		os.Exit(1)
	}
	sheetsLogger.Info("Google Sheets mirror ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	mirror := worker.NewMirrorWorker(target, *window)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeRecordAppended(gctx, mirror.HandleRecordAppended)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}

