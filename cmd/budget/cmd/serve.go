package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/cli"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Serve the ledger over HTTP until SIGINT or SIGTERM.

When AMQP_URL is set every appended record is also published for the mirror
worker. Publishing failures are logged and never fail the append.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default PORT)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	logger := a.logger.WithComponent(log.ComponentApp)
	ctx, cancel := cli.GracefulShutdown(parent, logger)
	defer cancel()

	var opts []services.Option
	if a.cfg.AMQPURL != "" {
		client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, services.WithPublisher(client))
		logger.Info("Publishing appended records", "exchange", a.cfg.AMQPExchange, "queue", a.cfg.AMQPQueue)
	}

	s, err := a.open(ctx, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := apphttp.NewServer(":"+a.cfg.Port, s.svc, s.exporter, a.logger,
		apphttp.WithReadiness(s.store.EnsureInitialized))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server", log.FieldOperation, log.OpStartup, "port", a.cfg.Port, "backend", a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}
