// Package cmd provides the budget CLI commands.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/export"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/taxonomy"
)

// app carries what PersistentPreRunE sets up for the subcommands.
type app struct {
	envFile string
	debug   bool

	cfg    *config.Config
	logger *log.Logger
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "budget",
		Short: "Record income and expenses in a plain CSV ledger",
		Long: `budget keeps a personal ledger of income and expense records.

It supports:
- Appending records with an optional date, category and note
- Daily listings and monthly summaries with category shares
- Monthly CSV exports and daily PDF reports
- An HTTP API over the same ledger

Example:
  budget add expense 12.50 --category Food --note lunch
  budget month --year 2024 --month 5
  budget export pdf --date 2024-05-17`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load (default is .env when present)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newAddCommand(a),
		newTodayCommand(a),
		newDayCommand(a),
		newMonthCommand(a),
		newExportCommand(a),
		newCategoriesCommand(a),
		newImportCommand(a),
		newServeCommand(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := cli.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	if a.debug {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	a.logger = log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	log.SetDefault(a.logger)
	return nil
}

// session is an opened ledger plus the services built on it.
type session struct {
	store    ledger.Store
	svc      *services.LedgerService
	exporter *export.Exporter
	cleanup  backend.CleanupFunc
}

func (s *session) Close() {
	if s.cleanup != nil {
		_ = s.cleanup()
	}
}

// open creates the configured backend and the ledger service over it.
func (a *app) open(ctx context.Context, opts ...services.Option) (*session, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(a.logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	categories, err := taxonomy.LoadFile(a.cfg.CategoriesFile)
	if err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, err
	}

	opts = append([]services.Option{
		services.WithLogger(a.logger.WithComponent(log.ComponentLedger)),
		services.WithCategories(categories),
	}, opts...)

	return &session{
		store: res.Store,
		svc:   services.NewLedgerService(res.Store, opts...),
		exporter: export.NewExporter(res.Store, a.cfg.ExportDir,
			export.WithLinesPerPage(a.cfg.ReportLinesPerPage),
			export.WithLogger(a.logger.Logger.With(log.FieldComponent, log.ComponentExport))),
		cleanup: res.Cleanup,
	}, nil
}
