package backend

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/ledger/csvfile"
	gsheet "budget/internal/ledger/google"
	"budget/internal/ledger/memory"
	"budget/internal/ledger/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. The returned store is
// already initialized.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case CSVBackend:
		res = f.createCSVBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		res, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := res.Store.EnsureInitialized(ctx); err != nil {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
		return nil, fmt.Errorf("initialize %s backend: %w", config.Type, err)
	}
	return res, nil
}

func (f *DefaultFactory) createCSVBackend(config Config) *BackendResult {
	store := csvfile.New(config.LedgerPath)

	f.logger.Info("Initialized CSV backend", "path", config.LedgerPath)

	return &BackendResult{Store: store}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.LedgerPath != "" {
		seeded, err := memory.NewFromTable(config.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		store = seeded
	}

	f.logger.Info("Initialized memory backend", "seed_path", config.LedgerPath, "records", store.Len())

	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsFile: config.GoogleCredentialsFile,
		CredentialsJSON: config.GoogleCredentialsJSON,
		ReadCacheTTL:    config.GoogleReadCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName, "read_cache_ttl", config.GoogleReadCacheTTL.String())

	return &BackendResult{Store: cli}, nil
}
