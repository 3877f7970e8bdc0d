package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/models"
)

// Loader produces the flat joined table once per session.
type Loader interface {
	Load(ctx context.Context) ([]models.RawSalesRow, error)
	Source() string
	Close() error
}

// New returns the loader selected by cfg.Source.
func New(ctx context.Context, cfg config.WarehouseConfig, logger *slog.Logger) (Loader, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return NewCSVLoader(cfg.CSVFile, cfg.CacheDir, logger), nil
	case config.SourceMySQL:
		return OpenSQL(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown warehouse source %q", cfg.Source)
	}
}

func (l *CSVLoader) Close() error {
	return nil
}
