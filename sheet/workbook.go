package sheet

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aluiziolira/go-scrape-stock/config"
)

// Workbook holds the brand registry and ledger ranges of one store.
type Workbook struct {
	Registry Table
	Ledger   Table
	db       *sql.DB
}

// Open builds the ranges described by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (*Workbook, error) {
	switch cfg.Backend {
	case "csv":
		return &Workbook{
			Registry: NewCSVTable(cfg.RegistryPath),
			Ledger:   NewCSVTable(cfg.LedgerPath),
		}, nil
	case "sqlite", "postgres":
		db, err := OpenSQL(ctx, cfg.Backend, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &Workbook{
			Registry: NewSQLTable(db, cfg.Backend, cfg.RegistrySheet),
			Ledger:   NewSQLTable(db, cfg.Backend, cfg.LedgerSheet),
			db:       db,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// Close releases the database handle, if any.
func (w *Workbook) Close() error {
	if w.db == nil {
		return nil
	}
	return w.db.Close()
}
