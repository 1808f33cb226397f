package app

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fruivita/sci/internal/platform/disk"
	"github.com/fruivita/sci/internal/printlog"
)

// PrintImporter bundles the importer with the spool directory it drains.
type PrintImporter struct {
	*printlog.Importer
	spool *disk.Local
}

// NewPrintImporter opens the print log spool and builds an importer that
// writes through pool.
func NewPrintImporter(cfg *Config, pool *pgxpool.Pool, logger *slog.Logger, recorder printlog.Recorder) (*PrintImporter, error) {
	if cfg == nil || pool == nil {
		return nil, errors.New("app: print importer needs config and database")
	}
	enc, err := printlog.LookupEncoding(cfg.PrintLogEncoding)
	if err != nil {
		return nil, err
	}
	spool, err := disk.OpenLocal(cfg.PrintLogDir)
	if err != nil {
		return nil, err
	}
	importer, err := printlog.NewImporter(printlog.ImporterConfig{
		Disk:     spool,
		Writer:   printlog.NewWriter(printlog.NewRepository(pool)),
		Logger:   logger,
		Encoding: enc,
		Workers:  cfg.PrintLogWorkers,
		Recorder: recorder,
	})
	if err != nil {
		_ = spool.Close()
		return nil, err
	}
	return &PrintImporter{Importer: importer, spool: spool}, nil
}

// Close releases the spool directory handle.
func (p *PrintImporter) Close() error {
	if p == nil || p.spool == nil {
		return nil
	}
	return p.spool.Close()
}
