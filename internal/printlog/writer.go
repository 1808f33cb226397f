package printlog

import (
	"context"
	"fmt"
)

// Writer persists one record per transaction.
type Writer struct {
	repo     RepositoryPort
	resolver Resolver
}

// NewWriter constructs a Writer.
func NewWriter(repo RepositoryPort) *Writer {
	return &Writer{repo: repo}
}

// Write resolves the record's entities and inserts the print event. On any
// failure nothing from this call is committed; an event already stored
// yields an error wrapping ErrDuplicate.
func (w *Writer) Write(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := w.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		refs, err := w.resolver.Resolve(ctx, tx, rec)
		if err != nil {
			return err
		}
		id, err = tx.InsertPrinting(ctx, Printing{
			Date:         rec.Date,
			TimeOfDay:    rec.TimeOfDay,
			Filename:     rec.Filename,
			FileSize:     rec.FileSize,
			Pages:        rec.Pages,
			Copies:       rec.Copies,
			ClientID:     refs.ClientID,
			PrinterID:    refs.PrinterID,
			UserID:       refs.UserID,
			ServerID:     refs.ServerID,
			DepartmentID: refs.DepartmentID,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("printlog: write: %w", err)
	}
	return id, nil
}
