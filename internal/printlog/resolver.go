package printlog

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Resolver maps record names to entity ids, creating missing lookup rows.
// Departments are only ever read.
type Resolver struct{}

// Resolve returns the entity ids for rec within tx.
func (Resolver) Resolve(ctx context.Context, tx TxRepository, rec Record) (Refs, error) {
	var refs Refs
	var err error
	if refs.ServerID, err = findOrCreate(ctx, tx, EntityServer, rec.Server); err != nil {
		return Refs{}, err
	}
	if refs.ClientID, err = findOrCreate(ctx, tx, EntityClient, rec.Client); err != nil {
		return Refs{}, err
	}
	if refs.PrinterID, err = findOrCreate(ctx, tx, EntityPrinter, rec.Printer); err != nil {
		return Refs{}, err
	}
	if refs.UserID, err = findOrCreate(ctx, tx, EntityUser, rec.Username); err != nil {
		return Refs{}, err
	}
	if rec.DepartmentExternalID != nil {
		id, err := tx.FindDepartment(ctx, *rec.DepartmentExternalID)
		switch {
		case err == nil:
			refs.DepartmentID = &id
		case errors.Is(err, ErrNotFound):
		default:
			return Refs{}, fmt.Errorf("printlog: find department %d: %w", *rec.DepartmentExternalID, err)
		}
	}
	return refs, nil
}

func findOrCreate(ctx context.Context, tx TxRepository, kind Entity, key string) (int64, error) {
	key = norm.NFC.String(key)
	id, err := tx.FindEntity(ctx, kind, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("printlog: find %s %q: %w", kind, key, err)
	}
	id, err = tx.CreateEntity(ctx, kind, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return 0, fmt.Errorf("printlog: create %s %q: %w", kind, key, err)
	}
	// A concurrent importer created it first.
	id, err = tx.FindEntity(ctx, kind, key)
	if err != nil {
		return 0, fmt.Errorf("printlog: find %s %q after conflict: %w", kind, key, err)
	}
	return id, nil
}
