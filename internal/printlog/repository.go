package printlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fruivita/sci/internal/platform/db"
)

type lookupTable struct {
	table  string
	column string
}

var lookupTables = map[Entity]lookupTable{
	EntityServer:  {table: "servers", column: "name"},
	EntityClient:  {table: "clients", column: "name"},
	EntityPrinter: {table: "printers", column: "name"},
	EntityUser:    {table: "users", column: "username"},
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a read-committed transaction so concurrent
// importers observe each other's committed lookup rows.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func tableFor(kind Entity) (lookupTable, error) {
	t, ok := lookupTables[kind]
	if !ok {
		return lookupTable{}, fmt.Errorf("printlog: unknown entity %s", kind)
	}
	return t, nil
}

// FindEntity returns the id of the row whose natural key equals key.
func (t *txRepo) FindEntity(ctx context.Context, kind Entity, key string) (int64, error) {
	lt, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s = $1`, lt.table, lt.column)
	var id int64
	if err := t.tx.QueryRow(ctx, query, key).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// CreateEntity inserts a lookup row, returning ErrDuplicate when the key
// already exists.
func (t *txRepo) CreateEntity(ctx context.Context, kind Entity, key string) (int64, error) {
	lt, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s, created_at, updated_at) VALUES ($1, now(), now())
ON CONFLICT (%s) DO NOTHING RETURNING id`, lt.table, lt.column, lt.column)
	var id int64
	if err := t.tx.QueryRow(ctx, query, key).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// FindDepartment looks a department up by its corporate id.
func (t *txRepo) FindDepartment(ctx context.Context, externalID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM departments WHERE id = $1`, externalID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// InsertPrinting stores the print event.
func (t *txRepo) InsertPrinting(ctx context.Context, p Printing) (int64, error) {
	const query = `INSERT INTO prints
	(date, time, filename, file_size, pages, copies, client_id, department_id, printer_id, user_id, server_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
RETURNING id`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		pgtype.Date{Time: p.Date, Valid: true},
		pgtype.Time{Microseconds: p.TimeOfDay.Microseconds(), Valid: true},
		p.Filename,
		p.FileSize,
		p.Pages,
		p.Copies,
		p.ClientID,
		p.DepartmentID,
		p.PrinterID,
		p.UserID,
		p.ServerID,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}
