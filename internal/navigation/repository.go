package navigation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements RepositoryPort over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// tables maps resources to trusted table identifiers.
var tables = map[Resource]string{
	ResourceUsers:    "users",
	ResourceRoles:    "roles",
	ResourcePrinters: "printers",
	ResourceServers:  "servers",
	ResourceClients:  "clients",
}

func table(resource Resource) (string, error) {
	name, ok := tables[resource]
	if !ok {
		return "", ErrUnknownResource
	}
	return name, nil
}

// Neighbors looks up the closest ids on both sides of id.
func (r *Repository) Neighbors(ctx context.Context, resource Resource, id int64) (Neighbors, error) {
	name, err := table(resource)
	if err != nil {
		return Neighbors{}, err
	}
	query := fmt.Sprintf(`SELECT
    (SELECT MAX(id) FROM %[1]s WHERE id < $1),
    (SELECT MIN(id) FROM %[1]s WHERE id > $1)`, name)
	var prev, next pgtype.Int8
	if err := r.pool.QueryRow(ctx, query, id).Scan(&prev, &next); err != nil {
		return Neighbors{}, fmt.Errorf("navigation: neighbors %s: %w", resource, err)
	}
	var out Neighbors
	if prev.Valid {
		v := prev.Int64
		out.Previous = &v
	}
	if next.Valid {
		v := next.Int64
		out.Next = &v
	}
	return out, nil
}

// IDs lists every id of resource in ascending order.
func (r *Repository) IDs(ctx context.Context, resource Resource) ([]int64, error) {
	name, err := table(resource)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id::bigint FROM %s ORDER BY id`, name))
	if err != nil {
		return nil, fmt.Errorf("navigation: ids %s: %w", resource, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("navigation: ids %s: %w", resource, err)
	}
	return ids, nil
}
