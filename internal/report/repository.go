package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fruivita/sci/internal/platform/db"
)

// Repository implements RepositoryPort over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type dimension struct {
	table  string
	column string
	label  string
}

var dimensions = map[GroupBy]dimension{
	GroupByDepartment: {table: "departments", column: "department_id", label: "name"},
	GroupByPrinter:    {table: "printers", column: "printer_id", label: "name"},
	GroupByServer:     {table: "servers", column: "server_id", label: "name"},
	GroupByClient:     {table: "clients", column: "client_id", label: "name"},
	GroupByUser:       {table: "users", column: "user_id", label: "username"},
}

// Aggregate sums print events for q inside a read-only snapshot.
func (r *Repository) Aggregate(ctx context.Context, q Query) ([]Row, error) {
	dim, ok := dimensions[q.GroupBy]
	if !ok {
		return nil, fmt.Errorf("report: unknown dimension %q", q.GroupBy)
	}
	query := fmt.Sprintf(`SELECT COALESCE(g.%[3]s, '') AS grp,
    date_trunc($3, p.date)::date AS period,
    COUNT(*) AS jobs,
    COALESCE(SUM(p.pages::bigint * p.copies), 0) AS pages
FROM prints p
LEFT JOIN %[1]s g ON g.id = p.%[2]s
WHERE p.date BETWEEN $1 AND $2
GROUP BY grp, period
ORDER BY period, grp`, dim.table, dim.column, dim.label)

	var out []Row
	err := db.WithTx(ctx, r.pool, db.ReadOnlySnapshot, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query,
			pgtype.Date{Time: q.From, Valid: true},
			pgtype.Date{Time: q.To, Valid: true},
			string(q.Bucket))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				row    Row
				period pgtype.Date
			)
			if err := rows.Scan(&row.Group, &period, &row.Jobs, &row.Pages); err != nil {
				return err
			}
			row.Period = period.Time
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("report: aggregate: %w", err)
	}
	return out, nil
}
