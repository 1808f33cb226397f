package delegation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fruivita/sci/internal/platform/db"
	"github.com/fruivita/sci/internal/rbac"
)

// Repository implements RepositoryPort over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a read committed transaction. Rows are locked
// explicitly so every check sees the latest committed version.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// DepartmentUsers lists the users of a department ordered by username.
func (r *Repository) DepartmentUsers(ctx context.Context, departmentID int64) ([]rbac.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rbac.UserColumns()+` FROM users WHERE department_id = $1 ORDER BY username`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("delegation: department users: %w", err)
	}
	defer rows.Close()
	users := []rbac.User{}
	for rows.Next() {
		u, err := rbac.ScanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) LockUser(ctx context.Context, id int64) (rbac.User, error) {
	u, err := rbac.ScanUser(t.tx.QueryRow(ctx, `SELECT `+rbac.UserColumns()+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return rbac.User{}, ErrNotFound
	}
	if err != nil {
		return rbac.User{}, fmt.Errorf("delegation: lock user: %w", err)
	}
	return u, nil
}

func (t *txRepo) LockGrantees(ctx context.Context, granters []int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `SELECT id FROM users WHERE role_granted_by = ANY($1) ORDER BY id FOR UPDATE`, granters)
	if err != nil {
		return nil, fmt.Errorf("delegation: grantees: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("delegation: grantees: %w", err)
	}
	return ids, nil
}

func (t *txRepo) SetRole(ctx context.Context, id int64, role rbac.RoleID, grantedBy *int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE users SET role_id = $2, role_granted_by = $3, updated_at = NOW() WHERE id = $1`, id, int32(role), grantedBy)
	if err != nil {
		return fmt.Errorf("delegation: set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ResetRoles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `UPDATE users SET role_id = $2, role_granted_by = NULL, updated_at = NOW() WHERE id = ANY($1)`, ids, int32(rbac.RoleOrdinary))
	if err != nil {
		return fmt.Errorf("delegation: reset roles: %w", err)
	}
	return nil
}
