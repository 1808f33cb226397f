package rbac

import (
	"context"
	"errors"
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

const userColumns = `id, username, COALESCE(name, ''), role_id, department_id, role_granted_by`

// ScanUser reads a row selected with the users column list.
func ScanUser(row pgx.Row) (User, error) {
	var (
		u       User
		role    int32
		dept    pgtype.Int8
		granter pgtype.Int8
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &role, &dept, &granter); err != nil {
		return User{}, err
	}
	u.RoleID = RoleID(role)
	if dept.Valid {
		v := dept.Int64
		u.DepartmentID = &v
	}
	if granter.Valid {
		v := granter.Int64
		u.RoleGrantedBy = &v
	}
	return u, nil
}

// UserColumns is the select list understood by ScanUser.
func UserColumns() string {
	return userColumns
}

// UserHasPermission reports whether the user's current role carries permission.
func (r *Repository) UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	const query = `SELECT EXISTS (
    SELECT 1
    FROM users u
    JOIN permission_role pr ON pr.role_id = u.role_id
    JOIN permissions p ON p.id = pr.permission_id
    WHERE u.id = $1 AND p.name = $2
)`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, userID, permission).Scan(&ok); err != nil {
		return false, fmt.Errorf("rbac: permission lookup: %w", err)
	}
	return ok, nil
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := ScanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("rbac: get user: %w", err)
	}
	return u, nil
}

// ListRoles returns every role ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id RoleID) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM roles WHERE id = $1`, int32(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, fmt.Errorf("rbac: get role: %w", err)
	}
	return role, nil
}

// RolePermissions lists permissions attached to a role ordered by name.
func (r *Repository) RolePermissions(ctx context.Context, id RoleID) ([]Permission, error) {
	const query = `SELECT p.id, p.name, COALESCE(p.description, '')
FROM permissions p
JOIN permission_role pr ON pr.permission_id = p.id
WHERE pr.role_id = $1
ORDER BY p.name`
	rows, err := r.pool.Query(ctx, query, int32(id))
	if err != nil {
		return nil, fmt.Errorf("rbac: role permissions: %w", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// FindPermission fetches a permission by name.
func (r *Repository) FindPermission(ctx context.Context, name string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, COALESCE(description, '') FROM permissions WHERE name = $1`, name).
		Scan(&p.ID, &p.Name, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return Permission{}, ErrNotFound
	}
	if err != nil {
		return Permission{}, fmt.Errorf("rbac: find permission: %w", err)
	}
	return p, nil
}

// AttachPermission links a permission to a role.
func (r *Repository) AttachPermission(ctx context.Context, roleID RoleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO permission_role (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, int32(roleID), permissionID)
	if err != nil {
		return fmt.Errorf("rbac: attach permission: %w", err)
	}
	return nil
}

// DetachPermission unlinks a permission from a role.
func (r *Repository) DetachPermission(ctx context.Context, roleID RoleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM permission_role WHERE role_id = $1 AND permission_id = $2`, int32(roleID), permissionID)
	if err != nil {
		return fmt.Errorf("rbac: detach permission: %w", err)
	}
	return nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role      Role
		id        int32
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &role.Name, &role.Description, &createdAt, &updatedAt); err != nil {
		return Role{}, err
	}
	role.ID = RoleID(id)
	role.CreatedAt = createdAt.Time
	role.UpdatedAt = updatedAt.Time
	return role, nil
}
