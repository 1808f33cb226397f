// Package delegation lends a manager's role to a colleague and takes it back.
package delegation

import (
	"context"
	"fmt"

	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

var (
	// ErrNotFound reports an unknown user.
	ErrNotFound = fmt.Errorf("delegation: %w", shared.ErrNotFound)
	// ErrForbidden reports a delegation rule violation.
	ErrForbidden = fmt.Errorf("delegation: %w", shared.ErrForbidden)
)

// TxRepository exposes the row operations performed inside one transaction.
type TxRepository interface {
	// LockUser reads a user row and holds it until commit.
	LockUser(ctx context.Context, id int64) (rbac.User, error)
	// LockGrantees returns ids of users whose role was granted by any of granters.
	LockGrantees(ctx context.Context, granters []int64) ([]int64, error)
	SetRole(ctx context.Context, id int64, role rbac.RoleID, grantedBy *int64) error
	ResetRoles(ctx context.Context, ids []int64) error
}

// RepositoryPort is the persistence surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	DepartmentUsers(ctx context.Context, departmentID int64) ([]rbac.User, error)
}

// Authorizer decides whether an actor holds a permission.
type Authorizer interface {
	Authorize(ctx context.Context, actor rbac.User, permission string) error
}
