package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fruivita/sci/internal/shared"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = fmt.Errorf("rbac: %w", shared.ErrNotFound)

// RepositoryPort is the persistence surface used by Service.
type RepositoryPort interface {
	PermissionLookup
	GetUser(ctx context.Context, id int64) (User, error)
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id RoleID) (Role, error)
	RolePermissions(ctx context.Context, id RoleID) ([]Permission, error)
	FindPermission(ctx context.Context, name string) (Permission, error)
	AttachPermission(ctx context.Context, roleID RoleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID RoleID, permissionID int64) error
}

// Authorizer decides whether an actor may perform an action.
type Authorizer interface {
	Authorize(ctx context.Context, actor User, permission string) error
}

// Service orchestrates role and permission administration.
type Service struct {
	repo  RepositoryPort
	authz Authorizer
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, authz Authorizer) *Service {
	return &Service{repo: repo, authz: authz}
}

// User loads the authorization view of a user.
func (s *Service) User(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListRoles returns all roles ordered by id.
func (s *Service) ListRoles(ctx context.Context, actor User) ([]Role, error) {
	if err := s.authz.Authorize(ctx, actor, shared.PermRolesView); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx)
}

// RolePermissions returns the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, actor User, roleID RoleID) ([]Permission, error) {
	if err := s.authz.Authorize(ctx, actor, shared.PermRolesView); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.RolePermissions(ctx, roleID)
}

// GrantPermission attaches a permission to a role. Granting twice is a no-op.
func (s *Service) GrantPermission(ctx context.Context, actor User, roleID RoleID, permission string) error {
	role, perm, err := s.editTarget(ctx, actor, roleID, permission)
	if err != nil {
		return err
	}
	return s.repo.AttachPermission(ctx, role.ID, perm.ID)
}

// RevokePermission detaches a permission from a role.
func (s *Service) RevokePermission(ctx context.Context, actor User, roleID RoleID, permission string) error {
	role, perm, err := s.editTarget(ctx, actor, roleID, permission)
	if err != nil {
		return err
	}
	return s.repo.DetachPermission(ctx, role.ID, perm.ID)
}

// SetRolePermissions replaces permissions for a role, touching only the
// assignments that differ.
func (s *Service) SetRolePermissions(ctx context.Context, actor User, roleID RoleID, permissionIDs []int64) error {
	if err := s.authz.Authorize(ctx, actor, shared.PermRolesEdit); err != nil {
		return err
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	perms, err := s.repo.RolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(perms))
	for _, p := range perms {
		existing[p.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) editTarget(ctx context.Context, actor User, roleID RoleID, permission string) (Role, Permission, error) {
	if err := s.authz.Authorize(ctx, actor, shared.PermRolesEdit); err != nil {
		return Role{}, Permission{}, err
	}
	permission = strings.ToLower(strings.TrimSpace(permission))
	if permission == "" {
		return Role{}, Permission{}, errors.Join(shared.ErrValidation, errors.New("rbac: permission name required"))
	}
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return Role{}, Permission{}, err
	}
	perm, err := s.repo.FindPermission(ctx, permission)
	if err != nil {
		return Role{}, Permission{}, err
	}
	return role, perm, nil
}
