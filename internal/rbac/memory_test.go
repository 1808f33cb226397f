package rbac

import (
	"context"
	"sync"
	"time"
)

type memoryRepo struct {
	mu          sync.Mutex
	users       map[int64]User
	roles       map[RoleID]Role
	permissions map[string]Permission
	grants      map[RoleID]map[int64]struct{}
	lookupErr   error
	lookups     int
	detached    []int64
	attached    []int64
}

func newMemoryRepo() *memoryRepo {
	repo := &memoryRepo{
		users:       make(map[int64]User),
		roles:       make(map[RoleID]Role),
		permissions: make(map[string]Permission),
		grants:      make(map[RoleID]map[int64]struct{}),
	}
	for _, id := range []RoleID{RoleOrdinary, RoleDepartmentManager, RoleInstitutionalManager, RoleBusinessManager, RoleAdministrator} {
		repo.roles[id] = Role{ID: id, Name: id.String(), CreatedAt: time.Unix(0, 0)}
	}
	for i, name := range []string{"users.view", "roles.view", "roles.edit", "delegations.view", "delegations.create", "reports.view", "imports.create"} {
		repo.permissions[name] = Permission{ID: int64(i + 1), Name: name}
	}
	return repo
}

func (m *memoryRepo) addUser(u User) User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u
}

func (m *memoryRepo) grant(role RoleID, perms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.grants[role]
	if !ok {
		set = make(map[int64]struct{})
		m.grants[role] = set
	}
	for _, name := range perms {
		set[m.permissions[name].ID] = struct{}{}
	}
}

func (m *memoryRepo) revoke(role RoleID, perms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range perms {
		delete(m.grants[role], m.permissions[name].ID)
	}
}

func (m *memoryRepo) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *memoryRepo) UserHasPermission(_ context.Context, userID int64, permission string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return false, m.lookupErr
	}
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	p, ok := m.permissions[permission]
	if !ok {
		return false, nil
	}
	_, granted := m.grants[u.RoleID][p.ID]
	return granted, nil
}

func (m *memoryRepo) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var roles []Role
	for _, id := range []RoleID{RoleOrdinary, RoleDepartmentManager, RoleInstitutionalManager, RoleBusinessManager, RoleAdministrator} {
		if role, ok := m.roles[id]; ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (m *memoryRepo) GetRole(_ context.Context, id RoleID) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (m *memoryRepo) RolePermissions(_ context.Context, id RoleID) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var perms []Permission
	for _, p := range m.permissions {
		if _, ok := m.grants[id][p.ID]; ok {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (m *memoryRepo) FindPermission(_ context.Context, name string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[name]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) AttachPermission(_ context.Context, roleID RoleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.grants[roleID]
	if !ok {
		set = make(map[int64]struct{})
		m.grants[roleID] = set
	}
	set[permissionID] = struct{}{}
	m.attached = append(m.attached, permissionID)
	return nil
}

func (m *memoryRepo) DetachPermission(_ context.Context, roleID RoleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants[roleID], permissionID)
	m.detached = append(m.detached, permissionID)
	return nil
}
