package delegation

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	users   map[int64]rbac.User
	locked  []int64
	failSet error
	// deadlocks aborts that many transactions after fn ran, as Postgres
	// does with a deadlock victim.
	deadlocks int
	attempts  int
}

func newMemoryRepo(users ...rbac.User) *memoryRepo {
	repo := &memoryRepo{users: make(map[int64]rbac.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memoryRepo) user(id int64) rbac.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	draft := make(map[int64]rbac.User, len(m.users))
	for id, u := range m.users {
		draft[id] = u
	}
	m.locked = nil
	tx := &memoryTx{repo: m, users: draft}
	m.attempts++
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if m.deadlocks > 0 {
		m.deadlocks--
		return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	}
	m.users = draft
	return nil
}

func (m *memoryRepo) DepartmentUsers(_ context.Context, departmentID int64) ([]rbac.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []rbac.User
	for _, u := range m.users {
		if u.DepartmentID != nil && *u.DepartmentID == departmentID {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

type memoryTx struct {
	repo  *memoryRepo
	users map[int64]rbac.User
}

func (t *memoryTx) LockUser(_ context.Context, id int64) (rbac.User, error) {
	u, ok := t.users[id]
	if !ok {
		return rbac.User{}, ErrNotFound
	}
	t.repo.locked = append(t.repo.locked, id)
	return u, nil
}

func (t *memoryTx) LockGrantees(_ context.Context, granters []int64) ([]int64, error) {
	set := make(map[int64]struct{}, len(granters))
	for _, id := range granters {
		set[id] = struct{}{}
	}
	var ids []int64
	for id, u := range t.users {
		if u.RoleGrantedBy == nil {
			continue
		}
		if _, ok := set[*u.RoleGrantedBy]; ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *memoryTx) SetRole(_ context.Context, id int64, role rbac.RoleID, grantedBy *int64) error {
	if t.repo.failSet != nil {
		return t.repo.failSet
	}
	u, ok := t.users[id]
	if !ok {
		return ErrNotFound
	}
	u.RoleID = role
	u.RoleGrantedBy = grantedBy
	t.users[id] = u
	return nil
}

func (t *memoryTx) ResetRoles(_ context.Context, ids []int64) error {
	for _, id := range ids {
		u := t.users[id]
		u.RoleID = rbac.RoleOrdinary
		u.RoleGrantedBy = nil
		t.users[id] = u
	}
	return nil
}

// allowAll grants every permission in perms and denies the rest.
type allowAll struct {
	perms map[string]bool
}

func allow(perms ...string) allowAll {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return allowAll{perms: set}
}

func (a allowAll) Authorize(_ context.Context, _ rbac.User, permission string) error {
	if a.perms[permission] {
		return nil
	}
	return shared.ErrForbidden
}

func dept(id int64) *int64 {
	return &id
}

func user(id int64, role rbac.RoleID, department *int64) rbac.User {
	return rbac.User{ID: id, Username: "user" + string(rune('a'+id)), RoleID: role, DepartmentID: department}
}
