package delegation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fruivita/sci/internal/platform/db"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

// Service applies the delegation rules.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, authz Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, authz: authz, logger: logger}
}

// Create lends the actor's role to target. The actor must hold
// delegations.create, share a department with target and outrank it.
func (s *Service) Create(ctx context.Context, actor rbac.User, targetID int64) (rbac.User, error) {
	if err := s.authorize(ctx, actor, shared.PermDelegationsCreate); err != nil {
		return rbac.User{}, err
	}
	if actor.ID == targetID {
		return rbac.User{}, ErrForbidden
	}
	var updated rbac.User
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		granter, target, err := lockPair(ctx, tx, actor.ID, targetID)
		if err != nil {
			return err
		}
		if !granter.SameDepartment(target) || !granter.RoleID.Outranks(target.RoleID) {
			return ErrForbidden
		}
		if err := tx.SetRole(ctx, target.ID, granter.RoleID, &granter.ID); err != nil {
			return err
		}
		target.RoleID = granter.RoleID
		target.RoleGrantedBy = &granter.ID
		updated = target
		return nil
	})
	if err != nil {
		return rbac.User{}, err
	}
	s.logger.Log(ctx, shared.LevelNotice, "role delegated",
		slog.Int64("granter_id", actor.ID),
		slog.Int64("user_id", updated.ID),
		slog.String("role", updated.RoleID.String()))
	return updated, nil
}

// Revoke returns target and every user that received the role through it,
// directly or transitively, to the ordinary role. It reports the ids reset.
func (s *Service) Revoke(ctx context.Context, actor rbac.User, targetID int64) ([]int64, error) {
	var reset []int64
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		revoker, target, err := lockPair(ctx, tx, actor.ID, targetID)
		if err != nil {
			return err
		}
		if !target.Delegated() {
			return ErrForbidden
		}
		self := revoker.ID == target.ID
		if !self && !(revoker.SameDepartment(target) && revoker.RoleID.AtLeast(target.RoleID)) {
			return ErrForbidden
		}
		ids, err := cascade(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if err := tx.ResetRoles(ctx, ids); err != nil {
			return err
		}
		reset = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Log(ctx, shared.LevelNotice, "delegation revoked",
		slog.Int64("revoker_id", actor.ID),
		slog.Int64("user_id", targetID),
		slog.Int("reset", len(reset)))
	return reset, nil
}

// maxTxAttempts bounds how often a transaction aborted by a deadlock is rerun.
const maxTxAttempts = 3

// withRetry runs fn in a transaction and reruns it when Postgres picked it as
// a deadlock victim. Revoke locks the grantee tree after the pair, so two
// revokes over overlapping trees can still wait on each other.
func (s *Service) withRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if !db.IsDeadlock(err) || ctx.Err() != nil {
			return err
		}
		s.logger.Warn("delegation transaction deadlocked",
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
	return err
}

// List returns the users of the actor's department with their delegation state.
func (s *Service) List(ctx context.Context, actor rbac.User) ([]rbac.User, error) {
	if err := s.authorize(ctx, actor, shared.PermDelegationsView); err != nil {
		return nil, err
	}
	if actor.DepartmentID == nil {
		return []rbac.User{}, nil
	}
	return s.repo.DepartmentUsers(ctx, *actor.DepartmentID)
}

func (s *Service) authorize(ctx context.Context, actor rbac.User, permission string) error {
	err := s.authz.Authorize(ctx, actor, permission)
	if errors.Is(err, shared.ErrForbidden) {
		return ErrForbidden
	}
	return err
}

// lockPair locks both rows in id order so concurrent calls on the same pair
// cannot deadlock.
func lockPair(ctx context.Context, tx TxRepository, actorID, targetID int64) (rbac.User, rbac.User, error) {
	first, second := actorID, targetID
	if second < first {
		first, second = second, first
	}
	users := make(map[int64]rbac.User, 2)
	for _, id := range []int64{first, second} {
		if _, ok := users[id]; ok {
			continue
		}
		u, err := tx.LockUser(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) && id == actorID && id != targetID {
				return rbac.User{}, rbac.User{}, ErrForbidden
			}
			return rbac.User{}, rbac.User{}, err
		}
		users[id] = u
	}
	return users[actorID], users[targetID], nil
}

// cascade walks role_granted_by breadth first from root. The visited set
// keeps cyclic data from looping.
func cascade(ctx context.Context, tx TxRepository, root int64) ([]int64, error) {
	visited := map[int64]struct{}{root: {}}
	order := []int64{root}
	frontier := []int64{root}
	for len(frontier) > 0 {
		grantees, err := tx.LockGrantees(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0:0]
		for _, id := range grantees {
			if _, ok := visited[id]; ok {
				continue
			}
			visited[id] = struct{}{}
			order = append(order, id)
			frontier = append(frontier, id)
		}
	}
	return order, nil
}
