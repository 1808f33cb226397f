package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fruivita/sci/internal/platform/cache"
	"github.com/fruivita/sci/internal/shared"
)

// DefaultPermissionTTL bounds how long a permission decision is reused.
const DefaultPermissionTTL = 5 * time.Second

// PermissionLookup answers permission questions from the role mapping.
type PermissionLookup interface {
	UserHasPermission(ctx context.Context, userID int64, permission string) (bool, error)
}

// CheckerConfig collects Checker dependencies.
type CheckerConfig struct {
	Store      cache.Store
	Lookup     PermissionLookup
	TTL        time.Duration
	Superadmin string
	Logger     *slog.Logger
}

// Checker memoizes permission decisions per user and permission. Cached
// answers are served until they expire, so revocations take effect within
// one TTL.
type Checker struct {
	store      cache.Store
	lookup     PermissionLookup
	ttl        time.Duration
	superadmin string
	logger     *slog.Logger
}

// NewChecker constructs a Checker.
func NewChecker(cfg CheckerConfig) *Checker {
	c := &Checker{
		store:      cfg.Store,
		lookup:     cfg.Lookup,
		ttl:        cfg.TTL,
		superadmin: strings.TrimSpace(cfg.Superadmin),
		logger:     cfg.Logger,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultPermissionTTL
	}
	return c
}

// IsSuperadmin reports whether actor is the configured superadmin.
func (c *Checker) IsSuperadmin(ctx context.Context, actor User) (bool, error) {
	key := cache.Key("rbac", "superadmin", strconv.FormatInt(actor.ID, 10))
	return cache.Remember(ctx, c.store, key, c.ttl, func(context.Context) (bool, error) {
		return c.superadmin != "" && strings.EqualFold(actor.Username, c.superadmin), nil
	}, c.storeFailed)
}

// Can reports whether actor holds permission.
func (c *Checker) Can(ctx context.Context, actor User, permission string) (bool, error) {
	if actor.ID <= 0 {
		return false, nil
	}
	super, err := c.IsSuperadmin(ctx, actor)
	if err != nil {
		return false, err
	}
	if super {
		return true, nil
	}
	if c.lookup == nil {
		return false, nil
	}
	permission = strings.ToLower(strings.TrimSpace(permission))
	key := cache.Key("rbac", "permission", strconv.FormatInt(actor.ID, 10), permission)
	return cache.Remember(ctx, c.store, key, c.ttl, func(ctx context.Context) (bool, error) {
		return c.lookup.UserHasPermission(ctx, actor.ID, permission)
	}, c.storeFailed)
}

// Authorize returns an error wrapping shared.ErrForbidden unless actor holds
// permission.
func (c *Checker) Authorize(ctx context.Context, actor User, permission string) error {
	ok, err := c.Can(ctx, actor, permission)
	if err != nil {
		return fmt.Errorf("rbac: check %s: %w", permission, err)
	}
	if !ok {
		return fmt.Errorf("rbac: %s: %w", permission, shared.ErrForbidden)
	}
	return nil
}

func (c *Checker) storeFailed(err error) {
	if c.logger != nil {
		c.logger.Warn("permission cache unavailable", slog.Any("error", err))
	}
}
