package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/shared"
)

type actorKey struct{}

// ContextWithActor stores the authenticated user on ctx.
func ContextWithActor(ctx context.Context, actor User) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated user stored on ctx.
func ActorFromContext(ctx context.Context) (User, bool) {
	actor, ok := ctx.Value(actorKey{}).(User)
	return actor, ok
}

// UserLoader resolves user ids into authorization views.
type UserLoader interface {
	User(ctx context.Context, id int64) (User, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Checker *Checker
	Users   UserLoader
	Logger  *slog.Logger
}

// LoadActor resolves the authenticated user id into a User for downstream
// handlers. Requests without an id or with an unknown id are rejected.
func (m Middleware) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.ActorIDFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		actor, err := m.Users.User(r.Context(), id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			m.logError("rbac load actor", err)
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			for _, perm := range normalized {
				granted, err := m.Checker.Can(r.Context(), actor, perm)
				if err != nil {
					m.logError("rbac require any", err)
					httpx.RespondError(w, err)
					return
				}
				if granted {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
