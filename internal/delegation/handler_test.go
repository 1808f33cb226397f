package delegation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

func newTestRouter(repo *memoryRepo, perms ...string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if raw := req.Header.Get("X-Actor"); raw != "" {
				actor := repo.user(int64(raw[0] - '0'))
				req = req.WithContext(rbac.ContextWithActor(req.Context(), actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/delegations", NewHandler(NewService(repo, allow(perms...), nil), nil).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, actor string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateAndRevoke(t *testing.T) {
	repo := newMemoryRepo(
		user(1, rbac.RoleDepartmentManager, dept(10)),
		user(2, rbac.RoleOrdinary, dept(10)),
	)
	h := newTestRouter(repo, shared.PermDelegationsCreate, shared.PermDelegationsView)

	rec := do(t, h, http.MethodPost, "/delegations/2", "1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var member memberResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &member))
	assert.Equal(t, int(rbac.RoleDepartmentManager), member.RoleID)
	require.NotNil(t, member.RoleGrantedBy)
	assert.Equal(t, int64(1), *member.RoleGrantedBy)

	rec = do(t, h, http.MethodGet, "/delegations/", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	var members []memberResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	assert.Len(t, members, 2)

	rec = do(t, h, http.MethodDelete, "/delegations/2", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int64{2}, body["reset"])
}

func TestHandlerErrors(t *testing.T) {
	repo := newMemoryRepo(
		user(1, rbac.RoleDepartmentManager, dept(10)),
		user(2, rbac.RoleOrdinary, dept(11)),
	)
	h := newTestRouter(repo, shared.PermDelegationsCreate)

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/delegations/2", "1").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/delegations/99", "1").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/delegations/abc", "1").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/delegations/2", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/delegations/", "1").Code)
}
