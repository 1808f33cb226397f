package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruivita/sci/internal/rbac"
)

func newReportRouter(svc *Service, withActor bool) http.Handler {
	r := chi.NewRouter()
	if withActor {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(rbac.ContextWithActor(req.Context(), rbac.User{ID: 1})))
			})
		})
	}
	r.Route("/reports", NewHandler(svc, nil).MountRoutes)
	return r
}

func TestHandlerGenerate(t *testing.T) {
	svc, repo, _ := newTestService(t, true)
	repo.rows = []Row{{Group: "srv-print-01", Period: june(1), Jobs: 4, Pages: 12}}
	h := newReportRouter(svc, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/?from=2021-06-01&to=2021-06-30&group_by=server", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rows []Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(12), rows[0].Pages)
	require.Len(t, repo.queries, 1)
	assert.Equal(t, BucketMonth, repo.queries[0].Bucket)
}

func TestHandlerRejects(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	h := newReportRouter(svc, true)
	for _, target := range []string{
		"/reports/?from=01-06-2021&to=2021-06-30&group_by=server",
		"/reports/?from=2021-06-30&to=2021-06-01&group_by=server",
		"/reports/?from=2021-06-01&to=2021-06-30&group_by=floor",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	denied, _, _ := newTestService(t, false)
	rec := httptest.NewRecorder()
	newReportRouter(denied, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/?from=2021-06-01&to=2021-06-30&group_by=server", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newReportRouter(svc, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
