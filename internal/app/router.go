package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fruivita/sci/internal/auth"
	"github.com/fruivita/sci/internal/delegation"
	"github.com/fruivita/sci/internal/navigation"
	"github.com/fruivita/sci/internal/observability"
	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/report"
	"github.com/fruivita/sci/internal/shared"
	"github.com/fruivita/sci/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Tokens  *auth.Tokens
	Metrics *observability.Metrics

	RBACMiddleware    rbac.Middleware
	RolesHandler      *rbac.Handler
	DelegationHandler *delegation.Handler
	ReportHandler     *report.Handler
	NavigationHandler *navigation.Handler
	ImportsHandler    *jobs.ImportsHandler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(params.Tokens))
		r.Use(params.RBACMiddleware.LoadActor)

		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.DelegationHandler != nil {
			r.Route("/delegations", params.DelegationHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
		if params.NavigationHandler != nil {
			r.Route("/navigation", params.NavigationHandler.MountRoutes)
		}
		if params.ImportsHandler != nil {
			r.Route("/imports", params.ImportsHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.With(params.RBACMiddleware.RequireAny(shared.PermImportsCreate)).Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
