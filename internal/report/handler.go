package report

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

// Handler exposes the report endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.generate)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Generate(r.Context(), actor, q)
	if err != nil {
		httpx.Fail(w, h.logger, "generate report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func parseQuery(r *http.Request) (Query, error) {
	values := r.URL.Query()
	from, err := parseDate("from", values.Get("from"))
	if err != nil {
		return Query{}, err
	}
	to, err := parseDate("to", values.Get("to"))
	if err != nil {
		return Query{}, err
	}
	q := Query{
		From:    from,
		To:      to,
		GroupBy: GroupBy(values.Get("group_by")),
		Bucket:  Bucket(values.Get("bucket")),
	}
	if q.Bucket == "" {
		q.Bucket = BucketMonth
	}
	return q, nil
}

func parseDate(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errors.Join(shared.ErrValidation, fmt.Errorf("report: %s must be yyyy-mm-dd", field))
	}
	return t, nil
}
