package jobs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

// ImportEnqueuer queues print imports.
type ImportEnqueuer interface {
	EnqueuePrintImport(ctx context.Context, payload PrintImportPayload) (*asynq.TaskInfo, error)
}

// Authorizer decides whether an actor holds a permission.
type Authorizer interface {
	Authorize(ctx context.Context, actor rbac.User, permission string) error
}

// ImportsHandler lets operators trigger a print import on demand.
type ImportsHandler struct {
	queue  ImportEnqueuer
	authz  Authorizer
	logger *slog.Logger
}

// NewImportsHandler constructs an ImportsHandler.
func NewImportsHandler(queue ImportEnqueuer, authz Authorizer, logger *slog.Logger) *ImportsHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ImportsHandler{queue: queue, authz: authz, logger: logger}
}

// MountRoutes registers import routes.
func (h *ImportsHandler) MountRoutes(r chi.Router) {
	r.Post("/", h.enqueue)
}

type enqueueResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

func (h *ImportsHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if err := h.authz.Authorize(r.Context(), actor, shared.PermImportsCreate); err != nil {
		httpx.Fail(w, h.logger, "enqueue print import", err)
		return
	}
	info, err := h.queue.EnqueuePrintImport(r.Context(), PrintImportPayload{Reason: "api", RequestedBy: actor.ID})
	if err != nil {
		httpx.Fail(w, h.logger, "enqueue print import", err)
		return
	}
	h.logger.Log(r.Context(), shared.LevelNotice, "print import queued",
		slog.String("task_id", info.ID),
		slog.Int64("requested_by", actor.ID))
	httpx.JSON(w, http.StatusAccepted, enqueueResponse{TaskID: info.ID, Queue: info.Queue})
}
