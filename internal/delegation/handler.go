package delegation

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

// Handler exposes delegation endpoints.
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

// MountRoutes registers delegation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{userID}", h.create)
	r.Delete("/{userID}", h.revoke)
}

type memberResponse struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	RoleID        int    `json:"role_id"`
	Role          string `json:"role"`
	RoleGrantedBy *int64 `json:"role_granted_by"`
}

func toMember(u rbac.User) memberResponse {
	return memberResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.Name,
		RoleID:        int(u.RoleID),
		Role:          u.RoleID.String(),
		RoleGrantedBy: u.RoleGrantedBy,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	users, err := h.service.List(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "list delegations", err)
		return
	}
	out := make([]memberResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toMember(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.target(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Create(r.Context(), actor, targetID)
	if err != nil {
		httpx.Fail(w, h.logger, "create delegation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMember(updated))
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actor, targetID, ok := h.target(w, r)
	if !ok {
		return
	}
	reset, err := h.service.Revoke(r.Context(), actor, targetID)
	if err != nil {
		httpx.Fail(w, h.logger, "revoke delegation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]int64{"reset": reset})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (rbac.User, int64, bool) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return rbac.User{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return rbac.User{}, 0, false
	}
	return actor, id, true
}
