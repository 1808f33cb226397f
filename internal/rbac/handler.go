package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fruivita/sci/internal/platform/httpx"
	"github.com/fruivita/sci/internal/shared"
)

// Handler exposes role and permission administration endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Get("/{roleID}/permissions", h.listPermissions)
	r.Put("/{roleID}/permissions", h.setPermissions)
	r.Put("/{roleID}/permissions/{permission}", h.grant)
	r.Delete("/{roleID}/permissions/{permission}", h.revoke)
}

type roleResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type setPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	roles, err := h.service.ListRoles(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{ID: int(role.ID), Name: role.Name, Description: role.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	actor, roleID, ok := h.role(w, r)
	if !ok {
		return
	}
	perms, err := h.service.RolePermissions(r.Context(), actor, roleID)
	if err != nil {
		httpx.Fail(w, h.logger, "list role permissions", err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	actor, roleID, ok := h.role(w, r)
	if !ok {
		return
	}
	var req setPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), actor, roleID, req.PermissionIDs); err != nil {
		httpx.Fail(w, h.logger, "set role permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	actor, roleID, ok := h.role(w, r)
	if !ok {
		return
	}
	if err := h.service.GrantPermission(r.Context(), actor, roleID, chi.URLParam(r, "permission")); err != nil {
		httpx.Fail(w, h.logger, "grant permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actor, roleID, ok := h.role(w, r)
	if !ok {
		return
	}
	if err := h.service.RevokePermission(r.Context(), actor, roleID, chi.URLParam(r, "permission")); err != nil {
		httpx.Fail(w, h.logger, "revoke permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) role(w http.ResponseWriter, r *http.Request) (User, RoleID, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return User{}, 0, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "roleID"))
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return User{}, 0, false
	}
	return actor, RoleID(id), true
}
