package navigation

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fruivita/sci/internal/platform/httpx"
)

// Handler exposes navigation endpoints.
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

// MountRoutes registers navigation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{resource}/{id}/neighbors", h.neighbors)
	r.Get("/{resource}/select-all", h.selectAll)
}

func (h *Handler) neighbors(w http.ResponseWriter, r *http.Request) {
	resource, err := ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return
	}
	out, err := h.service.Neighbors(r.Context(), resource, id)
	if err != nil {
		httpx.Fail(w, h.logger, "navigation neighbors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) selectAll(w http.ResponseWriter, r *http.Request) {
	resource, err := ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ids, err := h.service.SelectAll(r.Context(), r.URL.Query().Get("component"), resource)
	if err != nil {
		httpx.Fail(w, h.logger, "navigation select all", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]int64{"ids": ids})
}
