package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"ragstore/internal/domain"
	"ragstore/internal/httputil"
	"ragstore/internal/resource"
)

// ResourceHandler serves the read-only audit API over stored resources
type ResourceHandler struct {
	store  *resource.Store
	logger *slog.Logger
}

func NewResourceHandler(store *resource.Store, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		store:  store,
		logger: logger,
	}
}

// HealthCheck reports whether every resource collection has a live handle
func (h *ResourceHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if !h.store.Ready() {
		httputil.RespondError(w, http.StatusServiceUnavailable, "resource storage not ready")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStats returns per-collection record counts
func (h *ResourceHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Counts(r.Context())
	if err != nil {
		h.logger.Error("count resources", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to count resources")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, counts)
}

// GetResource returns one record by collection name and content-addressed id
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id := r.PathValue("id")

	record, err := h.store.GetResource(r.Context(), collection, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownCollection):
			httputil.RespondError(w, http.StatusBadRequest, "unknown collection: "+collection)
		case errors.Is(err, domain.ErrNotFound):
			httputil.RespondError(w, http.StatusNotFound, "resource "+id+" not found")
		default:
			h.logger.Error("get resource", "collection", collection, "id", id, "error", err)
			httputil.RespondError(w, http.StatusInternalServerError, "failed to get resource")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, record)
}
