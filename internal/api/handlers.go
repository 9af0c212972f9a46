package api

import (
	"context"
	"log/slog"
	"net/http"

	"reelcast/internal/reels"
	"reelcast/internal/storage"
)

// defaultMaxUploadBytes caps multipart publish bodies when the caller does
// not configure a limit.
const defaultMaxUploadBytes int64 = 512 << 20

// Handler serves the reel publishing endpoints.
type Handler struct {
	Reels          *reels.Service
	Store          storage.Repository
	Logger         *slog.Logger
	MaxUploadBytes int64
}

// NewHandler wires the service and its repository for health probes.
func NewHandler(service *reels.Service, store storage.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Reels:          service,
		Store:          store,
		Logger:         logger,
		MaxUploadBytes: defaultMaxUploadBytes,
	}
}

func (h *Handler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Health reports the datastore's reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components, overall, status := h.componentHealth(r.Context())
	writeJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": components,
	})
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overallStatus := "ok"
	statusCode := http.StatusOK

	components := make([]componentStatus, 0, 1)
	if h.Store != nil {
		status := componentStatus{Component: "datastore", Status: "ok"}
		if err := h.Store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Error = err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		components = append(components, status)
	}
	return components, overallStatus, statusCode
}
