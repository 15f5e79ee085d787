package relay

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perfiamatic/audit-flash/internal/platform/httpx"
)

// Handler exposes the pass-through endpoint.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler wires the relay endpoint.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers POST /audit under the caller's prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/audit", h.forward)
}

// forward relays the multipart body untouched. The request is neither
// validated nor retried.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.Forward(r.Context(), r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		if h.logger != nil {
			h.logger.Error("relay audit", slog.Any("error", err))
		}
		httpx.JSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Error: Message(err)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
