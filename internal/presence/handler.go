// AngelaMos | 2026
// handler.go

package presence

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/uznavaykin/internal/core"
)

type OnlineResponse struct {
	Online        int `json:"online"`
	WindowSeconds int `json:"window_seconds"`
}

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats/online", h.Online)
}

func (h *Handler) Online(w http.ResponseWriter, r *http.Request) {
	n, err := h.tracker.CountOnline(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, OnlineResponse{
		Online:        n,
		WindowSeconds: int(h.tracker.window.Seconds()),
	})
}
