package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/tunnelops-console/internal/console/service"
	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type VideoService interface {
	List(ctx context.Context) []domain.Camera
	Add(ctx context.Context, name, streamURL, status string) (domain.Camera, error)
}

type VideoHandler struct {
	service VideoService
}

func NewVideoHandler(s VideoService) *VideoHandler {
	return &VideoHandler{service: s}
}

func (h *VideoHandler) GetList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.List(r.Context()))
}

func (h *VideoHandler) Add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string `json:"name"`
		StreamURL string `json:"streamUrl"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	cam, err := h.service.Add(r.Context(), body.Name, body.StreamURL, body.Status)
	if err != nil {
		if errors.Is(err, service.ErrStreamURLRequired) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "streamUrl required"})
			return
		}
		http.Error(w, "failed to add camera", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "item": cam})
}
