package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type ProgressService interface {
	Stats(ctx context.Context) *domain.ProgressStats
	Gantt(ctx context.Context) []domain.GanttTask
	DailyRings(ctx context.Context) []domain.SeriesPoint
}

type ProgressHandler struct {
	service ProgressService
}

func NewProgressHandler(s ProgressService) *ProgressHandler {
	return &ProgressHandler{service: s}
}

func (h *ProgressHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Stats(r.Context()))
}

func (h *ProgressHandler) GetGantt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Gantt(r.Context()))
}

func (h *ProgressHandler) GetDailyRings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.DailyRings(r.Context()))
}
