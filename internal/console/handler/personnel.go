package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type PersonnelService interface {
	Stats(ctx context.Context) *domain.PersonnelStats
	Distribution(ctx context.Context) []domain.TeamShare
	List(ctx context.Context) []domain.Worker
	AttendanceTrend(ctx context.Context) []domain.SeriesPoint
}

type PersonnelHandler struct {
	service PersonnelService
}

func NewPersonnelHandler(s PersonnelService) *PersonnelHandler {
	return &PersonnelHandler{service: s}
}

func (h *PersonnelHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Stats(r.Context()))
}

func (h *PersonnelHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Distribution(r.Context()))
}

func (h *PersonnelHandler) GetList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.List(r.Context()))
}

func (h *PersonnelHandler) GetAttendanceTrend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.AttendanceTrend(r.Context()))
}
