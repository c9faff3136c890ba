package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// DashboardService Описываем, что нам нужно от сервиса
type DashboardService interface {
	Summary(ctx context.Context) *domain.DashboardSummary
	Notifications(ctx context.Context) []domain.Notification
	Supplies(ctx context.Context) map[string]int
	Dispatch(ctx context.Context) []domain.DispatchItem
	Timeseries(ctx context.Context) *domain.TimeseriesSnapshot
}

type DashboardHandler struct {
	service DashboardService
}

func NewDashboardHandler(s DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Summary(r.Context()))
}

func (h *DashboardHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Notifications(r.Context()))
}

func (h *DashboardHandler) GetSupplies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Supplies(r.Context()))
}

func (h *DashboardHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Dispatch(r.Context()))
}

func (h *DashboardHandler) GetTimeseries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Timeseries(r.Context()))
}
