package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type SafetyService interface {
	Risks(ctx context.Context) []domain.RiskItem
	Settlement(ctx context.Context) *domain.SettlementSnapshot
	Score(ctx context.Context) int
	AlarmTrend(ctx context.Context) []domain.SeriesPoint
}

type SafetyHandler struct {
	service SafetyService
}

func NewSafetyHandler(s SafetyService) *SafetyHandler {
	return &SafetyHandler{service: s}
}

func (h *SafetyHandler) GetRisks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Risks(r.Context()))
}

func (h *SafetyHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Settlement(r.Context()))
}

func (h *SafetyHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{"score": h.service.Score(r.Context())})
}

func (h *SafetyHandler) GetAlarmTrend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.AlarmTrend(r.Context()))
}
