package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/audit"
	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// RiskAnalyzer — серверный конвейер анализа риска (perceive→…→report).
type RiskAnalyzer interface {
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error)
}

type AgentHandler struct {
	workflow RiskAnalyzer
	journal  audit.Recorder // nil, если журнал не сконфигурирован
	logger   *zap.Logger
}

func NewAgentHandler(workflow RiskAnalyzer, journal audit.Recorder, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{workflow: workflow, journal: journal, logger: logger.Named("agent-api")}
}

// Analyze — POST /api/agent/analyze. Ошибку конвейера отдаем в теле
// с success:false: клиент умеет деградировать по обоим сигналам
// (и по статусу, и по флагу).
func (h *AgentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(domain.AnalyzeResponse{Success: false, Error: "invalid request body"})
		return
	}
	if req.RiskType != domain.RiskGas && req.RiskType != domain.RiskPersonnel && req.RiskType != domain.RiskVehicle {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(domain.AnalyzeResponse{Success: false, Error: "unknown risk_type"})
		return
	}

	started := time.Now()
	resp, err := h.workflow.Analyze(r.Context(), req)
	if err != nil {
		h.logger.Error("risk analysis failed", zap.String("risk_type", string(req.RiskType)), zap.Error(err))
		h.record(req, audit.EpisodeRecord{Status: audit.StatusFailed, Error: err.Error()}, started)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(domain.AnalyzeResponse{Success: false, Error: err.Error()})
		return
	}

	h.record(req, audit.EpisodeRecord{
		Status:    audit.StatusSuccess,
		RiskLevel: resp.RiskLevel,
		Analysis:  resp.Analysis,
		Report:    resp.Report,
		PlanSteps: len(resp.DecisionPlan),
	}, started)
	writeJSON(w, resp)
}

func (h *AgentHandler) record(req domain.AnalyzeRequest, rec audit.EpisodeRecord, started time.Time) {
	if h.journal == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.RiskType = string(req.RiskType)
	rec.Location = req.Location
	rec.Trigger = audit.TriggerManual
	rec.Timestamp = started
	rec.DurationMs = time.Since(started).Milliseconds()
	h.journal.Record(rec)
}
