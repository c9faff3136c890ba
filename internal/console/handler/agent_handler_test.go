package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/audit"
	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type stubWorkflow struct {
	resp *domain.AnalyzeResponse
	err  error
}

func (s stubWorkflow) Analyze(context.Context, domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	return s.resp, s.err
}

type memRecorder struct {
	mu   sync.Mutex
	recs []audit.EpisodeRecord
}

func (r *memRecorder) Record(rec audit.EpisodeRecord) {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
}

func doAnalyze(t *testing.T, wf RiskAnalyzer, journal audit.Recorder, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewAgentHandler(wf, journal, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/agent/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)
	return rec
}

func TestAnalyzeReturnsWorkflowResult(t *testing.T) {
	wf := stubWorkflow{resp: &domain.AnalyzeResponse{
		Success:   true,
		RiskLevel: "high",
		Analysis:  "瓦斯浓度超限",
		DecisionPlan: []domain.DecisionStep{
			{Step: 1, Action: "停止掘进", Auto: true},
			{Step: 2, Action: "启动加强通风", Auto: true},
		},
	}}
	journal := &memRecorder{}

	rec := doAnalyze(t, wf, journal, `{"risk_type":"gas","sensor_data":{"ch4":0.92},"location":"回风管路 A1段"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "high", resp.RiskLevel)

	require.Len(t, journal.recs, 1)
	r := journal.recs[0]
	assert.Equal(t, audit.TriggerManual, r.Trigger)
	assert.Equal(t, audit.StatusSuccess, r.Status)
	assert.Equal(t, "gas", r.RiskType)
	assert.Equal(t, 2, r.PlanSteps)
	assert.NotEmpty(t, r.ID)
}

func TestAnalyzeRejectsBadBody(t *testing.T) {
	rec := doAnalyze(t, stubWorkflow{}, nil, "{oops")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp domain.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid request body", resp.Error)
}

func TestAnalyzeRejectsUnknownRiskType(t *testing.T) {
	rec := doAnalyze(t, stubWorkflow{}, nil, `{"risk_type":"flood"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown risk_type")
}

func TestAnalyzeWorkflowErrorIs500AndJournaled(t *testing.T) {
	journal := &memRecorder{}
	rec := doAnalyze(t, stubWorkflow{err: errors.New("llm unavailable")},
		journal, `{"risk_type":"vehicle","location":"后配套物流通道"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp domain.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)

	require.Len(t, journal.recs, 1)
	assert.Equal(t, audit.StatusFailed, journal.recs[0].Status)
	assert.Equal(t, "llm unavailable", journal.recs[0].Error)
}

// Без сконфигурированного журнала handler работает как прежде.
func TestAnalyzeNilJournalIsFine(t *testing.T) {
	rec := doAnalyze(t, stubWorkflow{resp: &domain.AnalyzeResponse{Success: true}},
		nil, `{"risk_type":"personnel"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
