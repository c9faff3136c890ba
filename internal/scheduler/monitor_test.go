package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/audit"
	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/infra"
)

type stubAnalyzer struct {
	mu   sync.Mutex
	reqs []domain.AnalyzeRequest
}

func (s *stubAnalyzer) Analyze(_ context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	return &domain.AnalyzeResponse{
		Success:   true,
		RiskLevel: "high",
		Analysis:  "风险分析完成",
		DecisionPlan: []domain.DecisionStep{
			{Step: 1, Action: "停止掘进", Auto: true},
		},
		Report: "处置简报",
	}, nil
}

type memJournal struct {
	mu   sync.Mutex
	recs []audit.EpisodeRecord
}

func (j *memJournal) Record(rec audit.EpisodeRecord) {
	j.mu.Lock()
	j.recs = append(j.recs, rec)
	j.mu.Unlock()
}

// Срабатывание разыгрывается с вероятностью 20% — крутим tick, пока
// не сработает. Кулдаун в минуту гарантирует ровно один эпизод.
func TestMonitorTickPublishesDetectingAndCompleted(t *testing.T) {
	bus := &captureBus{}
	wf := &stubAnalyzer{}
	journal := &memJournal{}
	m := NewMonitor(wf, bus, journal, infra.AgentConfig{AutoMonitor: true, Cooldown: time.Minute}, zap.NewNop())

	for i := 0; i < 500; i++ {
		m.tick(context.Background())
		if len(bus.byChannel(domain.ChanAgent)) >= 2 {
			break
		}
	}

	frames := bus.byChannel(domain.ChanAgent)
	require.Len(t, frames, 2, "expected exactly one detecting+completed pair under cooldown")

	detecting := frames[0].payload.(domain.AgentFrame)
	assert.Equal(t, "detecting", detecting.State)
	assert.Contains(t, detecting.Message, "智能体介入分析中")

	completed := frames[1].payload.(domain.AgentFrame)
	assert.Equal(t, "completed", completed.State)
	assert.Equal(t, "high", completed.RiskLevel)
	assert.True(t, completed.AutoTriggered)
	require.NotNil(t, completed.Result)
	assert.Equal(t, "处置简报", completed.Result.Report)
	assert.Equal(t, 1, completed.PlanCount)

	// Эпизод ушел в журнал с автоматическим триггером
	journal.mu.Lock()
	defer journal.mu.Unlock()
	require.Len(t, journal.recs, 1)
	assert.Equal(t, audit.TriggerAuto, journal.recs[0].Trigger)
	assert.Equal(t, audit.StatusSuccess, journal.recs[0].Status)
	assert.Equal(t, "high", journal.recs[0].RiskLevel)
}

func TestMonitorDisabledByConfig(t *testing.T) {
	bus := &captureBus{}
	m := NewMonitor(&stubAnalyzer{}, bus, nil, infra.AgentConfig{AutoMonitor: false}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	m.Run(ctx) // возвращается сразу, без тиков

	assert.Empty(t, bus.byChannel(domain.ChanAgent))
}
