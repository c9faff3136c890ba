package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// fakeConsole управляет каждым шагом оркестратора: блокировка анализа
// через release позволяет детерминированно проверять счетчик поколений.
type fakeConsole struct {
	failSensors bool
	failAnalyze bool
	failChat    bool
	release     chan struct{} // если не nil, AgentAnalyze ждет сигнала

	analyzeResp *domain.AnalyzeResponse
}

func (f *fakeConsole) DashboardTimeseries(ctx context.Context) (*domain.TimeseriesSnapshot, error) {
	if f.failSensors {
		return nil, errors.New("backend down")
	}
	return &domain.TimeseriesSnapshot{
		GasConcentration: []domain.SeriesPoint{{TS: "t", Value: 0.72}},
		SlurryPressure:   []domain.SeriesPoint{{TS: "t", Value: 2.4}},
	}, nil
}

func (f *fakeConsole) PersonnelStats(ctx context.Context) (*domain.PersonnelStats, error) {
	if f.failSensors {
		return nil, errors.New("backend down")
	}
	return &domain.PersonnelStats{TotalOnSite: 52, Violations: 1, AttendanceRate: "95%"}, nil
}

func (f *fakeConsole) AgentAnalyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	if f.release != nil {
		<-f.release
	}
	if f.failAnalyze {
		return nil, errors.New("analyze endpoint: unexpected status 500")
	}
	if f.analyzeResp != nil {
		return f.analyzeResp, nil
	}
	return &domain.AnalyzeResponse{
		Success:   true,
		RiskLevel: "high",
		ReasoningSteps: []domain.ReasoningStep{
			{Message: "[决策层] 判定风险等级为: high", Severity: domain.SeverityCritical},
			{Message: "[策略层] 生成 2 条管控指令"},
		},
		DecisionPlan: []domain.DecisionStep{
			{Action: "停止掘进", Auto: true, Reason: "瓦斯超限"},
			{Step: 2, Action: "加强通风", Auto: true, Reason: "规范要求"},
		},
		RetrievedDocs: []domain.RetrievedDoc{{Content: "规范", Source: "《盾构施工安全规范》"}},
		Report:        "处置报告",
	}, nil
}

func (f *fakeConsole) AIChat(ctx context.Context, prompt string) (string, error) {
	if f.failChat {
		return "", errors.New("proxy down")
	}
	return "降级简报", nil
}

func TestGasScenarioHappyPath(t *testing.T) {
	api := &fakeConsole{}
	o := NewOrchestrator(api, zap.NewNop())

	o.Trigger(context.Background(), domain.RiskGas)
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, domain.StateExecuting, snap.State)
	require.NotNil(t, snap.Episode)
	assert.Equal(t, "high", snap.Episode.Level)
	assert.Equal(t, "瓦斯浓度异常超限", snap.Episode.Title)

	require.NotEmpty(t, snap.Plan)
	assert.Equal(t, "停止掘进", snap.Plan[0].Action)
	assert.Equal(t, 1, snap.Plan[0].Step)
	assert.Equal(t, "处置报告", snap.Report)

	// Явная severity сервера важнее текстовой эвристики
	var sawCritical, sawSuccess bool
	for _, l := range snap.Logs {
		if l.Severity == domain.SeverityCritical {
			sawCritical = true
		}
		if l.Severity == domain.SeveritySuccess {
			sawSuccess = true
		}
	}
	assert.True(t, sawCritical)
	assert.True(t, sawSuccess)
}

func TestAnalyzeFailureDegradesToProxyReport(t *testing.T) {
	api := &fakeConsole{failAnalyze: true}
	o := NewOrchestrator(api, zap.NewNop())

	o.Trigger(context.Background(), domain.RiskVehicle)
	o.Wait()

	snap := o.Snapshot()
	// Никогда не застревает в thinking
	assert.Equal(t, domain.StateExecuting, snap.State)
	assert.Equal(t, "降级简报", snap.Report)

	var sawError bool
	for _, l := range snap.Logs {
		if l.Severity == domain.SeverityCritical {
			sawError = true
		}
	}
	assert.True(t, sawError, "degraded path must log the failure")
}

func TestProxyFailureYieldsApology(t *testing.T) {
	api := &fakeConsole{failAnalyze: true, failChat: true}
	o := NewOrchestrator(api, zap.NewNop())

	o.Trigger(context.Background(), domain.RiskPersonnel)
	o.Wait()

	assert.Equal(t, apologyText, o.Snapshot().Report)
}

func TestSensorFailureFallsBackToFixedSample(t *testing.T) {
	api := &fakeConsole{failSensors: true}
	o := NewOrchestrator(api, zap.NewNop())

	o.Trigger(context.Background(), domain.RiskGas)
	o.Wait()

	snap := o.Snapshot()
	require.NotNil(t, snap.Episode)
	assert.Equal(t, "瓦斯风险触发", snap.Episode.Title)
	assert.Equal(t, domain.StateExecuting, snap.State)

	var sawDegraded bool
	for _, l := range snap.Logs {
		if l.Message == "[数据层] 获取真实数据失败，使用降级模式" {
			sawDegraded = true
		}
	}
	assert.True(t, sawDegraded)
}

func TestResetDiscardsLateResponse(t *testing.T) {
	api := &fakeConsole{release: make(chan struct{})}
	o := NewOrchestrator(api, zap.NewNop())

	o.Trigger(context.Background(), domain.RiskGas)
	o.Reset()
	close(api.release) // поздний ответ приходит после Reset
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Nil(t, snap.Episode)
	assert.Empty(t, snap.Plan)
	assert.Empty(t, snap.Report)
	assert.Empty(t, snap.Logs)
}

func TestNewTriggerSupersedesInflightRun(t *testing.T) {
	api := &fakeConsole{release: make(chan struct{}, 1)}
	o := NewOrchestrator(api, zap.NewNop())

	o.Trigger(context.Background(), domain.RiskGas)
	// Второй запуск поднимает поколение; первый доработает впустую
	api.release <- struct{}{}
	o.Trigger(context.Background(), domain.RiskPersonnel)
	api.release <- struct{}{}
	o.Wait()

	snap := o.Snapshot()
	require.NotNil(t, snap.Episode)
	assert.Equal(t, domain.RiskPersonnel, snap.Episode.Type)
}

func TestAutoTriggerRendersServerResult(t *testing.T) {
	o := NewOrchestrator(&fakeConsole{}, zap.NewNop())

	o.HandleAgentFrame([]byte(`{
		"state": "completed",
		"risk_type": "gas",
		"risk_level": "high",
		"auto_triggered": true,
		"result": {
			"analysis": "瓦斯超限",
			"decision_plan": [{"action": "停止掘进", "reason": "超限"}],
			"report": "自动处置完成"
		}
	}`))

	snap := o.Snapshot()
	assert.Equal(t, domain.StateExecuting, snap.State)
	require.NotEmpty(t, snap.Plan)
	assert.Equal(t, "停止掘进", snap.Plan[0].Action)
	// auto по умолчанию true, step — индекс+1
	assert.True(t, snap.Plan[0].Auto)
	assert.Equal(t, 1, snap.Plan[0].Step)
	assert.Equal(t, "自动处置完成", snap.Report)
}

func TestClassifySeverity(t *testing.T) {
	assert.Equal(t, domain.SeverityCritical, ClassifySeverity("[决策层] 判定风险等级为: high"))
	assert.Equal(t, domain.SeveritySuccess, ClassifySeverity("[策略层] 生成 3 条管控指令"))
	assert.Equal(t, domain.SeveritySuccess, ClassifySeverity("[认知层] 风险特征分析完成"))
	assert.Equal(t, domain.SeverityWarning, ClassifySeverity("警告：压力波动"))
	assert.Equal(t, domain.SeverityInfo, ClassifySeverity("[感知层] 数据接入"))
}
