package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// scriptedLLM отдает ответы по порядку вызовов Chat.
type scriptedLLM struct {
	answers []string
	errs    []error
	calls   int
}

func (s *scriptedLLM) Chat(ctx context.Context, prompt, system string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return "", errors.New("script exhausted")
}

func gasRequest() domain.AnalyzeRequest {
	return domain.AnalyzeRequest{
		RiskType:   domain.RiskGas,
		SensorData: map[string]any{"ch4": 0.92, "threshold": 0.5},
		Location:   "回风管路 A1段",
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	llm := &scriptedLLM{answers: []string{
		`{"level": "high", "analysis": "瓦斯浓度超限，存在爆燃风险。"}`,
		`[{"action": "停止掘进", "auto": true, "reason": "瓦斯超限"}, {"step": 2, "action": "人工复测", "auto": false, "reason": "规范要求"}]`,
		"处置报告正文",
	}}
	w := NewWorkflow(llm, NewKnowledgeBase(), zap.NewNop())

	resp, err := w.Analyze(context.Background(), gasRequest())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "high", resp.RiskLevel)
	assert.Equal(t, "瓦斯浓度超限，存在爆燃风险。", resp.Analysis)
	assert.Equal(t, "处置报告正文", resp.Report)

	require.Len(t, resp.DecisionPlan, 2)
	assert.Equal(t, "停止掘进", resp.DecisionPlan[0].Action)
	// step не пришел — проставляется индексом
	assert.Equal(t, 1, resp.DecisionPlan[0].Step)
	assert.False(t, resp.DecisionPlan[1].Auto)

	// Шаги рассуждений размечены явной severity
	var critical int
	for _, s := range resp.ReasoningSteps {
		if s.Severity == domain.SeverityCritical {
			critical++
		}
	}
	assert.Equal(t, 1, critical, "risk level verdict must carry critical severity")

	// По газу база знаний обязана что-то найти
	assert.NotEmpty(t, resp.RetrievedDocs)
}

func TestWorkflowMarkdownWrappedJSON(t *testing.T) {
	llm := &scriptedLLM{answers: []string{
		"```json\n{\"level\": \"critical\", \"analysis\": \"x\"}\n```",
		"```json\n[{\"step\": 1, \"action\": \"停机\", \"auto\": true, \"reason\": \"r\"}]\n```",
		"report",
	}}
	w := NewWorkflow(llm, NewKnowledgeBase(), zap.NewNop())

	resp, err := w.Analyze(context.Background(), gasRequest())
	require.NoError(t, err)
	assert.Equal(t, "critical", resp.RiskLevel)
	require.Len(t, resp.DecisionPlan, 1)
	assert.Equal(t, "停机", resp.DecisionPlan[0].Action)
}

func TestWorkflowProseAnswerFallsBackToHeuristicLevel(t *testing.T) {
	llm := &scriptedLLM{answers: []string{
		"浓度偏高，建议关注。", // не JSON
		"тоже не JSON",
		"report",
	}}
	w := NewWorkflow(llm, NewKnowledgeBase(), zap.NewNop())

	resp, err := w.Analyze(context.Background(), gasRequest())
	require.NoError(t, err)
	// gas -> high, проза целиком уходит в analysis
	assert.Equal(t, "high", resp.RiskLevel)
	assert.Equal(t, "浓度偏高，建议关注。", resp.Analysis)
	// План не разобрался — встал дефолтный
	assert.Equal(t, defaultPlan, resp.DecisionPlan)
}

func TestWorkflowAnalyzeFailureIsFatal(t *testing.T) {
	llm := &scriptedLLM{errs: []error{errors.New("llm down")}}
	w := NewWorkflow(llm, NewKnowledgeBase(), zap.NewNop())

	_, err := w.Analyze(context.Background(), gasRequest())
	assert.Error(t, err)
}

func TestWorkflowReportFailureIsTolerated(t *testing.T) {
	llm := &scriptedLLM{
		answers: []string{`{"level": "medium", "analysis": "x"}`, `[]`, ""},
		errs:    []error{nil, errors.New("plan down"), errors.New("report down")},
	}
	w := NewWorkflow(llm, NewKnowledgeBase(), zap.NewNop())

	resp, err := w.Analyze(context.Background(), domain.AnalyzeRequest{
		RiskType:   domain.RiskVehicle,
		SensorData: map[string]any{"pressure": 3.5},
		Location:   "后配套物流通道",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, defaultPlan, resp.DecisionPlan)
	assert.Empty(t, resp.Report)
}

func TestKnowledgeBaseSearch(t *testing.T) {
	kb := NewKnowledgeBase()

	docs := kb.Search("gas 风险处置规范", 3)
	require.NotEmpty(t, docs)
	assert.LessOrEqual(t, len(docs), 3)
	for _, d := range docs {
		assert.NotEmpty(t, d.Source)
	}

	assert.Empty(t, kb.Search("нет таких слов", 3))
}
