// Package risk — серверный воркфлоу анализа рискового сценария:
// 感知 → 分析 → 检索 → 规划 → 执行 → 报告.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/connectors"
	"github.com/xela07ax/tunnelops-console/internal/domain"
)

type Workflow struct {
	llm    connectors.ChatProvider
	kb     *KnowledgeBase
	logger *zap.Logger
}

func NewWorkflow(llm connectors.ChatProvider, kb *KnowledgeBase, logger *zap.Logger) *Workflow {
	return &Workflow{llm: llm, kb: kb, logger: logger.Named("risk-workflow")}
}

// state — сквозное состояние прогона, передается между узлами.
type state struct {
	req   domain.AnalyzeRequest
	steps []domain.ReasoningStep

	riskLevel string
	analysis  string
	docs      []domain.RetrievedDoc
	plan      []domain.DecisionStep
	report    string
}

func (st *state) addStep(node, message string, severity domain.Severity) {
	st.steps = append(st.steps, domain.ReasoningStep{
		Node:     node,
		Time:     time.Now().Format(time.RFC3339),
		Message:  message,
		Severity: severity,
	})
}

// Analyze прогоняет запрос через все узлы. Ошибка возвращается только
// если отказал сам LLM на стадии анализа: частичные результаты
// остальных стадий заменяются дефолтами, а не валят прогон.
func (w *Workflow) Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	st := &state{req: req}

	w.perceive(st)
	if err := w.analyze(ctx, st); err != nil {
		w.logger.Error("risk analysis failed", zap.String("risk_type", string(req.RiskType)), zap.Error(err))
		return nil, err
	}
	w.retrieve(st)
	w.plan(ctx, st)
	w.execute(st)
	w.makeReport(ctx, st)

	w.logger.Info("risk analysis completed",
		zap.String("risk_type", string(req.RiskType)),
		zap.String("risk_level", st.riskLevel),
		zap.Int("plan_steps", len(st.plan)))

	return &domain.AnalyzeResponse{
		Success:        true,
		RiskLevel:      st.riskLevel,
		Analysis:       st.analysis,
		ReasoningSteps: st.steps,
		DecisionPlan:   st.plan,
		RetrievedDocs:  st.docs,
		Report:         st.report,
	}, nil
}

// perceive — сбор и фиксация входных данных.
func (w *Workflow) perceive(st *state) {
	st.addStep("perceive",
		fmt.Sprintf("[感知层] 接收到风险信号，类型: %s", st.req.RiskType),
		domain.SeverityWarning)

	raw, _ := json.Marshal(st.req.SensorData)
	st.addStep("perceive",
		fmt.Sprintf("[数据层] 聚合传感器数据: %s", raw),
		domain.SeverityInfo)
}

// analyze — LLM определяет уровень риска.
func (w *Workflow) analyze(ctx context.Context, st *state) error {
	raw, _ := json.Marshal(st.req.SensorData)
	prompt := fmt.Sprintf(`作为盾构隧道施工安全专家，分析以下风险：

风险类型: %s
传感器数据: %s
位置: %s

请判断风险等级（low/medium/high/critical）并给出初步分析。
返回 JSON 格式: {"level": "...", "analysis": "..."}`,
		st.req.RiskType, raw, st.req.Location)

	answer, err := w.llm.Chat(ctx, prompt, "")
	if err != nil {
		return fmt.Errorf("analyze node: %w", err)
	}

	var parsed struct {
		Level    string `json:"level"`
		Analysis string `json:"analysis"`
	}
	if jsonErr := json.Unmarshal([]byte(extractJSON(answer)), &parsed); jsonErr == nil && parsed.Level != "" {
		st.riskLevel = parsed.Level
		st.analysis = parsed.Analysis
	} else {
		// Модель ответила прозой: уровень берем по типу риска,
		// текст ответа целиком считаем анализом
		if st.req.RiskType == domain.RiskGas {
			st.riskLevel = "high"
		} else {
			st.riskLevel = "medium"
		}
		st.analysis = answer
	}

	st.addStep("analyze", "[认知层] 风险特征分析完成", domain.SeverityInfo)
	st.addStep("analyze",
		fmt.Sprintf("[决策层] 判定风险等级为: %s", st.riskLevel),
		domain.SeverityCritical)
	return nil
}

// retrieve — подбор регламентной подложки из базы знаний.
func (w *Workflow) retrieve(st *state) {
	st.addStep("retrieve", "[知识库] 检索《盾构施工安全规范》及历史案例库...", domain.SeverityInfo)

	query := fmt.Sprintf("%s 风险处置规范", st.req.RiskType)
	st.docs = w.kb.Search(query, 3)

	st.addStep("retrieve",
		fmt.Sprintf("[知识库] 检索到 %d 条相关规范", len(st.docs)),
		domain.SeverityInfo)
}

var defaultPlan = []domain.DecisionStep{
	{Step: 1, Action: "启动应急响应程序", Auto: true, Reason: "通用安全规范"},
	{Step: 2, Action: "通知现场安全员", Auto: true, Reason: "人员管理规定"},
	{Step: 3, Action: "持续监测相关参数", Auto: true, Reason: "监控要求"},
}

// plan — LLM генерит управляющие меры; при сбое или неразборчивом
// ответе встает дефолтный план.
func (w *Workflow) plan(ctx context.Context, st *state) {
	var docsText strings.Builder
	for _, d := range st.docs {
		docsText.WriteString(d.Content)
		docsText.WriteByte('\n')
	}
	raw, _ := json.Marshal(st.req.SensorData)

	prompt := fmt.Sprintf(`作为盾构隧道安全管控智能体，根据以下信息生成处置方案：

风险类型: %s
风险等级: %s
分析结果: %s
传感器数据: %s

参考规范:
%s

请生成 3-5 条具体的管控措施，按优先级排序。
返回 JSON 数组格式: [{"step": 1, "action": "...", "auto": true/false, "reason": "..."}]

其中 auto 表示是否可自动执行，reason 说明依据的规范条款。`,
		st.req.RiskType, st.riskLevel, st.analysis, raw, docsText.String())

	st.plan = defaultPlan
	answer, err := w.llm.Chat(ctx, prompt, "")
	if err != nil {
		w.logger.Warn("plan node degraded to default plan", zap.Error(err))
	} else {
		var parsed []domain.DecisionStep
		if jsonErr := json.Unmarshal([]byte(extractJSON(answer)), &parsed); jsonErr == nil && len(parsed) > 0 {
			for i := range parsed {
				if parsed[i].Step == 0 {
					parsed[i].Step = i + 1
				}
			}
			st.plan = parsed
		}
	}

	st.addStep("plan",
		fmt.Sprintf("[策略层] 生成 %d 条管控指令", len(st.plan)),
		domain.SeveritySuccess)
}

// execute — автоматические меры уходят в исполнение, остальные ждут
// подтверждения оператора.
func (w *Workflow) execute(st *state) {
	autoCount := 0
	for _, p := range st.plan {
		if p.Auto {
			autoCount++
		}
	}
	st.addStep("execute",
		fmt.Sprintf("[执行层] 已自动执行 %d 条指令，等待人工确认 %d 条", autoCount, len(st.plan)-autoCount),
		domain.SeveritySuccess)
}

// makeReport — финальный отчет. Его отсутствие не фатально: фронт
// умеет жить без поля report.
func (w *Workflow) makeReport(ctx context.Context, st *state) {
	planRaw, _ := json.Marshal(st.plan)
	prompt := fmt.Sprintf(`生成简要的风险处置报告:

风险类型: %s
风险等级: %s
分析结果: %s
处置方案: %s

格式要求:
1. 风险成因研判
2. 已采取措施
3. 后续建议`,
		st.req.RiskType, st.riskLevel, st.analysis, planRaw)

	report, err := w.llm.Chat(ctx, prompt, "")
	if err != nil {
		w.logger.Warn("report node skipped", zap.Error(err))
		return
	}
	st.report = report
}

// extractJSON срезает markdown-обертку ```json ... ```, которую модели
// любят добавлять вокруг структурированного ответа.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
