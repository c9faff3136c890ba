package domain

import "encoding/json"

// StreamEvent — кадр серверного push-потока (SSE).
// Channel — namespaced-имя (топик + метрика), Payload — сырой JSON,
// форму которого знает только подписчик конкретного канала.
type StreamEvent struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Топики SSE (один long-lived коннект на топик)
const (
	TopicDashboard   = "dashboard"
	TopicPersonnel   = "personnel"
	TopicProgress    = "progress"
	TopicSafety      = "safety"
	TopicAgentStatus = "agent-status"
)

// Каналы внутри топиков. Сервер может добавлять новые — старые клиенты
// обязаны молча игнорировать незнакомые имена (forward-compatible).
const (
	ChanAdvanceSpeed      = "dashboard.advanceSpeed"
	ChanSlurryPressure    = "dashboard.slurryPressure"
	ChanGasConcentration  = "dashboard.gasConcentration"
	ChanDashboardSummary  = "dashboard.summary"
	ChanAttendanceTrend   = "personnel.attendanceTrend"
	ChanPersonnelStats    = "personnel.stats"
	ChanDailyRings        = "progress.dailyRings"
	ChanProgressStats     = "progress.stats"
	ChanSettlementActual  = "safety.settlement.actual"
	ChanSettlementPredict = "safety.settlement.predict"
	ChanAlarmTrend        = "safety.alarmTrend"
	ChanAgent             = "agent"
)

// AgentFrame — кадр канала "agent" (топик agent-status).
// Приходит в двух видах: state=detecting (агент вмешался, анализ идет)
// и state=completed с готовым результатом (auto-trigger путь оркестратора).
type AgentFrame struct {
	State         string       `json:"state"`
	Message       string       `json:"message,omitempty"`
	RiskType      RiskType     `json:"risk_type,omitempty"`
	RiskLevel     string       `json:"risk_level,omitempty"`
	PlanCount     int          `json:"plan_count,omitempty"`
	AutoTriggered bool         `json:"auto_triggered,omitempty"`
	Result        *AgentResult `json:"result,omitempty"`
}

// AgentResult — предвычисленный результат серверного анализа.
type AgentResult struct {
	Analysis     string         `json:"analysis"`
	DecisionPlan []DecisionStep `json:"decision_plan"`
	Report       string         `json:"report"`
}
