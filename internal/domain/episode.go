package domain

import "encoding/json"

type RiskType string

const (
	RiskPersonnel RiskType = "personnel"
	RiskGas       RiskType = "gas"
	RiskVehicle   RiskType = "vehicle"
)

// RunState — фазы работы оркестратора рисковых сценариев.
// Движение строго вперед в рамках одного эпизода; назад в idle —
// только явный Reset или запуск нового эпизода.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateDetecting RunState = "detecting"
	StateThinking  RunState = "thinking"
	StateDeciding  RunState = "deciding"
	StateExecuting RunState = "executing"
)

// RiskEpisode — один жизненный цикл сработавшего сценария.
// Живет только в памяти; Level пуст, пока анализ не вернулся.
type RiskEpisode struct {
	ID         string            `json:"id"`
	Type       RiskType          `json:"type"`
	Title      string            `json:"title"`
	Location   string            `json:"location"`
	Level      string            `json:"level"`
	DetectedBy string            `json:"detectedBy"`
	Timestamp  string            `json:"timestamp"`
	Metrics    map[string]string `json:"metrics"`
}

// DecisionStep — строка плана управляющих мер. План приходит целиком
// из анализа и заменяется, никогда не мутирует по одной строке.
type DecisionStep struct {
	Step   int    `json:"step"`
	Action string `json:"action"`
	Auto   bool   `json:"auto"`
	Reason string `json:"reason"`
}

// UnmarshalJSON: отсутствующее поле auto трактуем как true —
// сервер помечает только то, что требует ручного подтверждения.
func (d *DecisionStep) UnmarshalJSON(data []byte) error {
	var raw struct {
		Step   int    `json:"step"`
		Action string `json:"action"`
		Auto   *bool  `json:"auto"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Step = raw.Step
	d.Action = raw.Action
	d.Reason = raw.Reason
	d.Auto = raw.Auto == nil || *raw.Auto
	return nil
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
	SeveritySuccess  Severity = "success"
)

// LogEntry — строка видимого журнала агента.
type LogEntry struct {
	ID       int64    `json:"id"`
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}

// AnalyzeRequest — запрос к /api/agent/analyze.
type AnalyzeRequest struct {
	RiskType   RiskType       `json:"risk_type"`
	SensorData map[string]any `json:"sensor_data"`
	Location   string         `json:"location"`
}

// ReasoningStep — шаг рассуждения серверного воркфлоу. Severity может
// отсутствовать у старых серверов — тогда клиент классифицирует по тексту.
type ReasoningStep struct {
	Node     string   `json:"node,omitempty"`
	Time     string   `json:"time,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity,omitempty"`
}

type RetrievedDoc struct {
	Content   string  `json:"content"`
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance"`
}

// AnalyzeResponse — структурированный результат анализа риска.
type AnalyzeResponse struct {
	Success        bool            `json:"success"`
	RiskLevel      string          `json:"risk_level,omitempty"`
	Analysis       string          `json:"analysis,omitempty"`
	ReasoningSteps []ReasoningStep `json:"reasoning_steps,omitempty"`
	DecisionPlan   []DecisionStep  `json:"decision_plan,omitempty"`
	RetrievedDocs  []RetrievedDoc  `json:"retrieved_docs,omitempty"`
	Report         string          `json:"report,omitempty"`
	Error          string          `json:"error,omitempty"`
}
