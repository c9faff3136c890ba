package audit

import "time"

// Триггер эпизода: кто его запустил.
const (
	TriggerAuto   = "auto"   // автономный монитор
	TriggerManual = "manual" // запрос оператора через /api/agent/analyze
)

// Статус завершения эпизода.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// EpisodeRecord — строка журнала рисковых эпизодов. Пишется один раз,
// после завершения конвейера анализа; промежуточные фазы не журналируются.
type EpisodeRecord struct {
	ID       string `json:"id"`        // UUID эпизода
	RiskType string `json:"risk_type"` // gas / personnel / vehicle
	Location string `json:"location"`

	Trigger string `json:"trigger"` // auto или manual
	Status  string `json:"status"`

	// Результат анализа
	RiskLevel string `json:"risk_level"`
	Analysis  string `json:"analysis"`
	Report    string `json:"report"`
	PlanSteps int    `json:"plan_steps"`

	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error"`
}
