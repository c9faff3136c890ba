// Package agent — оркестратор рисковых сценариев опер-стены.
// Последовательность detecting → thinking → deciding → executing поверх
// серверного анализа, с деградацией до одиночного запроса к модели.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// ConsoleAPI — срез REST-клиента консоли, нужный оркестратору:
// живые сенсоры для фазы detecting, анализ и деградационный прокси.
type ConsoleAPI interface {
	DashboardTimeseries(ctx context.Context) (*domain.TimeseriesSnapshot, error)
	PersonnelStats(ctx context.Context) (*domain.PersonnelStats, error)
	AgentAnalyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error)
	AIChat(ctx context.Context, prompt string) (string, error)
}

const (
	gasThreshold      = 0.5
	pressureThreshold = 3.0

	// Ответ деградационного пути, когда и прокси недоступен
	apologyText = "连接大模型服务失败，请检查网络或配额。"
)

// Orchestrator держит один активный эпизод. Поздние ответы отсекаются
// счетчиком поколений: Reset и новый Trigger поднимают поколение,
// и все продолжения старого запуска применяться перестают.
type Orchestrator struct {
	api    ConsoleAPI
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	state   domain.RunState
	episode *domain.RiskEpisode
	logs    []domain.LogEntry
	plan    []domain.DecisionStep
	report  string
	logSeq  int64

	wg sync.WaitGroup
}

func NewOrchestrator(api ConsoleAPI, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		api:    api,
		logger: logger.Named("risk-agent"),
		state:  domain.StateIdle,
	}
}

// apply выполняет мутацию состояния, только если поколение не ушло
// вперед с момента старта запуска-владельца.
func (o *Orchestrator) apply(gen uint64, fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return false
	}
	fn()
	return true
}

func (o *Orchestrator) addLog(message string, sev domain.Severity) {
	o.logSeq++
	o.logs = append(o.logs, domain.LogEntry{ID: o.logSeq, Message: message, Severity: sev})
}

// Trigger запускает ручной сценарий. Повторный вызов при работающем
// запуске не ждет его: поколение поднимается, старый запуск доработает
// вхолостую и его результаты будут отброшены.
func (o *Orchestrator) Trigger(ctx context.Context, riskType domain.RiskType) {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.state = domain.StateDetecting
	o.episode = nil
	o.logs = nil
	o.plan = nil
	o.report = ""
	o.addLog("[感知层] 正在从后端获取真实传感器数据...", domain.SeverityInfo)
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx, gen, riskType)
	}()
}

// Reset возвращает оркестратор в idle. Незавершенные запуски не
// отменяются, но их поколение уже недействительно.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.state = domain.StateIdle
	o.episode = nil
	o.logs = nil
	o.plan = nil
	o.report = ""
}

// Wait дожидается фоновых запусков; нужен тестам и graceful shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, gen uint64, riskType domain.RiskType) {
	episode, sensorData := o.detect(ctx, gen, riskType)

	if !o.apply(gen, func() {
		o.episode = episode
		o.addLog(fmt.Sprintf("[感知层] 接收到 %s 异常信号", episode.DetectedBy), domain.SeverityWarning)
		o.state = domain.StateThinking
		o.addLog("[智能体] 正在调用风险分析工作流...", domain.SeverityInfo)
	}) {
		return
	}

	resp, err := o.api.AgentAnalyze(ctx, domain.AnalyzeRequest{
		RiskType:   riskType,
		SensorData: sensorData,
		Location:   episode.Location,
	})
	if err == nil && resp != nil && !resp.Success {
		if resp.Error != "" {
			err = fmt.Errorf("%s", resp.Error)
		} else {
			err = fmt.Errorf("智能体分析失败")
		}
	}
	if err != nil {
		o.degrade(ctx, gen, episode, err)
		return
	}

	o.apply(gen, func() {
		level := resp.RiskLevel
		if level == "" {
			level = "未知"
		}
		o.episode.Level = level

		for _, step := range resp.ReasoningSteps {
			sev := step.Severity
			if sev == "" {
				sev = ClassifySeverity(step.Message)
			}
			o.addLog(step.Message, sev)
		}

		o.state = domain.StateDeciding
		if n := len(resp.RetrievedDocs); n > 0 {
			o.addLog(fmt.Sprintf("[知识库] 检索到 %d 条相关规范", n), domain.SeverityInfo)
		}

		o.state = domain.StateExecuting
		plan := make([]domain.DecisionStep, len(resp.DecisionPlan))
		copy(plan, resp.DecisionPlan)
		for i := range plan {
			if plan[i].Step == 0 {
				plan[i].Step = i + 1
			}
		}
		o.plan = plan
		o.addLog(fmt.Sprintf("[执行层] 已生成 %d 条管控指令", len(plan)), domain.SeveritySuccess)

		if resp.Report != "" {
			o.report = resp.Report
		}
	})
}

// degrade — запасной путь: анализ недоступен, но оркестратор все равно
// доходит до executing и пробует снять простой отчет через AI-прокси.
func (o *Orchestrator) degrade(ctx context.Context, gen uint64, episode *domain.RiskEpisode, cause error) {
	if !o.apply(gen, func() {
		o.addLog(fmt.Sprintf("[错误] %s", cause.Error()), domain.SeverityCritical)
		o.state = domain.StateExecuting
		o.addLog("[降级] 使用简化模式生成处置建议...", domain.SeverityWarning)
	}) {
		return
	}

	metrics, _ := json.Marshal(episode.Metrics)
	prompt := fmt.Sprintf(`风险事件：%s
监测位置：%s
关键指标：%s

作为盾构施工安全专家，请生成一份简短的应急处置与原因分析报告。
格式要求：
1. 风险成因研判
2. 立即管控措施 (3条)
3. 后续检查建议`, episode.Title, episode.Location, metrics)

	report, err := o.api.AIChat(ctx, prompt)
	if err != nil || report == "" {
		o.logger.Warn("degraded report request failed", zap.Error(err))
		report = apologyText
	}
	o.apply(gen, func() { o.report = report })
}

// detect снимает живые показания под тип сценария; при недоступности
// бэкенда подставляет фиксированную пробу и помечает журнал.
func (o *Orchestrator) detect(ctx context.Context, gen uint64, riskType domain.RiskType) (*domain.RiskEpisode, map[string]any) {
	episode := &domain.RiskEpisode{
		ID:        fmt.Sprintf("RISK-%d", time.Now().UnixMilli()),
		Type:      riskType,
		Timestamp: time.Now().Format("15:04:05"),
	}
	var sensorData map[string]any

	switch riskType {
	case domain.RiskGas:
		episode.Location = "回风管路 A1段"
		episode.DetectedBy = "多气体传感器组 G-12"
		snap, err := o.api.DashboardTimeseries(ctx)
		if err != nil || len(snap.GasConcentration) == 0 {
			o.markDegraded(gen, err)
			sensorData = map[string]any{"ch4": 0.92, "threshold": gasThreshold, "trend": "rising", "source": "fallback"}
			episode.Title = "瓦斯风险触发"
			episode.Metrics = map[string]string{"ch4": "0.92", "trend": "rising"}
			break
		}
		gas := snap.GasConcentration[len(snap.GasConcentration)-1].Value
		trend := "stable"
		if gas > gasThreshold {
			trend = "rising"
			episode.Title = "瓦斯浓度异常超限"
		} else {
			episode.Title = "瓦斯浓度正常监测"
		}
		sensorData = map[string]any{"ch4": gas, "threshold": gasThreshold, "trend": trend, "source": "realtime"}
		episode.Metrics = map[string]string{
			"ch4":   fmt.Sprintf("%.2f%% (阈值 %.0f%%)", gas*100, gasThreshold*100),
			"trend": trend,
		}
		o.logDetect(gen, fmt.Sprintf("[数据层] 瓦斯浓度: %.2f%%", gas*100), gas > gasThreshold, domain.SeverityCritical)

	case domain.RiskPersonnel:
		episode.Location = "管片拼装区 B2段"
		episode.DetectedBy = "AI视觉识别相机 #04"
		stats, err := o.api.PersonnelStats(ctx)
		if err != nil {
			o.markDegraded(gen, err)
			sensorData = map[string]any{"totalOnSite": 48, "violations": 2, "source": "fallback"}
			episode.Title = "人员风险触发"
			episode.Metrics = map[string]string{"在场人数": "48人", "违规数": "2"}
			break
		}
		if stats.Violations > 0 {
			episode.Title = "人员违规行为检测"
		} else {
			episode.Title = "人员分布监测"
		}
		sensorData = map[string]any{
			"totalOnSite":    stats.TotalOnSite,
			"violations":     stats.Violations,
			"attendanceRate": stats.AttendanceRate,
			"source":         "realtime",
		}
		episode.Metrics = map[string]string{
			"在场人数": fmt.Sprintf("%d人", stats.TotalOnSite),
			"违规数":  fmt.Sprintf("%d", stats.Violations),
			"出勤率":  stats.AttendanceRate,
		}
		o.logDetect(gen, fmt.Sprintf("[数据层] 在场人员: %d人, 违规: %d", stats.TotalOnSite, stats.Violations),
			stats.Violations > 0, domain.SeverityWarning)

	case domain.RiskVehicle:
		episode.Location = "后配套物流通道"
		episode.DetectedBy = "UWB定位 + 压力传感器"
		snap, err := o.api.DashboardTimeseries(ctx)
		if err != nil || len(snap.SlurryPressure) == 0 {
			o.markDegraded(gen, err)
			sensorData = map[string]any{"pressure": 3.5, "threshold": pressureThreshold, "source": "fallback"}
			episode.Title = "设备风险触发"
			episode.Metrics = map[string]string{"压力值": "3.50 bar"}
			break
		}
		pressure := snap.SlurryPressure[len(snap.SlurryPressure)-1].Value
		status := "normal"
		if pressure > pressureThreshold {
			status = "warning"
			episode.Title = "设备压力异常预警"
		} else {
			episode.Title = "物流设备状态监测"
		}
		sensorData = map[string]any{"pressure": pressure, "threshold": pressureThreshold, "status": status, "source": "realtime"}
		episode.Metrics = map[string]string{
			"压力值": fmt.Sprintf("%.2f bar (阈值 %.1f)", pressure, pressureThreshold),
			"状态":  status,
		}
		o.logDetect(gen, fmt.Sprintf("[数据层] 设备压力: %.2f bar", pressure),
			pressure > pressureThreshold, domain.SeverityWarning)
	}

	return episode, sensorData
}

func (o *Orchestrator) markDegraded(gen uint64, err error) {
	o.logger.Warn("sensor fetch failed, using fallback sample", zap.Error(err))
	o.apply(gen, func() {
		o.addLog("[数据层] 获取真实数据失败，使用降级模式", domain.SeverityWarning)
	})
}

func (o *Orchestrator) logDetect(gen uint64, message string, exceeded bool, exceededSev domain.Severity) {
	sev := domain.SeverityInfo
	if exceeded {
		sev = exceededSev
	}
	o.apply(gen, func() { o.addLog(message, sev) })
}

// HandleAgentFrame — обработчик канала "agent": серверный авто-триггер
// приносит либо сигнал начала анализа, либо готовый результат, который
// рендерится без собственного вызова анализа.
func (o *Orchestrator) HandleAgentFrame(payload json.RawMessage) {
	var frame domain.AgentFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		o.logger.Warn("bad agent frame payload", zap.Error(err))
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++

	switch frame.State {
	case "detecting":
		o.state = domain.StateDetecting
		o.episode = nil
		o.plan = nil
		o.report = ""
		o.logs = nil
		if frame.Message != "" {
			o.addLog(frame.Message, domain.SeverityWarning)
		}
	case "completed":
		o.state = domain.StateExecuting
		o.episode = &domain.RiskEpisode{
			ID:        fmt.Sprintf("RISK-%d", time.Now().UnixMilli()),
			Type:      frame.RiskType,
			Title:     frame.Message,
			Level:     frame.RiskLevel,
			Timestamp: time.Now().Format("15:04:05"),
		}
		if frame.Result != nil {
			plan := make([]domain.DecisionStep, len(frame.Result.DecisionPlan))
			copy(plan, frame.Result.DecisionPlan)
			for i := range plan {
				if plan[i].Step == 0 {
					plan[i].Step = i + 1
				}
			}
			o.plan = plan
			o.report = frame.Result.Report
		}
		o.addLog(fmt.Sprintf("[自动监测] 服务端已完成 %s 风险处置, 等级 %s", frame.RiskType, frame.RiskLevel),
			domain.SeveritySuccess)
	default:
		o.logger.Debug("ignoring agent frame", zap.String("state", frame.State))
	}
}

// Snapshot — копия видимого состояния для рендера.
type Snapshot struct {
	State   domain.RunState
	Episode *domain.RiskEpisode
	Logs    []domain.LogEntry
	Plan    []domain.DecisionStep
	Report  string
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{State: o.state, Report: o.report}
	if o.episode != nil {
		cp := *o.episode
		snap.Episode = &cp
	}
	snap.Logs = make([]domain.LogEntry, len(o.logs))
	copy(snap.Logs, o.logs)
	snap.Plan = make([]domain.DecisionStep, len(o.plan))
	copy(snap.Plan, o.plan)
	return snap
}

// ClassifySeverity — совместимость со старыми серверами, не ставящими
// явную severity на шаги рассуждений: классификация по подстроке.
func ClassifySeverity(message string) domain.Severity {
	switch {
	case strings.Contains(message, "风险等级"):
		return domain.SeverityCritical
	case strings.Contains(message, "生成"), strings.Contains(message, "完成"):
		return domain.SeveritySuccess
	case strings.Contains(message, "警告"):
		return domain.SeverityWarning
	default:
		return domain.SeverityInfo
	}
}
