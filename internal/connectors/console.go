package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// ConsoleClient — REST-клиент снапшот-эндпоинтов консоли. Используется
// headless-клиентом для начальной загрузки страниц и оркестратором
// рисков для запроса анализа.
type ConsoleClient struct {
	base   string
	hc     *http.Client
	logger *zap.Logger
}

func NewConsoleClient(baseURL string, logger *zap.Logger) *ConsoleClient {
	return &ConsoleClient{
		base:   baseURL,
		hc:     &http.Client{Timeout: 15 * time.Second},
		logger: logger.Named("console-client"),
	}
}

func (c *ConsoleClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *ConsoleClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *ConsoleClient) DashboardSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	var out domain.DashboardSummary
	if err := c.getJSON(ctx, "/api/dashboard/summary", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ConsoleClient) DashboardNotifications(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	if err := c.getJSON(ctx, "/api/dashboard/notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) DashboardSupplies(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	if err := c.getJSON(ctx, "/api/dashboard/supplies", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) DashboardDispatch(ctx context.Context) ([]domain.DispatchItem, error) {
	var out []domain.DispatchItem
	if err := c.getJSON(ctx, "/api/dashboard/dispatch", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) DashboardTimeseries(ctx context.Context) (*domain.TimeseriesSnapshot, error) {
	var out domain.TimeseriesSnapshot
	if err := c.getJSON(ctx, "/api/dashboard/timeseries", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ConsoleClient) PersonnelStats(ctx context.Context) (*domain.PersonnelStats, error) {
	var out domain.PersonnelStats
	if err := c.getJSON(ctx, "/api/personnel/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ConsoleClient) PersonnelDistribution(ctx context.Context) ([]domain.TeamShare, error) {
	var out []domain.TeamShare
	if err := c.getJSON(ctx, "/api/personnel/distribution", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) PersonnelList(ctx context.Context) ([]domain.Worker, error) {
	var out []domain.Worker
	if err := c.getJSON(ctx, "/api/personnel/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) PersonnelAttendanceTrend(ctx context.Context) ([]domain.SeriesPoint, error) {
	var out []domain.SeriesPoint
	if err := c.getJSON(ctx, "/api/personnel/attendanceTrend", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) ProgressStats(ctx context.Context) (*domain.ProgressStats, error) {
	var out domain.ProgressStats
	if err := c.getJSON(ctx, "/api/progress/stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ConsoleClient) ProgressGantt(ctx context.Context) ([]domain.GanttTask, error) {
	var out []domain.GanttTask
	if err := c.getJSON(ctx, "/api/progress/gantt", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) ProgressDailyRings(ctx context.Context) ([]domain.SeriesPoint, error) {
	var out []domain.SeriesPoint
	if err := c.getJSON(ctx, "/api/progress/dailyRings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) SafetyRisks(ctx context.Context) ([]domain.RiskItem, error) {
	var out []domain.RiskItem
	if err := c.getJSON(ctx, "/api/safety/risks", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) SafetySettlement(ctx context.Context) (*domain.SettlementSnapshot, error) {
	var out domain.SettlementSnapshot
	if err := c.getJSON(ctx, "/api/safety/settlement", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ConsoleClient) SafetyScore(ctx context.Context) (int, error) {
	var out struct {
		Score int `json:"score"`
	}
	if err := c.getJSON(ctx, "/api/safety/score", &out); err != nil {
		return 0, err
	}
	return out.Score, nil
}

func (c *ConsoleClient) SafetyAlarmTrend(ctx context.Context) ([]domain.SeriesPoint, error) {
	var out []domain.SeriesPoint
	if err := c.getJSON(ctx, "/api/safety/alarmTrend", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) VideoList(ctx context.Context) ([]domain.Camera, error) {
	var out []domain.Camera
	if err := c.getJSON(ctx, "/api/video/list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentAnalyze гоняет серверный конвейер анализа риска.
func (c *ConsoleClient) AgentAnalyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	var out domain.AnalyzeResponse
	if err := c.postJSON(ctx, "/api/agent/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AIChat — прямой прокси к большой модели, деградационный путь
// оркестратора когда полный конвейер недоступен.
func (c *ConsoleClient) AIChat(ctx context.Context, prompt string) (string, error) {
	in := map[string]string{"prompt": prompt}
	var out struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/api/ai/deepseek", in, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
