package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/console/handler"
	"github.com/xela07ax/tunnelops-console/internal/infra"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Обработчики бизнес-доменов
	dashHandler      *handler.DashboardHandler // /api/dashboard
	personnelHandler *handler.PersonnelHandler // /api/personnel
	progressHandler  *handler.ProgressHandler  // /api/progress
	safetyHandler    *handler.SafetyHandler    // /api/safety
	videoHandler     *handler.VideoHandler     // /api/video
	streamHandler    *handler.StreamHandler    // /api/stream/{topic} (SSE)
	agentHandler     *handler.AgentHandler     // /api/agent
	aiHandler        *handler.AIHandler        // /api/ai/{provider}
}

// NewConsoleServer инициализирует сервер опер-стены со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	dashH *handler.DashboardHandler,
	personnelH *handler.PersonnelHandler,
	progressH *handler.ProgressHandler,
	safetyH *handler.SafetyHandler,
	videoH *handler.VideoHandler,
	streamH *handler.StreamHandler,
	agentH *handler.AgentHandler,
	aiH *handler.AIHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:           chi.NewRouter(),
		logger:           logger.Named("console-api"),
		cfg:              cfg,
		dashHandler:      dashH,
		personnelHandler: personnelH,
		progressHandler:  progressH,
		safetyHandler:    safetyH,
		videoHandler:     videoH,
		streamHandler:    streamH,
		agentHandler:     agentH,
		aiHandler:        aiH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Healthcheck для мониторинга
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Снапшоты главного экрана
	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/summary", s.dashHandler.GetSummary)
		r.Get("/notifications", s.dashHandler.GetNotifications)
		r.Get("/supplies", s.dashHandler.GetSupplies)
		r.Get("/dispatch", s.dashHandler.GetDispatch)
		r.Get("/timeseries", s.dashHandler.GetTimeseries)
	})

	r.Route("/api/personnel", func(r chi.Router) {
		r.Get("/stats", s.personnelHandler.GetStats)
		r.Get("/distribution", s.personnelHandler.GetDistribution)
		r.Get("/list", s.personnelHandler.GetList)
		r.Get("/attendanceTrend", s.personnelHandler.GetAttendanceTrend)
	})

	r.Route("/api/progress", func(r chi.Router) {
		r.Get("/stats", s.progressHandler.GetStats)
		r.Get("/gantt", s.progressHandler.GetGantt)
		r.Get("/dailyRings", s.progressHandler.GetDailyRings)
	})

	r.Route("/api/safety", func(r chi.Router) {
		r.Get("/risks", s.safetyHandler.GetRisks)
		r.Get("/settlement", s.safetyHandler.GetSettlement)
		r.Get("/score", s.safetyHandler.GetScore)
		r.Get("/alarmTrend", s.safetyHandler.GetAlarmTrend)
	})

	r.Route("/api/video", func(r chi.Router) {
		r.Get("/list", s.videoHandler.GetList)
		r.Post("/add", s.videoHandler.Add)
	})

	// Server-push: один long-lived коннект на топик
	r.Get("/api/stream/{topic}", s.streamHandler.Stream)

	// Серверный конвейер анализа риска
	r.Post("/api/agent/analyze", s.agentHandler.Analyze)

	// AI-прокси. HandleFunc вместо Post: контракт требует 405 в JSON
	// на неверный метод, а не дефолтный ответ роутера
	r.HandleFunc("/api/ai/{provider}", s.aiHandler.Chat)
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
