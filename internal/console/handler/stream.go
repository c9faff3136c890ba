package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/hub"
)

// StreamHandler — серверный конец SSE: один long-lived коннект на топик,
// кадры `event: message` с телом {"channel","payload"}, heartbeat отдельным
// типом события. Сервер stateless: переподключившийся клиент начинает
// с чистого листа, без курсора.
type StreamHandler struct {
	hub       *hub.Hub
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewStreamHandler(h *hub.Hub, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandler{hub: h, heartbeat: heartbeat, logger: logger.Named("sse")}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Первый кадр — heartbeat: клиент сразу видит живой коннект
	fmt.Fprint(w, "event: heartbeat\ndata: ok\n\n")
	flusher.Flush()

	events, cancel := h.hub.Subscribe(topic)
	defer cancel()

	h.logger.Debug("sse client connected", zap.String("topic", topic))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("sse client disconnected", zap.String("topic", topic))
			return
		case <-ticker.C:
			fmt.Fprint(w, "event: heartbeat\ndata: ok\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			body, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("drop unmarshalable frame", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", body)
			flusher.Flush()
		}
	}
}
