// Package hub — серверная раздача push-потока: топик → множество
// подписчиков с ограниченными очередями.
package hub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/metrics"
)

// subscriberBuffer — глубина очереди одного подписчика. Медленный
// клиент теряет кадры, но не тормозит остальных (load shedding).
const subscriberBuffer = 1024

type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan domain.StreamEvent]struct{}
	logger *zap.Logger
	m      *metrics.Metrics
}

func New(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Hub{
		topics: make(map[string]map[chan domain.StreamEvent]struct{}),
		logger: logger.Named("sse-hub"),
		m:      m,
	}
}

// Subscribe регистрирует подписчика топика. Возвращенный cancel обязан
// быть вызван на выходе — иначе канал протечет.
func (h *Hub) Subscribe(topic string) (<-chan domain.StreamEvent, func()) {
	ch := make(chan domain.StreamEvent, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan domain.StreamEvent]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()
	h.m.StreamSubscribers.WithLabelValues(topic).Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			h.mu.Unlock()
			h.m.StreamSubscribers.WithLabelValues(topic).Dec()
		})
	}
	return ch, cancel
}

// Broadcast доставляет кадр всем подписчикам топика. Доставка
// best-effort: переполненная очередь — кадр подписчику не достается.
func (h *Hub) Broadcast(topic string, evt domain.StreamEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.m.FramesBroadcast.WithLabelValues(topic).Inc()
	for ch := range h.topics[topic] {
		select {
		case ch <- evt:
		default:
			h.m.FramesDropped.WithLabelValues(topic).Inc()
			h.logger.Warn("subscriber queue full, frame dropped",
				zap.String("topic", topic),
				zap.String("channel", evt.Channel))
		}
	}
}

// Subscribers — текущее число подписчиков топика (для метрик).
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
