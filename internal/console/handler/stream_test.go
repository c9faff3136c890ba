package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/hub"
)

func newStreamServer(t *testing.T, h *hub.Hub, heartbeat time.Duration) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/stream/{topic}", NewStreamHandler(h, heartbeat, zap.NewNop()).Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func waitSubscriber(t *testing.T, h *hub.Hub, topic string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Первый кадр любого коннекта — heartbeat, затем — опубликованные кадры
// в формате event: message / data: {"channel","payload"}.
func TestStreamDeliversHeartbeatThenFrames(t *testing.T) {
	h := hub.New(zap.NewNop(), nil)
	srv := newStreamServer(t, h, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/dashboard", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: heartbeat\n", line)

	waitSubscriber(t, h, domain.TopicDashboard)
	h.Broadcast(domain.TopicDashboard, domain.StreamEvent{
		Channel: domain.ChanGasConcentration,
		Payload: json.RawMessage(`{"ts":"2026-08-29T08:00:00Z","value":0.42}`),
	})

	// Пропускаем хвост heartbeat-кадра, ищем кадр данных
	var dataLine string
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: message\n" {
			dataLine, err = reader.ReadString('\n')
			require.NoError(t, err)
			break
		}
	}

	var frame domain.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(dataLine[len("data: "):]), &frame))
	assert.Equal(t, domain.ChanGasConcentration, frame.Channel)
	assert.JSONEq(t, `{"ts":"2026-08-29T08:00:00Z","value":0.42}`, string(frame.Payload))
}

// Отвал клиента снимает подписку: очередь не течет.
func TestStreamUnsubscribesOnDisconnect(t *testing.T) {
	h := hub.New(zap.NewNop(), nil)
	srv := newStreamServer(t, h, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/safety", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	waitSubscriber(t, h, domain.TopicSafety)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(domain.TopicSafety) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription leaked after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Heartbeat уходит сам по тикеру, даже когда кадров нет.
func TestStreamPeriodicHeartbeat(t *testing.T) {
	h := hub.New(zap.NewNop(), nil)
	srv := newStreamServer(t, h, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/progress", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	beats := 0
	for beats < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: heartbeat\n" {
			beats++
		}
	}
}
