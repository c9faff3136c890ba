package hub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/infra"
)

// Bus связывает планировщик, Redis Pub/Sub и локальный hub: несколько
// реплик консоли делят одну телеметрическую шину.
type Bus struct {
	hub    *Hub
	rdb    *redis.Client
	logger *zap.Logger
}

func NewBus(h *Hub, rdb *redis.Client, logger *zap.Logger) *Bus {
	return &Bus{hub: h, rdb: rdb, logger: logger.Named("telemetry-bus")}
}

// Publish шлет кадр в Redis-канал топика. Если Redis недоступен —
// деградируем до локальной раздачи, чтобы своя реплика не ослепла.
func (b *Bus) Publish(ctx context.Context, topic, channel string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("frame payload not serializable",
			zap.String("channel", channel), zap.Error(err))
		return
	}
	evt := domain.StreamEvent{Channel: channel, Payload: raw}

	if b.rdb != nil {
		body, _ := json.Marshal(evt)
		if err := b.rdb.Publish(ctx, infra.RedisChanStream(topic), body).Err(); err == nil {
			return
		}
		b.logger.Warn("redis publish failed, falling back to local broadcast",
			zap.String("topic", topic), zap.Error(err))
	}
	b.hub.Broadcast(topic, evt)
}

// ListenResilient — живучая подписка на шину: переподключение при
// обрывах, разбор кадров, раздача в локальный hub. Блокируется до
// отмены ctx.
func (b *Bus) ListenResilient(ctx context.Context) {
	if b.rdb == nil {
		return
	}

	for {
		pubsub := b.rdb.PSubscribe(ctx, infra.RedisChanStream("*"))

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			b.logger.Error("failed to subscribe to telemetry bus", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				topic := topicFromRedisChannel(msg.Channel)
				if topic == "" {
					continue
				}

				var evt domain.StreamEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.logger.Warn("malformed frame on telemetry bus",
						zap.String("redis_channel", msg.Channel))
					continue
				}
				b.hub.Broadcast(topic, evt)
			}
		}

		pubsub.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func topicFromRedisChannel(redisChan string) string {
	prefix := infra.RedisChanStream("")
	if !strings.HasPrefix(redisChan, prefix) {
		return ""
	}
	return strings.TrimPrefix(redisChan, prefix)
}
