// Package stream — клиентская часть серверного push-потока.
// Один long-lived коннект на URL, раздача кадров по каналам через
// мапу обработчиков, переподключение с экспоненциальным бэкоффом.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// Handler получает сырой payload своего канала. Форму payload знает
// только сам обработчик.
type Handler func(payload json.RawMessage)

// Handlers — мапа канал → обработчик. Незнакомые каналы игнорируются
// молча: сервер вправе добавлять каналы, не ломая старых клиентов.
type Handlers map[string]Handler

// Frame — один разобранный кадр транспорта.
type Frame struct {
	Event string
	Data  []byte
}

// Conn — открытое push-соединение. Next блокируется до следующего кадра.
type Conn interface {
	Next() (Frame, error)
	Close() error
}

// Dialer открывает транспорт. Вынесен в интерфейс, чтобы тесты могли
// подсовывать отказывающий/скриптованный транспорт.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type Options struct {
	BackoffBase time.Duration // стартовая задержка переподключения
	BackoffMax  time.Duration // потолок задержки

	// OnReconnect дергается на каждом успешном повторном коннекте
	// (не на самом первом); хук для метрик.
	OnReconnect func()
}

func (o *Options) withDefaults() {
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 10 * time.Second
	}
}

// Client фабрикует подписки поверх одного Dialer.
type Client struct {
	dialer Dialer
	logger *zap.Logger
	opts   Options

	// Перехватывается тестами, чтобы не ждать реальные бэкоффы.
	// Возвращает false, если ожидание прервано (ctx/teardown).
	sleep func(ctx context.Context, d time.Duration, abort <-chan struct{}) bool
}

func NewClient(dialer Dialer, logger *zap.Logger, opts Options) *Client {
	opts.withDefaults()
	return &Client{
		dialer: dialer,
		logger: logger.Named("stream"),
		opts:   opts,
		sleep:  waitOrAbort,
	}
}

// Subscription — ресурсный хэндл одной подписки. Close терминален:
// после него не срабатывает ни один обработчик и не планируется
// ни одно переподключение.
type Subscription struct {
	url      string
	handlers Handlers
	client   *Client

	closed   atomic.Bool
	closeCh  chan struct{}
	done     chan struct{}
	connMu   sync.Mutex
	liveConn Conn
}

// Subscribe открывает подписку и сразу возвращает хэндл; цикл
// подключения крутится в фоне до Close или отмены ctx.
func (c *Client) Subscribe(ctx context.Context, url string, handlers Handlers) *Subscription {
	s := &Subscription{
		url:      url,
		handlers: handlers,
		client:   c,
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Close навсегда закрывает подписку и дожидается остановки цикла.
// Повторные вызовы безопасны.
func (s *Subscription) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.closeCh)

	// Будим заблокированный Next, закрывая живое соединение
	s.connMu.Lock()
	if s.liveConn != nil {
		s.liveConn.Close()
	}
	s.connMu.Unlock()

	<-s.done
}

// run — цикл "disconnected -> connecting -> connected -> (error) -> ...".
// Терминальное состояние closed достижимо из любого через Close.
func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)

	c := s.client
	backoff := c.opts.BackoffBase
	firstConn := true

	for {
		if s.isDone(ctx) {
			return
		}

		conn, err := c.dialer.Dial(ctx, s.url)
		if err != nil {
			c.logger.Warn("connect failed, will retry",
				zap.String("url", s.url),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if !c.sleep(ctx, backoff, s.closeCh) {
				return
			}
			backoff = nextBackoff(backoff, c.opts.BackoffMax)
			continue
		}

		// Соединение поднялось — бэкофф возвращается к базе
		backoff = c.opts.BackoffBase
		if !firstConn && c.opts.OnReconnect != nil {
			c.opts.OnReconnect()
		}
		firstConn = false

		s.connMu.Lock()
		if s.closed.Load() {
			// Close успел проскочить между Dial и публикацией коннекта
			s.connMu.Unlock()
			conn.Close()
			return
		}
		s.liveConn = conn
		s.connMu.Unlock()

		s.pump(conn)

		s.connMu.Lock()
		s.liveConn = nil
		s.connMu.Unlock()
		conn.Close()

		if s.isDone(ctx) {
			return
		}
		if !c.sleep(ctx, backoff, s.closeCh) {
			return
		}
		backoff = nextBackoff(backoff, c.opts.BackoffMax)
	}
}

// pump вычитывает кадры до ошибки транспорта. Битый JSON и незнакомые
// каналы глотаются покадрово: потеря телеметрии лучше падения вьюхи.
func (s *Subscription) pump(conn Conn) {
	for {
		frame, err := conn.Next()
		if err != nil {
			return
		}
		if frame.Event == "heartbeat" {
			continue
		}

		var evt domain.StreamEvent
		if err := json.Unmarshal(frame.Data, &evt); err != nil {
			continue
		}

		handler, ok := s.handlers[evt.Channel]
		if !ok {
			continue
		}
		// Кадр мог прилететь в том же такте, что и Close — проверяем
		// флаг непосредственно перед вызовом
		if s.closed.Load() {
			return
		}
		handler(evt.Payload)
	}
}

func (s *Subscription) isDone(ctx context.Context) bool {
	if s.closed.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// nextBackoff удваивает задержку до потолка, дальше держит потолок.
func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

func waitOrAbort(ctx context.Context, d time.Duration, abort <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-abort:
		return false
	}
}
