package connectors

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/tunnelops-console/internal/infra"
	"github.com/xela07ax/tunnelops-console/internal/metrics"
)

// ReliableChat оборачивает ChatProvider в контур надежности:
// Rate Limiter -> Circuit Breaker -> Retries. LLM-провайдер — самый
// ненадежный коллаборатор системы, весь трафик к нему идет отсюда.
type ReliableChat struct {
	next     ChatProvider
	cb       *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	m        *metrics.Metrics
	provider string
}

func NewReliableChat(next ChatProvider, cfg infra.AIConfig, m *metrics.Metrics) *ReliableChat {
	if m == nil {
		m = metrics.New(nil)
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-connector",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				m.CircuitBreakerState.Set(1)
			} else {
				m.CircuitBreakerState.Set(0)
			}
		},
	})

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 5
	}

	return &ReliableChat{
		next:     next,
		cb:       cb,
		limiter:  rate.NewLimiter(rate.Limit(limit), 3),
		m:        m,
		provider: cfg.Provider,
	}
}

func (w *ReliableChat) Chat(ctx context.Context, prompt, systemInstruction string) (string, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()

	var finalText string

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Провайдер сам сказал, когда возвращаться (Retry-After)
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// Иначе (сетевой лаг, 500-ка) — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			var callErr error
			finalText, callErr = w.next.Chat(tCtx, prompt, systemInstruction)
			return callErr
		})

		return finalText, retryErr
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	w.m.AICallDuration.WithLabelValues(w.provider, status).Observe(time.Since(start).Seconds())

	if err != nil {
		return "", err
	}

	return cbResult.(string), nil
}
