package connectors

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// MockChatProvider — офлайн-заглушка LLM для демо-стендов без ключа
// и для тестов контура надежности.
type MockChatProvider struct {
	// Fail заставляет каждый вызов падать (проверка деградации)
	Fail error
}

func (c *MockChatProvider) Chat(ctx context.Context, prompt, systemInstruction string) (string, error) {
	// Имитируем задержку инференса 50-300мс
	latency := time.Duration(50+rand.Intn(250)) * time.Millisecond

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if c.Fail != nil {
		return "", c.Fail
	}

	switch {
	case strings.Contains(prompt, "风险等级"):
		return `{"level": "high", "analysis": "指标超出规程阈值，需要立即介入。"}`, nil
	case strings.Contains(prompt, "处置方案"):
		return `[{"step": 1, "action": "启动应急响应程序", "auto": true, "reason": "通用安全规范"}]`, nil
	default:
		return "1. 风险成因研判：传感器指标异常。\n2. 立即管控措施：加强通风、撤离人员、持续监测。\n3. 后续检查建议：复核设备标定。", nil
	}
}
