package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/connectors"
)

type stubChat struct {
	text string
	err  error
}

func (s stubChat) Chat(context.Context, string, string) (string, error) {
	return s.text, s.err
}

func doChat(t *testing.T, provider ChatProvider, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewAIHandler(provider, zap.NewNop())
	req := httptest.NewRequest(method, "/api/ai/deepseek", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestAIChatProxiesText(t *testing.T) {
	rec := doChat(t, stubChat{text: "缓慢降低顶部气腔压力"}, http.MethodPost, `{"prompt":"掘进参数异常"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"缓慢降低顶部气腔压力"}`, rec.Body.String())
}

func TestAIChatRejectsWrongMethod(t *testing.T) {
	rec := doChat(t, stubChat{}, http.MethodGet, "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
}

func TestAIChatRejectsBadBody(t *testing.T) {
	rec := doChat(t, stubChat{}, http.MethodPost, "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Без серверного ключа прокси честно отвечает 500, а не 502:
// проблема конфигурации, а не апстрима.
func TestAIChatMissingCredentialIs500(t *testing.T) {
	rec := doChat(t, connectors.UnconfiguredProvider{}, http.MethodPost, `{"prompt":"hi"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"API key not set"}`, rec.Body.String())
}

func TestAIChatUpstreamFailureIs502(t *testing.T) {
	rec := doChat(t, stubChat{err: errors.New("upstream timeout")}, http.MethodPost, `{"prompt":"hi"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream timeout")
}
