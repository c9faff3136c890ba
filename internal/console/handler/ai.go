package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/connectors"
)

// ChatProvider — прямой проход к большой модели, один обмен без стрима.
type ChatProvider interface {
	Chat(ctx context.Context, prompt, systemInstruction string) (string, error)
}

// AIHandler — POST /api/ai/{provider}. Контракт статусов:
// 405 не тот метод, 500 нет серверного ключа, 502 сбой апстрима.
type AIHandler struct {
	provider ChatProvider
	logger   *zap.Logger
}

func NewAIHandler(provider ChatProvider, logger *zap.Logger) *AIHandler {
	return &AIHandler{provider: provider, logger: logger.Named("ai-proxy")}
}

func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
		return
	}

	var body struct {
		Prompt            string `json:"prompt"`
		SystemInstruction string `json:"systemInstruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid body"})
		return
	}

	text, err := h.provider.Chat(r.Context(), body.Prompt, body.SystemInstruction)
	if err != nil {
		if errors.Is(err, connectors.ErrNoCredential) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "API key not set"})
			return
		}
		h.logger.Warn("upstream chat call failed", zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"text": text})
}
