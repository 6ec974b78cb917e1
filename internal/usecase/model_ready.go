package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"QuantPredict/internal/domain/models"
	domrepo "QuantPredict/internal/domain/repository"
	domsvc "QuantPredict/internal/domain/service"
	"QuantPredict/pkg/kafka"
	applogger "QuantPredict/pkg/logger"
)

// ModelReadyHandler drops cached models when training announces a new
// artifact, so the next request loads it from disk.
type ModelReadyHandler struct {
	topic string
	store domrepo.ModelStore
	l     *applogger.Logger
}

var _ kafka.MessageHandler = (*ModelReadyHandler)(nil)

func NewModelReadyHandler(topic string, store domrepo.ModelStore, l *applogger.Logger) *ModelReadyHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ModelReadyHandler{topic: topic, store: store, l: l}
}

func (h *ModelReadyHandler) Topic() string { return h.topic }

func (h *ModelReadyHandler) Handle(_ context.Context, data []byte) error {
	var ev models.ModelReadyEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode model ready event: %w", err)
	}
	symbol := strings.ToUpper(strings.TrimSpace(ev.Symbol))
	if symbol == "" {
		// nothing to invalidate; retrying will not help
		h.l.Warn("model ready event without symbol", applogger.String("payload", string(data)))
		return nil
	}
	var kind domsvc.ModelKind
	if ev.Kind != "" {
		k, err := domsvc.ParseModelKind(ev.Kind)
		if err != nil {
			h.l.Warn("model ready event with unknown kind", applogger.String("symbol", symbol), applogger.String("kind", ev.Kind))
			return nil
		}
		kind = k
	}
	h.store.Invalidate(symbol, kind)
	h.l.Info("model invalidated", applogger.String("symbol", symbol), applogger.String("kind", string(kind)))
	return nil
}
