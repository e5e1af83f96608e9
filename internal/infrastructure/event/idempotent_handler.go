package event

import (
	"context"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotentHandler wraps an event handler with an idempotency store so a
// redelivered event is processed at most once within the TTL window
type IdempotentHandler struct {
	inner  shared.EventHandler
	store  shared.IdempotencyStore
	config shared.IdempotencyConfig
	logger *zap.Logger
}

// NewIdempotentHandler wraps a handler with idempotency checking
func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore,
	config shared.IdempotencyConfig, logger *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		inner:  inner,
		store:  store,
		config: config,
		logger: logger,
	}
}

// Handle processes the event unless its ID was already handled
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, event)
	}

	key := "event:" + event.EventID().String()
	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		// on store failure, process anyway: duplicate handling beats loss
		h.logger.Warn("idempotency store failed, processing event anyway",
			zap.String("event_id", event.EventID().String()), zap.Error(err))
		return h.inner.Handle(ctx, event)
	}
	if !fresh {
		h.logger.Debug("skipping already-processed event",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()))
		return nil
	}
	return h.inner.Handle(ctx, event)
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
