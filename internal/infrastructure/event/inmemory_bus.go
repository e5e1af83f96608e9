package event

import (
	"context"
	"sync"

	"github.com/dermaclinic/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus is an in-process implementation of shared.EventBus.
// Events are dispatched asynchronously by a single worker goroutine so ledger
// transactions never block on subscribers; handler errors are logged, not
// propagated to publishers.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[*registration]struct{}
	queue    chan shared.DomainEvent
	logger   *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
}

type registration struct {
	handler    shared.EventHandler
	eventTypes map[string]struct{}
}

// NewInMemoryEventBus creates an event bus with a bounded queue
func NewInMemoryEventBus(queueSize int, logger *zap.Logger) *InMemoryEventBus {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &InMemoryEventBus{
		handlers: make(map[*registration]struct{}),
		queue:    make(chan shared.DomainEvent, queueSize),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Publish enqueues events for asynchronous dispatch. Publishing never blocks
// longer than the queue has room; a full queue drops the event with a log
// entry rather than stalling the ledger write path.
func (b *InMemoryEventBus) Publish(_ context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		select {
		case b.queue <- e:
		default:
			b.logger.Warn("event queue full, dropping event",
				zap.String("event_type", e.EventType()),
				zap.String("event_id", e.EventID().String()))
		}
	}
	return nil
}

// Subscribe registers a handler. Explicit event types override the handler's
// own EventTypes; with neither, the handler receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	reg := &registration{handler: handler}
	if len(eventTypes) > 0 {
		reg.eventTypes = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			reg.eventTypes[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[reg] = struct{}{}
}

// Unsubscribe removes all registrations of a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for reg := range b.handlers {
		if reg.handler == handler {
			delete(b.handlers, reg)
		}
	}
}

// Start launches the dispatch worker
func (b *InMemoryEventBus) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	b.started = true

	b.wg.Add(1)
	go b.dispatchLoop()
	return nil
}

// Stop drains the queue and stops the worker
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() { close(b.stopChan) })

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) dispatchLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			// drain whatever is already queued
			for {
				select {
				case e := <-b.queue:
					b.dispatch(e)
				default:
					return
				}
			}
		case e := <-b.queue:
			b.dispatch(e)
		}
	}
}

func (b *InMemoryEventBus) dispatch(e shared.DomainEvent) {
	b.mu.RLock()
	targets := make([]shared.EventHandler, 0, len(b.handlers))
	for reg := range b.handlers {
		if reg.eventTypes != nil {
			if _, ok := reg.eventTypes[e.EventType()]; !ok {
				continue
			}
		}
		targets = append(targets, reg.handler)
	}
	b.mu.RUnlock()

	for _, handler := range targets {
		if err := handler.Handle(context.Background(), e); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", e.EventType()),
				zap.String("event_id", e.EventID().String()),
				zap.Error(err))
		}
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
