// Package engine implements the event bus and component runtime: a typed
// publish/subscribe dispatcher plus per-component init/run lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"qitrader/internal/core"
	"qitrader/internal/event"
)

// Handler consumes one dispatched event. Handlers run sequentially on the
// publisher's goroutine and must not block on compute-heavy work.
type Handler func(ctx context.Context, ev *event.Event) error

// Typed wraps a payload-typed callback into a Handler. The downcast is done
// once here; the dispatcher guarantees the variant matches the event type.
func Typed[T event.Payload](fn func(ctx context.Context, data T) error) Handler {
	return func(ctx context.Context, ev *event.Event) error {
		data, ok := ev.Data.(T)
		if !ok {
			return fmt.Errorf("engine: handler expects %T, event %v carries %T", data, ev.Type, ev.Data)
		}
		return fn(ctx, data)
	}
}

// Engine owns the component registry and the event dispatcher. Components
// interact only through Publish/RegisterCallback; direct calls between
// components are not part of the contract.
type Engine struct {
	logger core.Logger

	mu         sync.RWMutex
	components []core.Component
	registered map[string]bool
	handlers   map[event.Type][]Handler

	quitOnce sync.Once
	quit     chan struct{}
}

func New(logger core.Logger) *Engine {
	return &Engine{
		logger:     logger.WithField("component", "engine"),
		registered: make(map[string]bool),
		handlers:   make(map[event.Type][]Handler),
		quit:       make(chan struct{}),
	}
}

// RegisterComponent pins a component for the lifetime of the engine.
// Registering the same component name twice is a no-op.
func (e *Engine) RegisterComponent(c core.Component) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registered[c.Name()] {
		e.logger.Warn("component already registered", "name", c.Name())
		return
	}
	e.registered[c.Name()] = true
	e.components = append(e.components, c)
}

// RegisterCallback appends a handler to the ordered list for the given event
// type. Register event.TypeAll to receive every event.
func (e *Engine) RegisterCallback(t event.Type, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[t] = append(e.handlers[t], h)
}

// Publish validates the payload against the declared type and dispatches it
// to every handler registered for the type, then to the wildcard handlers,
// in registration order. Handler failures are logged and do not stop the
// remaining handlers. A type/payload mismatch fails fast.
//
// Dispatch is synchronous, so events published from a single goroutine reach
// each handler in publish order; concurrent publishers race.
func (e *Engine) Publish(ctx context.Context, t event.Type, p event.Payload) error {
	if err := event.Validate(t, p); err != nil {
		return err
	}

	if t == event.TypeQuit {
		e.quitOnce.Do(func() { close(e.quit) })
	}

	e.mu.RLock()
	handlers := append(append([]Handler(nil), e.handlers[t]...), e.handlers[event.TypeAll]...)
	e.mu.RUnlock()

	ev := &event.Event{Type: t, Data: p}
	for _, h := range handlers {
		// A quit observed mid-dispatch cancels the handlers that have not
		// run yet; the quit event itself still reaches its subscribers.
		if t != event.TypeQuit && (e.quitting() || ctx.Err() != nil) {
			return nil
		}
		if err := h(ctx, ev); err != nil {
			e.logger.Error("event handler failed", "type", t.String(), "error", err)
		}
	}
	return nil
}

func (e *Engine) quitting() bool {
	select {
	case <-e.quit:
		return true
	default:
		return false
	}
}

// Run initializes every component sequentially in registration order, then
// runs them as sibling tasks. It returns when all components finish, when a
// component's run fails, or when a Quit event is observed.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.RLock()
	components := append([]core.Component(nil), e.components...)
	e.mu.RUnlock()

	for _, c := range components {
		e.logger.Info("initializing component", "name", c.Name())
		if err := c.Init(ctx); err != nil {
			return fmt.Errorf("init %s: %w", c.Name(), err)
		}
	}

	go func() {
		select {
		case <-e.quit:
			e.logger.Info("quit event received, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range components {
		g.Go(func() error {
			e.logger.Info("starting component", "name", c.Name())
			if err := c.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("component stopped with error", "name", c.Name(), "error", err)
				return fmt.Errorf("run %s: %w", c.Name(), err)
			}
			e.logger.Info("component stopped", "name", c.Name())
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop requests the same cooperative shutdown as publishing Quit, but no
// Quit event is delivered to subscribers.
func (e *Engine) Stop() {
	e.quitOnce.Do(func() { close(e.quit) })
}
