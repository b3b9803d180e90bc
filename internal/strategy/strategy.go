// Package strategy provides the base every trading strategy builds on:
// callback registration for inbound events and helpers for publishing
// requests back to the gateway.
package strategy

import (
	"context"

	"qitrader/internal/core"
	"qitrader/internal/engine"
	"qitrader/internal/event"
)

// Callbacks receives the market and account events a strategy reacts to.
type Callbacks interface {
	RecvAccount(ctx context.Context, account *event.Account) error
	RecvPosition(ctx context.Context, position *event.Position) error
	RecvBook(ctx context.Context, book *event.Book) error
	RecvTick(ctx context.Context, tick *event.Tick) error
	RecvOrder(ctx context.Context, order *event.Order) error
}

// Base wires a strategy's callbacks into the engine and exposes the request
// helpers. Concrete strategies embed Base and implement Run.
type Base struct {
	Engine *engine.Engine
	Logger core.Logger

	name      string
	callbacks Callbacks
}

func NewBase(name string, eng *engine.Engine, cb Callbacks, logger core.Logger) *Base {
	return &Base{
		Engine:    eng,
		Logger:    logger.WithField("strategy", name),
		name:      name,
		callbacks: cb,
	}
}

func (b *Base) Name() string { return b.name }

// Init registers the typed callbacks.
func (b *Base) Init(ctx context.Context) error {
	b.Engine.RegisterCallback(event.TypeAccount, engine.Typed(b.callbacks.RecvAccount))
	b.Engine.RegisterCallback(event.TypePosition, engine.Typed(b.callbacks.RecvPosition))
	b.Engine.RegisterCallback(event.TypeBook, engine.Typed(b.callbacks.RecvBook))
	b.Engine.RegisterCallback(event.TypeTick, engine.Typed(b.callbacks.RecvTick))
	b.Engine.RegisterCallback(event.TypeOrder, engine.Typed(b.callbacks.RecvOrder))
	return nil
}

// RequestAccount asks the gateway for an account snapshot.
func (b *Base) RequestAccount(ctx context.Context) error {
	return b.Engine.Publish(ctx, event.TypeQueryAccount, &event.QueryAccount{})
}

// RequestPosition asks the gateway for a position snapshot.
func (b *Base) RequestPosition(ctx context.Context) error {
	return b.Engine.Publish(ctx, event.TypeQueryPosition, &event.QueryPosition{})
}

// RequestOrders asks the gateway for the pending orders.
func (b *Base) RequestOrders(ctx context.Context) error {
	return b.Engine.Publish(ctx, event.TypeQueryOrder, &event.QueryOrder{})
}

// SubscribeBook subscribes order book updates for a symbol.
func (b *Base) SubscribeBook(ctx context.Context, symbol string) error {
	return b.Engine.Publish(ctx, event.TypeSubscribeBook, &event.Subscribe{Meta: event.Meta{Symbol: symbol}})
}

// SubscribeTick subscribes ticker updates for a symbol.
func (b *Base) SubscribeTick(ctx context.Context, symbol string) error {
	return b.Engine.Publish(ctx, event.TypeSubscribeTick, &event.Subscribe{Meta: event.Meta{Symbol: symbol}})
}

// SendOrder submits an order batch through the gateway.
func (b *Base) SendOrder(ctx context.Context, order *event.Order) error {
	return b.Engine.Publish(ctx, event.TypeSendOrder, order)
}

// Notify publishes a text message for the notifier.
func (b *Base) Notify(ctx context.Context, text string) error {
	return b.Engine.Publish(ctx, event.TypeMessage, &event.Message{Text: text})
}
