// Package base provides the protocol-independent gateway contract: it routes
// request events from the bus to a concrete venue adapter and emits the
// adapter's data back as typed events.
package base

import (
	"context"

	"qitrader/internal/core"
	"qitrader/internal/engine"
	"qitrader/internal/event"
)

// Adapter is implemented by a concrete exchange gateway. Watch is the
// adapter's long-running driver, entered after MarketInit succeeds.
type Adapter interface {
	MarketInit(ctx context.Context) error
	Watch(ctx context.Context) error

	SubscribeBook(ctx context.Context, sub *event.Subscribe) error
	SubscribeTick(ctx context.Context, sub *event.Subscribe) error
	SendOrders(ctx context.Context, order *event.Order) error
	CancelOrders(ctx context.Context, order *event.Order) error
	QueryAccount(ctx context.Context) error
	QueryPosition(ctx context.Context) error
	QueryOrder(ctx context.Context) error
}

// Gateway binds an Adapter to the engine. It is the engine-facing component;
// the adapter never touches the bus directly.
type Gateway struct {
	name    string
	engine  *engine.Engine
	adapter Adapter
	Logger  core.Logger
}

func NewGateway(name string, eng *engine.Engine, adapter Adapter, logger core.Logger) *Gateway {
	return &Gateway{
		name:    name,
		engine:  eng,
		adapter: adapter,
		Logger:  logger.WithField("exchange", name),
	}
}

func (g *Gateway) Name() string { return g.name }

// Init subscribes the gateway to every request event it serves.
func (g *Gateway) Init(ctx context.Context) error {
	g.engine.RegisterCallback(event.TypeSubscribeBook, engine.Typed(func(ctx context.Context, sub *event.Subscribe) error {
		return g.adapter.SubscribeBook(ctx, sub)
	}))
	g.engine.RegisterCallback(event.TypeSubscribeTick, engine.Typed(func(ctx context.Context, sub *event.Subscribe) error {
		return g.adapter.SubscribeTick(ctx, sub)
	}))
	g.engine.RegisterCallback(event.TypeSendOrder, engine.Typed(func(ctx context.Context, order *event.Order) error {
		return g.adapter.SendOrders(ctx, order)
	}))
	g.engine.RegisterCallback(event.TypeQueryAccount, engine.Typed(func(ctx context.Context, _ *event.QueryAccount) error {
		return g.adapter.QueryAccount(ctx)
	}))
	g.engine.RegisterCallback(event.TypeQueryPosition, engine.Typed(func(ctx context.Context, _ *event.QueryPosition) error {
		return g.adapter.QueryPosition(ctx)
	}))
	g.engine.RegisterCallback(event.TypeQueryOrder, engine.Typed(func(ctx context.Context, _ *event.QueryOrder) error {
		return g.adapter.QueryOrder(ctx)
	}))
	return nil
}

// Run initializes the venue session, then hands control to the adapter's
// watch loops.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.adapter.MarketInit(ctx); err != nil {
		return err
	}
	return g.adapter.Watch(ctx)
}

// OnTick publishes a Tick event.
func (g *Gateway) OnTick(ctx context.Context, tick *event.Tick) error {
	return g.engine.Publish(ctx, event.TypeTick, tick)
}

// OnBook publishes a Book event.
func (g *Gateway) OnBook(ctx context.Context, book *event.Book) error {
	return g.engine.Publish(ctx, event.TypeBook, book)
}

// OnOrder publishes an Order event.
func (g *Gateway) OnOrder(ctx context.Context, order *event.Order) error {
	return g.engine.Publish(ctx, event.TypeOrder, order)
}

// OnTrade publishes a Trade event.
func (g *Gateway) OnTrade(ctx context.Context, trade *event.Trade) error {
	return g.engine.Publish(ctx, event.TypeTrade, trade)
}

// OnPosition publishes a Position event.
func (g *Gateway) OnPosition(ctx context.Context, position *event.Position) error {
	return g.engine.Publish(ctx, event.TypePosition, position)
}

// OnAccount publishes an Account event.
func (g *Gateway) OnAccount(ctx context.Context, account *event.Account) error {
	return g.engine.Publish(ctx, event.TypeAccount, account)
}
