// Package probe is a smoke-test strategy: it queries account and position
// state, subscribes market data for one symbol, and optionally sends a small
// market order.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"qitrader/internal/core"
	"qitrader/internal/engine"
	"qitrader/internal/event"
	"qitrader/internal/strategy"
)

type Probe struct {
	*strategy.Base

	symbol    string
	sendOrder bool
}

func New(eng *engine.Engine, symbol string, sendOrder bool, logger core.Logger) *Probe {
	p := &Probe{
		symbol:    symbol,
		sendOrder: sendOrder,
	}
	p.Base = strategy.NewBase("probe", eng, p, logger)
	return p
}

func (p *Probe) Run(ctx context.Context) error {
	if err := p.RequestAccount(ctx); err != nil {
		return err
	}
	if err := p.RequestPosition(ctx); err != nil {
		return err
	}

	if p.symbol != "" {
		if err := p.SubscribeBook(ctx, p.symbol); err != nil {
			return err
		}
		if err := p.SubscribeTick(ctx, p.symbol); err != nil {
			return err
		}
	}

	if !p.sendOrder {
		<-ctx.Done()
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
	}

	order := &event.Order{
		Meta: event.Meta{Exchange: "okx"},
		Items: []*event.OrderItem{{
			Meta:      event.Meta{Symbol: p.symbol, Exchange: "okx"},
			Direction: event.Buy,
			OrderType: event.Market,
			Volume:    decimal.RequireFromString("0.01"),
		}},
	}
	if err := p.SendOrder(ctx, order); err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

func (p *Probe) RecvAccount(ctx context.Context, account *event.Account) error {
	p.Logger.Info("account", "balance", account.Balance.String(), "currencies", len(account.Items))
	return p.Notify(ctx, fmt.Sprintf("account balance %s", account.Balance.String()))
}

func (p *Probe) RecvPosition(_ context.Context, position *event.Position) error {
	p.Logger.Info("positions", "count", len(position.Items))
	for _, item := range position.Items {
		p.Logger.Info("position",
			"symbol", item.Symbol,
			"volume", item.Volume.String(),
			"price", item.Price.String(),
			"direction", item.Direction.String(),
		)
	}
	return nil
}

func (p *Probe) RecvBook(_ context.Context, book *event.Book) error {
	p.Logger.Debug("book", "symbol", book.Symbol, "bids", len(book.Bids), "asks", len(book.Asks))
	return nil
}

func (p *Probe) RecvTick(_ context.Context, tick *event.Tick) error {
	p.Logger.Debug("tick", "symbol", tick.Symbol, "last", tick.LastPrice.String())
	return nil
}

func (p *Probe) RecvOrder(_ context.Context, order *event.Order) error {
	p.Logger.Info("orders", "count", len(order.Items))
	return nil
}
