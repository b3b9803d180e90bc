package base

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"qitrader/internal/engine"
	"qitrader/internal/event"
	"qitrader/pkg/logging"
)

type fakeAdapter struct {
	calls       []string
	initErr     error
	watchCalled bool
}

func (f *fakeAdapter) MarketInit(ctx context.Context) error {
	f.calls = append(f.calls, "market_init")
	return f.initErr
}

func (f *fakeAdapter) Watch(ctx context.Context) error {
	f.watchCalled = true
	f.calls = append(f.calls, "watch")
	return nil
}

func (f *fakeAdapter) SubscribeBook(ctx context.Context, sub *event.Subscribe) error {
	f.calls = append(f.calls, "subscribe_book:"+sub.Symbol)
	return nil
}

func (f *fakeAdapter) SubscribeTick(ctx context.Context, sub *event.Subscribe) error {
	f.calls = append(f.calls, "subscribe_tick:"+sub.Symbol)
	return nil
}

func (f *fakeAdapter) SendOrders(ctx context.Context, order *event.Order) error {
	f.calls = append(f.calls, "send_orders")
	return nil
}

func (f *fakeAdapter) CancelOrders(ctx context.Context, order *event.Order) error {
	f.calls = append(f.calls, "cancel_orders")
	return nil
}

func (f *fakeAdapter) QueryAccount(ctx context.Context) error {
	f.calls = append(f.calls, "query_account")
	return nil
}

func (f *fakeAdapter) QueryPosition(ctx context.Context) error {
	f.calls = append(f.calls, "query_position")
	return nil
}

func (f *fakeAdapter) QueryOrder(ctx context.Context) error {
	f.calls = append(f.calls, "query_order")
	return nil
}

func newTestGateway(t *testing.T) (*Gateway, *fakeAdapter, *engine.Engine) {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)

	eng := engine.New(logger)
	adapter := &fakeAdapter{}
	return NewGateway("fake", eng, adapter, logger), adapter, eng
}

func TestGatewayRoutesRequestEvents(t *testing.T) {
	g, adapter, eng := newTestGateway(t)
	require.NoError(t, g.Init(context.Background()))

	ctx := context.Background()
	require.NoError(t, eng.Publish(ctx, event.TypeSubscribeBook, &event.Subscribe{Meta: event.Meta{Symbol: "BTC-USDT"}}))
	require.NoError(t, eng.Publish(ctx, event.TypeSubscribeTick, &event.Subscribe{Meta: event.Meta{Symbol: "BTC-USDT"}}))
	require.NoError(t, eng.Publish(ctx, event.TypeSendOrder, &event.Order{}))
	require.NoError(t, eng.Publish(ctx, event.TypeQueryAccount, &event.QueryAccount{}))
	require.NoError(t, eng.Publish(ctx, event.TypeQueryPosition, &event.QueryPosition{}))
	require.NoError(t, eng.Publish(ctx, event.TypeQueryOrder, &event.QueryOrder{}))

	require.Equal(t, []string{
		"subscribe_book:BTC-USDT",
		"subscribe_tick:BTC-USDT",
		"send_orders",
		"query_account",
		"query_position",
		"query_order",
	}, adapter.calls)
}

func TestGatewayRunsMarketInitBeforeWatch(t *testing.T) {
	g, adapter, _ := newTestGateway(t)

	require.NoError(t, g.Run(context.Background()))
	require.Equal(t, []string{"market_init", "watch"}, adapter.calls)
}

func TestGatewayRunStopsOnInitFailure(t *testing.T) {
	g, adapter, _ := newTestGateway(t)
	adapter.initErr = errors.New("venue unreachable")

	require.Error(t, g.Run(context.Background()))
	require.False(t, adapter.watchCalled)
}

func TestGatewayEmitHelpersPublish(t *testing.T) {
	g, _, eng := newTestGateway(t)

	var types []event.Type
	eng.RegisterCallback(event.TypeAll, func(_ context.Context, ev *event.Event) error {
		types = append(types, ev.Type)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, g.OnBook(ctx, &event.Book{}))
	require.NoError(t, g.OnTick(ctx, &event.Tick{}))
	require.NoError(t, g.OnOrder(ctx, &event.Order{}))
	require.NoError(t, g.OnTrade(ctx, &event.Trade{}))
	require.NoError(t, g.OnPosition(ctx, &event.Position{}))
	require.NoError(t, g.OnAccount(ctx, &event.Account{}))

	require.Equal(t, []event.Type{
		event.TypeBook,
		event.TypeTick,
		event.TypeOrder,
		event.TypeTrade,
		event.TypePosition,
		event.TypeAccount,
	}, types)
}
