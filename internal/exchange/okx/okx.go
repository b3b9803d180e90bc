// Package okx implements the OKX exchange gateway: a signed REST channel
// plus public and private streaming sessions, translated to and from the
// engine's event model.
package okx

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"qitrader/internal/config"
	"qitrader/internal/core"
	"qitrader/internal/engine"
	"qitrader/internal/event"
	"qitrader/internal/exchange/base"
	"qitrader/internal/market"
	apperrors "qitrader/pkg/errors"
	"qitrader/pkg/retry"
)

const exchangeName = "okx"

// Okx is the concrete gateway adapter.
type Okx struct {
	*base.Gateway

	cfg    config.OkxConfig
	http   *RestClient
	public *Stream
	priv   *Stream
	cache  *market.Cache
	orders *orderTracker
	logger core.Logger
}

// New wires the adapter and its engine-facing gateway component.
func New(eng *engine.Engine, cfg config.OkxConfig, cache *market.Cache, logger core.Logger) *Okx {
	signer := NewSigner(cfg.APIKey, cfg.SecretKey, cfg.Passphrase, cfg.Sim)
	log := logger.WithField("exchange", exchangeName)

	o := &Okx{
		cfg:    cfg,
		http:   NewRestClient(cfg.BaseURL, cfg.RequestsPerSec, signer, log),
		public: NewStream(StreamURL(cfg.WsPublicURL, PublicPath, cfg.Sim), cfg.QueueSize, cfg.Sim, nil, log),
		priv:   NewStream(StreamURL(cfg.WsPrivateURL, PrivatePath, cfg.Sim), cfg.QueueSize, cfg.Sim, signer, log),
		cache:  cache,
		orders: newOrderTracker(log),
		logger: log,
	}
	o.Gateway = base.NewGateway(exchangeName, eng, o, logger)
	return o
}

// MarketInit connects both sessions, authenticates the private one, and
// subscribes the account, positions, and orders channels.
func (o *Okx) MarketInit(ctx context.Context) error {
	if err := o.public.Connect(ctx); err != nil {
		return err
	}
	o.logger.Info("public stream connected")

	if err := o.priv.Connect(ctx); err != nil {
		return err
	}
	if err := o.priv.AwaitLogin(ctx); err != nil {
		return err
	}
	o.logger.Info("private stream authenticated")

	// Spot order and position updates are not pushed: the private channels
	// track SWAP instruments only, matching the instruments this gateway
	// trades with margin.
	return o.priv.Subscribe(ctx,
		WsSubscribeDetail{Channel: "account"},
		WsSubscribeDetail{Channel: "positions", InstType: "SWAP"},
		WsSubscribeDetail{Channel: "orders", InstType: "SWAP"},
	)
}

// Watch drives both stream watchers until they stop; both must complete.
func (o *Okx) Watch(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.watchPublic(gctx) })
	g.Go(func() error { return o.watchPrivate(gctx) })
	err := g.Wait()

	o.public.Stop()
	o.priv.Stop()
	return err
}

func (o *Okx) watchPublic(ctx context.Context) error {
	for {
		msg, err := o.public.Read(ctx)
		if err != nil {
			return err
		}

		if msg.Event == "error" {
			o.logger.Error("public stream error frame", "code", msg.Code, "msg", msg.Msg)
			continue
		}
		if msg.Event != "" {
			o.logger.Info("public stream event", "event", msg.Event)
			continue
		}

		switch msg.Arg.Channel {
		case "books":
			if err := o.handleBooks(ctx, msg); err != nil {
				return err
			}
		case "tickers":
			if err := o.handleTicks(ctx, msg); err != nil {
				return err
			}
		default:
			o.logger.Warn("unknown public channel", "channel", msg.Arg.Channel)
		}
	}
}

func (o *Okx) watchPrivate(ctx context.Context) error {
	for {
		msg, err := o.priv.Read(ctx)
		if err != nil {
			return err
		}

		if msg.Event == "error" {
			o.logger.Error("private stream error frame", "code", msg.Code, "msg", msg.Msg)
			continue
		}
		if msg.Event != "" {
			o.logger.Info("private stream event", "event", msg.Event)
			continue
		}

		switch msg.Arg.Channel {
		case "account":
			if err := o.handleAccount(ctx, msg); err != nil {
				return err
			}
		case "positions":
			if err := o.handlePositions(ctx, msg); err != nil {
				return err
			}
		case "orders":
			if err := o.handleOrders(ctx, msg); err != nil {
				return err
			}
		default:
			o.logger.Warn("unknown private channel", "channel", msg.Arg.Channel)
		}
	}
}

// handleBooks translates a books frame into Book snapshots, caches each one,
// and publishes it.
func (o *Okx) handleBooks(ctx context.Context, msg *WsMessage) error {
	for i := range msg.Books {
		ws := &msg.Books[i]
		book := &event.Book{
			Meta: event.Meta{
				Symbol:      msg.Arg.InstID,
				Exchange:    exchangeName,
				TimestampMs: parseMs(ws.Ts),
			},
			Bids: make([]event.BookItem, 0, len(ws.Bids)),
			Asks: make([]event.BookItem, 0, len(ws.Asks)),
		}
		for _, lvl := range ws.Bids {
			book.Bids = append(book.Bids, event.BookItem{Price: parseDec(lvl.Price), Volume: parseDec(lvl.Size)})
		}
		for _, lvl := range ws.Asks {
			book.Asks = append(book.Asks, event.BookItem{Price: parseDec(lvl.Price), Volume: parseDec(lvl.Size)})
		}

		o.cache.SetBook(book.Symbol, book)
		if err := o.OnBook(ctx, book); err != nil {
			return err
		}
	}
	return nil
}

// handleTicks translates a tickers frame, joining each tick to the symbol's
// last cached book.
func (o *Okx) handleTicks(ctx context.Context, msg *WsMessage) error {
	for i := range msg.Ticks {
		ws := &msg.Ticks[i]
		last := parseDec(ws.Last)
		lastSz := parseDec(ws.LastSz)

		tick := &event.Tick{
			Meta: event.Meta{
				Symbol:      msg.Arg.InstID,
				Exchange:    exchangeName,
				TimestampMs: parseMs(ws.Ts),
			},
			LastPrice:  last,
			LastVolume: lastSz,
			Turnover:   last.Mul(lastSz),

			OpenPrice: parseDec(ws.Open24h),
			HighPrice: parseDec(ws.High24h),
			LowPrice:  parseDec(ws.Low24h),
			// The venue has no previous-close field; open24h is the closest
			// approximation.
			LastClosePrice: parseDec(ws.Open24h),
		}

		o.cache.Apply(func(m map[string]*market.Snapshot) {
			s, ok := m[tick.Symbol]
			if !ok {
				s = &market.Snapshot{Symbol: tick.Symbol}
				m[tick.Symbol] = s
			}
			tick.OrderBook = s.LastBook
			s.LastTick = tick
		})

		if err := o.OnTick(ctx, tick); err != nil {
			return err
		}
	}
	return nil
}

func (o *Okx) handleAccount(ctx context.Context, msg *WsMessage) error {
	for i := range msg.Account {
		acct := translateAccount(&msg.Account[i])
		if err := o.OnAccount(ctx, acct); err != nil {
			return err
		}
	}
	return nil
}

func (o *Okx) handlePositions(ctx context.Context, msg *WsMessage) error {
	pos := translatePositions(msg.Positions)
	return o.OnPosition(ctx, pos)
}

// SubscribeBook subscribes the books channel for one symbol.
func (o *Okx) SubscribeBook(ctx context.Context, sub *event.Subscribe) error {
	return o.public.Subscribe(ctx, WsSubscribeDetail{Channel: "books", InstID: sub.Symbol})
}

// SubscribeTick subscribes the tickers channel for one symbol.
func (o *Okx) SubscribeTick(ctx context.Context, sub *event.Subscribe) error {
	return o.public.Subscribe(ctx, WsSubscribeDetail{Channel: "tickers", InstID: sub.Symbol})
}

// isTransient reports whether a venue error is worth retrying.
func isTransient(err error) bool {
	return errors.Is(err, apperrors.ErrRateLimitExceeded) ||
		errors.Is(err, apperrors.ErrSystemOverload)
}

// QueryAccount fetches the account snapshot over REST and publishes it.
func (o *Okx) QueryAccount(ctx context.Context) error {
	var acct *Account
	err := retry.Do(ctx, retry.DefaultPolicy, isTransient, func() error {
		var err error
		acct, err = o.http.GetAccount(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return o.OnAccount(ctx, translateAccount(acct))
}

// QueryPosition fetches open positions over REST and publishes them. No
// positions yields an event with empty items and a zero timestamp.
func (o *Okx) QueryPosition(ctx context.Context) error {
	var positions []PositionDetail
	err := retry.Do(ctx, retry.DefaultPolicy, isTransient, func() error {
		var err error
		positions, err = o.http.GetPositions(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return o.OnPosition(ctx, translatePositions(positions))
}

// QueryOrder fetches pending orders over REST and publishes them.
func (o *Okx) QueryOrder(ctx context.Context) error {
	var pending []PendingOrder
	err := retry.Do(ctx, retry.DefaultPolicy, isTransient, func() error {
		var err error
		pending, err = o.http.GetPendingOrders(ctx)
		return err
	})
	if err != nil {
		return err
	}

	orders := &event.Order{Meta: event.Meta{Exchange: exchangeName}}
	for i := range pending {
		orders.Items = append(orders.Items, translatePendingOrder(&pending[i]))
	}
	return o.OnOrder(ctx, orders)
}

func translateAccount(a *Account) *event.Account {
	acct := &event.Account{
		Meta: event.Meta{
			Exchange:    exchangeName,
			TimestampMs: parseMs(a.UTime),
		},
		Balance: parseDec(a.TotalEq),
	}
	for _, d := range a.Details {
		frozen := parseDec(d.FrozenBal)
		acct.FrozenBalance = acct.FrozenBalance.Add(frozen)
		acct.Items = append(acct.Items, &event.BalanceItem{
			Symbol:        d.Ccy,
			Balance:       parseDec(d.Eq),
			FrozenBalance: frozen,
		})
	}
	return acct
}

func translatePositions(positions []PositionDetail) *event.Position {
	pos := &event.Position{Meta: event.Meta{Exchange: exchangeName}}
	if len(positions) == 0 {
		return pos
	}

	pos.TimestampMs = parseMs(positions[0].UTime)
	for _, p := range positions {
		symbol := p.InstID
		if symbol == "" {
			symbol = p.Ccy
		}
		item := &event.PositionItem{
			Symbol: symbol,
			Volume: parseDec(p.Pos),
			Price:  parseDec(p.AvgPx),
			Pnl:    parseDec(p.Upl),
		}
		if item.Pnl.IsZero() {
			item.Pnl = parseDec(p.Pnl)
		}
		if p.PosSide == "short" {
			item.Direction = event.Sell
		} else {
			item.Direction = event.Buy
		}
		pos.Items = append(pos.Items, item)
	}
	return pos
}

func parseDec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseMs(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
