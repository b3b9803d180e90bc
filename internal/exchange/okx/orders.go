package okx

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"qitrader/internal/core"
	"qitrader/internal/event"
)

// isSwap reports whether the instrument is a perpetual.
func isSwap(symbol string) bool {
	return strings.Contains(symbol, "SWAP")
}

// buildOrderRequest maps one order line to the venue's wire model. Swaps
// trade cross-margined with an explicit position side; spot trades cash with
// sizes quoted in the base currency.
func buildOrderRequest(item *event.OrderItem) SendOrderRequest {
	req := SendOrderRequest{
		InstID:  item.Symbol,
		ClOrdID: newClientOrderID(),
		Side:    item.Direction.String(),
		Sz:      item.Volume.String(),
	}

	if isSwap(item.Symbol) {
		req.TdMode = "cross"
		if item.Direction == event.Buy {
			req.PosSide = "long"
		} else {
			req.PosSide = "short"
		}
	} else {
		req.TdMode = "cash"
		req.TgtCcy = "base_ccy"
	}

	if item.OrderType == event.Market {
		req.OrdType = "market"
	} else {
		req.OrdType = "limit"
		req.Px = item.Price.String()
	}
	return req
}

// newClientOrderID returns a venue-acceptable client order id: 32 hex chars,
// no dashes.
func newClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SendOrders submits all items as one batch. Items the venue rejects are
// logged individually; the batch itself still succeeds.
func (o *Okx) SendOrders(ctx context.Context, order *event.Order) error {
	if len(order.Items) == 0 {
		return nil
	}

	reqs := make([]SendOrderRequest, 0, len(order.Items))
	for _, item := range order.Items {
		reqs = append(reqs, buildOrderRequest(item))
	}

	acks, err := o.http.SendOrders(ctx, reqs)
	if err != nil {
		return err
	}

	for i, ack := range acks {
		if ack.SCode != "0" {
			symbol := ""
			if i < len(order.Items) {
				symbol = order.Items[i].Symbol
			}
			o.logger.Error("send order failed", "symbol", symbol, "code", ack.SCode, "msg", ack.SMsg)
		}
	}
	return nil
}

// CancelOrders cancels every item carrying an order id.
func (o *Okx) CancelOrders(ctx context.Context, order *event.Order) error {
	reqs := make([]CancelOrderRequest, 0, len(order.Items))
	for _, item := range order.Items {
		if item.OrderID == "" {
			continue
		}
		reqs = append(reqs, CancelOrderRequest{InstID: item.Symbol, OrdID: item.OrderID})
	}
	if len(reqs) == 0 {
		return nil
	}

	acks, err := o.http.CancelOrders(ctx, reqs)
	if err != nil {
		return err
	}
	for _, ack := range acks {
		// 51401: order already gone; cancelling it is not a failure.
		if ack.SCode != "0" && ack.SCode != "51401" {
			o.logger.Warn("cancel order failed", "ordId", ack.OrdID, "code", ack.SCode, "msg", ack.SMsg)
		}
	}
	return nil
}

// mapOrderState maps the venue's order state to the engine's status.
func mapOrderState(state string) (event.OrderStatus, bool) {
	switch state {
	case "live":
		return event.Pending, true
	case "partially_filled":
		return event.PartialFilled, true
	case "filled":
		return event.Filled, true
	case "canceled":
		return event.Cancelled, true
	case "rejected", "reject":
		return event.Rejected, true
	}
	return event.Submitting, false
}

// orderTracker enforces the monotonic order status machine across stream
// updates: Submitting → Pending → PartialFilled → Filled, with Filled,
// Cancelled, and Rejected absorbing.
type orderTracker struct {
	mu     sync.Mutex
	last   map[string]event.OrderStatus
	logger core.Logger
}

func newOrderTracker(logger core.Logger) *orderTracker {
	return &orderTracker{
		last:   make(map[string]event.OrderStatus),
		logger: logger.WithField("component", "order_tracker"),
	}
}

// advance records the transition and reports whether it is legal. Illegal
// backward transitions are dropped by the caller.
func (t *orderTracker) advance(orderID string, next event.OrderStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.last[orderID]
	if seen && (prev.Terminal() || next < prev) {
		t.logger.Warn("dropping backward order transition",
			"ordId", orderID, "from", prev.String(), "to", next.String())
		return false
	}
	// Terminal states stay recorded so late duplicates are still rejected.
	t.last[orderID] = next
	return true
}

// handleOrders translates a private orders frame into Order events, plus a
// Trade event for every fill increment.
func (o *Okx) handleOrders(ctx context.Context, msg *WsMessage) error {
	for i := range msg.Orders {
		ws := &msg.Orders[i]

		status, ok := mapOrderState(ws.State)
		if !ok {
			o.logger.Warn("unknown order state", "ordId", ws.OrdID, "state", ws.State)
			continue
		}
		if !o.orders.advance(ws.OrdID, status) {
			continue
		}

		item := &event.OrderItem{
			Meta: event.Meta{
				Symbol:      ws.InstID,
				Exchange:    exchangeName,
				TimestampMs: parseMs(ws.UTime),
			},
			OrderID:      ws.OrdID,
			Price:        parseDec(ws.Px),
			Volume:       parseDec(ws.Sz),
			FilledVolume: parseDec(ws.AccFillSz),
			Status:       status,
		}
		if ws.Side == "sell" {
			item.Direction = event.Sell
		}
		if ws.OrdType == "market" {
			item.OrderType = event.Market
		}

		order := &event.Order{
			Meta:  item.Meta,
			Items: []*event.OrderItem{item},
		}
		if err := o.OnOrder(ctx, order); err != nil {
			return err
		}

		fillVol := parseDec(ws.FillSz)
		if ws.TradeID != "" && fillVol.IsPositive() {
			trade := &event.Trade{
				Meta:      item.Meta,
				TradeID:   ws.TradeID,
				Direction: item.Direction,
				Price:     parseDec(ws.FillPx),
				Volume:    fillVol,
				Order:     order,
			}
			if err := o.OnTrade(ctx, trade); err != nil {
				return err
			}
		}
	}
	return nil
}

// translatePendingOrder maps one REST pending order to an order line.
func translatePendingOrder(p *PendingOrder) *event.OrderItem {
	item := &event.OrderItem{
		Meta: event.Meta{
			Symbol:      p.InstID,
			Exchange:    exchangeName,
			TimestampMs: parseMs(p.UTime),
		},
		OrderID:      p.OrdID,
		Price:        parseDec(p.Px),
		Volume:       parseDec(p.Sz),
		FilledVolume: parseDec(p.AccFillSz),
	}
	if p.Side == "sell" {
		item.Direction = event.Sell
	}
	if p.OrdType == "market" {
		item.OrderType = event.Market
	}
	if status, ok := mapOrderState(p.State); ok {
		item.Status = status
	} else {
		item.Status = event.Pending
	}
	return item
}
