package event

import "github.com/shopspring/decimal"

// Meta carries the envelope fields shared by all domain records.
type Meta struct {
	Symbol      string
	Exchange    string
	TimestampMs int64
}

// Direction of an order, trade, or position.
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "sell"
	}
	return "buy"
}

// OrderType distinguishes limit and market orders.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

// OrderStatus follows Submitting → Pending → PartialFilled → Filled, with
// Filled, Cancelled, and Rejected absorbing.
type OrderStatus int

const (
	Submitting OrderStatus = iota
	Pending
	PartialFilled
	Filled
	Cancelled
	Rejected
)

var statusNames = [...]string{"submitting", "pending", "partial_filled", "filled", "cancelled", "rejected"}

func (s OrderStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions are allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// BookItem is one price level of an order book. A zero volume is a deletion
// marker and passes through to subscribers unchanged.
type BookItem struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// Book is an order book snapshot: bids descending, asks ascending by price.
type Book struct {
	Meta
	Bids []BookItem
	Asks []BookItem
}

func (*Book) payload() {}

// Tick is a most-recent-trade summary plus 24h aggregates. OrderBook points
// at the last Book snapshot seen for the symbol at emission time, or nil.
type Tick struct {
	Meta
	LastPrice  decimal.Decimal
	LastVolume decimal.Decimal
	Turnover   decimal.Decimal

	OpenPrice      decimal.Decimal
	HighPrice      decimal.Decimal
	LowPrice       decimal.Decimal
	LastClosePrice decimal.Decimal

	OrderBook *Book
}

func (*Tick) payload() {}

// Bar is an OHLCV aggregate over a fixed interval. Reserved; the gateway does
// not produce bars.
type Bar struct {
	Meta
	IntervalSec int64

	Volume     decimal.Decimal
	OpenPrice  decimal.Decimal
	HighPrice  decimal.Decimal
	LowPrice   decimal.Decimal
	ClosePrice decimal.Decimal
}

// OrderItem is a single order line. OrderID is empty before the venue accepts
// the order.
type OrderItem struct {
	Meta
	OrderID string

	Direction    Direction
	Price        decimal.Decimal
	Volume       decimal.Decimal
	FilledVolume decimal.Decimal

	OrderType OrderType
	Status    OrderStatus
}

// Order is one or more order line items submitted together.
type Order struct {
	Meta
	Items []*OrderItem
}

func (*Order) payload() {}

// Trade is one fill, referencing the order it executed against.
type Trade struct {
	Meta
	TradeID string

	Direction Direction
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Order     *Order
}

func (*Trade) payload() {}

// PositionItem is one held position.
type PositionItem struct {
	Symbol       string
	Volume       decimal.Decimal
	Direction    Direction
	FrozenVolume decimal.Decimal
	Price        decimal.Decimal
	Pnl          decimal.Decimal
}

// Position is an account position snapshot.
type Position struct {
	Meta
	Items []*PositionItem
}

func (*Position) payload() {}

// BalanceItem is the balance of a single currency.
type BalanceItem struct {
	Symbol        string
	Balance       decimal.Decimal
	FrozenBalance decimal.Decimal
}

// Account is an account balance snapshot.
type Account struct {
	Meta
	AccountID     string
	Balance       decimal.Decimal
	FrozenBalance decimal.Decimal
	Items         []*BalanceItem
}

func (*Account) payload() {}

// Subscribe requests streaming data for one symbol.
type Subscribe struct {
	Meta
}

func (*Subscribe) payload() {}

// QueryAccount requests an account snapshot from the gateway.
type QueryAccount struct {
	Meta
}

func (*QueryAccount) payload() {}

// QueryPosition requests a position snapshot from the gateway.
type QueryPosition struct {
	Meta
}

func (*QueryPosition) payload() {}

// QueryOrder requests the pending orders from the gateway.
type QueryOrder struct {
	Meta
}

func (*QueryOrder) payload() {}

// Message is free-form text for the notifier.
type Message struct {
	Meta
	Text string
}

func (*Message) payload() {}

// Quit asks the engine to shut the runtime down.
type Quit struct{}

func (*Quit) payload() {}
