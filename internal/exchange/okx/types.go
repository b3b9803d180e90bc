package okx

import (
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "qitrader/pkg/errors"
)

// APIError is a non-success envelope or per-item code from the venue.
type APIError struct {
	Code int64
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("okx error: %s (%d)", e.Msg, e.Code)
}

// Unwrap maps well-known venue codes onto the standardized sentinel errors.
// https://www.okx.com/docs-v5/en/#error-code-details
func (e *APIError) Unwrap() error {
	switch e.Code {
	case 50004, 50011, 50027:
		return apperrors.ErrInvalidOrderParameter
	case 50005, 50013:
		return apperrors.ErrAuthenticationFailed
	case 50014:
		return apperrors.ErrRateLimitExceeded
	case 51000:
		return apperrors.ErrInsufficientFunds
	case 51401:
		return apperrors.ErrOrderNotFound
	case 51020:
		return apperrors.ErrOrderRejected
	case 50001:
		return apperrors.ErrSystemOverload
	}
	return nil
}

func newAPIError(code, msg string) *APIError {
	n, _ := strconv.ParseInt(code, 10, 64)
	return &APIError{Code: n, Msg: msg}
}

// response is the REST envelope {code, msg, data[]}. OKX encodes code as a
// string.
type response[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

// AccountDetail is one currency's balance inside an account snapshot.
type AccountDetail struct {
	UTime     string `json:"uTime"`
	Ccy       string `json:"ccy"`
	Eq        string `json:"eq"`
	CashBal   string `json:"cashBal"`
	AvailBal  string `json:"availBal"`
	FrozenBal string `json:"frozenBal"`
}

// Account is the /account/balance payload.
type Account struct {
	UTime   string          `json:"uTime"`
	TotalEq string          `json:"totalEq"`
	Details []AccountDetail `json:"details"`
}

// PositionDetail is one entry of /account/positions or the positions channel.
type PositionDetail struct {
	UTime    string `json:"uTime"`
	InstType string `json:"instType"`
	InstID   string `json:"instId"`
	PosID    string `json:"posId"`
	Ccy      string `json:"ccy"`
	PosSide  string `json:"posSide"`

	Pos   string `json:"pos"`
	AvgPx string `json:"avgPx"`
	Pnl   string `json:"pnl"`
	Upl   string `json:"upl"`
}

// PendingOrder is one entry of /trade/orders-pending.
type PendingOrder struct {
	UTime  string `json:"uTime"`
	InstID string `json:"instId"`
	OrdID  string `json:"ordId"`

	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
	State     string `json:"state"`
}

// SendOrderRequest is one item of the batch-orders POST body.
type SendOrderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	ClOrdID string `json:"clOrdId,omitempty"`
	Side    string `json:"side"`
	PosSide string `json:"posSide,omitempty"`
	OrdType string `json:"ordType"`
	TgtCcy  string `json:"tgtCcy,omitempty"`
	Px      string `json:"px,omitempty"`
	Sz      string `json:"sz"`
}

// OrderAck is one item of a batch-orders response.
type OrderAck struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	Tag     string `json:"tag"`
	Ts      string `json:"ts"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// CancelOrderRequest is one item of the cancel-batch-orders POST body.
type CancelOrderRequest struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId,omitempty"`
	ClOrdID string `json:"clOrdId,omitempty"`
}

// CancelAck is one item of a cancel-batch-orders response.
type CancelAck struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	Ts      string `json:"ts"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// WsRequest is the generic outbound frame {op, args}.
type WsRequest[T any] struct {
	Op   string `json:"op"`
	Args []T    `json:"args"`
}

// WsSubscribeDetail subscribes a channel for one instrument, instrument
// class, or currency; unset selectors are omitted.
type WsSubscribeDetail struct {
	Channel  string `json:"channel"`
	InstID   string `json:"instId,omitempty"`
	InstType string `json:"instType,omitempty"`
	Ccy      string `json:"ccy,omitempty"`
}

// WsLoginDetail is the private-stream login payload.
type WsLoginDetail struct {
	APIKey     string `json:"apiKey"`
	Passphrase string `json:"passphrase"`
	Timestamp  string `json:"timestamp"`
	Sign       string `json:"sign"`
}

// WsArg identifies the channel a data frame belongs to.
type WsArg struct {
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	Ccy      string `json:"ccy"`
}

// WsTick is one entry of the tickers channel.
type WsTick struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	Last     string `json:"last"`
	LastSz   string `json:"lastSz"`

	BidPx string `json:"bidPx"`
	BidSz string `json:"bidSz"`
	AskPx string `json:"askPx"`
	AskSz string `json:"askSz"`

	Open24h   string `json:"open24h"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	VolCcy24h string `json:"volCcy24h"`
	Vol24h    string `json:"vol24h"`

	Ts string `json:"ts"`
}

// WsBookLevel is one [price, size, deprecated, order count] tuple.
type WsBookLevel struct {
	Price  string
	Size   string
	Orders int64
}

func (l *WsBookLevel) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("book level needs at least price and size, got %d fields", len(raw))
	}
	l.Price = raw[0]
	l.Size = raw[1]
	if len(raw) >= 4 {
		l.Orders, _ = strconv.ParseInt(raw[3], 10, 64)
	}
	return nil
}

// WsBook is one entry of the books channel.
type WsBook struct {
	Bids []WsBookLevel `json:"bids"`
	Asks []WsBookLevel `json:"asks"`

	Ts        string `json:"ts"`
	Checksum  int64  `json:"checksum"`
	PrevSeqID int64  `json:"prevSeqId"`
	SeqID     int64  `json:"seqId"`
}

// WsOrder is one entry of the private orders channel.
type WsOrder struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`

	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	State     string `json:"state"`
	FillSz    string `json:"fillSz"`
	FillPx    string `json:"fillPx"`
	TradeID   string `json:"tradeId"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
	UTime     string `json:"uTime"`
	CTime     string `json:"cTime"`
}

// WsMessage is an inbound streaming frame: either an event frame (error,
// login, subscribe ack, connection count) or a data frame whose payload
// variant is decided by arg.channel.
type WsMessage struct {
	Event  string
	ConnID string
	Arg    WsArg
	Action string

	// Event frames
	Code      string
	Msg       string
	ConnCount string

	// Data frames; at most one is populated, per Arg.Channel (none for
	// event frames and unknown channels)
	Ticks     []WsTick
	Books     []WsBook
	Account   []Account
	Positions []PositionDetail
	Orders    []WsOrder
}

func (m *WsMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Event     string          `json:"event"`
		ConnID    string          `json:"connId"`
		Arg       WsArg           `json:"arg"`
		Action    string          `json:"action"`
		Code      string          `json:"code"`
		Msg       string          `json:"msg"`
		ConnCount string          `json:"connCount"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Event = raw.Event
	m.ConnID = raw.ConnID
	m.Arg = raw.Arg
	m.Action = raw.Action
	m.Code = raw.Code
	m.Msg = raw.Msg
	m.ConnCount = raw.ConnCount

	if m.Event != "" || len(raw.Data) == 0 {
		return nil
	}

	switch m.Arg.Channel {
	case "tickers":
		return json.Unmarshal(raw.Data, &m.Ticks)
	case "books":
		return json.Unmarshal(raw.Data, &m.Books)
	case "account":
		return json.Unmarshal(raw.Data, &m.Account)
	case "positions":
		return json.Unmarshal(raw.Data, &m.Positions)
	case "orders":
		return json.Unmarshal(raw.Data, &m.Orders)
	}
	// Unknown channels keep the envelope only; the watcher logs and drops.
	return nil
}
