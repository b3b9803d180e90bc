// Package event defines the typed events exchanged over the engine bus and
// the payload variants they carry. Payloads are built once by their producer
// and broadcast read-only; subscribers must not mutate them.
package event

import "fmt"

// Type identifies an event on the bus. Every type is associated with exactly
// one payload variant; Validate enforces the pairing at publish time.
type Type int

const (
	TypeQuit Type = iota

	TypeSubscribeTick
	TypeTick

	TypeSubscribeBook
	TypeBook

	TypeSendOrder
	TypeQueryOrder
	TypeOrder

	TypeTrade

	TypeQueryPosition
	TypePosition

	TypeQueryAccount
	TypeAccount

	TypeMessage

	// TypeAll is a wildcard subscription target; it is never published.
	TypeAll
)

var typeNames = map[Type]string{
	TypeQuit:          "Quit",
	TypeSubscribeTick: "SubscribeTick",
	TypeTick:          "Tick",
	TypeSubscribeBook: "SubscribeBook",
	TypeBook:          "Book",
	TypeSendOrder:     "SendOrder",
	TypeQueryOrder:    "QueryOrder",
	TypeOrder:         "Order",
	TypeTrade:         "Trade",
	TypeQueryPosition: "QueryPosition",
	TypePosition:      "Position",
	TypeQueryAccount:  "QueryAccount",
	TypeAccount:       "Account",
	TypeMessage:       "Message",
	TypeAll:           "All",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Payload is implemented by every event payload variant.
type Payload interface {
	payload()
}

// Event pairs a type tag with its payload.
type Event struct {
	Type Type
	Data Payload
}

// Validate reports whether payload p is the variant declared for type t.
// A mismatch is a programmer error and publishing must fail fast.
func Validate(t Type, p Payload) error {
	ok := false
	switch t {
	case TypeQuit:
		_, ok = p.(*Quit)
	case TypeSubscribeTick, TypeSubscribeBook:
		_, ok = p.(*Subscribe)
	case TypeTick:
		_, ok = p.(*Tick)
	case TypeBook:
		_, ok = p.(*Book)
	case TypeSendOrder, TypeOrder:
		_, ok = p.(*Order)
	case TypeQueryOrder:
		_, ok = p.(*QueryOrder)
	case TypeTrade:
		_, ok = p.(*Trade)
	case TypeQueryPosition:
		_, ok = p.(*QueryPosition)
	case TypePosition:
		_, ok = p.(*Position)
	case TypeQueryAccount:
		_, ok = p.(*QueryAccount)
	case TypeAccount:
		_, ok = p.(*Account)
	case TypeMessage:
		_, ok = p.(*Message)
	case TypeAll:
		return fmt.Errorf("event: %v is a subscription wildcard, not a publishable type", t)
	default:
		return fmt.Errorf("event: unknown type %v", t)
	}
	if !ok {
		return fmt.Errorf("event: payload %T does not match type %v", p, t)
	}
	return nil
}
