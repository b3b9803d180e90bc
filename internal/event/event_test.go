package event

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValidateMatchesDeclaredVariants(t *testing.T) {
	cases := []struct {
		typ     Type
		payload Payload
	}{
		{TypeQuit, &Quit{}},
		{TypeSubscribeTick, &Subscribe{}},
		{TypeSubscribeBook, &Subscribe{}},
		{TypeTick, &Tick{}},
		{TypeBook, &Book{}},
		{TypeSendOrder, &Order{}},
		{TypeOrder, &Order{}},
		{TypeQueryOrder, &QueryOrder{}},
		{TypeTrade, &Trade{}},
		{TypeQueryPosition, &QueryPosition{}},
		{TypePosition, &Position{}},
		{TypeQueryAccount, &QueryAccount{}},
		{TypeAccount, &Account{}},
		{TypeMessage, &Message{}},
	}

	for _, tc := range cases {
		require.NoError(t, Validate(tc.typ, tc.payload), "type %v", tc.typ)
	}
}

func TestValidateRejectsMismatch(t *testing.T) {
	require.Error(t, Validate(TypeTick, &Book{}))
	require.Error(t, Validate(TypeAccount, &Position{}))
	require.Error(t, Validate(TypeQuit, &Message{}))
}

func TestValidateRejectsWildcardPublish(t *testing.T) {
	require.Error(t, Validate(TypeAll, &Tick{}))
}

func TestOrderStatusTerminal(t *testing.T) {
	require.False(t, Submitting.Terminal())
	require.False(t, Pending.Terminal())
	require.False(t, PartialFilled.Terminal())
	require.True(t, Filled.Terminal())
	require.True(t, Cancelled.Terminal())
	require.True(t, Rejected.Terminal())
}

func TestBookDeleteLevelsPassThrough(t *testing.T) {
	book := &Book{
		Bids: []BookItem{
			{Price: decimal.NewFromInt(30000), Volume: decimal.NewFromInt(1)},
			{Price: decimal.NewFromInt(29999), Volume: decimal.Zero},
		},
	}
	require.True(t, book.Bids[1].Volume.IsZero())
}
