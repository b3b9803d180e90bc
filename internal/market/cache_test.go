package market

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"qitrader/internal/event"
)

func TestApplyMutatesUnderlyingMap(t *testing.T) {
	c := NewCache()

	book := &event.Book{Meta: event.Meta{Symbol: "BTC-USDT"}}
	c.Apply(func(m map[string]*Snapshot) {
		m["BTC-USDT"] = &Snapshot{Symbol: "BTC-USDT", LastBook: book}
	})

	got, ok := c.Get("BTC-USDT")
	require.True(t, ok)
	require.Same(t, book, got.LastBook)
}

func TestGetReturnsValueSnapshot(t *testing.T) {
	c := NewCache()
	c.SetBook("BTC-USDT", &event.Book{Meta: event.Meta{Symbol: "BTC-USDT"}})

	snap, ok := c.Get("BTC-USDT")
	require.True(t, ok)

	// Mutating the returned value must not leak into the cache.
	snap.LastBook = nil
	again, _ := c.Get("BTC-USDT")
	require.NotNil(t, again.LastBook)
}

func TestSetTickReplacesPrevious(t *testing.T) {
	c := NewCache()

	first := &event.Tick{LastPrice: decimal.NewFromInt(1)}
	second := &event.Tick{LastPrice: decimal.NewFromInt(2)}
	c.SetTick("ETH-USDT", first)
	c.SetTick("ETH-USDT", second)

	snap, _ := c.Get("ETH-USDT")
	require.Same(t, second, snap.LastTick)
}

func TestContainsAndSize(t *testing.T) {
	c := NewCache()
	require.False(t, c.Contains("BTC-USDT"))

	c.SetBook("BTC-USDT", &event.Book{})
	c.SetTick("ETH-USDT", &event.Tick{})

	require.True(t, c.Contains("BTC-USDT"))
	require.True(t, c.Contains("ETH-USDT"))
	require.Equal(t, 2, c.Size())
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sym := fmt.Sprintf("SYM-%d", j%4)
				c.SetBook(sym, &event.Book{Meta: event.Meta{Symbol: sym, TimestampMs: int64(j)}})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(fmt.Sprintf("SYM-%d", j%4))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 4, c.Size())
}
