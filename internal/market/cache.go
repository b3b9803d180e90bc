// Package market holds the most recent order book and tick per symbol.
package market

import (
	"sync"

	"qitrader/internal/event"
)

// Snapshot is the cached state of one symbol. Book and Tick payloads are
// immutable after publish, so sharing the pointers is safe.
type Snapshot struct {
	Symbol   string
	LastBook *event.Book
	LastTick *event.Tick
}

// Cache is a concurrent symbol → Snapshot mapping. All mutations are
// serialized by a single lock; reads return value copies so callers never
// alias the protected region.
type Cache struct {
	mu sync.Mutex
	m  map[string]*Snapshot
}

func NewCache() *Cache {
	return &Cache{m: make(map[string]*Snapshot)}
}

// Apply runs f with a mutable reference to the underlying map while holding
// the cache lock. f must not retain the map or its entries.
func (c *Cache) Apply(f func(map[string]*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(c.m)
}

// Contains reports whether the symbol has an entry.
func (c *Cache) Contains(symbol string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[symbol]
	return ok
}

// Get returns a value snapshot of the symbol's entry.
func (c *Cache) Get(symbol string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[symbol]
	if !ok {
		return Snapshot{Symbol: symbol}, false
	}
	return *s, true
}

// SetBook replaces the symbol's last book.
func (c *Cache) SetBook(symbol string, book *event.Book) {
	c.Apply(func(m map[string]*Snapshot) {
		entry(m, symbol).LastBook = book
	})
}

// SetTick replaces the symbol's last tick.
func (c *Cache) SetTick(symbol string, tick *event.Tick) {
	c.Apply(func(m map[string]*Snapshot) {
		entry(m, symbol).LastTick = tick
	})
}

// Size returns the number of cached symbols.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func entry(m map[string]*Snapshot, symbol string) *Snapshot {
	s, ok := m[symbol]
	if !ok {
		s = &Snapshot{Symbol: symbol}
		m[symbol] = s
	}
	return s
}
