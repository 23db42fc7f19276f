package matching

import (
	"sync"

	"go.uber.org/zap"
)

// BookManager owns one OrderBook per symbol, created lazily. It is the
// process-wide singleton referenced by spec.md §9 ("the order book is
// process-wide... model as a named singleton wrapped in a scoped acquisition
// primitive; tests construct an isolated instance").
type BookManager struct {
	mu     sync.RWMutex
	books  map[string]*OrderBook
	logger *zap.Logger
}

func NewBookManager(logger *zap.Logger) *BookManager {
	return &BookManager{books: make(map[string]*OrderBook), logger: logger}
}

// Book returns the OrderBook for symbol, creating it on first use.
func (m *BookManager) Book(symbol string) *OrderBook {
	m.mu.RLock()
	b, ok := m.books[symbol]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.books[symbol]; ok {
		return b
	}
	b = NewOrderBook(symbol, m.logger)
	m.books[symbol] = b
	return b
}

// Symbols returns the set of symbols with an initialized book.
func (m *BookManager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.books))
	for s := range m.books {
		out = append(out, s)
	}
	return out
}
