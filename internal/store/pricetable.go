package store

import (
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/eycin/papertrade/internal/domain"
)

// quoteLess orders price table entries by symbol ascending, so an
// in-order walk yields a deterministic, display-ready listing.
func quoteLess(a, b domain.Quote) bool {
	return a.Symbol < b.Symbol
}

// PriceTable is the authoritative symbol → price state, shared between
// the foreground request path and the background oscillator. A single
// mutex serializes reads, writes, and batch updates: no caller ever
// observes a half-applied admin edit or a partially committed
// oscillator tick.
type PriceTable struct {
	mu     sync.RWMutex
	quotes *btree.BTreeG[domain.Quote]
}

// NewPriceTable creates an empty price table.
func NewPriceTable() *PriceTable {
	const degree = 32
	return &PriceTable{
		quotes: btree.NewG[domain.Quote](degree, quoteLess),
	}
}

// Get returns the current price for symbol, or
// domain.ErrSymbolNotFound when the symbol is not listed.
func (t *PriceTable) Get(symbol string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	q, ok := t.quotes.Get(domain.Quote{Symbol: symbol})
	if !ok {
		return decimal.Decimal{}, domain.ErrSymbolNotFound
	}
	return q.Price, nil
}

// Set upserts a price. Negative prices are rejected with
// domain.ErrInvalidPrice and leave the table untouched.
func (t *PriceTable) Set(symbol string, price decimal.Decimal) error {
	if price.IsNegative() {
		return domain.ErrInvalidPrice
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.quotes.ReplaceOrInsert(domain.Quote{Symbol: symbol, Price: price})
	return nil
}

// Remove delists a symbol. It reports whether the symbol was present.
func (t *PriceTable) Remove(symbol string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, removed := t.quotes.Delete(domain.Quote{Symbol: symbol})
	return removed
}

// Snapshot returns a symbol-ordered copy of every quote, taken under
// the table lock so it is consistent with respect to batch updates.
func (t *PriceTable) Snapshot() []domain.Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Quote, 0, t.quotes.Len())
	t.quotes.Ascend(func(q domain.Quote) bool {
		out = append(out, q)
		return true
	})
	return out
}

// Symbols returns the ordered symbol set.
func (t *PriceTable) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, t.quotes.Len())
	t.quotes.Ascend(func(q domain.Quote) bool {
		out = append(out, q.Symbol)
		return true
	})
	return out
}

// Len returns the number of listed symbols.
func (t *PriceTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.quotes.Len()
}

// ApplyBatch commits a full oscillator tick as one atomic update:
// every quote in the batch is written while the table lock is held, so
// a concurrent Snapshot sees either the whole tick or none of it.
// Symbols delisted between the tick's capture and its commit are
// skipped, as are negative prices, which must never be stored.
func (t *PriceTable) ApplyBatch(quotes []domain.Quote) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, q := range quotes {
		if q.Price.IsNegative() {
			continue
		}
		if _, ok := t.quotes.Get(domain.Quote{Symbol: q.Symbol}); !ok {
			continue
		}
		t.quotes.ReplaceOrInsert(q)
	}
}
