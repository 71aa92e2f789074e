package store

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/eycin/papertrade/internal/domain"
)

// Ledger owns the account collection, keyed by canonical (lowercase)
// username. One mutex guards the whole collection: every operation on
// an account is a single critical section, so two operations on the
// same account can never interleave. The oscillator never takes this
// lock, so ticks are not serialized against account traffic.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[string]*domain.Account),
	}
}

// Create adds an account. Usernames are unique case-insensitively;
// a collision returns domain.ErrUsernameTaken.
func (l *Ledger) Create(a *domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := a.Key()
	if _, exists := l.accounts[key]; exists {
		return domain.ErrUsernameTaken
	}
	l.accounts[key] = a
	return nil
}

// Get returns a deep copy of the account, or domain.ErrAccountNotFound.
// Callers never receive a reference into the ledger's own state.
func (l *Ledger) Get(username string) (*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// Delete removes an account. Admin accounts cannot be deleted and
// return domain.ErrForbidden.
func (l *Ledger) Delete(username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return err
	}
	if a.IsAdmin() {
		return domain.ErrForbidden
	}
	delete(l.accounts, a.Key())
	return nil
}

// Deposit increases the balance by amount. Negative amounts are
// rejected with domain.ErrInvalidAmount; any non-negative amount
// succeeds.
func (l *Ledger) Deposit(username string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Decimal{}, domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return decimal.Decimal{}, err
	}
	a.Balance = a.Balance.Add(amount)
	return a.Balance, nil
}

// AdjustBalance applies a signed delta to the balance. It fails with
// domain.ErrInsufficientFunds when the result would be negative, and
// commits otherwise.
func (l *Ledger) AdjustBalance(username string, delta decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return err
	}
	return adjustBalance(a, delta)
}

// AdjustPortfolio applies a signed quantity delta to a position. A
// positive delta always succeeds and creates the position if needed.
// A non-positive delta requires the held quantity to cover it, else
// domain.ErrInsufficientShares; exact exhaustion removes the entry.
func (l *Ledger) AdjustPortfolio(username, symbol string, delta int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return err
	}
	return adjustPortfolio(a, symbol, delta)
}

// Buy debits price×quantity from the balance and credits the position,
// as one critical section. If the debit fails, the portfolio is left
// untouched. The price is the one observed by the caller at the
// instant of the check; later ticks do not affect a committed trade.
// It returns the total cost of the trade.
func (l *Ledger) Buy(username, symbol string, quantity int64, price decimal.Decimal) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Decimal{}, domain.ErrInvalidQuantity
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return decimal.Decimal{}, err
	}
	cost := price.Mul(decimal.NewFromInt(quantity))
	if err := adjustBalance(a, cost.Neg()); err != nil {
		return decimal.Decimal{}, err
	}
	// Positive delta cannot fail, so the debit cannot be stranded.
	if err := adjustPortfolio(a, symbol, quantity); err != nil {
		a.Balance = a.Balance.Add(cost)
		return decimal.Decimal{}, err
	}
	return cost, nil
}

// Sell debits the position and credits price×quantity to the balance,
// as one critical section. Insufficient shares leave both fields
// unchanged. It returns the proceeds of the trade.
func (l *Ledger) Sell(username, symbol string, quantity int64, price decimal.Decimal) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Decimal{}, domain.ErrInvalidQuantity
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := adjustPortfolio(a, symbol, -quantity); err != nil {
		return decimal.Decimal{}, err
	}
	proceeds := price.Mul(decimal.NewFromInt(quantity))
	a.Balance = a.Balance.Add(proceeds)
	return proceeds, nil
}

// NetWorth values an account against the given price snapshot:
// balance plus Σ price×quantity over the portfolio. Symbols missing
// from the snapshot (delisted while held) are excluded from the sum
// and returned so the caller can flag them, rather than being silently
// valued at zero.
func (l *Ledger) NetWorth(username string, prices map[string]decimal.Decimal) (decimal.Decimal, []string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.lookup(username)
	if err != nil {
		return decimal.Decimal{}, nil, err
	}
	total := a.Balance
	var unresolved []string
	for symbol, qty := range a.Portfolio {
		price, ok := prices[symbol]
		if !ok {
			unresolved = append(unresolved, symbol)
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(qty)))
	}
	sort.Strings(unresolved)
	return total, unresolved, nil
}

// Holders returns the usernames of accounts holding a position in
// symbol, in display form, ordered.
func (l *Ledger) Holders(symbol string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string
	for _, a := range l.accounts {
		if a.Portfolio[symbol] > 0 {
			out = append(out, a.Username)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns deep copies of every account, ordered by canonical
// username, for display and persistence.
func (l *Ledger) Snapshot() []*domain.Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]string, 0, len(l.accounts))
	for key := range l.accounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*domain.Account, 0, len(keys))
	for _, key := range keys {
		out = append(out, l.accounts[key].Clone())
	}
	return out
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accounts)
}

// lookup resolves a username to the live account. Callers must hold
// the ledger mutex.
func (l *Ledger) lookup(username string) (*domain.Account, error) {
	a, ok := l.accounts[domain.CanonicalUsername(username)]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

func adjustBalance(a *domain.Account, delta decimal.Decimal) error {
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return domain.ErrInsufficientFunds
	}
	a.Balance = next
	return nil
}

func adjustPortfolio(a *domain.Account, symbol string, delta int64) error {
	if delta > 0 {
		a.Portfolio[symbol] += delta
		return nil
	}
	held := a.Portfolio[symbol]
	if held < -delta {
		return domain.ErrInsufficientShares
	}
	next := held + delta
	if next == 0 {
		delete(a.Portfolio, symbol)
		return nil
	}
	a.Portfolio[symbol] = next
	return nil
}
