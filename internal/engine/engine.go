package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/eycin/papertrade/internal/domain"
	"github.com/eycin/papertrade/internal/store"
)

// Saver is the persistence collaborator: a whole-state overwrite of
// the account and price mirrors. The in-memory state is authoritative
// for the running process; the mirrors are best-effort.
type Saver interface {
	Save(accounts []*domain.Account, prices []domain.Quote) error
}

// Config carries the engine's construction parameters.
type Config struct {
	Saver           Saver         // nil disables persistence
	TickInterval    time.Duration // oscillator cadence
	Amplitude       float64       // per-tick swing bound, 0.1 = ±10%
	StartingBalance decimal.Decimal
	Rand            *rand.Rand // nil for a time-seeded source
}

// Trade describes one committed buy or sell.
type Trade struct {
	Symbol   string
	Quantity int64
	Price    decimal.Decimal // price at the instant of the check
	Total    decimal.Decimal // Price × Quantity
}

// Valuation is the result of a net worth query. Unresolved lists held
// symbols with no current price (delisted while held); their positions
// are excluded from Total rather than valued at zero.
type Valuation struct {
	Total      decimal.Decimal
	Unresolved []string
}

// Exchange composes the price table, the ledger, and the oscillator,
// and is the single entry point for the CLI and HTTP layers. It owns
// both stores for the process lifetime; every mutating call triggers
// the persistence hook after the in-memory commit, outside the store
// locks.
type Exchange struct {
	table  *store.PriceTable
	ledger *store.Ledger
	osc    *Oscillator
	saver  Saver

	startBalance decimal.Decimal
}

// New constructs an engine with empty state. Call LoadState and Seed
// before exposing it to callers.
func New(cfg Config) *Exchange {
	e := &Exchange{
		table:        store.NewPriceTable(),
		ledger:       store.NewLedger(),
		saver:        cfg.Saver,
		startBalance: cfg.StartingBalance,
	}
	e.osc = NewOscillator(e.table, cfg.TickInterval, cfg.Amplitude, cfg.Rand, e.persist)
	return e
}

// LoadState hydrates the stores from previously persisted records.
func (e *Exchange) LoadState(accounts []*domain.Account, quotes []domain.Quote) error {
	for _, a := range accounts {
		if err := e.ledger.Create(a); err != nil {
			return err
		}
	}
	for _, q := range quotes {
		if err := e.table.Set(q.Symbol, q.Price); err != nil {
			return err
		}
	}
	return nil
}

// Seed installs the fixed admin account when the ledger is empty and
// the preset price list when the table is empty, so a fresh start is
// immediately usable. Absence of persisted state is not an error.
func (e *Exchange) Seed(adminUsername, adminPassword string) error {
	if e.ledger.Len() == 0 {
		admin, err := domain.NewAccount(adminUsername, adminPassword, domain.RoleAdmin, e.startBalance)
		if err != nil {
			return err
		}
		if err := e.ledger.Create(admin); err != nil {
			return err
		}
		log.WithField("username", admin.Username).Info("seeded admin account")
	}
	if e.table.Len() == 0 {
		presets := []domain.Quote{
			{Symbol: "AAPL", Price: decimal.RequireFromString("150.00")},
			{Symbol: "TSLA", Price: decimal.RequireFromString("300.00")},
		}
		for _, q := range presets {
			if err := e.table.Set(q.Symbol, q.Price); err != nil {
				return err
			}
		}
		log.WithField("symbols", len(presets)).Info("seeded price table")
	}
	e.persist()
	return nil
}

// StartOscillator launches the background price loop. Cancel the
// context before process exit so no tick races against shutdown.
func (e *Exchange) StartOscillator(ctx context.Context) {
	e.osc.Start(ctx)
}

// SignUp validates the username format, enforces case-insensitive
// uniqueness, hashes the credential, and creates the account with the
// configured starting balance.
func (e *Exchange) SignUp(username, password string, role domain.Role) (*domain.Account, error) {
	a, err := domain.NewAccount(username, password, role, e.startBalance)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Create(a); err != nil {
		return nil, err
	}
	e.persist()
	return a.Clone(), nil
}

// Login resolves the username case-insensitively and verifies the
// credential. Unknown users and bad passwords report the same
// domain.ErrUnauthorized.
func (e *Exchange) Login(username, password string) (*domain.Account, error) {
	a, err := e.ledger.Get(username)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	if !a.CheckPassword(password) {
		return nil, domain.ErrUnauthorized
	}
	return a, nil
}

// Account returns a read copy of one account.
func (e *Exchange) Account(username string) (*domain.Account, error) {
	return e.ledger.Get(username)
}

// Accounts returns read copies of every account, ordered by username.
func (e *Exchange) Accounts() []*domain.Account {
	return e.ledger.Snapshot()
}

// DeleteAccount removes a customer account. Admin accounts are
// refused with domain.ErrForbidden.
func (e *Exchange) DeleteAccount(username string) error {
	if err := e.ledger.Delete(username); err != nil {
		return err
	}
	e.persist()
	return nil
}

// Deposit adds a non-negative amount to an account's balance and
// returns the new balance.
func (e *Exchange) Deposit(username string, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := e.ledger.Deposit(username, amount)
	if err != nil {
		return decimal.Decimal{}, err
	}
	e.persist()
	return balance, nil
}

// Buy purchases quantity shares of symbol at the current list price.
// The price lookup and the ledger commit use the price observed at the
// instant of the check; a later oscillator tick does not retroactively
// affect the trade.
func (e *Exchange) Buy(username, symbol string, quantity int64) (*Trade, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	price, err := e.table.Get(sym)
	if err != nil {
		return nil, err
	}
	cost, err := e.ledger.Buy(username, sym, quantity, price)
	if err != nil {
		return nil, err
	}
	e.persist()
	return &Trade{Symbol: sym, Quantity: quantity, Price: price, Total: cost}, nil
}

// Sell disposes quantity shares of symbol at the current list price.
func (e *Exchange) Sell(username, symbol string, quantity int64) (*Trade, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	price, err := e.table.Get(sym)
	if err != nil {
		return nil, err
	}
	proceeds, err := e.ledger.Sell(username, sym, quantity, price)
	if err != nil {
		return nil, err
	}
	e.persist()
	return &Trade{Symbol: sym, Quantity: quantity, Price: price, Total: proceeds}, nil
}

// NetWorth values an account against a consistent snapshot of the
// price table.
func (e *Exchange) NetWorth(username string) (*Valuation, error) {
	snapshot := e.table.Snapshot()
	prices := make(map[string]decimal.Decimal, len(snapshot))
	for _, q := range snapshot {
		prices[q.Symbol] = q.Price
	}
	total, unresolved, err := e.ledger.NetWorth(username, prices)
	if err != nil {
		return nil, err
	}
	return &Valuation{Total: total, Unresolved: unresolved}, nil
}

// SetPrice upserts a symbol's price (admin operation).
func (e *Exchange) SetPrice(symbol string, price decimal.Decimal) error {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if err := e.table.Set(sym, price); err != nil {
		return err
	}
	e.persist()
	return nil
}

// RemovePrice delists a symbol (admin operation). It returns the
// accounts still holding a position in it: those positions become
// unresolvable and are reported, not silently valued as zero.
func (e *Exchange) RemovePrice(symbol string) ([]string, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !e.table.Remove(sym) {
		return nil, domain.ErrSymbolNotFound
	}
	holders := e.ledger.Holders(sym)
	if len(holders) > 0 {
		log.WithFields(log.Fields{
			"symbol":  sym,
			"holders": holders,
		}).Warn("delisted symbol still held")
	}
	e.persist()
	return holders, nil
}

// ListPrices returns a symbol-ordered copy of the price table.
func (e *Exchange) ListPrices() []domain.Quote {
	return e.table.Snapshot()
}

// Quote returns one symbol's current quote.
func (e *Exchange) Quote(symbol string) (domain.Quote, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	price, err := e.table.Get(sym)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{Symbol: sym, Price: price}, nil
}

// Save flushes the current state through the persistence collaborator.
// Used at shutdown; mutating operations call it implicitly.
func (e *Exchange) Save() error {
	if e.saver == nil {
		return nil
	}
	return e.saver.Save(e.ledger.Snapshot(), e.table.Snapshot())
}

// persist mirrors the in-memory state after a mutation. Failures are
// reported and the in-memory commit stands: the running process is the
// source of truth, the files are a best-effort mirror.
func (e *Exchange) persist() {
	if e.saver == nil {
		return
	}
	if err := e.saver.Save(e.ledger.Snapshot(), e.table.Snapshot()); err != nil {
		log.WithError(err).Error("state save failed")
	}
}
