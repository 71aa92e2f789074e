// Package persist mirrors the engine's state to JSON files. The
// mirror is a whole-state overwrite: Save rewrites both records on
// every call, and a missing record on startup simply means a fresh
// start. Writes go through a temp file and rename, so a crash never
// leaves a torn mirror behind.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eycin/papertrade/internal/domain"
)

const (
	accountsFile = "accounts.json"
	pricesFile   = "prices.json"
	lockFile     = "papertrade.lock"
)

// accountRecord is the on-disk shape of one account.
type accountRecord struct {
	ID           string           `json:"id"`
	Username     string           `json:"username"`
	PasswordHash string           `json:"password_hash"`
	Role         string           `json:"role"`
	Balance      string           `json:"balance"`
	Portfolio    map[string]int64 `json:"portfolio,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// FileStore persists the ledger and price table under one directory,
// guarded by an advisory file lock so two simulator processes cannot
// corrupt each other's mirrors.
type FileStore struct {
	dir  string
	lock *flock.Flock
}

// NewFileStore creates the data directory if needed and acquires the
// directory lock. It fails when another process already holds it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("data dir %q is locked by another process", dir)
	}
	return &FileStore{dir: dir, lock: lock}, nil
}

// Close releases the directory lock.
func (s *FileStore) Close() error {
	return s.lock.Unlock()
}

// LoadAccounts reads the persisted ledger. An absent record yields an
// empty slice, not an error.
func (s *FileStore) LoadAccounts() ([]*domain.Account, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, accountsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	var records []accountRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}

	accounts := make([]*domain.Account, 0, len(records))
	for _, rec := range records {
		a, err := rec.toAccount()
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", rec.Username, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// LoadPrices reads the persisted price table, symbol-ordered. An
// absent record yields an empty slice, not an error.
func (s *FileStore) LoadPrices() ([]domain.Quote, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, pricesFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode prices: %w", err)
	}

	symbols := make([]string, 0, len(raw))
	for sym := range raw {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	quotes := make([]domain.Quote, 0, len(symbols))
	for _, sym := range symbols {
		price, err := decimal.NewFromString(raw[sym])
		if err != nil {
			return nil, fmt.Errorf("price for %q: %w", sym, err)
		}
		quotes = append(quotes, domain.Quote{Symbol: sym, Price: price})
	}
	return quotes, nil
}

// Save overwrites both records with the given state. It is idempotent:
// saving the same state twice produces identical files.
func (s *FileStore) Save(accounts []*domain.Account, prices []domain.Quote) error {
	records := make([]accountRecord, 0, len(accounts))
	for _, a := range accounts {
		records = append(records, toRecord(a))
	}
	if err := s.writeJSON(accountsFile, records); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}

	raw := make(map[string]string, len(prices))
	for _, q := range prices {
		raw[q.Symbol] = q.Price.String()
	}
	if err := s.writeJSON(pricesFile, raw); err != nil {
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}

// writeJSON writes v to name atomically: temp file in the same
// directory, then rename over the target.
func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func toRecord(a *domain.Account) accountRecord {
	return accountRecord{
		ID:           a.ID.String(),
		Username:     a.Username,
		PasswordHash: string(a.PasswordHash),
		Role:         string(a.Role),
		Balance:      a.Balance.String(),
		Portfolio:    a.Portfolio,
		CreatedAt:    a.CreatedAt,
	}
}

func (rec accountRecord) toAccount() (*domain.Account, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	role, err := domain.ParseRole(rec.Role)
	if err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(rec.Balance)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	portfolio := rec.Portfolio
	if portfolio == nil {
		portfolio = make(map[string]int64)
	}
	return &domain.Account{
		ID:           id,
		Username:     rec.Username,
		PasswordHash: []byte(rec.PasswordHash),
		Role:         role,
		Balance:      balance,
		Portfolio:    portfolio,
		CreatedAt:    rec.CreatedAt,
	}, nil
}
