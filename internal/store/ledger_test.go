package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/eycin/papertrade/internal/domain"
)

func newTestAccount(t *testing.T, username string, role domain.Role, balance string) *domain.Account {
	t.Helper()
	a, err := domain.NewAccount(username, "pw1234", role, d(balance))
	if err != nil {
		t.Fatalf("NewAccount(%q): %v", username, err)
	}
	return a
}

func TestLedger_Create_DuplicateCaseInsensitive(t *testing.T) {
	l := NewLedger()
	if err := l.Create(newTestAccount(t, "Alice1", domain.RoleCustomer, "1000")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := l.Create(newTestAccount(t, "ALICE1", domain.RoleCustomer, "1000"))
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLedger_Get_ReturnsCopy(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "1000"))

	a, err := l.Get("alice1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	a.Balance = decimal.Zero
	a.Portfolio["AAPL"] = 99

	fresh, _ := l.Get("ALICE1") // case-insensitive lookup
	if !fresh.Balance.Equal(d("1000")) {
		t.Fatal("Get must return a copy; internal balance was mutated")
	}
	if len(fresh.Portfolio) != 0 {
		t.Fatal("Get must return a copy; internal portfolio was mutated")
	}
}

func TestLedger_Get_NotFound(t *testing.T) {
	l := NewLedger()
	if _, err := l.Get("nobody"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLedger_Delete(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "0"))
	l.Create(newTestAccount(t, "boss99", domain.RoleAdmin, "0"))

	if err := l.Delete("alice1"); err != nil {
		t.Fatalf("Delete customer: %v", err)
	}
	if _, err := l.Get("alice1"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatal("deleted account still resolvable")
	}

	if err := l.Delete("boss99"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden deleting an admin, got %v", err)
	}
}

func TestLedger_Deposit(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "100"))

	balance, err := l.Deposit("alice1", d("50.25"))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !balance.Equal(d("150.25")) {
		t.Fatalf("expected 150.25, got %s", balance)
	}

	// Zero is a valid amount.
	if _, err := l.Deposit("alice1", decimal.Zero); err != nil {
		t.Fatalf("zero deposit should succeed: %v", err)
	}

	// Negative is rejected before touching the account.
	if _, err := l.Deposit("alice1", d("-1")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	a, _ := l.Get("alice1")
	if !a.Balance.Equal(d("150.25")) {
		t.Fatalf("failed deposit must not change the balance, got %s", a.Balance)
	}
}

func TestLedger_AdjustBalance(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "100"))

	if err := l.AdjustBalance("alice1", d("-100")); err != nil {
		t.Fatalf("exact drain should succeed: %v", err)
	}
	a, _ := l.Get("alice1")
	if !a.Balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", a.Balance)
	}

	if err := l.AdjustBalance("alice1", d("-0.01")); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestLedger_AdjustPortfolio(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "0"))

	// Positive delta creates the position.
	if err := l.AdjustPortfolio("alice1", "AAPL", 5); err != nil {
		t.Fatalf("AdjustPortfolio(+5): %v", err)
	}
	// Over-drawdown fails and changes nothing.
	if err := l.AdjustPortfolio("alice1", "AAPL", -6); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	a, _ := l.Get("alice1")
	if a.Quantity("AAPL") != 5 {
		t.Fatalf("failed adjustment must not change the position, got %d", a.Quantity("AAPL"))
	}

	// Exact exhaustion removes the entry rather than storing zero.
	if err := l.AdjustPortfolio("alice1", "AAPL", -5); err != nil {
		t.Fatalf("AdjustPortfolio(-5): %v", err)
	}
	a, _ = l.Get("alice1")
	if _, present := a.Portfolio["AAPL"]; present {
		t.Fatal("exhausted position must be removed, not stored as zero")
	}

	// Drawing down an absent position fails.
	if err := l.AdjustPortfolio("alice1", "AAPL", -1); !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares on absent position, got %v", err)
	}
}

func TestLedger_Buy(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "1000"))

	cost, err := l.Buy("alice1", "AAPL", 5, d("100"))
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if !cost.Equal(d("500")) {
		t.Fatalf("expected cost 500, got %s", cost)
	}
	a, _ := l.Get("alice1")
	if !a.Balance.Equal(d("500")) {
		t.Fatalf("expected balance 500, got %s", a.Balance)
	}
	if a.Quantity("AAPL") != 5 {
		t.Fatalf("expected 5 shares, got %d", a.Quantity("AAPL"))
	}
}

func TestLedger_Buy_InsufficientFunds(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "500"))
	l.AdjustPortfolio("alice1", "AAPL", 3)

	_, err := l.Buy("alice1", "AAPL", 20, d("100"))
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	// Neither field changed.
	a, _ := l.Get("alice1")
	if !a.Balance.Equal(d("500")) {
		t.Fatalf("failed buy must not change the balance, got %s", a.Balance)
	}
	if a.Quantity("AAPL") != 3 {
		t.Fatalf("failed buy must not change the position, got %d", a.Quantity("AAPL"))
	}
}

func TestLedger_Buy_InvalidQuantity(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "1000"))

	for _, qty := range []int64{0, -3} {
		if _, err := l.Buy("alice1", "AAPL", qty, d("100")); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("Buy(qty=%d) = %v, want ErrInvalidQuantity", qty, err)
		}
	}
}

func TestLedger_Sell(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "500"))
	l.AdjustPortfolio("alice1", "AAPL", 5)

	proceeds, err := l.Sell("alice1", "AAPL", 5, d("100"))
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if !proceeds.Equal(d("500")) {
		t.Fatalf("expected proceeds 500, got %s", proceeds)
	}
	a, _ := l.Get("alice1")
	if !a.Balance.Equal(d("1000")) {
		t.Fatalf("expected balance 1000, got %s", a.Balance)
	}
	if _, present := a.Portfolio["AAPL"]; present {
		t.Fatal("sold-out position must be removed")
	}
}

func TestLedger_Sell_InsufficientShares(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "500"))
	l.AdjustPortfolio("alice1", "AAPL", 2)

	_, err := l.Sell("alice1", "AAPL", 5, d("100"))
	if !errors.Is(err, domain.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	a, _ := l.Get("alice1")
	if !a.Balance.Equal(d("500")) {
		t.Fatalf("failed sell must not change the balance, got %s", a.Balance)
	}
	if a.Quantity("AAPL") != 2 {
		t.Fatalf("failed sell must not change the position, got %d", a.Quantity("AAPL"))
	}
}

func TestLedger_NetWorth(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "250"))
	l.AdjustPortfolio("alice1", "AAPL", 5)
	l.AdjustPortfolio("alice1", "GONE", 3)

	prices := map[string]decimal.Decimal{"AAPL": d("100")}
	total, unresolved, err := l.NetWorth("alice1", prices)
	if err != nil {
		t.Fatalf("NetWorth: %v", err)
	}
	// 250 + 5×100; GONE is excluded, not valued at zero silently.
	if !total.Equal(d("750")) {
		t.Fatalf("expected 750, got %s", total)
	}
	if len(unresolved) != 1 || unresolved[0] != "GONE" {
		t.Fatalf("expected GONE flagged as unresolved, got %v", unresolved)
	}
}

func TestLedger_NetWorth_AtLeastBalance(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "250"))
	l.AdjustPortfolio("alice1", "AAPL", 5)

	total, unresolved, err := l.NetWorth("alice1", map[string]decimal.Decimal{"AAPL": d("0.01")})
	if err != nil {
		t.Fatalf("NetWorth: %v", err)
	}
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved symbols: %v", unresolved)
	}
	if total.LessThan(d("250")) {
		t.Fatalf("net worth %s below balance with all symbols resolvable", total)
	}
}

func TestLedger_Holders(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "bob22", domain.RoleCustomer, "0"))
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "0"))
	l.AdjustPortfolio("alice1", "AAPL", 1)
	l.AdjustPortfolio("bob22", "AAPL", 2)

	holders := l.Holders("AAPL")
	if len(holders) != 2 || holders[0] != "alice1" || holders[1] != "bob22" {
		t.Fatalf("expected [alice1 bob22], got %v", holders)
	}
	if got := l.Holders("TSLA"); len(got) != 0 {
		t.Fatalf("expected no TSLA holders, got %v", got)
	}
}

func TestLedger_Snapshot_Ordered(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "carol3", domain.RoleCustomer, "0"))
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "0"))
	l.Create(newTestAccount(t, "bob22", domain.RoleCustomer, "0"))

	snap := l.Snapshot()
	want := []string{"alice1", "bob22", "carol3"}
	for i, username := range want {
		if snap[i].Username != username {
			t.Fatalf("snapshot[%d] = %s, want %s", i, snap[i].Username, username)
		}
	}
}

func TestLedger_ConcurrentDeposits(t *testing.T) {
	l := NewLedger()
	l.Create(newTestAccount(t, "alice1", domain.RoleCustomer, "0"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Deposit("alice1", d("1")); err != nil {
				t.Errorf("Deposit: %v", err)
			}
		}()
	}
	wg.Wait()

	a, _ := l.Get("alice1")
	if !a.Balance.Equal(d("100")) {
		t.Fatalf("expected 100 after 100 concurrent unit deposits, got %s", a.Balance)
	}
}
