// Package cli implements the console menus of the simulator. All
// prompting, parsing, and color formatting lives here; the engine only
// sees typed values and returns structured results and errors.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eycin/papertrade/internal/domain"
	"github.com/eycin/papertrade/internal/engine"
)

// Menu drives the interactive session against the engine.
type Menu struct {
	eng *engine.Exchange
	in  *bufio.Scanner
	out io.Writer
}

// New creates a menu reading from in and writing to out.
func New(eng *engine.Exchange, in io.Reader, out io.Writer) *Menu {
	return &Menu{
		eng: eng,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

// Run loops on the welcome menu until the user exits or input ends.
// The context is checked between iterations so shutdown signals end
// the session at the next prompt.
func (m *Menu) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		printTitle(m.out, "Welcome to the Stock Exchange!")
		fmt.Fprintln(m.out, "1. Login")
		fmt.Fprintln(m.out, "2. Create New Account")
		fmt.Fprintln(m.out, "3. Exit")

		choice, ok := m.prompt("> ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			m.login()
		case "2":
			m.signUp()
		case "3":
			fmt.Fprintln(m.out, "Goodbye!")
			return
		default:
			printWarn(m.out, "Invalid choice.")
		}
	}
}

func (m *Menu) login() {
	username, ok := m.prompt("Username: ")
	if !ok {
		return
	}
	password, ok := m.prompt("Password: ")
	if !ok {
		return
	}
	account, err := m.eng.Login(username, password)
	if err != nil {
		printError(m.out, err)
		return
	}
	printSuccess(m.out, "Welcome %s!", account.Username)
	if account.IsAdmin() {
		m.adminMenu()
	} else {
		m.customerMenu(account.Username)
	}
}

func (m *Menu) signUp() {
	username, ok := m.prompt("New Username: ")
	if !ok {
		return
	}
	password, ok := m.prompt("New Password: ")
	if !ok {
		return
	}
	account, err := m.eng.SignUp(username, password, domain.RoleCustomer)
	if err != nil {
		printError(m.out, err)
		return
	}
	printSuccess(m.out, "Account %s created with balance %s.", account.Username, money(account.Balance))
}

func (m *Menu) adminMenu() {
	for {
		printTitle(m.out, "Admin Menu")
		fmt.Fprintln(m.out, "1. Set Stock Price")
		fmt.Fprintln(m.out, "2. Remove Stock")
		fmt.Fprintln(m.out, "3. List Prices")
		fmt.Fprintln(m.out, "4. View All Users")
		fmt.Fprintln(m.out, "5. Logout")

		choice, ok := m.prompt("> ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			m.setPrice()
		case "2":
			m.removeStock()
		case "3":
			printQuotes(m.out, m.eng.ListPrices())
		case "4":
			m.viewUsers()
		case "5":
			fmt.Fprintln(m.out, "Logging out...")
			return
		default:
			printWarn(m.out, "Invalid choice.")
		}
	}
}

func (m *Menu) customerMenu(username string) {
	for {
		printTitle(m.out, "User Menu")
		fmt.Fprintln(m.out, "1. Buy Stock")
		fmt.Fprintln(m.out, "2. Sell Stock")
		fmt.Fprintln(m.out, "3. Deposit")
		fmt.Fprintln(m.out, "4. View Portfolio")
		fmt.Fprintln(m.out, "5. View Balance")
		fmt.Fprintln(m.out, "6. List Prices")
		fmt.Fprintln(m.out, "7. Delete Account")
		fmt.Fprintln(m.out, "8. Logout")

		choice, ok := m.prompt("> ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			m.trade(username, "buy")
		case "2":
			m.trade(username, "sell")
		case "3":
			m.deposit(username)
		case "4":
			m.viewPortfolio(username)
		case "5":
			m.viewBalance(username)
		case "6":
			printQuotes(m.out, m.eng.ListPrices())
		case "7":
			if m.deleteAccount(username) {
				return
			}
		case "8":
			fmt.Fprintln(m.out, "Logging out...")
			return
		default:
			printWarn(m.out, "Invalid choice.")
		}
	}
}

func (m *Menu) trade(username, side string) {
	symbol, ok := m.prompt("Stock Symbol: ")
	if !ok {
		return
	}
	quantity, ok := m.promptInt("Number of Shares: ")
	if !ok {
		return
	}

	var trade *engine.Trade
	var err error
	if side == "buy" {
		trade, err = m.eng.Buy(username, symbol, quantity)
	} else {
		trade, err = m.eng.Sell(username, symbol, quantity)
	}
	if err != nil {
		printError(m.out, err)
		return
	}
	verb := "bought"
	if side == "sell" {
		verb = "sold"
	}
	printSuccess(m.out, "Successfully %s %d shares of %s at %s (total %s).",
		verb, trade.Quantity, trade.Symbol, money(trade.Price), money(trade.Total))
}

func (m *Menu) deposit(username string) {
	amount, ok := m.promptDecimal("Amount: ")
	if !ok {
		return
	}
	balance, err := m.eng.Deposit(username, amount)
	if err != nil {
		printError(m.out, err)
		return
	}
	printSuccess(m.out, "Deposited %s. New balance: %s.", money(amount), money(balance))
}

func (m *Menu) viewPortfolio(username string) {
	account, err := m.eng.Account(username)
	if err != nil {
		printError(m.out, err)
		return
	}
	printTitle(m.out, "Your Portfolio")
	if len(account.Portfolio) == 0 {
		printWarn(m.out, "No positions.")
	} else {
		quotes := m.eng.ListPrices()
		for _, q := range quotes {
			if qty := account.Portfolio[q.Symbol]; qty > 0 {
				value := q.Price.Mul(decimal.NewFromInt(qty))
				fmt.Fprintf(m.out, "%-10s %6d shares %12s\n", q.Symbol, qty, money(value))
			}
		}
	}

	valuation, err := m.eng.NetWorth(username)
	if err != nil {
		printError(m.out, err)
		return
	}
	for _, symbol := range valuation.Unresolved {
		printWarn(m.out, "%-10s %6d shares  (delisted, no current price)", symbol, account.Portfolio[symbol])
	}
	fmt.Fprintf(m.out, "Net worth: %s\n", money(valuation.Total))
}

func (m *Menu) viewBalance(username string) {
	account, err := m.eng.Account(username)
	if err != nil {
		printError(m.out, err)
		return
	}
	fmt.Fprintf(m.out, "Your current balance: %s\n", money(account.Balance))
}

// deleteAccount returns true when the account was removed and the
// session must end.
func (m *Menu) deleteAccount(username string) bool {
	confirm, ok := m.prompt("Delete your account? This cannot be undone (yes/no): ")
	if !ok || !strings.EqualFold(confirm, "yes") {
		return false
	}
	if err := m.eng.DeleteAccount(username); err != nil {
		printError(m.out, err)
		return false
	}
	printSuccess(m.out, "Account deleted.")
	return true
}

func (m *Menu) setPrice() {
	symbol, ok := m.prompt("Stock Symbol: ")
	if !ok {
		return
	}
	price, ok := m.promptDecimal("Price: ")
	if !ok {
		return
	}
	if err := m.eng.SetPrice(symbol, price); err != nil {
		printError(m.out, err)
		return
	}
	printSuccess(m.out, "Stock price updated.")
}

func (m *Menu) removeStock() {
	symbol, ok := m.prompt("Stock Symbol to Remove: ")
	if !ok {
		return
	}
	holders, err := m.eng.RemovePrice(symbol)
	if err != nil {
		printError(m.out, err)
		return
	}
	printSuccess(m.out, "Stock removed.")
	if len(holders) > 0 {
		printWarn(m.out, "Still held by: %s", strings.Join(holders, ", "))
	}
}

func (m *Menu) viewUsers() {
	printTitle(m.out, "All Users")
	for _, a := range m.eng.Accounts() {
		fmt.Fprintf(m.out, "%-20s role=%-8s balance=%s positions=%d\n",
			a.Username, a.Role, money(a.Balance), len(a.Portfolio))
	}
}

// prompt prints a label and reads one trimmed line. ok is false when
// input has ended.
func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// promptInt re-asks until the user enters a valid whole number.
func (m *Menu) promptInt(label string) (int64, bool) {
	for {
		raw, ok := m.prompt(label)
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			printWarn(m.out, "Enter a whole number.")
			continue
		}
		return n, true
	}
}

// promptDecimal re-asks until the user enters a valid decimal.
func (m *Menu) promptDecimal(label string) (decimal.Decimal, bool) {
	for {
		raw, ok := m.prompt(label)
		if !ok {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			printWarn(m.out, "Enter a number.")
			continue
		}
		return d, true
	}
}
