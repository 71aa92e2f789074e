package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/eycin/papertrade/internal/domain"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
)

// printTitle renders a menu heading.
func printTitle(w io.Writer, title string) {
	titleColor.Fprintf(w, "\n%s\n", title)
}

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, format+"\n", args...)
}

func printError(w io.Writer, err error) {
	errorColor.Fprintf(w, "%s\n", errorMessage(err))
}

func printWarn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, format+"\n", args...)
}

// errorMessage maps domain errors to the messages shown on the
// console. Unknown errors pass through verbatim.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "Amount must be a non-negative number."
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "Quantity must be a positive whole number."
	case errors.Is(err, domain.ErrInvalidPrice):
		return "Price must be a non-negative number."
	case errors.Is(err, domain.ErrInvalidUsername):
		return "Username must be 3-20 letters or digits."
	case errors.Is(err, domain.ErrInvalidPassword):
		return "Password must not be empty."
	case errors.Is(err, domain.ErrInvalidSymbol):
		return "Symbol must be 1-10 letters."
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Not enough balance for this trade."
	case errors.Is(err, domain.ErrInsufficientShares):
		return "Not enough shares for this trade."
	case errors.Is(err, domain.ErrSymbolNotFound):
		return "Stock not found."
	case errors.Is(err, domain.ErrAccountNotFound):
		return "Account not found."
	case errors.Is(err, domain.ErrUsernameTaken):
		return "That username is already taken."
	case errors.Is(err, domain.ErrUnauthorized):
		return "Invalid username or password."
	case errors.Is(err, domain.ErrForbidden):
		return "Admin accounts cannot be deleted."
	}
	return err.Error()
}

// money renders a decimal as a dollar amount with two places.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// printQuotes renders the price list as an aligned table.
func printQuotes(w io.Writer, quotes []domain.Quote) {
	if len(quotes) == 0 {
		printWarn(w, "No stocks listed.")
		return
	}
	fmt.Fprintf(w, "%-10s %12s\n", "SYMBOL", "PRICE")
	for _, q := range quotes {
		fmt.Fprintf(w, "%-10s %12s\n", q.Symbol, q.Price.StringFixed(2))
	}
}
