package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var symbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// Quote is a single entry of the price table: a tradable symbol and
// its current list price. Prices are decimals, never binary floats,
// so repeated oscillator ticks cannot accumulate representation drift.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
}

// NormalizeSymbol upper-cases the input and validates it against the
// symbol format (1-10 uppercase letters). It returns ErrInvalidSymbol
// when the normalized form does not match.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if !symbolRegex.MatchString(sym) {
		return "", ErrInvalidSymbol
	}
	return sym, nil
}
