package domain

import "errors"

// Sentinel errors for domain-level error handling. The CLI and HTTP
// layers map these to user-facing messages and status codes. All of
// them are recoverable at the call site; the engine never terminates
// the process on a domain error.
var (
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidSymbol      = errors.New("invalid_symbol")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrInsufficientShares = errors.New("insufficient_shares")
	ErrSymbolNotFound     = errors.New("symbol_not_found")
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)
