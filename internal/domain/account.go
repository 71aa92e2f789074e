package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)

// Role distinguishes customers from administrators.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a persisted role string back into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Account is a participant of the simulator: a credential, a cash
// balance, and a portfolio of positions. Portfolio entries are always
// strictly positive; a position that reaches zero is removed, never
// stored as zero.
type Account struct {
	ID           uuid.UUID
	Username     string // display form, as entered at sign-up
	PasswordHash []byte
	Role         Role
	Balance      decimal.Decimal
	Portfolio    map[string]int64 // symbol → quantity, always > 0
	CreatedAt    time.Time
}

// NewAccount validates the username, hashes the password, and builds
// an account with the given starting balance.
func NewAccount(username, password string, role Role, balance decimal.Decimal) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Balance:      balance,
		Portfolio:    make(map[string]int64),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername checks the sign-up format rule: 3-20 alphanumeric
// characters, no whitespace. Uniqueness is the ledger's concern.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// CanonicalUsername returns the form usernames are compared and keyed
// by. Comparison is case-insensitive.
func CanonicalUsername(username string) string {
	return strings.ToLower(username)
}

// Key returns the account's canonical ledger key.
func (a *Account) Key() string {
	return CanonicalUsername(a.Username)
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Quantity returns the held quantity for symbol, or 0 when the account
// holds no position in it.
func (a *Account) Quantity(symbol string) int64 {
	return a.Portfolio[symbol]
}

// CheckPassword verifies a cleartext credential against the stored
// one-way hash.
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
}

// Clone returns a deep copy safe to hand to callers outside the
// ledger lock.
func (a *Account) Clone() *Account {
	c := *a
	c.PasswordHash = append([]byte(nil), a.PasswordHash...)
	c.Portfolio = make(map[string]int64, len(a.Portfolio))
	for sym, qty := range a.Portfolio {
		c.Portfolio[sym] = qty
	}
	return &c
}

// HashPassword derives a one-way salted hash of the credential.
// bcrypt embeds a per-hash random salt, so equal passwords never
// produce equal hashes.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
