// Package auth holds the authentication core: password hashing, the signed
// session token codec, and the per-request session gate.
package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash returns a salted one-way hash of password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A malformed hash is a
	// mismatch, not an error.
	Verify(password, hash string) bool

	// DummyHash returns a valid hash that matches no caller-known password.
	// Login verifies against it when the user does not exist so both
	// failure paths cost one hash comparison.
	DummyHash() string
}

// BcryptHasher implements PasswordHasher with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost  int
	dummy string
}

// NewBcryptHasher validates cost and precomputes the dummy hash.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	secret, err := common.MakeRandHexString(24)
	if err != nil {
		return nil, fmt.Errorf("dummy secret: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &BcryptHasher{cost: cost, dummy: string(dummy)}, nil
}

// Hash produces a bcrypt hash of password. bcrypt only reads the first 72
// bytes; longer passwords are rejected by bcrypt itself.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *BcryptHasher) DummyHash() string {
	return h.dummy
}

// Cost reports the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}
