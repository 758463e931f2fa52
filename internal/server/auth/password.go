package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the bcrypt input limit; longer inputs are rejected
// instead of being silently truncated.
const maxPasswordBytes = 72

// PasswordHasher produces and checks salted bcrypt digests. The salt is
// embedded in the digest, so hashing the same password twice yields
// different strings that both verify.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using the given bcrypt work factor.
// Costs below bcrypt.DefaultCost are refused.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.DefaultCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within [%d, %d], got %d", bcrypt.DefaultCost, bcrypt.MaxCost, cost)
	}
	return &PasswordHasher{cost: cost}, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, maxPasswordBytes)
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A wrong password is
// (false, nil); a digest that is not a bcrypt hash yields ErrMalformedHash.
// Over-long passwords can never have been hashed, so they simply mismatch.
func (h *PasswordHasher) Verify(password, digest string) (bool, error) {
	if len(password) > maxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", common.ErrMalformedHash, err)
	}
}
