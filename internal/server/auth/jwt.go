package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuerName = "campusdesk"

// DefaultTokenValidity applies when the configuration does not override it.
const DefaultTokenValidity = 24 * time.Hour

// Identity is the user state captured into a token at issuance time.
type Identity struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// Claims is the token payload: the identity plus registered claims
// (expiry, issued-at, issuer, unique id).
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens with a secret fixed at
// construction. It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

type IssuerOption func(*TokenIssuer)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

func NewTokenIssuer(secret []byte, validity time.Duration, opts ...IssuerOption) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("token validity must be positive, got %s", validity)
	}
	i := &TokenIssuer{
		secret:   append([]byte(nil), secret...),
		validity: validity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue signs a token for id that expires after the configured validity.
func (i *TokenIssuer) Issue(id Identity) (string, error) {
	if id.UserID == "" || !id.Role.Valid() {
		return "", fmt.Errorf("cannot issue token for incomplete identity %+v", id)
	}
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   id.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks the signature and then the expiry, returning the embedded
// claims only when both pass. Failures are ErrInvalidToken or
// ErrTokenExpired.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
