// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and profile lookup, issuing
// bearer tokens for the first two.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
	"github.com/dmitrijs2005/campusdesk/internal/server/repositories/repomanager"
)

// PasswordHasher derives and checks password digests.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// TokenSigner mints bearer tokens for an authenticated identity.
type TokenSigner interface {
	Issue(id auth.Identity) (string, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  models.PublicUser
	Token string
}

// RegisterInput carries the registration form. An empty Role means student.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// used to keep Login timing the same for unknown emails
const timingPassword = "campusdesk-timing-equalizer"

// UserService provides authentication-related operations:
// - Register: validate, hash and store a new account, then mint a token
// - Login: verify credentials and mint a token
// - Profile: look up the public view of an account
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	tokens      TokenSigner

	// digest checked against when the email is unknown
	dummyHash string
}

// NewUserService constructs a UserService. db may be nil when the repository
// manager is in-memory. The unknown-email digest is hashed here so no login
// pays for it.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, tokens TokenSigner) *UserService {
	dummy, _ := hasher.Hash(timingPassword)
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		dummyHash:   dummy,
	}
}

// Register creates an account and returns it with a fresh token. The role is
// parsed before anything is stored, and the store is written exactly once.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrValidation)
	}
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}

	role := models.DefaultRole
	if r := strings.TrimSpace(in.Role); r != "" {
		parsed, err := models.ParseRole(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		role = parsed
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: creating user: %v", common.ErrorInternal, err)
	}

	return s.authResult(user)
}

// Login checks credentials with a single store read. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: loading user: %v", common.ErrorInternal, err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: stored digest for %s: %v", common.ErrorInternal, user.ID, err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return s.authResult(user)
}

// Profile returns the public view of the account with the given id.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.PublicUser, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: loading user: %v", common.ErrorInternal, err)
	}
	pub := user.Public()
	return &pub, nil
}

// --- helpers below ---

func (s *UserService) authResult(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("%w: issuing token: %v", common.ErrorInternal, err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
