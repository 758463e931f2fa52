// Package users is the credential store: persistence of portal accounts
// behind single-row insert and lookup operations. Email uniqueness is
// enforced by the store itself.
package users

import (
	"context"

	"github.com/dmitrijs2005/campusdesk/internal/server/models"
)

type Repository interface {
	// Create assigns an id, persists the user and returns it with CreatedAt
	// set. A taken email yields common.ErrDuplicateEmail and stores nothing.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*InMemoryRepository)(nil)
)
