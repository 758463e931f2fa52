package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/campusdesk/internal/dbx"
	"github.com/dmitrijs2005/campusdesk/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle and owns the
// schema bootstrap for its backend.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// InMemoryRepositoryManager serves a single process-local users store and
// ignores the DB handle. Used when no DSN is configured.
type InMemoryRepositoryManager struct {
	users *users.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{users: users.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}
