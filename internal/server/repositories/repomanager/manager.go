// Package repomanager hands out the user and todo repositories for one
// storage backend and runs operations that span both inside a transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gotodo/internal/server/repositories/todos"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	Todos() todos.Repository
	// InTx runs fn with a manager whose repositories share one transaction.
	// Calls do not nest.
	InTx(ctx context.Context, fn func(ctx context.Context, m RepositoryManager) error) error
	Close() error
}
