package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gotodo/internal/server/repositories/todos"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/users"
)

// InMemoryRepositoryManager backs the memory:// DSN. InTx serializes
// callers instead of providing rollback.
type InMemoryRepositoryManager struct {
	txMu  *sync.Mutex
	users *users.MemoryRepository
	todos *todos.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		txMu:  &sync.Mutex{},
		users: users.NewMemoryRepository(),
		todos: todos.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Todos() todos.Repository {
	return m.todos
}

func (m *InMemoryRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, m RepositoryManager) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, m)
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
