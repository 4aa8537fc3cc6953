package todos

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
)

// MemoryRepository keeps todos in process memory. It backs the memory://
// DSN and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Todo
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[int64]models.Todo{}}
}

func (r *MemoryRepository) List(ctx context.Context, ownerID int64) ([]*models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Todo
	for _, t := range r.byID {
		if t.OwnerID == ownerID {
			todo := t
			result = append(result, &todo)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryRepository) Get(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) Create(ctx context.Context, todo *models.Todo) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	todo.ID = r.nextID
	r.byID[todo.ID] = *todo
	return todo, nil
}

func (r *MemoryRepository) Update(ctx context.Context, todo *models.Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[todo.ID]
	if !ok || t.OwnerID != todo.OwnerID {
		return common.ErrorNotFound
	}
	r.byID[todo.ID] = *todo
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, ownerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok || t.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) ToggleComplete(ctx context.Context, ownerID, id int64) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok || t.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	t.Complete = !t.Complete
	r.byID[id] = t
	return &t, nil
}
