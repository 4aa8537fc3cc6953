// Package todos stores todo items. Every lookup and mutation is scoped to the
// owner's user id; a row that exists but belongs to someone else is reported
// as common.ErrorNotFound.
package todos

import (
	"context"

	"github.com/dmitrijs2005/gotodo/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, ownerID int64) ([]*models.Todo, error)
	Get(ctx context.Context, ownerID, id int64) (*models.Todo, error)
	Create(ctx context.Context, todo *models.Todo) (*models.Todo, error)
	Update(ctx context.Context, todo *models.Todo) error
	Delete(ctx context.Context, ownerID, id int64) error
	ToggleComplete(ctx context.Context, ownerID, id int64) (*models.Todo, error)
}
