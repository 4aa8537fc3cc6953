// Package users stores registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gotodo/internal/server/models"
)

// Repository is the user-record store the auth core depends on. Lookups
// return common.ErrorNotFound for absent rows; Insert returns
// common.ErrorAlreadyExists when the email or username is taken.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}
