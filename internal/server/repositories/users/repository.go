package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository is the user store. Lookups return common.ErrNotFound when no
// row matches; writes that collide on email return
// common.ErrDuplicateIdentity.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindMany returns all users, oldest first.
	FindMany(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) error
	Delete(ctx context.Context, id string) error
}
