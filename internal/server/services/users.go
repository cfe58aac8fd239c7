package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateUserInput holds optional changes; nil fields stay untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService manages stored identities.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, h PasswordHasher) *UserService {
	return &UserService{db: db, repomanager: m, hasher: h}
}

// Create registers a user. A taken email fails with
// common.ErrDuplicateIdentity and leaves the existing user untouched.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.UserSummary, error) {
	const op = "services.users.Create"

	in.Email = normalizeEmail(in.Email)
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := u.Summary()
	return &summary, nil
}

// Profile returns the user with the given id or common.ErrNotFound.
func (s *UserService) Profile(ctx context.Context, id string) (*models.UserSummary, error) {
	const op = "services.users.Profile"

	u, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	summary := u.Summary()
	return &summary, nil
}

// List returns every user, oldest first.
func (s *UserService) List(ctx context.Context) ([]models.UserSummary, error) {
	const op = "services.users.List"

	all, err := s.repomanager.Users(s.db).FindMany(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.UserSummary, 0, len(all))
	for _, u := range all {
		out = append(out, u.Summary())
	}
	return out, nil
}

// Update applies in and returns the stored result. The write and the
// re-read share one transaction.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.UserSummary, error) {
	const op = "services.users.Update"

	var upd models.UserUpdate
	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
		upd.Name = in.Name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.PasswordHash = &hash
	}
	if upd.Empty() {
		return nil, common.InvalidInput("nothing to update")
	}

	var updated *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.Update(ctx, id, upd); err != nil {
			return err
		}
		u, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := updated.Summary()
	return &summary, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return fmt.Errorf("services.users.Delete: %w", err)
	}
	return nil
}
