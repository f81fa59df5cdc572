package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/pkg/db"
	"gorm.io/gorm"
)

type adminUsers struct {
	db *gorm.DB
}

func New(conn *gorm.DB) domain.Repository {
	return &adminUsers{db: conn}
}

// Create inserts user. A concurrent insert of the same username surfaces as
// domain.ErrUsernameTaken.
func (r *adminUsers) Create(ctx context.Context, user *domain.AdminUser) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrUsernameTaken
	}
	return err
}

// Save writes the credential columns only. Username and creation time never change.
func (r *adminUsers) Save(ctx context.Context, user *domain.AdminUser) error {
	res := r.db.WithContext(ctx).
		Model(&domain.AdminUser{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"password_hash": user.PasswordHash,
			"role":          user.Role,
			"updated_at":    user.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *adminUsers) FindByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	var user domain.AdminUser
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.ErrUserNotFound
	case err != nil:
		return nil, err
	}
	return &user, nil
}
