package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/superfunded/payout_portal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// UpdateUser writes only the named columns of user. Columns left out keep
// whatever the row holds, even when user was read earlier.
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User, columns ...string) error {
	if len(columns) == 0 {
		return errors.New("update user: no columns selected")
	}
	return r.db.WithContext(ctx).Model(user).Select(columns).Updates(user).Error
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetUserByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.first(ctx, "verification_token = ?", token)
}

func (r *UserRepository) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.first(ctx, "reset_password_token = ?", token)
}

func (r *UserRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("created_at asc").Find(&admins).Error
	return admins, err
}

func (r *UserRepository) CountVerified(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_verified = ? AND is_admin = ?", true, false).
		Count(&count).Error
	return count, err
}

func (r *UserRepository) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
