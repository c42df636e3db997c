package repository

import (
	"context"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"gorm.io/gorm"
)

// UserRepository admin directory lookups
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAdmins active administrators with an email address
func (r *UserRepository) FindAdmins(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ? AND email <> ''", entity.RoleAdmin, true).
		Order("name ASC").
		Find(&users).Error
	return users, err
}
