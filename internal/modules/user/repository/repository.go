package repository

import (
	"context"

	"anoa.com/campuscomplaint/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindIDsByRole(ctx context.Context, role entity.Role) ([]string, error)
	FindDepartmentAdminIDs(ctx context.Context, faculty entity.Faculty, department string) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert keeps the local copy of an externally managed identity current.
func (r *userRepository) Upsert(ctx context.Context, user *entity.User) error {
	columns := []string{"role", "faculty", "department", "updated_at"}
	if user.Email != "" {
		columns = append(columns, "email")
	}
	if user.FirstName != "" || user.LastName != "" {
		columns = append(columns, "first_name", "last_name")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindIDsByRole(ctx context.Context, role entity.Role) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("role = ?", role).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) FindDepartmentAdminIDs(ctx context.Context, faculty entity.Faculty, department string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("role = ? AND faculty = ? AND department = ?", entity.RoleDepartmentAdmin, faculty, department).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
