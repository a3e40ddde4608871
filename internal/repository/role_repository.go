package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

type roleRepository struct {
	db *gorm.DB
}

// Create also links the role's permissions.
func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	return translate("create role", r.db.WithContext(ctx).Create(role).Error)
}

func (r *roleRepository) FindByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&role, id).Error; err != nil {
		return nil, translate("get role", err)
	}
	return &role, nil
}

func (r *roleRepository) FindPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	var permission models.Permission
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&permission).Error; err != nil {
		return nil, translate("get permission", err)
	}
	return &permission, nil
}
