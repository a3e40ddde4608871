package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Account").
		Preload("Company").
		Preload("Branch").
		Preload("Role.Permissions")
}

func (r *userRepository) Create(ctx context.Context, user *models.AppUser) error {
	return translate("create user", r.db.WithContext(ctx).Omit("Account", "Company", "Branch", "Role").Create(user).Error)
}

func (r *userRepository) CreateBatch(ctx context.Context, users []*models.AppUser) error {
	if len(users) == 0 {
		return nil
	}
	return translate("create users", r.db.WithContext(ctx).Omit("Account", "Company", "Branch", "Role").CreateInBatches(users, 100).Error)
}

func (r *userRepository) Save(ctx context.Context, user *models.AppUser) error {
	return translate("save user", r.db.WithContext(ctx).Omit("Account", "Company", "Branch", "Role").Save(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.AppUser, error) {
	var user models.AppUser
	if err := r.withAssociations(ctx).First(&user, id).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	var user models.AppUser
	if err := r.withAssociations(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate("get user by email", err)
	}
	return &user, nil
}

func (r *userRepository) FindActiveByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	var user models.AppUser
	err := r.withAssociations(ctx).
		Where("email = ? AND record_status = ?", email, models.RecordStatusActive).
		First(&user).Error
	if err != nil {
		return nil, translate("get active user", err)
	}
	return &user, nil
}

func (r *userRepository) ListIDs(ctx context.Context, accountID uint, companyID *uint) ([]uint, error) {
	query := r.db.WithContext(ctx).Model(&models.AppUser{}).Where("account_id = ?", accountID)
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}
	var ids []uint
	if err := query.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, translate("list user ids", err)
	}
	return ids, nil
}
