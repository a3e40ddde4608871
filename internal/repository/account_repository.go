package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return translate("create account", r.db.WithContext(ctx).Create(account).Error)
}

func (r *accountRepository) Save(ctx context.Context, account *models.Account) error {
	return translate("save account", r.db.WithContext(ctx).Save(account).Error)
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, translate("get account", err)
	}
	return &account, nil
}
