package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

type companyRepository struct {
	db *gorm.DB
}

func (r *companyRepository) Create(ctx context.Context, company *models.Company) error {
	return translate("create company", r.db.WithContext(ctx).Create(company).Error)
}

func (r *companyRepository) Save(ctx context.Context, company *models.Company) error {
	return translate("save company", r.db.WithContext(ctx).Save(company).Error)
}

func (r *companyRepository) FindByID(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, translate("get company", err)
	}
	return &company, nil
}

// ListByAccount includes closed companies; callers filter by status.
func (r *companyRepository) ListByAccount(ctx context.Context, accountID uint) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&companies).Error
	if err != nil {
		return nil, translate("list companies", err)
	}
	return companies, nil
}

type branchRepository struct {
	db *gorm.DB
}

func (r *branchRepository) Create(ctx context.Context, branch *models.Branch) error {
	return translate("create branch", r.db.WithContext(ctx).Create(branch).Error)
}

func (r *branchRepository) FindByID(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).First(&branch, id).Error; err != nil {
		return nil, translate("get branch", err)
	}
	return &branch, nil
}

func (r *branchRepository) ListByCompanies(ctx context.Context, companyIDs []uint) ([]models.Branch, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	var branches []models.Branch
	err := r.db.WithContext(ctx).
		Where("company_id IN ?", companyIDs).
		Order("id").
		Find(&branches).Error
	if err != nil {
		return nil, translate("list branches", err)
	}
	return branches, nil
}
