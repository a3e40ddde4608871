package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func (r *walletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	return translate("create wallet", r.db.WithContext(ctx).Create(wallet).Error)
}

func (r *walletRepository) Save(ctx context.Context, wallet *models.Wallet) error {
	return translate("save wallet", r.db.WithContext(ctx).Omit("WalletCharges").Save(wallet).Error)
}

// FindByID locks the row for the rest of the transaction.
func (r *walletRepository) FindByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, id).Error
	if err != nil {
		return nil, translate("get wallet", err)
	}
	return &wallet, nil
}

func (r *walletRepository) FindDefault(ctx context.Context) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Preload("WalletCharges").
		Where("is_default = ?", true).
		Order("id").
		First(&wallet).Error
	if err != nil {
		return nil, translate("get default wallet", err)
	}
	return &wallet, nil
}

func (r *walletRepository) ListByAccount(ctx context.Context, accountID uint) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id").Find(&wallets).Error; err != nil {
		return nil, translate("list wallets", err)
	}
	return wallets, nil
}

func (r *walletRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Wallet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var wallets []models.Wallet
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&wallets).Error; err != nil {
		return nil, translate("list wallets", err)
	}
	return wallets, nil
}

func (r *walletRepository) FindChargesByIDs(ctx context.Context, ids []uint) ([]models.WalletCharge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var charges []models.WalletCharge
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&charges).Error; err != nil {
		return nil, translate("list wallet charges", err)
	}
	return charges, nil
}

func (r *walletRepository) AppendCharges(ctx context.Context, wallet *models.Wallet, charges []models.WalletCharge) error {
	if len(charges) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(wallet).Association("WalletCharges").Append(charges)
	return translate("attach wallet charges", err)
}

func (r *walletRepository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return translate("create wallet transaction", r.db.WithContext(ctx).Create(txn).Error)
}

func (r *walletRepository) SaveTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return translate("save wallet transaction", r.db.WithContext(ctx).Omit(clause.Associations).Save(txn).Error)
}

func (r *walletRepository) FindTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&txn).Error
	if err != nil {
		return nil, translate("get wallet transaction", err)
	}
	return &txn, nil
}
