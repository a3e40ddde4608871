package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	Save(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uint) (*models.Account, error)
}

type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	Save(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, id uint) (*models.Company, error)
	ListByAccount(ctx context.Context, accountID uint) ([]models.Company, error)
}

type BranchRepository interface {
	Create(ctx context.Context, branch *models.Branch) error
	FindByID(ctx context.Context, id uint) (*models.Branch, error)
	ListByCompanies(ctx context.Context, companyIDs []uint) ([]models.Branch, error)
}

// UserRepository lookups preload account, company, branch and role
// permissions.
type UserRepository interface {
	Create(ctx context.Context, user *models.AppUser) error
	CreateBatch(ctx context.Context, users []*models.AppUser) error
	Save(ctx context.Context, user *models.AppUser) error
	FindByID(ctx context.Context, id uint) (*models.AppUser, error)
	FindByEmail(ctx context.Context, email string) (*models.AppUser, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.AppUser, error)
	// ListIDs returns the ids of the account's users, limited to one company
	// when companyID is set.
	ListIDs(ctx context.Context, accountID uint, companyID *uint) ([]uint, error)
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, id uint) (*models.Role, error)
	FindPermissionByName(ctx context.Context, name string) (*models.Permission, error)
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	Save(ctx context.Context, wallet *models.Wallet) error
	FindByID(ctx context.Context, id uint) (*models.Wallet, error)
	FindDefault(ctx context.Context) (*models.Wallet, error)
	ListByAccount(ctx context.Context, accountID uint) ([]models.Wallet, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Wallet, error)
	FindChargesByIDs(ctx context.Context, ids []uint) ([]models.WalletCharge, error)
	AppendCharges(ctx context.Context, wallet *models.Wallet, charges []models.WalletCharge) error
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	SaveTransaction(ctx context.Context, txn *models.WalletTransaction) error
	FindTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error)
}

// Repositories groups the write repositories bound to one transaction.
type Repositories interface {
	Accounts() AccountRepository
	Companies() CompanyRepository
	Branches() BranchRepository
	Users() UserRepository
	Roles() RoleRepository
	Wallets() WalletRepository
}

// TxManager runs fn inside a single database transaction. fn's error rolls
// the transaction back and is returned unchanged.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

type GormRepositories struct {
	db *gorm.DB
}

func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

func (r *GormRepositories) Accounts() AccountRepository  { return &accountRepository{db: r.db} }
func (r *GormRepositories) Companies() CompanyRepository { return &companyRepository{db: r.db} }
func (r *GormRepositories) Branches() BranchRepository   { return &branchRepository{db: r.db} }
func (r *GormRepositories) Users() UserRepository        { return &userRepository{db: r.db} }
func (r *GormRepositories) Roles() RoleRepository        { return &roleRepository{db: r.db} }
func (r *GormRepositories) Wallets() WalletRepository    { return &walletRepository{db: r.db} }
