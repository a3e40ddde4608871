package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type RecordStatus string

const (
	RecordStatusInactive RecordStatus = "INACTIVE"
	RecordStatusActive   RecordStatus = "ACTIVE"
	RecordStatusClosed   RecordStatus = "CLOSED"
)

type AccountType string

const (
	AccountTypeIndividual AccountType = "INDIVIDUAL"
	AccountTypeCompany    AccountType = "COMPANY"
	AccountTypeBackOffice AccountType = "BACK_OFFICE"
	AccountTypePartner    AccountType = "PARTNER"
)

type CompanyType string

const (
	CompanyTypeSoleProprietorship CompanyType = "SOLE_PROPRIETORSHIP"
	CompanyTypePartnership        CompanyType = "PARTNERSHIP"
	CompanyTypeLimitedLiability   CompanyType = "LIMITED_LIABILITY"
	CompanyTypePublicLimited      CompanyType = "PUBLIC_LIMITED"
	CompanyTypeNonProfit          CompanyType = "NON_PROFIT"
)

type IDType string

const (
	IDTypeNationalID    IDType = "NATIONAL_ID"
	IDTypePassport      IDType = "PASSPORT"
	IDTypeDrivingPermit IDType = "DRIVING_PERMIT"
)

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypeCharge   TransactionType = "CHARGE"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

type ChargeType string

const (
	ChargeTypeFixed      ChargeType = "FIXED"
	ChargeTypePercentage ChargeType = "PERCENTAGE"
)

const (
	SuperPermission         = "SUPER_PERMISSION"
	SuperRoleName           = "SUPER_USER"
	SuperRoleDescription    = "Default super user role"
	HeadOfficeBranchName    = "Head Office"
	DefaultOfficeBranchName = "Default Office"
)

// Audit is embedded by every persisted entity.
type Audit struct {
	CreatedByID  *uint        `json:"createdById,omitempty" gorm:"column:created_by;index"`
	ModifiedByID *uint        `json:"modifiedById,omitempty" gorm:"column:modified_by"`
	CreatedOn    time.Time    `json:"createdOn"`
	ModifiedOn   time.Time    `json:"modifiedOn"`
	RecordStatus RecordStatus `json:"recordStatus" gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
}

// StampCreate records the creator. Record status defaults to ACTIVE.
func (a *Audit) StampCreate(actorID uint, now time.Time) {
	a.CreatedByID = &actorID
	a.CreatedOn = now
	if a.RecordStatus == "" {
		a.RecordStatus = RecordStatusActive
	}
	a.StampModify(actorID, now)
}

func (a *Audit) StampModify(actorID uint, now time.Time) {
	a.ModifiedByID = &actorID
	a.ModifiedOn = now
}

// StampTime sets timestamps for rows inserted before their creator has an id.
func (a *Audit) StampTime(now time.Time) {
	if a.CreatedOn.IsZero() {
		a.CreatedOn = now
	}
	a.ModifiedOn = now
	if a.RecordStatus == "" {
		a.RecordStatus = RecordStatusActive
	}
}

type Account struct {
	ID                 uint        `json:"id" gorm:"primaryKey"`
	AccountType        AccountType `json:"accountType" gorm:"type:varchar(20);not null"`
	CountryCode        string      `json:"countryCode" gorm:"type:varchar(2);not null"`
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	ContactPhoneNumber string      `json:"contactPhoneNumber"`
	Address            string      `json:"address"`
	ActivatedByID      *uint       `json:"activatedById,omitempty" gorm:"column:activated_by"`
	ActivatedOn        *time.Time  `json:"activatedOn,omitempty"`
	Audit
}

// Company.ParentCompanyID is nil for a root company.
type Company struct {
	ID                 uint        `json:"id" gorm:"primaryKey"`
	Name               string      `json:"name" gorm:"not null"`
	CompanyType        CompanyType `json:"companyType" gorm:"type:varchar(30);not null"`
	RegistrationNumber string      `json:"registrationNumber"`
	RegistrationDate   *time.Time  `json:"registrationDate,omitempty"`
	Email              string      `json:"email"`
	PhoneNumber        string      `json:"phoneNumber"`
	Address            string      `json:"address"`
	AccountID          uint        `json:"accountId" gorm:"not null;index"`
	ParentCompanyID    *uint       `json:"parentCompanyId,omitempty" gorm:"index"`
	Audit
}

// Branch.ParentBranchID is nil for a root branch.
type Branch struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Name           string `json:"name" gorm:"not null"`
	CompanyID      uint   `json:"companyId" gorm:"not null;index"`
	AccountID      uint   `json:"accountId" gorm:"not null;index"`
	ParentBranchID *uint  `json:"parentBranchId,omitempty"`
	Audit
}

type AppUser struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" gorm:"type:date"`
	IDNumber    string     `json:"idNumber"`
	IDType      IDType     `json:"idType" gorm:"type:varchar(20)"`
	Address     string     `json:"address"`
	Email       string     `json:"email" gorm:"uniqueIndex;not null"`
	PhoneNumber string     `json:"phoneNumber"`
	Password    string     `json:"-" gorm:"not null"`
	Verified    bool       `json:"verified" gorm:"column:is_verified;default:false"`
	AccountID   uint       `json:"accountId" gorm:"not null;index"`
	CompanyID   *uint      `json:"companyId,omitempty" gorm:"index"`
	BranchID    *uint      `json:"branchId,omitempty" gorm:"index"`
	RoleID      *uint      `json:"roleId,omitempty"`
	Account     *Account   `json:"-" gorm:"foreignKey:AccountID"`
	Company     *Company   `json:"-" gorm:"foreignKey:CompanyID"`
	Branch      *Branch    `json:"-" gorm:"foreignKey:BranchID"`
	Role        *Role      `json:"-" gorm:"foreignKey:RoleID"`
	Audit
}

func (u *AppUser) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Role struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"not null"`
	Description string       `json:"description"`
	AccountID   uint         `json:"accountId" gorm:"not null;index"`
	Permissions []Permission `json:"permissions" gorm:"many2many:role_permission;"`
	Audit
}

type Permission struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	Audit
}

// Wallet balances are never negative.
type Wallet struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	AccountID        uint            `json:"accountId" gorm:"not null;index"`
	CompanyID        *uint           `json:"companyId,omitempty" gorm:"index"`
	BranchID         *uint           `json:"branchId,omitempty"`
	AvailableBalance decimal.Decimal `json:"availableBalance" gorm:"type:numeric(19,2);not null;default:0"`
	ActualBalance    decimal.Decimal `json:"actualBalance" gorm:"type:numeric(19,2);not null;default:0"`
	IsDefault        bool            `json:"isDefault" gorm:"default:false"`
	WalletCharges    []WalletCharge  `json:"walletCharges,omitempty" gorm:"many2many:wallet_wallet_charge;"`
	Audit
}

type WalletCharge struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"not null"`
	Description string          `json:"description"`
	ChargeType  ChargeType      `json:"chargeType" gorm:"type:varchar(20);not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(19,2);not null"`
	Audit
}

type WalletTransaction struct {
	ID                         uint                      `json:"id" gorm:"primaryKey"`
	Reference                  string                    `json:"reference" gorm:"uniqueIndex;not null"`
	WalletID                   uint                      `json:"walletId" gorm:"not null;index"`
	TransactionType            TransactionType           `json:"transactionType" gorm:"type:varchar(20);not null"`
	Amount                     decimal.Decimal           `json:"amount" gorm:"type:numeric(19,2);not null"`
	TransactionStatus          TransactionStatus         `json:"transactionStatus" gorm:"type:varchar(20);not null"`
	WalletTransactionRequestID *uint                     `json:"walletTransactionRequestId,omitempty"`
	WalletTransactionRequest   *WalletTransactionRequest `json:"-" gorm:"foreignKey:WalletTransactionRequestID"`
	BankDepositTransactionID   *uint                     `json:"bankDepositTransactionId,omitempty"`
	BankDepositTransaction     *BankDepositTransaction   `json:"bankDeposit,omitempty" gorm:"foreignKey:BankDepositTransactionID"`
	Audit
}

type WalletTransactionRequest struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	WalletID        uint            `json:"walletId" gorm:"not null;index"`
	TransactionType TransactionType `json:"transactionType" gorm:"type:varchar(20);not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(19,2);not null"`
	Narration       string          `json:"narration"`
	Audit
}

type BankDepositTransaction struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	BankName          string     `json:"bankName"`
	BankAccountNumber string     `json:"bankAccountNumber"`
	DepositReference  string     `json:"depositReference"`
	DepositedOn       *time.Time `json:"depositedOn,omitempty"`
	Audit
}

// HttpCallLog is one outbound HTTP exchange.
type HttpCallLog struct {
	ID                 uint              `json:"id" gorm:"primaryKey"`
	CorrelationID      string            `json:"correlationId" gorm:"index"`
	RequestURL         string            `json:"requestUrl"`
	RequestMethod      string            `json:"requestMethod" gorm:"type:varchar(10)"`
	RequestHeaders     datatypes.JSON    `json:"requestHeaders"`
	RequestBody        string            `json:"requestBody"`
	ResponseHeaders    datatypes.JSON    `json:"responseHeaders"`
	ResponseBody       string            `json:"responseBody"`
	ResponseStatusCode int               `json:"responseStatusCode"`
	ResponseStatus     TransactionStatus `json:"responseStatus" gorm:"type:varchar(20)"`
	DurationMs         int64             `json:"durationMs"`
	CreatedOn          time.Time         `json:"createdOn"`
}
