package cqrs

import (
	"time"

	"github.com/mojagap/moja-node/shared/models"
	"github.com/shopspring/decimal"
)

// ---------- Account commands ----------

// UserInput is the first-user section of an account or a standalone user.
type UserInput struct {
	FirstName   string        `json:"firstName" validate:"required"`
	LastName    string        `json:"lastName" validate:"required"`
	DateOfBirth *time.Time    `json:"dateOfBirth"`
	IDNumber    string        `json:"idNumber"`
	IDType      models.IDType `json:"idType" validate:"omitempty,oneof=NATIONAL_ID PASSPORT DRIVING_PERMIT"`
	Address     string        `json:"address"`
	Email       string        `json:"email" validate:"required,email"`
	PhoneNumber string        `json:"phoneNumber"`
	Password    string        `json:"password" validate:"required,strongpassword"`
}

type CompanyInput struct {
	Name               string             `json:"name" validate:"required"`
	CompanyType        models.CompanyType `json:"companyType" validate:"required,oneof=SOLE_PROPRIETORSHIP PARTNERSHIP LIMITED_LIABILITY PUBLIC_LIMITED NON_PROFIT"`
	RegistrationNumber string             `json:"registrationNumber"`
	RegistrationDate   *time.Time         `json:"registrationDate"`
	Email              string             `json:"email" validate:"omitempty,email"`
	PhoneNumber        string             `json:"phoneNumber"`
	Address            string             `json:"address"`
}

type CreateAccountCommand struct {
	AccountType models.AccountType `json:"accountType" validate:"required,oneof=INDIVIDUAL COMPANY BACK_OFFICE PARTNER"`
	CountryCode string             `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Users       []UserInput        `json:"appUsers" validate:"dive"`
	Company     *CompanyInput      `json:"company"`
}

type UpdateAccountCommand struct {
	ActorID            uint               `json:"-"`
	AccountType        models.AccountType `json:"accountType" validate:"required,oneof=INDIVIDUAL COMPANY BACK_OFFICE PARTNER"`
	CountryCode        string             `json:"countryCode" validate:"required,iso3166_1_alpha2"`
	Name               string             `json:"name"`
	Email              string             `json:"email" validate:"omitempty,email"`
	ContactPhoneNumber string             `json:"contactPhoneNumber"`
	Address            string             `json:"address"`
	Company            *CompanyInput      `json:"company"`
}

type ActivateAccountCommand struct {
	ActorID   uint
	AccountID uint
}

// LoginCommand carries credentials from the body. HeaderEmail and
// HeaderPassword take priority when both are set.
type LoginCommand struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	HeaderEmail    string `json:"-"`
	HeaderPassword string `json:"-"`
}

// ---------- Company commands ----------

type CreateCompanyCommand struct {
	ActorID         uint  `json:"-"`
	ParentCompanyID *uint `json:"parentCompanyId"`
	CompanyInput
}

type UpdateCompanyCommand struct {
	ActorID            uint               `json:"-"`
	CompanyID          uint               `json:"-"`
	ParentCompanyID    *uint              `json:"parentCompanyId"`
	Name               string             `json:"name"`
	CompanyType        models.CompanyType `json:"companyType" validate:"omitempty,oneof=SOLE_PROPRIETORSHIP PARTNERSHIP LIMITED_LIABILITY PUBLIC_LIMITED NON_PROFIT"`
	RegistrationNumber string             `json:"registrationNumber"`
	RegistrationDate   *time.Time         `json:"registrationDate"`
	Email              string             `json:"email" validate:"omitempty,email"`
	PhoneNumber        string             `json:"phoneNumber"`
	Address            string             `json:"address"`
}

type CloseCompanyCommand struct {
	ActorID   uint
	CompanyID uint
}

// ---------- User commands ----------

type CreateUserCommand struct {
	ActorID   uint  `json:"-"`
	CompanyID *uint `json:"companyId"`
	BranchID  *uint `json:"branchId"`
	RoleID    *uint `json:"roleId"`
	UserInput
}

type UpdateUserCommand struct {
	ActorID uint `json:"-"`
	UserID  uint `json:"-"`
	UserInput
}

type RemoveUserCommand struct {
	ActorID uint
	UserID  uint
}

// ---------- Wallet commands ----------

type BankDepositInput struct {
	BankName          string     `json:"bankName"`
	BankAccountNumber string     `json:"bankAccountNumber"`
	DepositReference  string     `json:"depositReference"`
	DepositedOn       *time.Time `json:"depositedOn"`
}

type DepositCommand struct {
	ActorID     uint              `json:"-"`
	WalletID    uint              `json:"-"`
	Amount      decimal.Decimal   `json:"amount"`
	Narration   string            `json:"narration"`
	BankDeposit *BankDepositInput `json:"bankDeposit"`
}

type ApplyWalletChargeCommand struct {
	ActorID         uint   `json:"-"`
	WalletIDs       []uint `json:"walletIds"`
	WalletChargeIDs []uint `json:"walletChargeIds" validate:"required,min=1"`
	ApplyToAll      bool   `json:"applyToAll"`
}
