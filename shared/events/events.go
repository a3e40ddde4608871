package events

import "time"

// Event types
const (
	AccountCreated   = "account.created"
	AccountActivated = "account.activated"
	AccountUpdated   = "account.updated"

	CompanyCreated = "company.created"
	CompanyUpdated = "company.updated"
	CompanyClosed  = "company.closed"

	UserCreated = "user.created"

	WalletTransactionCreated = "wallet.transaction.created"
	WalletBalanceUpdated     = "wallet.balance.updated"
)

// Stream names
const (
	AccountEventsStream = "account.events"
	CompanyEventsStream = "company.events"
	UserEventsStream    = "user.events"
	WalletEventsStream  = "wallet.events"
)

// Base event structure
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Account events
type AccountCreatedEvent struct {
	AccountID   uint   `json:"accountId"`
	AccountType string `json:"accountType"`
	UserID      uint   `json:"userId"`
	CompanyID   *uint  `json:"companyId,omitempty"`
}

type AccountActivatedEvent struct {
	AccountID   uint `json:"accountId"`
	ActivatedBy uint `json:"activatedBy"`
}

type AccountUpdatedEvent struct {
	AccountID   uint   `json:"accountId"`
	AccountType string `json:"accountType"`
	UpdatedBy   uint   `json:"updatedBy"`
}

// Company events
type CompanyCreatedEvent struct {
	CompanyID       uint  `json:"companyId"`
	AccountID       uint  `json:"accountId"`
	ParentCompanyID *uint `json:"parentCompanyId,omitempty"`
	CreatedBy       uint  `json:"createdBy"`
}

type CompanyUpdatedEvent struct {
	CompanyID uint `json:"companyId"`
	AccountID uint `json:"accountId"`
	UpdatedBy uint `json:"updatedBy"`
}

type CompanyClosedEvent struct {
	CompanyID uint `json:"companyId"`
	AccountID uint `json:"accountId"`
	ClosedBy  uint `json:"closedBy"`
}

// User events
type UserCreatedEvent struct {
	UserID    uint   `json:"userId"`
	AccountID uint   `json:"accountId"`
	Email     string `json:"email"`
}

// Wallet events. Amounts travel as decimal strings.
type WalletTransactionCreatedEvent struct {
	TransactionID   uint   `json:"transactionId"`
	Reference       string `json:"reference"`
	WalletID        uint   `json:"walletId"`
	TransactionType string `json:"transactionType"`
	Amount          string `json:"amount"`
}

type WalletBalanceUpdatedEvent struct {
	WalletID         uint   `json:"walletId"`
	Reference        string `json:"reference"`
	AvailableBalance string `json:"availableBalance"`
	ActualBalance    string `json:"actualBalance"`
}
