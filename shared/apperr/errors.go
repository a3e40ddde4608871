// Package apperr holds the client-facing error taxonomy shared by every
// command and query service.
package apperr

import (
	"errors"
	"fmt"
)

// FieldError describes one failed field rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationError signals a malformed or incomplete request.
type ValidationError struct {
	Message string
	Details []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s %s", e.Message, e.Details[0].Field, e.Details[0].Message)
	}
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) (*ValidationError, bool) {
	var target *ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AuthorizationError signals that the caller may not act on the target.
// Unauthenticated marks credential failures, which map to 401 rather than 403.
type AuthorizationError struct {
	Message         string
	Unauthenticated bool
}

func (e *AuthorizationError) Error() string { return e.Message }

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// NewInvalidCredentialsError reports a failed credential check.
func NewInvalidCredentialsError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message, Unauthenticated: true}
}

// IsAuthorizationError checks if an error is an AuthorizationError
func IsAuthorizationError(err error) (*AuthorizationError, bool) {
	var target *AuthorizationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// NotFoundError signals that a referenced entity id does not resolve.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with the supplied %s does not exist", e.Entity, e.Key)
}

// NewNotFoundError creates a new not-found error
func NewNotFoundError(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// IsNotFoundError checks if an error is a NotFoundError
func IsNotFoundError(err error) (*NotFoundError, bool) {
	var target *NotFoundError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// ConflictError represents an invalid state transition or a duplicate.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{Resource: resource, Message: message}
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) (*ConflictError, bool) {
	var target *ConflictError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// UnsupportedOperationError is returned for account-type operations that
// are not offered.
type UnsupportedOperationError struct {
	Message string
}

func (e *UnsupportedOperationError) Error() string { return e.Message }

// NewUnsupportedOperationError creates a new unsupported-operation error
func NewUnsupportedOperationError(message string) *UnsupportedOperationError {
	return &UnsupportedOperationError{Message: message}
}

// IsUnsupportedOperationError checks if an error is an UnsupportedOperationError
func IsUnsupportedOperationError(err error) (*UnsupportedOperationError, bool) {
	var target *UnsupportedOperationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IntegrationError wraps a failed call to an external service.
type IntegrationError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *IntegrationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s call failed: %v", e.Service, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// NewIntegrationError creates a new integration error
func NewIntegrationError(service string, statusCode int, err error) *IntegrationError {
	return &IntegrationError{Service: service, StatusCode: statusCode, Err: err}
}

// IsIntegrationError checks if an error is an IntegrationError
func IsIntegrationError(err error) (*IntegrationError, bool) {
	var target *IntegrationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Messages reused across services.
const (
	MsgUserRequiredForAccount    = "At least one user is required when creating an account"
	MsgCompanyDetailsRequired    = "Company details are required for a company account"
	MsgInvalidPassword           = "Password must be at least 8 characters with upper, lower, digit and special characters"
	MsgInvalidCredentials        = "Invalid email or password"
	MsgAccountTypeNotPermitted   = "This operation is not permitted for your account type"
	MsgNotPermittedOnCompany     = "You are not permitted to perform this action on the company"
	MsgNotPermittedToMigrate     = "You are not permitted to migrate the company to the selected parent company"
	MsgParentCompanyRequired     = "Parent company ID is required"
	MsgAccountAlreadyActive      = "Account is already active"
	MsgBackOfficeNotSupported    = "You cannot create a backoffice account at the moment"
	MsgPartnerNotSupported       = "You cannot create a partner account at the moment"
	MsgNotPermittedOnWallet      = "You are not permitted to perform this action on the wallet"
	MsgNotPermittedOnBranch      = "You are not permitted to assign users to the selected branch"
	MsgCompanyCannotParentItself = "A company cannot be migrated under itself or one of its subsidiaries"
	MsgEmailAlreadyRegistered    = "A user with this email is already registered"
	MsgAccountClosed             = "Account is closed and cannot be activated"
	MsgCompanyAlreadyClosed      = "Company is already closed"
	MsgCompanyClosed             = "Company is closed and cannot be modified"
	MsgParentCompanyClosed       = "Parent company is closed"
	MsgInvalidRequestParameter   = "Invalid request parameter"
	MsgAmountMustBePositive      = "Amount must be greater than zero"
	MsgCannotCloseOwnCompany     = "You cannot close the company you belong to"
	MsgSessionUserNotFound       = "The authenticated user no longer exists or is inactive"
	MsgWalletIDsRequired         = "Select at least one wallet or apply to all wallets"
	MsgNotPermittedOnAccount     = "You are not permitted to perform this action on the account"
)
