package command

import (
	"context"
	"errors"
	"time"

	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/events"
	"github.com/mojagap/moja-node/shared/middleware"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/mojagap/moja-node/shared/utils"
	"github.com/sirupsen/logrus"
)

// AccountCommandService onboards tenants and manages their lifecycle.
type AccountCommandService struct {
	tx        repository.TxManager
	auth      *Authenticator
	roles     RoleResolver
	views     UserViewCache
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewAccountCommandService(
	tx repository.TxManager,
	auth *Authenticator,
	views UserViewCache,
	publisher EventPublisher,
	logger *logrus.Logger,
) *AccountCommandService {
	return &AccountCommandService{
		tx:        tx,
		auth:      auth,
		views:     views,
		publisher: publisher,
		logger:    logger,
		now:       utcNow,
	}
}

func validateCreateAccount(cmd cqrs.CreateAccountCommand) error {
	if err := middleware.Validate(cmd); err != nil {
		return err
	}
	if len(cmd.Users) == 0 {
		return apperr.NewValidationError(apperr.MsgUserRequiredForAccount)
	}
	if cmd.AccountType == models.AccountTypeCompany {
		if cmd.Company == nil {
			return apperr.NewValidationError(apperr.MsgCompanyDetailsRequired)
		}
		if err := middleware.Validate(cmd.Company); err != nil {
			return err
		}
	}
	return nil
}

func newUser(input cqrs.UserInput, passwordHash string, accountID uint) *models.AppUser {
	return &models.AppUser{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		DateOfBirth: input.DateOfBirth,
		IDNumber:    input.IDNumber,
		IDType:      input.IDType,
		Address:     input.Address,
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		Password:    passwordHash,
		Verified:    false,
		AccountID:   accountID,
	}
}

// CreateAccount persists the account, its first user, a wallet and, for
// company accounts, the root company graph, then logs the new user in.
func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.AppUserView, error) {
	if err := validateCreateAccount(cmd); err != nil {
		return nil, err
	}
	switch cmd.AccountType {
	case models.AccountTypeBackOffice:
		return nil, apperr.NewUnsupportedOperationError(apperr.MsgBackOfficeNotSupported)
	case models.AccountTypePartner:
		return nil, apperr.NewUnsupportedOperationError(apperr.MsgPartnerNotSupported)
	}

	first := cmd.Users[0]
	hash, err := utils.HashPassword(first.Password)
	if err != nil {
		return nil, err
	}

	var created events.AccountCreatedEvent
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()

		account := &models.Account{
			AccountType: cmd.AccountType,
			CountryCode: cmd.CountryCode,
			Audit:       models.Audit{RecordStatus: models.RecordStatusInactive},
		}
		account.StampTime(now)
		if err := repos.Accounts().Create(ctx, account); err != nil {
			return err
		}

		user := newUser(first, hash, account.ID)
		user.StampTime(now)
		if err := repos.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.NewConflictError("user", apperr.MsgEmailAlreadyRegistered)
			}
			return err
		}
		// the first user audits itself and its account
		user.StampCreate(user.ID, now)
		account.StampCreate(user.ID, now)

		var company *models.Company
		var branch *models.Branch
		switch account.AccountType {
		case models.AccountTypeIndividual:
			account.Name = user.FullName()
			account.Email = user.Email
			account.ContactPhoneNumber = user.PhoneNumber
			account.Address = user.Address
		case models.AccountTypeCompany:
			company, branch, err = bootstrapCompany(ctx, repos, s.roles, account, user, *cmd.Company, now)
			if err != nil {
				return err
			}
		}

		if err := repos.Accounts().Save(ctx, account); err != nil {
			return err
		}
		if err := repos.Users().Save(ctx, user); err != nil {
			return err
		}
		if _, err := createWallet(ctx, repos, account.ID, company, branch, user.ID, now); err != nil {
			return err
		}

		created = events.AccountCreatedEvent{
			AccountID:   account.ID,
			AccountType: string(account.AccountType),
			UserID:      user.ID,
		}
		if company != nil {
			created.CompanyID = &company.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"account_id":   created.AccountID,
		"account_type": created.AccountType,
		"user_id":      created.UserID,
	}).Info("Account created")
	s.publish(ctx, events.AccountEventsStream, events.AccountCreated, created)

	return s.AuthenticateUser(ctx, cqrs.LoginCommand{Email: first.Email, Password: first.Password})
}

// AuthenticateUser returns the caller's projection with a fresh token. The
// role is only exposed to back office and company accounts.
func (s *AccountCommandService) AuthenticateUser(ctx context.Context, cmd cqrs.LoginCommand) (*models.AppUserView, error) {
	authn, err := s.auth.Authenticate(ctx, cmd)
	if err != nil {
		return nil, err
	}

	view := models.UserToView(authn.User)
	if authn.User.Account == nil ||
		(authn.User.Account.AccountType != models.AccountTypeBackOffice && authn.User.Account.AccountType != models.AccountTypeCompany) {
		view.Role = nil
	}
	view.Password = nil
	view.Authentication = authn.Token
	return view, nil
}

func applyAccountProperties(account *models.Account, cmd cqrs.UpdateAccountCommand) {
	if cmd.Name != "" {
		account.Name = cmd.Name
	}
	if cmd.Email != "" {
		account.Email = cmd.Email
	}
	if cmd.ContactPhoneNumber != "" {
		account.ContactPhoneNumber = cmd.ContactPhoneNumber
	}
	if cmd.Address != "" {
		account.Address = cmd.Address
	}
}

// UpdateAccount applies the requested type transition. Every current type
// is handled explicitly; only INDIVIDUAL to COMPANY changes the type.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.ActionResponse, error) {
	if err := middleware.Validate(cmd); err != nil {
		return nil, err
	}

	var (
		accountID uint
		affected  []uint
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		actor, err := loadActor(ctx, repos, cmd.ActorID)
		if err != nil {
			return err
		}
		account, err := repos.Accounts().FindByID(ctx, actor.AccountID)
		if err != nil {
			return err
		}
		account.CountryCode = cmd.CountryCode

		switch account.AccountType {
		case models.AccountTypeIndividual:
			switch cmd.AccountType {
			case models.AccountTypeIndividual:
				applyAccountProperties(account, cmd)
			case models.AccountTypeCompany:
				if err := s.upgradeToCompany(ctx, repos, account, actor, cmd, now); err != nil {
					return err
				}
			default:
				return apperr.NewUnsupportedOperationError(apperr.MsgAccountTypeNotPermitted)
			}
		case models.AccountTypeCompany:
			if cmd.AccountType != models.AccountTypeCompany {
				return apperr.NewUnsupportedOperationError(apperr.MsgAccountTypeNotPermitted)
			}
			applyAccountProperties(account, cmd)
		case models.AccountTypeBackOffice:
			return apperr.NewUnsupportedOperationError(apperr.MsgBackOfficeNotSupported)
		case models.AccountTypePartner:
			return apperr.NewUnsupportedOperationError(apperr.MsgPartnerNotSupported)
		default:
			return apperr.NewUnsupportedOperationError(apperr.MsgAccountTypeNotPermitted)
		}

		account.StampModify(actor.ID, now)
		if err := repos.Accounts().Save(ctx, account); err != nil {
			return err
		}
		accountID = account.ID
		affected, err = repos.Users().ListIDs(ctx, account.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateViews(ctx, s.views, affected)
	s.publish(ctx, events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID:   accountID,
		AccountType: string(cmd.AccountType),
		UpdatedBy:   cmd.ActorID,
	})
	return &models.ActionResponse{ID: accountID}, nil
}

// upgradeToCompany bootstraps the company graph for an individual account
// and moves its company-less wallets under the new Head Office.
func (s *AccountCommandService) upgradeToCompany(ctx context.Context, repos repository.Repositories, account *models.Account, actor *models.AppUser, cmd cqrs.UpdateAccountCommand, now time.Time) error {
	if cmd.Company == nil {
		return apperr.NewValidationError(apperr.MsgCompanyDetailsRequired)
	}
	if err := middleware.Validate(cmd.Company); err != nil {
		return err
	}

	company, branch, err := bootstrapCompany(ctx, repos, s.roles, account, actor, *cmd.Company, now)
	if err != nil {
		return err
	}
	account.AccountType = models.AccountTypeCompany

	actor.StampModify(actor.ID, now)
	if err := repos.Users().Save(ctx, actor); err != nil {
		return err
	}

	wallets, err := repos.Wallets().ListByAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	for i := range wallets {
		if wallets[i].CompanyID != nil {
			continue
		}
		wallets[i].CompanyID = &company.ID
		wallets[i].BranchID = &branch.ID
		wallets[i].StampModify(actor.ID, now)
		if err := repos.Wallets().Save(ctx, &wallets[i]); err != nil {
			return err
		}
	}
	return nil
}

// ActivateAccount moves an INACTIVE account to ACTIVE. Back office users may
// activate any account; other users only their own.
func (s *AccountCommandService) ActivateAccount(ctx context.Context, cmd cqrs.ActivateAccountCommand) (*models.ActionResponse, error) {
	var affected []uint
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		actor, err := loadActor(ctx, repos, cmd.ActorID)
		if err != nil {
			return err
		}
		account, err := repos.Accounts().FindByID(ctx, cmd.AccountID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NewNotFoundError("Account", "ID")
		}
		if err != nil {
			return err
		}
		if actor.Account.AccountType != models.AccountTypeBackOffice && actor.AccountID != account.ID {
			return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnAccount)
		}

		switch account.RecordStatus {
		case models.RecordStatusActive:
			return apperr.NewConflictError("account", apperr.MsgAccountAlreadyActive)
		case models.RecordStatusClosed:
			return apperr.NewConflictError("account", apperr.MsgAccountClosed)
		}

		account.RecordStatus = models.RecordStatusActive
		account.ActivatedByID = &actor.ID
		account.ActivatedOn = &now
		account.StampModify(actor.ID, now)
		if err := repos.Accounts().Save(ctx, account); err != nil {
			return err
		}
		affected, err = repos.Users().ListIDs(ctx, account.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateViews(ctx, s.views, affected)
	s.logger.WithFields(logrus.Fields{"account_id": cmd.AccountID, "user_id": cmd.ActorID}).Info("Account activated")
	s.publish(ctx, events.AccountEventsStream, events.AccountActivated, events.AccountActivatedEvent{
		AccountID:   cmd.AccountID,
		ActivatedBy: cmd.ActorID,
	})
	return &models.ActionResponse{ID: cmd.AccountID}, nil
}

func (s *AccountCommandService) publish(ctx context.Context, stream, eventType string, data any) {
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("Failed to publish event")
	}
}
