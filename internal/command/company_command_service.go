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
	"github.com/sirupsen/logrus"
)

// CompanyCommandService manages subsidiaries within a company account.
type CompanyCommandService struct {
	tx        repository.TxManager
	views     UserViewCache
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewCompanyCommandService(tx repository.TxManager, views UserViewCache, publisher EventPublisher, logger *logrus.Logger) *CompanyCommandService {
	return &CompanyCommandService{
		tx:        tx,
		views:     views,
		publisher: publisher,
		logger:    logger,
		now:       utcNow,
	}
}

func findCompany(ctx context.Context, repos repository.Repositories, id uint, key string) (*models.Company, error) {
	company, err := repos.Companies().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewNotFoundError("Company", key)
	}
	return company, err
}

// CreateCompany adds a company under a reachable parent together with its
// default branch and wallet. A missing parent is reported before an
// unreachable one.
func (s *CompanyCommandService) CreateCompany(ctx context.Context, cmd cqrs.CreateCompanyCommand) (*models.ActionResponse, error) {
	if err := middleware.Validate(cmd); err != nil {
		return nil, err
	}

	var created events.CompanyCreatedEvent
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		actor, err := loadActor(ctx, repos, cmd.ActorID)
		if err != nil {
			return err
		}
		if actor.Account.AccountType != models.AccountTypeCompany {
			return apperr.NewAuthorizationError(apperr.MsgAccountTypeNotPermitted)
		}
		if cmd.ParentCompanyID == nil {
			return apperr.NewValidationError(apperr.MsgParentCompanyRequired)
		}

		parent, err := findCompany(ctx, repos, *cmd.ParentCompanyID, "parent company ID")
		if err != nil {
			return err
		}
		_, reachable, err := companyGraph(ctx, repos, actor)
		if err != nil {
			return err
		}
		if parent.AccountID != actor.AccountID || !reachable[parent.ID] {
			return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnCompany)
		}
		if parent.RecordStatus == models.RecordStatusClosed {
			return apperr.NewConflictError("company", apperr.MsgParentCompanyClosed)
		}

		company := newCompany(cmd.CompanyInput, actor.AccountID, &parent.ID)
		company.StampCreate(actor.ID, now)
		if err := repos.Companies().Create(ctx, company); err != nil {
			return err
		}

		branch := &models.Branch{
			Name:      models.DefaultOfficeBranchName,
			CompanyID: company.ID,
			AccountID: actor.AccountID,
		}
		branch.StampCreate(actor.ID, now)
		if err := repos.Branches().Create(ctx, branch); err != nil {
			return err
		}

		if _, err := createWallet(ctx, repos, actor.AccountID, company, branch, actor.ID, now); err != nil {
			return err
		}

		created = events.CompanyCreatedEvent{
			CompanyID:       company.ID,
			AccountID:       company.AccountID,
			ParentCompanyID: company.ParentCompanyID,
			CreatedBy:       actor.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"company_id": created.CompanyID,
		"account_id": created.AccountID,
		"user_id":    created.CreatedBy,
	}).Info("Company created")
	s.publish(ctx, events.CompanyCreated, created)
	return &models.ActionResponse{ID: created.CompanyID}, nil
}

// UpdateCompany edits contact and registration details and optionally moves
// the company under another reachable parent.
func (s *CompanyCommandService) UpdateCompany(ctx context.Context, cmd cqrs.UpdateCompanyCommand) (*models.ActionResponse, error) {
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
		if actor.Account.AccountType != models.AccountTypeCompany {
			return apperr.NewAuthorizationError(apperr.MsgAccountTypeNotPermitted)
		}
		company, err := findCompany(ctx, repos, cmd.CompanyID, "ID")
		if err != nil {
			return err
		}
		companies, reachable, err := companyGraph(ctx, repos, actor)
		if err != nil {
			return err
		}
		if company.AccountID != actor.AccountID || !reachable[company.ID] {
			return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnCompany)
		}
		if company.RecordStatus == models.RecordStatusClosed {
			return apperr.NewConflictError("company", apperr.MsgCompanyClosed)
		}

		if cmd.ParentCompanyID != nil && (company.ParentCompanyID == nil || *company.ParentCompanyID != *cmd.ParentCompanyID) {
			target, err := findCompany(ctx, repos, *cmd.ParentCompanyID, "parent company ID")
			if err != nil {
				return err
			}
			if target.ID == company.ID || isDescendant(companies, company.ID, target.ID) {
				return apperr.NewValidationError(apperr.MsgCompanyCannotParentItself)
			}
			if target.AccountID != actor.AccountID || !reachable[target.ID] {
				return apperr.NewAuthorizationError(apperr.MsgNotPermittedToMigrate)
			}
			if target.RecordStatus == models.RecordStatusClosed {
				return apperr.NewConflictError("company", apperr.MsgParentCompanyClosed)
			}
			company.ParentCompanyID = &target.ID
		}

		if cmd.Name != "" {
			company.Name = cmd.Name
		}
		if cmd.CompanyType != "" {
			company.CompanyType = cmd.CompanyType
		}
		if cmd.RegistrationNumber != "" {
			company.RegistrationNumber = cmd.RegistrationNumber
		}
		if cmd.RegistrationDate != nil {
			company.RegistrationDate = cmd.RegistrationDate
		}
		if cmd.Email != "" {
			company.Email = cmd.Email
		}
		if cmd.PhoneNumber != "" {
			company.PhoneNumber = cmd.PhoneNumber
		}
		if cmd.Address != "" {
			company.Address = cmd.Address
		}

		company.StampModify(actor.ID, now)
		accountID = company.AccountID
		if err := repos.Companies().Save(ctx, company); err != nil {
			return err
		}
		affected, err = repos.Users().ListIDs(ctx, company.AccountID, &company.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateViews(ctx, s.views, affected)
	s.publish(ctx, events.CompanyUpdated, events.CompanyUpdatedEvent{
		CompanyID: cmd.CompanyID,
		AccountID: accountID,
		UpdatedBy: cmd.ActorID,
	})
	return &models.ActionResponse{ID: cmd.CompanyID}, nil
}

// CloseCompany marks a reachable company CLOSED. Callers cannot close the
// company they belong to.
func (s *CompanyCommandService) CloseCompany(ctx context.Context, cmd cqrs.CloseCompanyCommand) (*models.ActionResponse, error) {
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
		if actor.Account.AccountType != models.AccountTypeCompany {
			return apperr.NewAuthorizationError(apperr.MsgAccountTypeNotPermitted)
		}
		company, err := findCompany(ctx, repos, cmd.CompanyID, "ID")
		if err != nil {
			return err
		}
		_, reachable, err := companyGraph(ctx, repos, actor)
		if err != nil {
			return err
		}
		if company.AccountID != actor.AccountID || !reachable[company.ID] {
			return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnCompany)
		}
		if actor.CompanyID != nil && *actor.CompanyID == company.ID {
			return apperr.NewAuthorizationError(apperr.MsgCannotCloseOwnCompany)
		}
		if company.RecordStatus == models.RecordStatusClosed {
			return apperr.NewConflictError("company", apperr.MsgCompanyAlreadyClosed)
		}

		company.RecordStatus = models.RecordStatusClosed
		company.StampModify(actor.ID, now)
		accountID = company.AccountID
		if err := repos.Companies().Save(ctx, company); err != nil {
			return err
		}
		affected, err = repos.Users().ListIDs(ctx, company.AccountID, &company.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateViews(ctx, s.views, affected)

	s.logger.WithFields(logrus.Fields{"company_id": cmd.CompanyID, "user_id": cmd.ActorID}).Info("Company closed")
	s.publish(ctx, events.CompanyClosed, events.CompanyClosedEvent{
		CompanyID: cmd.CompanyID,
		AccountID: accountID,
		ClosedBy:  cmd.ActorID,
	})
	return &models.ActionResponse{ID: cmd.CompanyID}, nil
}

func (s *CompanyCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.CompanyEventsStream, eventType, data); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Error("Failed to publish event")
	}
}
