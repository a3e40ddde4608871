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

// ExternalUserGateway is satisfied by *httpgateway.Client.
type ExternalUserGateway interface {
	DoPost(ctx context.Context, path string, body, out any) error
}

type UserCommandService struct {
	tx        repository.TxManager
	auth      *Authenticator
	views     UserViewCache
	gateway   ExternalUserGateway
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewUserCommandService(
	tx repository.TxManager,
	auth *Authenticator,
	views UserViewCache,
	gateway ExternalUserGateway,
	publisher EventPublisher,
	logger *logrus.Logger,
) *UserCommandService {
	return &UserCommandService{
		tx:        tx,
		auth:      auth,
		views:     views,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
		now:       utcNow,
	}
}

// CreateUser adds a user to the caller's account. Company and branch default
// to the caller's own and must be reachable when given.
func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (*models.AppUserView, error) {
	if err := middleware.Validate(cmd); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	var view *models.AppUserView
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		now := s.now()
		actor, err := loadActor(ctx, repos, cmd.ActorID)
		if err != nil {
			return err
		}

		user := newUser(cmd.UserInput, hash, actor.AccountID)
		if err := s.placeUser(ctx, repos, actor, user, cmd); err != nil {
			return err
		}

		user.StampCreate(actor.ID, now)
		if err := repos.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.NewConflictError("user", apperr.MsgEmailAlreadyRegistered)
			}
			return err
		}

		saved, err := repos.Users().FindByID(ctx, user.ID)
		if err != nil {
			return err
		}
		view = models.UserToView(saved)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.views.CacheUserView(ctx, view)
	s.logger.WithFields(logrus.Fields{"user_id": view.ID, "created_by": cmd.ActorID}).Info("User created")
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserCreated, events.UserCreatedEvent{
		UserID:    view.ID,
		AccountID: view.Account.ID,
		Email:     view.Email,
	}); err != nil {
		s.logger.WithError(err).WithField("event", events.UserCreated).Error("Failed to publish event")
	}
	return view, nil
}

// placeUser resolves the company, branch and role for a new user.
func (s *UserCommandService) placeUser(ctx context.Context, repos repository.Repositories, actor, user *models.AppUser, cmd cqrs.CreateUserCommand) error {
	if cmd.CompanyID == nil && cmd.BranchID == nil {
		user.CompanyID = actor.CompanyID
		user.BranchID = actor.BranchID
	} else {
		_, reachable, err := companyGraph(ctx, repos, actor)
		if err != nil {
			return err
		}
		if cmd.CompanyID != nil {
			company, err := findCompany(ctx, repos, *cmd.CompanyID, "ID")
			if err != nil {
				return err
			}
			if company.AccountID != actor.AccountID || !reachable[company.ID] {
				return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnCompany)
			}
			user.CompanyID = &company.ID
		}
		if cmd.BranchID != nil {
			branch, err := repos.Branches().FindByID(ctx, *cmd.BranchID)
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NewNotFoundError("Branch", "ID")
			}
			if err != nil {
				return err
			}
			if !reachable[branch.CompanyID] || (user.CompanyID != nil && *user.CompanyID != branch.CompanyID) {
				return apperr.NewAuthorizationError(apperr.MsgNotPermittedOnBranch)
			}
			user.CompanyID = &branch.CompanyID
			user.BranchID = &branch.ID
		}
	}

	if cmd.RoleID != nil {
		role, err := repos.Roles().FindByID(ctx, *cmd.RoleID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && role.AccountID != actor.AccountID) {
			return apperr.NewNotFoundError("Role", "ID")
		}
		if err != nil {
			return err
		}
		user.RoleID = &role.ID
	}
	return nil
}

// AuthenticateUser returns the organization scoped summary with a token.
func (s *UserCommandService) AuthenticateUser(ctx context.Context, cmd cqrs.LoginCommand) (*models.UserSummary, error) {
	authn, err := s.auth.Authenticate(ctx, cmd)
	if err != nil {
		return nil, err
	}

	user := authn.User
	summary := &models.UserSummary{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Email:          user.Email,
		PhoneNumber:    user.PhoneNumber,
		Verified:       user.Verified,
		OrganizationID: user.AccountID,
		Authentication: authn.Token,
	}
	if user.Account != nil {
		summary.OrganizationName = user.Account.Name
	}
	return summary, nil
}

// UpdateUser is accepted but not applied yet.
func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserSummary, error) {
	return &models.UserSummary{
		ID:          cmd.UserID,
		FirstName:   cmd.FirstName,
		LastName:    cmd.LastName,
		Email:       cmd.Email,
		PhoneNumber: cmd.PhoneNumber,
	}, nil
}

// RemoveUser is accepted but not applied yet.
func (s *UserCommandService) RemoveUser(ctx context.Context, cmd cqrs.RemoveUserCommand) (*models.UserSummary, error) {
	return &models.UserSummary{}, nil
}

// CreateExternalUser forwards the record to the external user service.
func (s *UserCommandService) CreateExternalUser(ctx context.Context, user models.ExternalUser) (*models.ExternalUser, error) {
	var created models.ExternalUser
	if err := s.gateway.DoPost(ctx, "/users", user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
