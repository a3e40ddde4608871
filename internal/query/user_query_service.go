package query

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/mojagap/moja-node/internal/command"
	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/mojagap/moja-node/shared/utils"
	"github.com/sirupsen/logrus"
)

const (
	externalUserAddress  = "STOXX"
	externalUserPassword = "PASSWORD"
)

// UserReader is satisfied by *repository.UserReadRepository.
type UserReader interface {
	GetByID(ctx context.Context, id uint) (*models.AppUserView, error)
	FindByID(ctx context.Context, id uint) (*models.AppUser, error)
	FindActiveByEmail(ctx context.Context, email string) (*models.AppUser, error)
	Reachability(ctx context.Context, accountID uint) ([]models.Company, []models.Branch, error)
	CreateBatch(ctx context.Context, users []*models.AppUser) error
}

// UserSearcher is satisfied by *repository.UserSearchRepository.
type UserSearcher interface {
	Search(ctx context.Context, q cqrs.UserSearchQuery) ([]repository.UserRow, int64, error)
}

// ExternalUserReader is satisfied by *httpgateway.Client.
type ExternalUserReader interface {
	DoGet(ctx context.Context, path string, query url.Values, out any) error
}

type UserQueryService struct {
	reader   UserReader
	searcher UserSearcher
	gateway  ExternalUserReader
	logger   *logrus.Logger
	now      func() time.Time
}

func NewUserQueryService(reader UserReader, searcher UserSearcher, gateway ExternalUserReader, logger *logrus.Logger) *UserQueryService {
	return &UserQueryService{
		reader:   reader,
		searcher: searcher,
		gateway:  gateway,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserQueryService) actor(ctx context.Context, actorID uint) (*models.AppUser, error) {
	actor, err := s.reader.FindByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && actor.RecordStatus != models.RecordStatusActive) {
		return nil, apperr.NewInvalidCredentialsError(apperr.MsgSessionUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return actor, nil
}

// GetAppUsersByQueryParams searches users visible to the actor. Company
// users only see their reachable companies and branches; back office users
// may pick any account; everyone else is pinned to their own account.
func (s *UserQueryService) GetAppUsersByQueryParams(ctx context.Context, actorID uint, params map[string]string) (*models.RecordHolder[models.AppUserView], error) {
	q, err := cqrs.ParseUserSearchQuery(params)
	if err != nil {
		return nil, apperr.NewValidationError(apperr.MsgInvalidRequestParameter, apperr.FieldError{
			Field: "query", Message: err.Error(), Type: "parse",
		})
	}

	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.scope(ctx, actor, &q); err != nil {
		return nil, err
	}

	rows, total, err := s.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	records := make([]models.AppUserView, 0, len(rows))
	for i := range rows {
		records = append(records, rowToView(&rows[i]))
	}
	return &models.RecordHolder[models.AppUserView]{TotalRecords: total, Records: records}, nil
}

func (s *UserQueryService) scope(ctx context.Context, actor *models.AppUser, q *cqrs.UserSearchQuery) error {
	var accountType models.AccountType
	if actor.Account != nil {
		accountType = actor.Account.AccountType
	}

	switch accountType {
	case models.AccountTypeBackOffice:
		if q.AccountID == nil {
			q.AccountID = &actor.AccountID
		}
	case models.AccountTypeCompany:
		q.AccountID = &actor.AccountID
		companies, branches, err := s.reader.Reachability(ctx, actor.AccountID)
		if err != nil {
			return err
		}
		reachable := command.ReachableCompanyIDs(companies, actor)
		q.CompanyIDs = make([]uint, 0, len(reachable))
		for id := range reachable {
			q.CompanyIDs = append(q.CompanyIDs, id)
		}
		sort.Slice(q.CompanyIDs, func(i, j int) bool { return q.CompanyIDs[i] < q.CompanyIDs[j] })
		q.BranchIDs = command.ReachableBranchIDs(branches, reachable)
		q.Scoped = true
	default:
		q.AccountID = &actor.AccountID
	}
	return nil
}

func rowToView(r *repository.UserRow) models.AppUserView {
	view := models.AppUserView{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth,
		IDNumber:    r.IDNumber,
		Address:     r.Address,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Verified:    r.Verified,
		UserStatus:  r.UserStatus,
		Account: &models.AccountSummary{
			ID:          r.AccountID,
			AccountType: models.AccountType(r.AccountType),
			CountryCode: r.CountryCode,
		},
	}
	if r.CompanyID != nil && *r.CompanyID != 0 {
		view.Company = &models.CompanySummary{
			ID:           *r.CompanyID,
			Name:         deref(r.CompanyName),
			CompanyType:  models.CompanyType(deref(r.CompanyType)),
			RecordStatus: models.RecordStatus(deref(r.CompanyStatus)),
		}
	}
	if r.BranchID != nil && *r.BranchID != 0 {
		view.Branch = &models.BranchSummary{
			ID:           *r.BranchID,
			Name:         deref(r.BranchName),
			RecordStatus: models.RecordStatus(deref(r.BranchStatus)),
		}
		if r.BranchOpeningDate != nil {
			view.Branch.OpeningDate = *r.BranchOpeningDate
		}
	}
	if r.RoleID != nil && *r.RoleID != 0 {
		view.Role = &models.RoleSummary{
			ID:           *r.RoleID,
			Name:         deref(r.RoleName),
			Description:  deref(r.RoleDescription),
			RecordStatus: models.RecordStatus(deref(r.RoleStatus)),
		}
	}
	return view
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// LoadUserByUsername resolves an active user and the names of its role's
// permissions.
func (s *UserQueryService) LoadUserByUsername(ctx context.Context, email string) (*models.UserDetails, error) {
	user, err := s.reader.FindActiveByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewNotFoundError("User", "email")
	}
	if err != nil {
		return nil, err
	}

	return &models.UserDetails{User: user, Authorities: models.RoleAuthorities(user.Role)}, nil
}

// GetUser returns the cached projection of a user in the actor's account.
func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.AppUserView, error) {
	actor, err := s.actor(ctx, q.RequestingUserID)
	if err != nil {
		return nil, err
	}

	view, err := s.reader.GetByID(ctx, q.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewNotFoundError("User", "ID")
	}
	if err != nil {
		return nil, err
	}
	if view.Account == nil || view.Account.ID != actor.AccountID {
		return nil, apperr.NewAuthorizationError(apperr.MsgNotPermittedOnAccount)
	}
	view.Password = nil
	return view, nil
}

func (s *UserQueryService) GetExternalUserByID(ctx context.Context, q cqrs.GetExternalUserQuery) (*models.ExternalUser, error) {
	var user models.ExternalUser
	if err := s.gateway.DoGet(ctx, "/users/"+strconv.Itoa(q.ID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetExternalUsers imports every external user into the actor's account as
// unverified placeholder users and returns what was stored.
func (s *UserQueryService) GetExternalUsers(ctx context.Context, actorID uint) ([]models.AppUserView, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var external []models.ExternalUser
	if err := s.gateway.DoGet(ctx, "/users", nil, &external); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(externalUserPassword)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dob := now.Truncate(24 * time.Hour)
	users := make([]*models.AppUser, 0, len(external))
	for _, x := range external {
		user := &models.AppUser{
			FirstName:   x.Username,
			LastName:    x.Name,
			PhoneNumber: x.Phone,
			Email:       x.Email,
			Address:     externalUserAddress,
			Password:    hash,
			Verified:    false,
			DateOfBirth: &dob,
			IDType:      models.IDTypeNationalID,
			AccountID:   actor.AccountID,
		}
		user.StampCreate(actor.ID, now)
		users = append(users, user)
	}
	if err := s.reader.CreateBatch(ctx, users); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.NewConflictError("user", apperr.MsgEmailAlreadyRegistered)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": actor.ID, "imported": len(users)}).Info("External users imported")
	views := make([]models.AppUserView, 0, len(users))
	for _, u := range users {
		views = append(views, *models.UserToView(u))
	}
	return views, nil
}
