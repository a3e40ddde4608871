package command

import (
	"context"
	"errors"
	"time"

	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/shopspring/decimal"
)

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// UserViewCache is satisfied by *repository.UserReadRepository.
type UserViewCache interface {
	CacheUserView(ctx context.Context, view *models.AppUserView)
	InvalidateUserView(ctx context.Context, id uint)
}

func utcNow() time.Time { return time.Now().UTC() }

// invalidateViews drops the cached projections of users whose account or
// company changed.
func invalidateViews(ctx context.Context, views UserViewCache, ids []uint) {
	for _, id := range ids {
		views.InvalidateUserView(ctx, id)
	}
}

// loadActor returns the caller with its account loaded. A missing or
// inactive caller is treated as unauthenticated.
func loadActor(ctx context.Context, repos repository.Repositories, actorID uint) (*models.AppUser, error) {
	actor, err := repos.Users().FindByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewInvalidCredentialsError(apperr.MsgSessionUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	if actor.RecordStatus != models.RecordStatusActive {
		return nil, apperr.NewInvalidCredentialsError(apperr.MsgSessionUserNotFound)
	}
	if actor.Account == nil {
		account, err := repos.Accounts().FindByID(ctx, actor.AccountID)
		if err != nil {
			return nil, err
		}
		actor.Account = account
	}
	return actor, nil
}

// ReachableCompanyIDs is the set of companies the actor may act on: its own
// company and every descendant, or the whole account when the actor has no
// company. companies must all belong to the actor's account.
func ReachableCompanyIDs(companies []models.Company, actor *models.AppUser) map[uint]bool {
	reachable := make(map[uint]bool)
	if actor.CompanyID == nil {
		for _, c := range companies {
			reachable[c.ID] = true
		}
		return reachable
	}
	reachable[*actor.CompanyID] = true
	for _, id := range descendants(companies, *actor.CompanyID) {
		reachable[id] = true
	}
	return reachable
}

// descendants walks ParentCompanyID links breadth first.
func descendants(companies []models.Company, rootID uint) []uint {
	children := make(map[uint][]uint)
	for _, c := range companies {
		if c.ParentCompanyID != nil {
			children[*c.ParentCompanyID] = append(children[*c.ParentCompanyID], c.ID)
		}
	}
	var out []uint
	seen := map[uint]bool{rootID: true}
	queue := []uint{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

func isDescendant(companies []models.Company, ancestorID, candidateID uint) bool {
	for _, id := range descendants(companies, ancestorID) {
		if id == candidateID {
			return true
		}
	}
	return false
}

func ReachableBranchIDs(branches []models.Branch, companyIDs map[uint]bool) []uint {
	var ids []uint
	for _, b := range branches {
		if companyIDs[b.CompanyID] {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func keys(set map[uint]bool) []uint {
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// companyGraph loads the actor's companies and the reachable subset.
func companyGraph(ctx context.Context, repos repository.Repositories, actor *models.AppUser) ([]models.Company, map[uint]bool, error) {
	companies, err := repos.Companies().ListByAccount(ctx, actor.AccountID)
	if err != nil {
		return nil, nil, err
	}
	return companies, ReachableCompanyIDs(companies, actor), nil
}

// newCompany builds an unsaved company from input.
func newCompany(input cqrs.CompanyInput, accountID uint, parentID *uint) *models.Company {
	return &models.Company{
		Name:               input.Name,
		CompanyType:        input.CompanyType,
		RegistrationNumber: input.RegistrationNumber,
		RegistrationDate:   input.RegistrationDate,
		Email:              input.Email,
		PhoneNumber:        input.PhoneNumber,
		Address:            input.Address,
		AccountID:          accountID,
		ParentCompanyID:    parentID,
	}
}

// bootstrapCompany creates a root company with its Head Office branch and
// a super role, and attaches owner to all three. Company contact details
// are copied onto the account.
func bootstrapCompany(ctx context.Context, repos repository.Repositories, roles RoleResolver, account *models.Account, owner *models.AppUser, input cqrs.CompanyInput, now time.Time) (*models.Company, *models.Branch, error) {
	role, err := roles.SuperRole(ctx, repos, account.ID, owner.ID, now)
	if err != nil {
		return nil, nil, err
	}

	company := newCompany(input, account.ID, nil)
	company.StampCreate(owner.ID, now)
	if err := repos.Companies().Create(ctx, company); err != nil {
		return nil, nil, err
	}

	branch := &models.Branch{
		Name:      models.HeadOfficeBranchName,
		CompanyID: company.ID,
		AccountID: account.ID,
	}
	branch.StampCreate(owner.ID, now)
	if err := repos.Branches().Create(ctx, branch); err != nil {
		return nil, nil, err
	}

	owner.CompanyID = &company.ID
	owner.BranchID = &branch.ID
	owner.RoleID = &role.ID

	account.Name = company.Name
	if company.Email != "" {
		account.Email = company.Email
	}
	if company.PhoneNumber != "" {
		account.ContactPhoneNumber = company.PhoneNumber
	}
	if company.Address != "" {
		account.Address = company.Address
	}
	return company, branch, nil
}

// createWallet persists a zero balance wallet carrying the default wallet's
// charges, when a default wallet exists.
func createWallet(ctx context.Context, repos repository.Repositories, accountID uint, company *models.Company, branch *models.Branch, actorID uint, now time.Time) (*models.Wallet, error) {
	wallet := &models.Wallet{
		AccountID:        accountID,
		AvailableBalance: decimal.Zero,
		ActualBalance:    decimal.Zero,
	}
	if company != nil {
		wallet.CompanyID = &company.ID
	}
	if branch != nil {
		wallet.BranchID = &branch.ID
	}

	defaultWallet, err := repos.Wallets().FindDefault(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		wallet.WalletCharges = append([]models.WalletCharge(nil), defaultWallet.WalletCharges...)
	}

	wallet.StampCreate(actorID, now)
	if err := repos.Wallets().Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}
