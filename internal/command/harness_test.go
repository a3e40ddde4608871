package command

import (
	"context"
	"testing"
	"time"

	"github.com/mojagap/moja-node/shared/cqrs"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/stretchr/testify/require"
)

type fakeMarkers struct {
	processed map[string]bool
}

func (m *fakeMarkers) IsTransactionProcessed(ctx context.Context, reference string) bool {
	return m.processed[reference]
}

func (m *fakeMarkers) MarkTransactionProcessed(ctx context.Context, reference string) {
	m.processed[reference] = true
}

type fakeGateway struct {
	path string
	body any
	err  error
}

func (g *fakeGateway) DoPost(ctx context.Context, path string, body, out any) error {
	g.path, g.body = path, body
	if g.err != nil {
		return g.err
	}
	if created, ok := out.(*models.ExternalUser); ok {
		*created = body.(models.ExternalUser)
		created.ID = 11
	}
	return nil
}

type harness struct {
	store     *memStore
	publisher *fakePublisher
	views     *fakeViews
	markers   *fakeMarkers
	gateway   *fakeGateway
	auth      *Authenticator
	accounts  *AccountCommandService
	companies *CompanyCommandService
	users     *UserCommandService
	wallets   *WalletCommandService
}

func newHarness() *harness {
	h := &harness{
		store:     newMemStore(),
		publisher: &fakePublisher{},
		views:     newFakeViews(),
		markers:   &fakeMarkers{processed: map[string]bool{}},
		gateway:   &fakeGateway{},
	}
	logger := quietLogger()
	h.auth = NewAuthenticator(h.store, testSecret, time.Hour, logger)
	h.accounts = NewAccountCommandService(h.store, h.auth, h.views, h.publisher, logger)
	h.companies = NewCompanyCommandService(h.store, h.views, h.publisher, logger)
	h.users = NewUserCommandService(h.store, h.auth, h.views, h.gateway, h.publisher, logger)
	h.wallets = NewWalletCommandService(h.store, h.markers, h.publisher, logger)
	clock := func() time.Time { return fixedNow }
	h.accounts.now = clock
	h.companies.now = clock
	h.users.now = clock
	h.wallets.now = clock
	return h
}

const testPassword = "Str0ng!Pass"

func userInput(email string) cqrs.UserInput {
	return cqrs.UserInput{
		FirstName:   "Amina",
		LastName:    "Okello",
		Email:       email,
		PhoneNumber: "+256700000001",
		Address:     "Plot 4 Kampala Road",
		Password:    testPassword,
	}
}

func companyInput(name string) cqrs.CompanyInput {
	return cqrs.CompanyInput{
		Name:        name,
		CompanyType: models.CompanyTypeLimitedLiability,
		Email:       "info@" + name + ".test",
		PhoneNumber: "+256414000000",
		Address:     "Nakasero",
	}
}

func (h *harness) createIndividual(t *testing.T, email string) *models.AppUserView {
	t.Helper()
	view, err := h.accounts.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
		AccountType: models.AccountTypeIndividual,
		CountryCode: "UG",
		Users:       []cqrs.UserInput{userInput(email)},
	})
	require.NoError(t, err)
	return view
}

func (h *harness) createCompanyAccount(t *testing.T, email, name string) *models.AppUserView {
	t.Helper()
	company := companyInput(name)
	view, err := h.accounts.CreateAccount(context.Background(), cqrs.CreateAccountCommand{
		AccountType: models.AccountTypeCompany,
		CountryCode: "UG",
		Users:       []cqrs.UserInput{userInput(email)},
		Company:     &company,
	})
	require.NoError(t, err)
	return view
}

func (h *harness) createSubsidiary(t *testing.T, actorID, parentID uint, name string) uint {
	t.Helper()
	resp, err := h.companies.CreateCompany(context.Background(), cqrs.CreateCompanyCommand{
		ActorID:         actorID,
		ParentCompanyID: uintPtr(parentID),
		CompanyInput:    companyInput(name),
	})
	require.NoError(t, err)
	return resp.ID
}

func (h *harness) walletsOf(accountID uint) []models.Wallet {
	wallets, _ := memWallets{h.store}.ListByAccount(context.Background(), accountID)
	return wallets
}

// viewOf reads a user's projection through the view cache the way the read
// repository does, so stale entries surface in assertions.
func (h *harness) viewOf(t *testing.T, id uint) *models.AppUserView {
	t.Helper()
	if view, ok := h.views.cached[id]; ok {
		return view
	}
	user, err := memUsers{h.store}.FindByID(context.Background(), id)
	require.NoError(t, err)
	view := models.UserToView(user)
	h.views.CacheUserView(context.Background(), view)
	return view
}

func loginCommand(email, password, headerEmail, headerPassword string) cqrs.LoginCommand {
	return cqrs.LoginCommand{Email: email, Password: password, HeaderEmail: headerEmail, HeaderPassword: headerPassword}
}
