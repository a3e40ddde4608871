package command

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/apperr"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/sirupsen/logrus"
)

// memStore is an in-memory stand-in for the gorm repositories. WithinTx
// snapshots every table and restores the snapshot when fn fails.
type memStore struct {
	mu           sync.Mutex
	nextID       uint
	accounts     map[uint]models.Account
	companies    map[uint]models.Company
	branches     map[uint]models.Branch
	users        map[uint]models.AppUser
	roles        map[uint]models.Role
	permissions  map[uint]models.Permission
	wallets      map[uint]models.Wallet
	charges      map[uint]models.WalletCharge
	transactions map[uint]models.WalletTransaction
	commits      int
}

func newMemStore() *memStore {
	s := &memStore{
		accounts:     map[uint]models.Account{},
		companies:    map[uint]models.Company{},
		branches:     map[uint]models.Branch{},
		users:        map[uint]models.AppUser{},
		roles:        map[uint]models.Role{},
		permissions:  map[uint]models.Permission{},
		wallets:      map[uint]models.Wallet{},
		charges:      map[uint]models.WalletCharge{},
		transactions: map[uint]models.WalletTransaction{},
	}
	s.permissions[s.id()] = models.Permission{ID: s.nextID, Name: models.SuperPermission}
	return s
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := memStore{
		nextID:       s.nextID,
		accounts:     cloneMap(s.accounts),
		companies:    cloneMap(s.companies),
		branches:     cloneMap(s.branches),
		users:        cloneMap(s.users),
		roles:        cloneMap(s.roles),
		permissions:  cloneMap(s.permissions),
		wallets:      cloneMap(s.wallets),
		charges:      cloneMap(s.charges),
		transactions: cloneMap(s.transactions),
	}
	if err := fn(memRepos{s}); err != nil {
		s.nextID = snapshot.nextID
		s.accounts = snapshot.accounts
		s.companies = snapshot.companies
		s.branches = snapshot.branches
		s.users = snapshot.users
		s.roles = snapshot.roles
		s.permissions = snapshot.permissions
		s.wallets = snapshot.wallets
		s.charges = snapshot.charges
		s.transactions = snapshot.transactions
		return err
	}
	s.commits++
	return nil
}

// LoadUserByUsername answers like the user query service does.
func (s *memStore) LoadUserByUsername(ctx context.Context, email string) (*models.UserDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := memUsers{s}.FindActiveByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewNotFoundError("User", "email")
	}
	if err != nil {
		return nil, err
	}
	return &models.UserDetails{User: u, Authorities: models.RoleAuthorities(u.Role)}, nil
}

type memRepos struct{ s *memStore }

func (r memRepos) Accounts() repository.AccountRepository  { return memAccounts(r) }
func (r memRepos) Companies() repository.CompanyRepository { return memCompanies(r) }
func (r memRepos) Branches() repository.BranchRepository   { return memBranches(r) }
func (r memRepos) Users() repository.UserRepository        { return memUsers(r) }
func (r memRepos) Roles() repository.RoleRepository        { return memRoles(r) }
func (r memRepos) Wallets() repository.WalletRepository    { return memWallets(r) }

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(ctx context.Context, a *models.Account) error {
	a.ID = r.s.id()
	r.s.accounts[a.ID] = *a
	return nil
}

func (r memAccounts) Save(ctx context.Context, a *models.Account) error {
	r.s.accounts[a.ID] = *a
	return nil
}

func (r memAccounts) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

type memCompanies struct{ s *memStore }

func (r memCompanies) Create(ctx context.Context, c *models.Company) error {
	c.ID = r.s.id()
	r.s.companies[c.ID] = *c
	return nil
}

func (r memCompanies) Save(ctx context.Context, c *models.Company) error {
	r.s.companies[c.ID] = *c
	return nil
}

func (r memCompanies) FindByID(ctx context.Context, id uint) (*models.Company, error) {
	c, ok := r.s.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memCompanies) ListByAccount(ctx context.Context, accountID uint) ([]models.Company, error) {
	var out []models.Company
	for id := uint(1); id <= r.s.nextID; id++ {
		if c, ok := r.s.companies[id]; ok && c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memBranches struct{ s *memStore }

func (r memBranches) Create(ctx context.Context, b *models.Branch) error {
	b.ID = r.s.id()
	r.s.branches[b.ID] = *b
	return nil
}

func (r memBranches) FindByID(ctx context.Context, id uint) (*models.Branch, error) {
	b, ok := r.s.branches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r memBranches) ListByCompanies(ctx context.Context, companyIDs []uint) ([]models.Branch, error) {
	want := map[uint]bool{}
	for _, id := range companyIDs {
		want[id] = true
	}
	var out []models.Branch
	for id := uint(1); id <= r.s.nextID; id++ {
		if b, ok := r.s.branches[id]; ok && want[b.CompanyID] {
			out = append(out, b)
		}
	}
	return out, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.AppUser) error {
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.s.id()
	r.s.users[u.ID] = r.strip(*u)
	return nil
}

func (r memUsers) CreateBatch(ctx context.Context, users []*models.AppUser) error {
	for _, u := range users {
		if err := r.Create(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (r memUsers) Save(ctx context.Context, u *models.AppUser) error {
	r.s.users[u.ID] = r.strip(*u)
	return nil
}

func (r memUsers) strip(u models.AppUser) models.AppUser {
	u.Account, u.Company, u.Branch, u.Role = nil, nil, nil, nil
	return u
}

// preload mirrors the gorm Preload calls of the real repository.
func (r memUsers) preload(u models.AppUser) *models.AppUser {
	if a, ok := r.s.accounts[u.AccountID]; ok {
		u.Account = &a
	}
	if u.CompanyID != nil {
		if c, ok := r.s.companies[*u.CompanyID]; ok {
			u.Company = &c
		}
	}
	if u.BranchID != nil {
		if b, ok := r.s.branches[*u.BranchID]; ok {
			u.Branch = &b
		}
	}
	if u.RoleID != nil {
		if role, ok := r.s.roles[*u.RoleID]; ok {
			u.Role = &role
		}
	}
	return &u
}

func (r memUsers) FindByID(ctx context.Context, id uint) (*models.AppUser, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.preload(u), nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return r.preload(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) ListIDs(ctx context.Context, accountID uint, companyID *uint) ([]uint, error) {
	var ids []uint
	for id := uint(1); id <= r.s.nextID; id++ {
		u, ok := r.s.users[id]
		if !ok || u.AccountID != accountID {
			continue
		}
		if companyID != nil && (u.CompanyID == nil || *u.CompanyID != *companyID) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r memUsers) FindActiveByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	u, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.RecordStatus != models.RecordStatusActive {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type memRoles struct{ s *memStore }

func (r memRoles) Create(ctx context.Context, role *models.Role) error {
	role.ID = r.s.id()
	r.s.roles[role.ID] = *role
	return nil
}

func (r memRoles) FindByID(ctx context.Context, id uint) (*models.Role, error) {
	role, ok := r.s.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &role, nil
}

func (r memRoles) FindPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	for _, p := range r.s.permissions {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memWallets struct{ s *memStore }

func (r memWallets) Create(ctx context.Context, w *models.Wallet) error {
	w.ID = r.s.id()
	r.s.wallets[w.ID] = *w
	return nil
}

func (r memWallets) Save(ctx context.Context, w *models.Wallet) error {
	stored := *w
	stored.WalletCharges = r.s.wallets[w.ID].WalletCharges
	r.s.wallets[w.ID] = stored
	return nil
}

func (r memWallets) FindByID(ctx context.Context, id uint) (*models.Wallet, error) {
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r memWallets) FindDefault(ctx context.Context) (*models.Wallet, error) {
	for id := uint(1); id <= r.s.nextID; id++ {
		if w, ok := r.s.wallets[id]; ok && w.IsDefault {
			return &w, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memWallets) ListByAccount(ctx context.Context, accountID uint) ([]models.Wallet, error) {
	var out []models.Wallet
	for id := uint(1); id <= r.s.nextID; id++ {
		if w, ok := r.s.wallets[id]; ok && w.AccountID == accountID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r memWallets) FindByIDs(ctx context.Context, ids []uint) ([]models.Wallet, error) {
	var out []models.Wallet
	for _, id := range ids {
		if w, ok := r.s.wallets[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r memWallets) FindChargesByIDs(ctx context.Context, ids []uint) ([]models.WalletCharge, error) {
	var out []models.WalletCharge
	for _, id := range ids {
		if c, ok := r.s.charges[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r memWallets) AppendCharges(ctx context.Context, w *models.Wallet, charges []models.WalletCharge) error {
	stored := r.s.wallets[w.ID]
	have := map[uint]bool{}
	for _, c := range stored.WalletCharges {
		have[c.ID] = true
	}
	for _, c := range charges {
		if !have[c.ID] {
			stored.WalletCharges = append(stored.WalletCharges, c)
		}
	}
	r.s.wallets[w.ID] = stored
	w.WalletCharges = stored.WalletCharges
	return nil
}

func (r memWallets) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	txn.ID = r.s.id()
	r.s.transactions[txn.ID] = *txn
	return nil
}

func (r memWallets) SaveTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	r.s.transactions[txn.ID] = *txn
	return nil
}

func (r memWallets) FindTransactionByReference(ctx context.Context, reference string) (*models.WalletTransaction, error) {
	for _, t := range r.s.transactions {
		if t.Reference == reference {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ---------- collaborators ----------

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	p.events = append(p.events, publishedEvent{stream, eventType, data})
	return p.err
}

func (p *fakePublisher) types() []string {
	var out []string
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

type fakeViews struct {
	cached      map[uint]*models.AppUserView
	invalidated []uint
}

func newFakeViews() *fakeViews {
	return &fakeViews{cached: map[uint]*models.AppUserView{}}
}

func (v *fakeViews) CacheUserView(ctx context.Context, view *models.AppUserView) {
	v.cached[view.ID] = view
}

func (v *fakeViews) InvalidateUserView(ctx context.Context, id uint) {
	v.invalidated = append(v.invalidated, id)
	delete(v.cached, id)
}

var testSecret = []byte("command-test-secret")

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func uintPtr(v uint) *uint { return &v }
