package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/mojagap/moja-node/shared/models"
	sharedredis "github.com/mojagap/moja-node/shared/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const userViewKeyPrefix = "user:view:"

// UserReadRepository serves user projections from Redis, falling back to
// postgres and warming the cache on a miss.
type UserReadRepository struct {
	db    *gorm.DB
	cache *sharedredis.ViewCache[models.AppUserView]
}

func NewUserReadRepository(db *gorm.DB, redisClient goredis.Cmdable, ttl time.Duration, logger *logrus.Logger) *UserReadRepository {
	return &UserReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.AppUserView](redisClient, ttl, logger),
	}
}

func userViewKey(id uint) string {
	return userViewKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

func (r *UserReadRepository) GetByID(ctx context.Context, id uint) (*models.AppUserView, error) {
	if view, ok := r.cache.Get(ctx, userViewKey(id)); ok {
		return view, nil
	}

	user, err := (&userRepository{db: r.db}).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.UserToView(user)
	r.CacheUserView(ctx, view)
	return view, nil
}

// CacheUserView stores or refreshes the projection. Tokens and passwords are
// never cached.
func (r *UserReadRepository) CacheUserView(ctx context.Context, view *models.AppUserView) {
	entry := *view
	entry.Password = nil
	entry.Authentication = ""
	r.cache.Set(ctx, userViewKey(view.ID), &entry)
}

func (r *UserReadRepository) InvalidateUserView(ctx context.Context, id uint) {
	r.cache.Delete(ctx, userViewKey(id))
}

// FindActiveByEmail reads outside any command transaction.
func (r *UserReadRepository) FindActiveByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	return (&userRepository{db: r.db}).FindActiveByEmail(ctx, email)
}

func (r *UserReadRepository) FindByID(ctx context.Context, id uint) (*models.AppUser, error) {
	return (&userRepository{db: r.db}).FindByID(ctx, id)
}

// Reachability loads the account's companies and their branches.
func (r *UserReadRepository) Reachability(ctx context.Context, accountID uint) ([]models.Company, []models.Branch, error) {
	companies, err := (&companyRepository{db: r.db}).ListByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uint, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	branches, err := (&branchRepository{db: r.db}).ListByCompanies(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return companies, branches, nil
}

func (r *UserReadRepository) CreateBatch(ctx context.Context, users []*models.AppUser) error {
	return (&userRepository{db: r.db}).CreateBatch(ctx, users)
}
