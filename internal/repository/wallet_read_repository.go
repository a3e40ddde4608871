package repository

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const processedTxnKeyPrefix = "processed:wallet-txn:"

// processedTTL covers any realistic redelivery window of a consumer group.
const processedTTL = 72 * time.Hour

// WalletReadRepository tracks which wallet transactions have already been
// applied so duplicate stream deliveries are skipped cheaply.
type WalletReadRepository struct {
	redis  goredis.Cmdable
	logger *logrus.Logger
}

func NewWalletReadRepository(redisClient goredis.Cmdable, logger *logrus.Logger) *WalletReadRepository {
	return &WalletReadRepository{redis: redisClient, logger: logger}
}

func (r *WalletReadRepository) IsTransactionProcessed(ctx context.Context, reference string) bool {
	val, err := r.redis.Exists(ctx, processedTxnKeyPrefix+reference).Result()
	return err == nil && val > 0
}

func (r *WalletReadRepository) MarkTransactionProcessed(ctx context.Context, reference string) {
	if err := r.redis.Set(ctx, processedTxnKeyPrefix+reference, "1", processedTTL).Err(); err != nil {
		r.logger.WithError(err).WithField("reference", reference).Warn("Failed to mark wallet transaction as processed")
	}
}
