package repository

import (
	"context"

	"github.com/mojagap/moja-node/shared/models"
	"gorm.io/gorm"
)

type HttpCallLogRepository struct {
	db *gorm.DB
}

func NewHttpCallLogRepository(db *gorm.DB) *HttpCallLogRepository {
	return &HttpCallLogRepository{db: db}
}

func (r *HttpCallLogRepository) Create(ctx context.Context, entry *models.HttpCallLog) error {
	return translate("record http call", r.db.WithContext(ctx).Create(entry).Error)
}
