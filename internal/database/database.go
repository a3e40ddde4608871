package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mojagap/moja-node/internal/config"
	"github.com/mojagap/moja-node/shared/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Open dials postgres through lib/pq and hands the pool to gorm, so driver
// errors surface as *pq.Error.
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         gormLogger,
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialise gorm: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table, then seeds reference data.
func Migrate(db *gorm.DB, log *logrus.Logger) error {
	modelsToMigrate := []any{
		&models.Account{},
		&models.Permission{},
		&models.Role{},
		&models.Company{},
		&models.Branch{},
		&models.AppUser{},
		&models.WalletCharge{},
		&models.Wallet{},
		&models.WalletTransactionRequest{},
		&models.BankDepositTransaction{},
		&models.WalletTransaction{},
		&models.HttpCallLog{},
	}

	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	log.Info("Database migration completed successfully")

	return seedPermissions(db, log)
}

func seedPermissions(db *gorm.DB, log *logrus.Logger) error {
	now := time.Now().UTC()
	perm := models.Permission{
		Name:        models.SuperPermission,
		Description: "Grants every permission",
		Audit:       models.Audit{CreatedOn: now, ModifiedOn: now, RecordStatus: models.RecordStatusActive},
	}
	result := db.Where(models.Permission{Name: models.SuperPermission}).FirstOrCreate(&perm)
	if result.Error != nil {
		return fmt.Errorf("failed to seed %s: %w", models.SuperPermission, result.Error)
	}
	if result.RowsAffected > 0 {
		log.WithField("permission", models.SuperPermission).Info("Seeded permission")
	}
	return nil
}
