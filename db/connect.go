package db

import (
	"time"

	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/esusuhq/esusu-engine/utils"
	"gorm.io/driver/postgres"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func ConnectDb(url string, log *utils.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  url,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Error),
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Info("✅ Database connection successfully")

	log.Info("📦 Setting database connection pool...")
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func Migrate(db *gorm.DB, trigger bool, log *utils.Logger) error {

	if trigger {
		log.Info("📦 Migrating database...")
		entities := []interface{}{
			&models.User{},
			&models.ContributionCycle{},
			&models.Participation{},
			&models.BankDetails{},
			&models.Payment{},
			&models.Payout{},
			&models.OptOutRequest{},
			&models.NumberPick{},
			&models.Settings{},
		}

		if err := db.AutoMigrate(entities...); err != nil {
			log.Errorf("✖ Failed to migrate database: %v", err)
			return err
		}

		// AutoMigrate cannot express a partial unique index; at most one
		// PENDING_APPROVAL request per (user, cycle) is store-enforced here.
		if err := db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_optout_pending
			 ON opt_out_requests (user_id, cycle_id)
			 WHERE status = 'PENDING_APPROVAL'`,
		).Error; err != nil {
			log.Errorf("✖ Failed to create opt-out pending index: %v", err)
			return err
		}

		var count int64
		if err := db.Model(&models.Settings{}).Where("id = ?", models.SettingsRowID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			seed := models.Settings{ID: models.SettingsRowID, PenaltyPercent: 10, TotalNumbers: 100}
			if err := db.Create(&seed).Error; err != nil {
				log.Errorf("✖ Failed to seed settings row: %v", err)
				return err
			}
		}
	}

	log.Info("✅ Database migrated successfully")
	return nil
}
