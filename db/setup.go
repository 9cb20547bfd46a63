package db

import (
	"github.com/polarad/portal/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDatabase(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase() error {
	entities := []interface{}{
		&models.User{},
		&models.Submission{},
		&models.Workflow{},
		&models.WorkflowLog{},
		&models.Design{},
		&models.DesignVersion{},
		&models.DesignFeedback{},
		&models.Package{},
		&models.Contract{},
		&models.ContractLog{},
		&models.CommunicationThread{},
		&models.CommunicationMessage{},
		&models.Client{},
		&models.TokenRefreshLog{},
		&models.AdInsight{},
	}

	if err := DB.AutoMigrate(entities...); err != nil {
		return err
	}

	// One in-flight contract per user, enforced by the database so
	// concurrent creations cannot both commit.
	return DB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_contracts_one_in_flight
		ON contracts (user_id)
		WHERE status IN ('PENDING', 'SUBMITTED') AND deleted_at IS NULL`).Error
}
