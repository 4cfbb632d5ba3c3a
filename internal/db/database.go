package db

import (
	"log"

	"issuance-backend/internal/config"
	"issuance-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		CreateBatchSize:                          1000,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	if err := DB.AutoMigrate(
		&models.AgentGrantRecord{},
		&models.RoleAssignment{},
		&models.SupportedToken{},
		&models.RouterWhitelistEntry{},
		&models.OperationRecord{},
		&models.PermitNonce{},
		&models.ReserveSnapshot{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
}
