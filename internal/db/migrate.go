package db

import (
	"github.com/ikkim/inventory-backend/internal/app/model"
	"github.com/ikkim/inventory-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migrate creates or updates the products, tags and product_tags tables.
func Migrate(database *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.Tag{},
		&model.ProductRecord{},
	}

	if err := database.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
