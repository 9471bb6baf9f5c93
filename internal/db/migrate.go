package db

import (
	"github.com/eason8811/international-shopping-sub004/internal/app/model"
	"github.com/eason8811/international-shopping-sub004/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.Sku{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderStatusLog{},
		&model.InventoryLog{},
		&model.PaymentOrder{},
		&model.RefundOrder{},
		&model.RefundItem{},
		&model.Shipment{},
		&model.ShipmentItem{},
		&model.ShipmentStatusLog{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional, dev convenience)
func Seed() error {
	logger.Info("Seeding initial data...")

	if err := seedSkus(); err != nil {
		logger.Error("Failed to seed skus", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

// seedSkus 개발 환경용 샘플 SKU 생성
func seedSkus() error {
	var count int64
	if err := DB.Model(&model.Sku{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Skus already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	skus := []model.Sku{
		{SkuCode: "SKU-TSHIRT-BLK-M", Name: "Basic T-Shirt Black M", UnitPrice: 2500, Currency: "USD", InitialStock: 100},
		{SkuCode: "SKU-HOODIE-GRY-L", Name: "Fleece Hoodie Grey L", UnitPrice: 2800, Currency: "USD", InitialStock: 50},
		{SkuCode: "SKU-CAP-NVY", Name: "Baseball Cap Navy", UnitPrice: 1200, Currency: "USD", InitialStock: 200},
	}

	for _, sku := range skus {
		if err := DB.Create(&sku).Error; err != nil {
			logger.Error("Failed to create sku", err, map[string]interface{}{
				"sku_code": sku.SkuCode,
			})
			return err
		}
	}

	logger.Info("Skus seeded successfully", map[string]interface{}{
		"total_skus": len(skus),
	})
	return nil
}
