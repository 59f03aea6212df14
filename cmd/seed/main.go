package main

import (
	"github.com/hna-storefront/internal/config"
	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/logger"
	"github.com/hna-storefront/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	seedProducts(stdLog.Printf)
	seedAffiliates(stdLog.Printf)

	stdLog.Printf("Seed finished")
}

func seedProducts(printf func(string, ...interface{})) {
	tee := "classic-tee"
	hoodie := "heavy-hoodie"
	mug := "camp-mug"
	products := []models.Product{
		{
			Name:         "Classic Tee",
			SKU:          &tee,
			Description:  "Midweight combed cotton tee, unisex fit.",
			PriceAmount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(20)),
			Images:       models.StringArray{"/uploads/classic-tee.jpg"},
			Tags:         models.StringArray{"apparel", "tee"},
			Stock:        200,
			IsActive:     true,
			SortOrder:    10,
			SupplierName: "printful",
			VariantsJSON: models.JSON(map[string]interface{}{
				"S/Black": "4011",
				"M/Black": "4012",
				"L/Black": "4013",
				"default": "4012",
			}),
		},
		{
			Name:         "Heavy Hoodie",
			SKU:          &hoodie,
			Description:  "Fleece-lined pullover hoodie.",
			PriceAmount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(45)),
			Images:       models.StringArray{"/uploads/heavy-hoodie.jpg"},
			Tags:         models.StringArray{"apparel", "hoodie"},
			Stock:        120,
			IsActive:     true,
			SortOrder:    20,
			SupplierName: "printful",
			VariantsJSON: models.JSON(map[string]interface{}{
				"M/Navy":  "7021",
				"L/Navy":  "7022",
				"default": "7021",
			}),
		},
		{
			Name:         "Camp Mug",
			SKU:          &mug,
			Description:  "12oz enamel camp mug.",
			PriceAmount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(14)),
			Images:       models.StringArray{"/uploads/camp-mug.jpg"},
			Tags:         models.StringArray{"drinkware"},
			Stock:        300,
			IsActive:     true,
			SortOrder:    30,
			SupplierName: "printify",
			VariantsJSON: models.JSON(map[string]interface{}{
				"default": "9001",
			}),
		},
	}

	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("sku = ?", *product.SKU).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				printf("Failed to create product %s: %v", *product.SKU, err)
			} else {
				printf("Created product: %s", *product.SKU)
			}
		} else {
			printf("Product already exists: %s", *product.SKU)
		}
	}
}

func seedAffiliates(printf func(string, ...interface{})) {
	affiliates := []models.Affiliate{
		{
			Name:           "Sarah Chen",
			Email:          "sarah@example.com",
			Code:           "SARAH10",
			CommissionRate: 10,
			Tier:           constants.AffiliateTierBronze,
			Status:         constants.AffiliateStatusActive,
		},
		{
			Name:           "Marco Diaz",
			Email:          "marco@example.com",
			Code:           "MARCO10",
			CommissionRate: 10,
			Tier:           constants.AffiliateTierBronze,
			Status:         constants.AffiliateStatusActive,
		},
	}

	for _, affiliate := range affiliates {
		var existing models.Affiliate
		if err := models.DB.Where("code = ?", affiliate.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&affiliate).Error; err != nil {
				printf("Failed to create affiliate %s: %v", affiliate.Code, err)
			} else {
				printf("Created affiliate: %s", affiliate.Code)
			}
		} else {
			printf("Affiliate already exists: %s", affiliate.Code)
		}
	}
}
