//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.OrderItem{},
		&models.Order{},
		&models.Product{},
		&models.Affiliate{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresAffiliateStatsAndLocking(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewAffiliateRepository(db)

	affiliate := &models.Affiliate{
		Name:             "PG Affiliate",
		Email:            "pg@example.com",
		Code:             "PGCODE01",
		CommissionRate:   10,
		Tier:             constants.AffiliateTierBronze,
		Status:           constants.AffiliateStatusActive,
		TotalRevenue:     models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
		TotalCommission:  models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		UnpaidCommission: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		TotalSales:       5,
		Clicks:           20,
		Conversions:      5,
	}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	err := repo.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).GetByCodeForUpdate("PGCODE01")
		if err != nil {
			return err
		}
		if locked == nil {
			t.Fatalf("locked affiliate should exist")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("row lock transaction failed: %v", err)
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.TotalAffiliates != 1 || stats.ActiveAffiliates != 1 {
		t.Fatalf("stats counts want 1/1 got %d/%d", stats.TotalAffiliates, stats.ActiveAffiliates)
	}
	if !stats.TotalRevenue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("stats revenue want 500 got %s", stats.TotalRevenue)
	}
	if stats.TotalClicks != 20 || stats.TotalConversions != 5 {
		t.Fatalf("stats clicks/conversions want 20/5 got %d/%d", stats.TotalClicks, stats.TotalConversions)
	}
}

func TestPostgresSalesReportAndAnalytics(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewOrderRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	if err := db.Create(&models.Affiliate{
		Name:           "PG Affiliate",
		Email:          "pg@example.com",
		Code:           "PGCODE01",
		CommissionRate: 10,
		Tier:           constants.AffiliateTierBronze,
		Status:         constants.AffiliateStatusActive,
	}).Error; err != nil {
		t.Fatalf("seed affiliate failed: %v", err)
	}

	paidAt := now
	order := &models.Order{
		OrderNo:             "HNA-PG-001",
		Status:              constants.OrderStatusProcessing,
		PaymentStatus:       constants.PaymentStatusPaid,
		Priority:            constants.OrderPriorityMedium,
		Currency:            "USD",
		TotalAmount:         models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
		CustomerName:        "PG Buyer",
		CustomerEmail:       "buyer@example.com",
		AffiliateCode:       "PGCODE01",
		AffiliateCommission: models.NewMoneyFromDecimal(decimal.NewFromInt(4)),
		PaidAt:              &paidAt,
		CreatedAt:           now,
	}
	items := []models.OrderItem{
		{
			Name:       "Classic Tee",
			UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
			Quantity:   2,
			TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(40)),
		},
	}
	if err := repo.Create(order, items); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	rows, err := repo.SalesReportRows()
	if err != nil {
		t.Fatalf("sales report rows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("sales report rows len want 1 got %d", len(rows))
	}
	if rows[0].AffiliateCode != "PGCODE01" || rows[0].TotalQuantity != 2 {
		t.Fatalf("sales report row want PGCODE01/2 got %s/%d", rows[0].AffiliateCode, rows[0].TotalQuantity)
	}

	codeRows, err := repo.SalesReportCodeRows()
	if err != nil {
		t.Fatalf("sales report code rows failed: %v", err)
	}
	if len(codeRows) != 1 || codeRows[0].OrderCount != 1 {
		t.Fatalf("sales report code rows want 1 row / 1 order got %+v", codeRows)
	}
	if codeRows[0].AffiliateName != "PG Affiliate" {
		t.Fatalf("code row name want PG Affiliate got %q", codeRows[0].AffiliateName)
	}
	if !codeRows[0].TotalCommission.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("code row commission want 4 got %s", codeRows[0].TotalCommission)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	agg, err := repo.GetAnalytics(monthStart)
	if err != nil {
		t.Fatalf("get analytics failed: %v", err)
	}
	if agg.TotalOrders != 1 {
		t.Fatalf("analytics total orders want 1 got %d", agg.TotalOrders)
	}
	if !agg.TotalRevenue.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("analytics revenue want 40 got %s", agg.TotalRevenue)
	}
	if !agg.MonthlyRevenue.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("analytics monthly revenue want 40 got %s", agg.MonthlyRevenue)
	}
}
