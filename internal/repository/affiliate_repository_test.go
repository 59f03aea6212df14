package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupAffiliateRepoTest(t *testing.T) (*GormAffiliateRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:affiliate_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewAffiliateRepository(db), db
}

func seedRepoAffiliate(t *testing.T, repo *GormAffiliateRepository, name, email, code, tier, status string, revenue int64) *models.Affiliate {
	t.Helper()
	affiliate := &models.Affiliate{
		Name:             name,
		Email:            email,
		Code:             code,
		CommissionRate:   10,
		Tier:             tier,
		Status:           status,
		TotalRevenue:     models.NewMoneyFromDecimal(decimal.NewFromInt(revenue)),
		TotalCommission:  models.NewMoneyFromDecimal(decimal.NewFromInt(revenue / 10)),
		UnpaidCommission: models.NewMoneyFromDecimal(decimal.NewFromInt(revenue / 10)),
	}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("create affiliate %s failed: %v", code, err)
	}
	return affiliate
}

func TestAffiliateRepositoryGetByCodeNormalizes(t *testing.T) {
	repo, _ := setupAffiliateRepoTest(t)
	seedRepoAffiliate(t, repo, "Sarah Chen", "sarah@example.com", "SARAH10", constants.AffiliateTierBronze, constants.AffiliateStatusActive, 100)

	got, err := repo.GetByCode("  sarah10  ")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if got == nil || got.Code != "SARAH10" {
		t.Fatalf("get by code want SARAH10 got %+v", got)
	}

	missing, err := repo.GetByCode("NOPE")
	if err != nil {
		t.Fatalf("get missing code failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing code should return nil, got %+v", missing)
	}

	empty, err := repo.GetByCode("   ")
	if err != nil || empty != nil {
		t.Fatalf("blank code want nil/nil got %+v/%v", empty, err)
	}
}

func TestAffiliateRepositoryUniqueCode(t *testing.T) {
	repo, _ := setupAffiliateRepoTest(t)
	seedRepoAffiliate(t, repo, "Sarah Chen", "sarah@example.com", "SARAH10", constants.AffiliateTierBronze, constants.AffiliateStatusActive, 0)

	dup := &models.Affiliate{
		Name:   "Other",
		Email:  "other@example.com",
		Code:   "SARAH10",
		Tier:   constants.AffiliateTierBronze,
		Status: constants.AffiliateStatusActive,
	}
	if err := repo.Create(dup); err == nil {
		t.Fatalf("duplicate code should fail unique index")
	}
}

func TestAffiliateRepositoryListFiltersAndOrder(t *testing.T) {
	repo, _ := setupAffiliateRepoTest(t)
	seedRepoAffiliate(t, repo, "Sarah Chen", "sarah@example.com", "SARAH10", constants.AffiliateTierSilver, constants.AffiliateStatusActive, 900)
	seedRepoAffiliate(t, repo, "Marco Diaz", "marco@example.com", "MARCO10", constants.AffiliateTierBronze, constants.AffiliateStatusActive, 300)
	seedRepoAffiliate(t, repo, "Lena Fox", "lena@example.com", "LENA10", constants.AffiliateTierBronze, constants.AffiliateStatusSuspended, 600)

	rows, total, err := repo.List(AffiliateListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("list want 3 got total=%d len=%d", total, len(rows))
	}
	if rows[0].Code != "SARAH10" || rows[1].Code != "LENA10" {
		t.Fatalf("list should order by revenue desc, got %s/%s", rows[0].Code, rows[1].Code)
	}

	rows, total, err = repo.List(AffiliateListFilter{Page: 1, PageSize: 10, Status: constants.AffiliateStatusSuspended})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 1 || rows[0].Code != "LENA10" {
		t.Fatalf("status filter want LENA10 got total=%d rows=%+v", total, rows)
	}

	rows, total, err = repo.List(AffiliateListFilter{Page: 1, PageSize: 10, Tier: constants.AffiliateTierBronze})
	if err != nil {
		t.Fatalf("list by tier failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("tier filter want 2 got %d", total)
	}

	rows, total, err = repo.List(AffiliateListFilter{Page: 1, PageSize: 10, Search: "marco"})
	if err != nil {
		t.Fatalf("list by search failed: %v", err)
	}
	if total != 1 || rows[0].Code != "MARCO10" {
		t.Fatalf("search filter want MARCO10 got total=%d rows=%+v", total, rows)
	}
}

func TestAffiliateRepositoryTopSkipsNonActive(t *testing.T) {
	repo, _ := setupAffiliateRepoTest(t)
	seedRepoAffiliate(t, repo, "Sarah Chen", "sarah@example.com", "SARAH10", constants.AffiliateTierSilver, constants.AffiliateStatusActive, 900)
	seedRepoAffiliate(t, repo, "Marco Diaz", "marco@example.com", "MARCO10", constants.AffiliateTierBronze, constants.AffiliateStatusActive, 300)
	seedRepoAffiliate(t, repo, "Lena Fox", "lena@example.com", "LENA10", constants.AffiliateTierBronze, constants.AffiliateStatusSuspended, 600)

	rows, err := repo.Top(2)
	if err != nil {
		t.Fatalf("top failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("top want 2 got %d", len(rows))
	}
	if rows[0].Code != "SARAH10" || rows[1].Code != "MARCO10" {
		t.Fatalf("top should only include active, got %s/%s", rows[0].Code, rows[1].Code)
	}
}

func TestAffiliateRepositoryIncrementClicks(t *testing.T) {
	repo, _ := setupAffiliateRepoTest(t)
	affiliate := seedRepoAffiliate(t, repo, "Sarah Chen", "sarah@example.com", "SARAH10", constants.AffiliateTierBronze, constants.AffiliateStatusActive, 0)

	for i := 0; i < 3; i++ {
		if err := repo.IncrementClicks(affiliate.ID); err != nil {
			t.Fatalf("increment clicks failed: %v", err)
		}
	}
	got, err := repo.GetByID(affiliate.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if got.Clicks != 3 {
		t.Fatalf("clicks want 3 got %d", got.Clicks)
	}
}

func TestAffiliateRepositoryGetStats(t *testing.T) {
	repo, _ := setupAffiliateRepoTest(t)
	seedRepoAffiliate(t, repo, "Sarah Chen", "sarah@example.com", "SARAH10", constants.AffiliateTierSilver, constants.AffiliateStatusActive, 900)
	seedRepoAffiliate(t, repo, "Marco Diaz", "marco@example.com", "MARCO10", constants.AffiliateTierBronze, constants.AffiliateStatusSuspended, 100)

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.TotalAffiliates != 2 || stats.ActiveAffiliates != 1 {
		t.Fatalf("counts want 2/1 got %d/%d", stats.TotalAffiliates, stats.ActiveAffiliates)
	}
	if !stats.TotalRevenue.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("total revenue want 1000 got %s", stats.TotalRevenue)
	}
	if !stats.UnpaidCommission.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unpaid commission want 100 got %s", stats.UnpaidCommission)
	}
	if stats.TierBreakdown[constants.AffiliateTierSilver] != 1 || stats.TierBreakdown[constants.AffiliateTierBronze] != 1 {
		t.Fatalf("tier breakdown want Silver=1 Bronze=1 got %v", stats.TierBreakdown)
	}
}
