package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
	"github.com/hna-storefront/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupAffiliateServiceTest(t *testing.T) (*AffiliateService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:affiliate_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewAffiliateService(repository.NewAffiliateRepository(db), repository.NewOrderRepository(db))
	return svc, db
}

func createTestAffiliate(t *testing.T, svc *AffiliateService, name, email, code string) *models.Affiliate {
	t.Helper()
	affiliate, err := svc.Create(AffiliateCreateInput{Name: name, Email: email, Code: code})
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return affiliate
}

func TestTierForSales(t *testing.T) {
	cases := []struct {
		sales    int64
		wantTier string
		wantRate float64
	}{
		{0, constants.AffiliateTierBronze, 10},
		{19, constants.AffiliateTierBronze, 10},
		{20, constants.AffiliateTierSilver, 12},
		{49, constants.AffiliateTierSilver, 12},
		{50, constants.AffiliateTierGold, 15},
		{99, constants.AffiliateTierGold, 15},
		{100, constants.AffiliateTierPlatinum, 20},
		{250, constants.AffiliateTierPlatinum, 20},
	}
	for _, tc := range cases {
		tier, rate := tierForSales(tc.sales)
		if tier != tc.wantTier || rate != tc.wantRate {
			t.Fatalf("sales=%d want %s/%v got %s/%v", tc.sales, tc.wantTier, tc.wantRate, tier, rate)
		}
	}
}

func TestAffiliateCreateNormalizesAndRejectsDuplicates(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "Sarah@Example.com", "sarah10")
	if affiliate.Code != "SARAH10" {
		t.Fatalf("code want SARAH10 got %s", affiliate.Code)
	}
	if affiliate.Email != "sarah@example.com" {
		t.Fatalf("email want lowercased got %s", affiliate.Email)
	}
	if affiliate.Tier != constants.AffiliateTierBronze || affiliate.CommissionRate != 10 {
		t.Fatalf("new affiliate want Bronze/10 got %s/%v", affiliate.Tier, affiliate.CommissionRate)
	}
	if affiliate.Status != constants.AffiliateStatusActive {
		t.Fatalf("new affiliate want active got %s", affiliate.Status)
	}

	if _, err := svc.Create(AffiliateCreateInput{Name: "Other", Email: "other@example.com", Code: "sarah10"}); !errors.Is(err, ErrAffiliateCodeTaken) {
		t.Fatalf("duplicate code want ErrAffiliateCodeTaken got %v", err)
	}
	if _, err := svc.Create(AffiliateCreateInput{Name: "Other", Email: "SARAH@example.com"}); !errors.Is(err, ErrAffiliateEmailTaken) {
		t.Fatalf("duplicate email want ErrAffiliateEmailTaken got %v", err)
	}
}

func TestAffiliateCreateGeneratesCode(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	affiliate := createTestAffiliate(t, svc, "Marco Diaz", "marco@example.com", "")
	if len(affiliate.Code) != affiliateCodeLength {
		t.Fatalf("generated code length want %d got %q", affiliateCodeLength, affiliate.Code)
	}
}

func TestRecordSaleTierProgression(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	revenue := decimal.NewFromInt(100)
	for i := 0; i < 19; i++ {
		result, err := svc.RecordSale(affiliate.ID, revenue)
		if err != nil {
			t.Fatalf("record sale %d failed: %v", i+1, err)
		}
		if !result.Commission.Decimal.Equal(decimal.NewFromInt(10)) {
			t.Fatalf("sale %d commission want 10 got %s", i+1, result.Commission.Decimal)
		}
	}

	current, err := svc.Get(affiliate.ID)
	if err != nil {
		t.Fatalf("get affiliate failed: %v", err)
	}
	if current.Tier != constants.AffiliateTierBronze || current.CommissionRate != 10 {
		t.Fatalf("after 19 sales want Bronze/10 got %s/%v", current.Tier, current.CommissionRate)
	}
	if !current.UnpaidCommission.Decimal.Equal(decimal.NewFromInt(190)) {
		t.Fatalf("unpaid commission want 190 got %s", current.UnpaidCommission.Decimal)
	}

	// 第 20 笔仍按成交前比例计提，计提后才升级到 Silver/12
	result, err := svc.RecordSale(affiliate.ID, revenue)
	if err != nil {
		t.Fatalf("record 20th sale failed: %v", err)
	}
	if !result.Commission.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("20th sale commission want 10 got %s", result.Commission.Decimal)
	}
	if result.Affiliate.Tier != constants.AffiliateTierSilver || result.Affiliate.CommissionRate != 12 {
		t.Fatalf("after 20th sale want Silver/12 got %s/%v", result.Affiliate.Tier, result.Affiliate.CommissionRate)
	}

	// 第 21 笔按升级后的 12% 计提
	result, err = svc.RecordSale(affiliate.ID, revenue)
	if err != nil {
		t.Fatalf("record 21st sale failed: %v", err)
	}
	if !result.Commission.Decimal.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("21st sale commission want 12 got %s", result.Commission.Decimal)
	}
	if result.Affiliate.TotalSales != 21 || result.Affiliate.Conversions != 21 {
		t.Fatalf("counters want 21/21 got %d/%d", result.Affiliate.TotalSales, result.Affiliate.Conversions)
	}
}

func TestRecordSaleRejectsNegativeRevenue(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	if _, err := svc.RecordSale(affiliate.ID, decimal.NewFromInt(-5)); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("negative revenue want ErrAmountInvalid got %v", err)
	}
	if _, err := svc.RecordSale(9999, decimal.NewFromInt(5)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown affiliate want ErrNotFound got %v", err)
	}
}

func TestPayCommissionPartialAndFloor(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	for i := 0; i < 19; i++ {
		if _, err := svc.RecordSale(affiliate.ID, decimal.NewFromInt(100)); err != nil {
			t.Fatalf("record sale failed: %v", err)
		}
	}

	partial := decimal.NewFromInt(50)
	result, err := svc.PayCommission(affiliate.ID, &partial)
	if err != nil {
		t.Fatalf("pay commission failed: %v", err)
	}
	if !result.Paid.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("paid want 50 got %s", result.Paid.Decimal)
	}
	if !result.Affiliate.UnpaidCommission.Decimal.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("unpaid want 140 got %s", result.Affiliate.UnpaidCommission.Decimal)
	}

	// 超额结算时余额保底为零
	over := decimal.NewFromInt(500)
	result, err = svc.PayCommission(affiliate.ID, &over)
	if err != nil {
		t.Fatalf("pay commission failed: %v", err)
	}
	if !result.Affiliate.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("unpaid should floor at zero, got %s", result.Affiliate.UnpaidCommission.Decimal)
	}

	zero := decimal.Zero
	if _, err := svc.PayCommission(affiliate.ID, &zero); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("zero amount want ErrAmountInvalid got %v", err)
	}
}

func TestPayCommissionDefaultsToFullBalance(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	if _, err := svc.RecordSale(affiliate.ID, decimal.NewFromFloat(123.45)); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	result, err := svc.PayCommission(affiliate.ID, nil)
	if err != nil {
		t.Fatalf("pay commission failed: %v", err)
	}
	if !result.Paid.Decimal.Equal(decimal.NewFromFloat(12.35)) {
		t.Fatalf("paid want 12.35 got %s", result.Paid.Decimal)
	}
	if !result.Affiliate.UnpaidCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("unpaid want 0 got %s", result.Affiliate.UnpaidCommission.Decimal)
	}
}

func TestRecordClick(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	code, err := svc.RecordClick("sarah10")
	if err != nil {
		t.Fatalf("record click failed: %v", err)
	}
	if code != "SARAH10" {
		t.Fatalf("click code want SARAH10 got %s", code)
	}

	current, err := svc.Get(affiliate.ID)
	if err != nil {
		t.Fatalf("get affiliate failed: %v", err)
	}
	if current.Clicks != 1 {
		t.Fatalf("clicks want 1 got %d", current.Clicks)
	}

	if _, err := svc.RecordClick("NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown code want ErrNotFound got %v", err)
	}
}

func TestRecordSaleByCodeTxRejectsNonActiveStatus(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	suspended := constants.AffiliateStatusSuspended
	if _, err := svc.Update(affiliate.ID, AffiliateUpdateInput{Status: &suspended}); err != nil {
		t.Fatalf("suspend affiliate failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.RecordSaleByCodeTx(tx, "SARAH10", decimal.NewFromInt(100))
		return err
	})
	if !errors.Is(err, ErrAffiliateDisabled) {
		t.Fatalf("suspended affiliate want ErrAffiliateDisabled got %v", err)
	}
}

func TestAffiliateCreateWithCustomCommissionRate(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)

	rate := 25.0
	affiliate, err := svc.Create(AffiliateCreateInput{
		Name:           "Sarah Chen",
		Email:          "sarah@example.com",
		Code:           "sarah10",
		CommissionRate: &rate,
	})
	if err != nil {
		t.Fatalf("create with custom rate failed: %v", err)
	}
	if affiliate.CommissionRate != 25 {
		t.Fatalf("commission rate want 25 got %v", affiliate.CommissionRate)
	}
	if affiliate.Tier != constants.AffiliateTierBronze {
		t.Fatalf("tier want Bronze got %s", affiliate.Tier)
	}

	tooHigh := 150.0
	if _, err := svc.Create(AffiliateCreateInput{Name: "Other", Email: "other@example.com", CommissionRate: &tooHigh}); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("rate above 100 want ErrAmountInvalid got %v", err)
	}
	negative := -1.0
	if _, err := svc.Create(AffiliateCreateInput{Name: "Other", Email: "other@example.com", CommissionRate: &negative}); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("negative rate want ErrAmountInvalid got %v", err)
	}
}

func TestAffiliateUpdateStatusDomain(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	for _, status := range []string{
		constants.AffiliateStatusPending,
		constants.AffiliateStatusInactive,
		constants.AffiliateStatusSuspended,
		constants.AffiliateStatusActive,
	} {
		value := status
		updated, err := svc.Update(affiliate.ID, AffiliateUpdateInput{Status: &value})
		if err != nil {
			t.Fatalf("update status %s failed: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("status want %s got %s", status, updated.Status)
		}
	}

	unknown := "disabled"
	if _, err := svc.Update(affiliate.ID, AffiliateUpdateInput{Status: &unknown}); !errors.Is(err, ErrAffiliateStatusInvalid) {
		t.Fatalf("unknown status want ErrAffiliateStatusInvalid got %v", err)
	}
}

func TestAffiliateUpdateRejectsUnknownTier(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	tier := "Diamond"
	if _, err := svc.Update(affiliate.ID, AffiliateUpdateInput{Tier: &tier}); !errors.Is(err, ErrAffiliateTierInvalid) {
		t.Fatalf("unknown tier want ErrAffiliateTierInvalid got %v", err)
	}

	gold := constants.AffiliateTierGold
	updated, err := svc.Update(affiliate.ID, AffiliateUpdateInput{Tier: &gold})
	if err != nil {
		t.Fatalf("admin tier override failed: %v", err)
	}
	if updated.Tier != constants.AffiliateTierGold {
		t.Fatalf("tier want Gold got %s", updated.Tier)
	}
}

func TestAffiliateUpdatePaymentInfoAndNotes(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	method := " PayPal "
	details := "sarah@paypal.example.com"
	notes := "结算周期改为月结"
	updated, err := svc.Update(affiliate.ID, AffiliateUpdateInput{
		PaymentMethod:  &method,
		PaymentDetails: &details,
		Notes:          &notes,
	})
	if err != nil {
		t.Fatalf("update payment info failed: %v", err)
	}
	if updated.PaymentMethod != constants.AffiliatePaymentMethodPaypal {
		t.Fatalf("payment method want paypal got %q", updated.PaymentMethod)
	}
	if updated.PaymentDetails != details {
		t.Fatalf("payment details want %q got %q", details, updated.PaymentDetails)
	}
	if updated.Notes != notes {
		t.Fatalf("notes want %q got %q", notes, updated.Notes)
	}

	// 空串清除结算方式与备注
	blank := ""
	updated, err = svc.Update(affiliate.ID, AffiliateUpdateInput{PaymentMethod: &blank, Notes: &blank})
	if err != nil {
		t.Fatalf("clear payment info failed: %v", err)
	}
	if updated.PaymentMethod != "" || updated.Notes != "" {
		t.Fatalf("cleared fields want empty got method=%q notes=%q", updated.PaymentMethod, updated.Notes)
	}

	bogus := "check"
	if _, err := svc.Update(affiliate.ID, AffiliateUpdateInput{PaymentMethod: &bogus}); !errors.Is(err, ErrAffiliatePaymentMethodInvalid) {
		t.Fatalf("unknown payment method want ErrAffiliatePaymentMethodInvalid got %v", err)
	}
}

func TestAffiliateStatsConversionRate(t *testing.T) {
	svc, _ := setupAffiliateServiceTest(t)
	affiliate := createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")

	// 零点击时转化率为 0
	stats, err := svc.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ConversionRate != 0 {
		t.Fatalf("conversion rate without clicks want 0 got %v", stats.ConversionRate)
	}

	for i := 0; i < 4; i++ {
		if _, err := svc.RecordClick("SARAH10"); err != nil {
			t.Fatalf("record click failed: %v", err)
		}
	}
	if _, err := svc.RecordSale(affiliate.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	stats, err = svc.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalAffiliates != 1 || stats.ActiveAffiliates != 1 {
		t.Fatalf("affiliate counts want 1/1 got %d/%d", stats.TotalAffiliates, stats.ActiveAffiliates)
	}
	if stats.ConversionRate != 25 {
		t.Fatalf("conversion rate want 25 got %v", stats.ConversionRate)
	}
	if !stats.TotalRevenue.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total revenue want 100 got %s", stats.TotalRevenue.Decimal)
	}
	if stats.TierBreakdown[constants.AffiliateTierBronze] != 1 {
		t.Fatalf("tier breakdown want Bronze=1 got %v", stats.TierBreakdown)
	}
}

func TestSalesReportAggregatesAttributedOrders(t *testing.T) {
	svc, db := setupAffiliateServiceTest(t)
	createTestAffiliate(t, svc, "Sarah Chen", "sarah@example.com", "sarah10")
	marco := createTestAffiliate(t, svc, "Marco Diaz", "marco@example.com", "marco10")

	orders := repository.NewOrderRepository(db)
	createReportOrder := func(orderNo, code, paymentStatus string, commission decimal.Decimal, items []models.OrderItem) {
		t.Helper()
		total := decimal.Zero
		for _, item := range items {
			total = total.Add(item.TotalPrice.Decimal)
		}
		order := &models.Order{
			OrderNo:             orderNo,
			Status:              constants.OrderStatusProcessing,
			PaymentStatus:       paymentStatus,
			Priority:            constants.OrderPriorityMedium,
			Currency:            "USD",
			TotalAmount:         models.NewMoneyFromDecimal(total),
			CustomerName:        "Buyer",
			CustomerEmail:       "buyer@example.com",
			AffiliateCode:       code,
			AffiliateCommission: models.NewMoneyFromDecimal(commission),
		}
		if err := orders.Create(order, items); err != nil {
			t.Fatalf("create order %s failed: %v", orderNo, err)
		}
	}

	item := func(name, image string, unitPrice int64, qty int) models.OrderItem {
		price := decimal.NewFromInt(unitPrice)
		return models.OrderItem{
			Name:       name,
			ImageURL:   image,
			UnitPrice:  models.NewMoneyFromDecimal(price),
			Quantity:   qty,
			TotalPrice: models.NewMoneyFromDecimal(price.Mul(decimal.NewFromInt(int64(qty)))),
		}
	}

	createReportOrder("HNA-1001", "SARAH10", constants.PaymentStatusPaid, decimal.NewFromInt(2),
		[]models.OrderItem{item("Classic Tee", "/uploads/tee.png", 20, 1)})
	createReportOrder("HNA-1002", "SARAH10", constants.PaymentStatusPaid, decimal.NewFromFloat(5.40),
		[]models.OrderItem{item("Classic Tee", "/uploads/tee.png", 20, 2), item("Camp Mug", "/uploads/mug.png", 14, 1)})
	// 未支付的归因订单同样进入报表，佣金快照尚未写入按 0 计
	createReportOrder("HNA-1003", "SARAH10", constants.PaymentStatusPending, decimal.Zero,
		[]models.OrderItem{item("Classic Tee", "/uploads/tee.png", 20, 5)})
	// 无归因的订单不进入报表
	createReportOrder("HNA-1004", "", constants.PaymentStatusPaid, decimal.Zero,
		[]models.OrderItem{item("Camp Mug", "/uploads/mug.png", 14, 3)})
	createReportOrder("HNA-1005", "MARCO10", constants.PaymentStatusPaid, decimal.NewFromInt(3),
		[]models.OrderItem{item("Camp Mug", "/uploads/mug.png", 14, 2)})

	// 成员删除后历史归因仍保留，名称回退为 Unknown
	if err := svc.Delete(marco.ID); err != nil {
		t.Fatalf("delete affiliate failed: %v", err)
	}

	entries, err := svc.SalesReport()
	if err != nil {
		t.Fatalf("sales report failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries want 2 got %d", len(entries))
	}

	entry := entries[0]
	if entry.AffiliateCode != "SARAH10" {
		t.Fatalf("top entry code want SARAH10 got %s", entry.AffiliateCode)
	}
	if entry.Name != "Sarah Chen" || entry.Tier != constants.AffiliateTierBronze {
		t.Fatalf("entry want Sarah Chen/Bronze got %s/%s", entry.Name, entry.Tier)
	}
	if entry.Orders != 3 || entry.TotalQuantity != 9 {
		t.Fatalf("entry want orders=3 quantity=9 got orders=%d quantity=%d", entry.Orders, entry.TotalQuantity)
	}
	if !entry.TotalRevenue.Decimal.Equal(decimal.NewFromInt(174)) {
		t.Fatalf("entry revenue want 174 got %s", entry.TotalRevenue.Decimal)
	}
	if !entry.TotalCommission.Decimal.Equal(decimal.NewFromFloat(7.40)) {
		t.Fatalf("entry commission want 7.40 got %s", entry.TotalCommission.Decimal)
	}
	if len(entry.Items) != 2 {
		t.Fatalf("items want 2 got %d", len(entry.Items))
	}
	top := entry.Items[0]
	if top.Name != "Classic Tee" || top.TotalQuantity != 8 || top.Orders != 3 {
		t.Fatalf("top item want Classic Tee qty=8 orders=3 got %+v", top)
	}
	if top.Image != "/uploads/tee.png" {
		t.Fatalf("top item image want /uploads/tee.png got %q", top.Image)
	}
	if !top.TotalRevenue.Decimal.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("top item revenue want 160 got %s", top.TotalRevenue.Decimal)
	}

	orphan := entries[1]
	if orphan.AffiliateCode != "MARCO10" {
		t.Fatalf("second entry code want MARCO10 got %s", orphan.AffiliateCode)
	}
	if orphan.Name != "Unknown" || orphan.Tier != constants.AffiliateTierBronze {
		t.Fatalf("orphan entry want Unknown/Bronze got %s/%s", orphan.Name, orphan.Tier)
	}
	if !orphan.TotalCommission.Decimal.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("orphan commission want 3 got %s", orphan.TotalCommission.Decimal)
	}
}
