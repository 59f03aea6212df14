package service

import (
	"context"
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

func setupOrderServiceTest(t *testing.T) (*OrderService, *AffiliateService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Affiliate{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	affiliates := NewAffiliateService(repository.NewAffiliateRepository(db), repository.NewOrderRepository(db))
	orders := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		affiliates,
		nil,
		nil,
		nil,
	)
	return orders, affiliates, db
}

func createTestProduct(t *testing.T, db *gorm.DB, name, sku string, price float64, stock int, variants map[string]interface{}) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:         name,
		SKU:          &sku,
		PriceAmount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(price)),
		Images:       models.StringArray{"/uploads/" + sku + ".jpg"},
		Stock:        stock,
		IsActive:     true,
		SupplierName: "printful",
		VariantsJSON: models.JSON(variants),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product %s failed: %v", sku, err)
	}
	return product
}

func TestCheckoutCreatesOrderAndDecrementsStock(t *testing.T) {
	svc, affiliates, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, map[string]interface{}{
		"M/Black": "4012",
		"default": "4011",
	})
	mug := createTestProduct(t, db, "Camp Mug", "camp-mug", 14, 5, map[string]interface{}{
		"default": "9001",
	})
	if _, err := affiliates.Create(AffiliateCreateInput{Name: "Sarah Chen", Email: "sarah@example.com", Code: "SARAH10"}); err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerName:  "Buyer One",
		CustomerEmail: "Buyer@Example.com",
		AffiliateCode: "sarah10",
		Items: []CheckoutItemInput{
			{ProductID: tee.ID, Quantity: 2, Size: "M", Color: "Black"},
			{ProductID: mug.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	order := result.Order
	if order.Status != constants.OrderStatusPending || order.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("new order want pending/pending got %s/%s", order.Status, order.PaymentStatus)
	}
	if order.CustomerEmail != "buyer@example.com" {
		t.Fatalf("email want lowercased got %s", order.CustomerEmail)
	}
	if order.AffiliateCode != "SARAH10" {
		t.Fatalf("affiliate code want SARAH10 got %s", order.AffiliateCode)
	}
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromInt(54)) {
		t.Fatalf("total want 54 got %s", order.TotalAmount.Decimal)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items want 2 got %d", len(order.Items))
	}
	if order.Items[0].SupplierVariantID != "4012" {
		t.Fatalf("tee variant want 4012 got %s", order.Items[0].SupplierVariantID)
	}
	if order.Items[1].SupplierVariantID != "9001" {
		t.Fatalf("mug variant want 9001 got %s", order.Items[1].SupplierVariantID)
	}
	if order.SupplierName != "printful" {
		t.Fatalf("supplier want printful got %s", order.SupplierName)
	}

	var teeRow models.Product
	if err := db.First(&teeRow, tee.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if teeRow.Stock != 8 {
		t.Fatalf("tee stock want 8 got %d", teeRow.Stock)
	}
}

func TestCheckoutIgnoresDisabledAffiliateCode(t *testing.T) {
	svc, affiliates, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	affiliate, err := affiliates.Create(AffiliateCreateInput{Name: "Sarah Chen", Email: "sarah@example.com", Code: "SARAH10"})
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	suspended := constants.AffiliateStatusSuspended
	if _, err := affiliates.Update(affiliate.ID, AffiliateUpdateInput{Status: &suspended}); err != nil {
		t.Fatalf("suspend affiliate failed: %v", err)
	}

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerName:  "Buyer One",
		CustomerEmail: "buyer@example.com",
		AffiliateCode: "SARAH10",
		Items:         []CheckoutItemInput{{ProductID: tee.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.Order.AffiliateCode != "" {
		t.Fatalf("disabled affiliate should not attach, got %q", result.Order.AffiliateCode)
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 1, nil)
	inactive := createTestProduct(t, db, "Retired Tee", "retired-tee", 20, 10, nil)
	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	base := CheckoutInput{CustomerName: "Buyer", CustomerEmail: "buyer@example.com"}

	input := base
	if _, err := svc.Checkout(context.Background(), input); !errors.Is(err, ErrOrderItemsEmpty) {
		t.Fatalf("empty items want ErrOrderItemsEmpty got %v", err)
	}

	input = base
	input.Items = []CheckoutItemInput{{ProductID: inactive.ID, Quantity: 1}}
	if _, err := svc.Checkout(context.Background(), input); !errors.Is(err, ErrProductInactive) {
		t.Fatalf("inactive product want ErrProductInactive got %v", err)
	}

	input = base
	input.Items = []CheckoutItemInput{{ProductID: tee.ID, Quantity: 3}}
	if _, err := svc.Checkout(context.Background(), input); !errors.Is(err, ErrProductNoStock) {
		t.Fatalf("over stock want ErrProductNoStock got %v", err)
	}

	// 下单失败时库存回滚
	var row models.Product
	if err := db.First(&row, tee.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if row.Stock != 1 {
		t.Fatalf("stock should be untouched, got %d", row.Stock)
	}

	input = base
	input.Items = []CheckoutItemInput{{ProductID: 9999, Quantity: 1}}
	if _, err := svc.Checkout(context.Background(), input); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown product want ErrNotFound got %v", err)
	}
}

func checkoutPendingOrder(t *testing.T, svc *OrderService, db *gorm.DB, productID uint, qty int, affiliateCode, sessionID string) *models.Order {
	t.Helper()
	result, err := svc.Checkout(context.Background(), CheckoutInput{
		CustomerName:  "Buyer",
		CustomerEmail: "buyer@example.com",
		AffiliateCode: affiliateCode,
		Items:         []CheckoutItemInput{{ProductID: productID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if err := db.Model(&models.Order{}).
		Where("id = ?", result.Order.ID).
		Update("checkout_session_id", sessionID).Error; err != nil {
		t.Fatalf("set session id failed: %v", err)
	}
	return result.Order
}

func TestConfirmPaymentBySessionRecordsCommissionOnce(t *testing.T) {
	svc, affiliates, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	affiliate, err := affiliates.Create(AffiliateCreateInput{Name: "Sarah Chen", Email: "sarah@example.com", Code: "SARAH10"})
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	checkoutPendingOrder(t, svc, db, tee.ID, 5, "SARAH10", "sess_100")

	confirmed, err := svc.ConfirmPaymentBySession("sess_100")
	if err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if confirmed.PaymentStatus != constants.PaymentStatusPaid || confirmed.Status != constants.OrderStatusProcessing {
		t.Fatalf("confirmed order want paid/processing got %s/%s", confirmed.PaymentStatus, confirmed.Status)
	}
	if !confirmed.AffiliateCommission.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("commission want 10 got %s", confirmed.AffiliateCommission.Decimal)
	}

	// 重复确认幂等，不重复计提佣金
	again, err := svc.ConfirmPaymentBySession("sess_100")
	if err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if again.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("repeat confirm want paid got %s", again.PaymentStatus)
	}

	current, err := affiliates.Get(affiliate.ID)
	if err != nil {
		t.Fatalf("get affiliate failed: %v", err)
	}
	if current.TotalSales != 1 {
		t.Fatalf("total sales want 1 got %d", current.TotalSales)
	}
	if !current.UnpaidCommission.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unpaid commission want 10 got %s", current.UnpaidCommission.Decimal)
	}

	if _, err := svc.ConfirmPaymentBySession("sess_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown session want ErrNotFound got %v", err)
	}
}

func TestConfirmPaymentSkipsDisabledAffiliate(t *testing.T) {
	svc, affiliates, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	affiliate, err := affiliates.Create(AffiliateCreateInput{Name: "Sarah Chen", Email: "sarah@example.com", Code: "SARAH10"})
	if err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	order := checkoutPendingOrder(t, svc, db, tee.ID, 1, "SARAH10", "sess_200")

	// 下单后、支付前被停用：支付确认不因此失败，仅跳过计提
	suspended := constants.AffiliateStatusSuspended
	if _, err := affiliates.Update(affiliate.ID, AffiliateUpdateInput{Status: &suspended}); err != nil {
		t.Fatalf("suspend affiliate failed: %v", err)
	}

	confirmed, err := svc.ConfirmPaymentBySession("sess_200")
	if err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if confirmed.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("order %s want paid got %s", order.OrderNo, confirmed.PaymentStatus)
	}
	if !confirmed.AffiliateCommission.Decimal.Equal(decimal.Zero) {
		t.Fatalf("commission want 0 got %s", confirmed.AffiliateCommission.Decimal)
	}

	current, err := affiliates.Get(affiliate.ID)
	if err != nil {
		t.Fatalf("get affiliate failed: %v", err)
	}
	if current.TotalSales != 0 {
		t.Fatalf("total sales want 0 got %d", current.TotalSales)
	}
}

func TestMarkPaymentFailedRestocks(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	checkoutPendingOrder(t, svc, db, tee.ID, 3, "", "sess_300")

	var row models.Product
	if err := db.First(&row, tee.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if row.Stock != 7 {
		t.Fatalf("stock after checkout want 7 got %d", row.Stock)
	}

	failed, err := svc.MarkPaymentFailedBySession("sess_300")
	if err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if failed.PaymentStatus != constants.PaymentStatusFailed || failed.Status != constants.OrderStatusCancelled {
		t.Fatalf("failed order want failed/cancelled got %s/%s", failed.PaymentStatus, failed.Status)
	}
	if failed.CancelledAt == nil {
		t.Fatalf("cancelled_at should be set")
	}

	if err := db.First(&row, tee.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if row.Stock != 10 {
		t.Fatalf("stock after restock want 10 got %d", row.Stock)
	}
}

func TestMarkPaymentFailedLeavesPaidOrderAlone(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	checkoutPendingOrder(t, svc, db, tee.ID, 2, "", "sess_400")

	if _, err := svc.ConfirmPaymentBySession("sess_400"); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	order, err := svc.MarkPaymentFailedBySession("sess_400")
	if err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if order.PaymentStatus != constants.PaymentStatusPaid {
		t.Fatalf("paid order should stay paid, got %s", order.PaymentStatus)
	}

	var row models.Product
	if err := db.First(&row, tee.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if row.Stock != 8 {
		t.Fatalf("stock should stay 8, got %d", row.Stock)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	order := checkoutPendingOrder(t, svc, db, tee.ID, 1, "", "sess_500")

	if _, err := svc.UpdateStatus(order.ID, OrderStatusUpdateInput{Status: "teleported"}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("bad status want ErrOrderStatusInvalid got %v", err)
	}
	badPriority := "asap"
	if _, err := svc.UpdateStatus(order.ID, OrderStatusUpdateInput{Status: constants.OrderStatusShipped, Priority: &badPriority}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("bad priority want ErrOrderStatusInvalid got %v", err)
	}

	priority := "URGENT"
	tracking := " TRACK-42 "
	updated, err := svc.UpdateStatus(order.ID, OrderStatusUpdateInput{
		Status:         "Shipped",
		Priority:       &priority,
		TrackingNumber: &tracking,
	})
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if updated.Status != constants.OrderStatusShipped {
		t.Fatalf("status want shipped got %s", updated.Status)
	}
	if updated.Priority != constants.OrderPriorityUrgent {
		t.Fatalf("priority want urgent got %s", updated.Priority)
	}
	if updated.TrackingNumber != "TRACK-42" {
		t.Fatalf("tracking want TRACK-42 got %q", updated.TrackingNumber)
	}

	if _, err := svc.UpdateStatus(9999, OrderStatusUpdateInput{Status: constants.OrderStatusShipped}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown order want ErrNotFound got %v", err)
	}
}

func TestDispatchWithoutSupplierRegistry(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	order := checkoutPendingOrder(t, svc, db, tee.ID, 1, "", "sess_600")

	if _, err := svc.Dispatch(context.Background(), order.ID, ""); !errors.Is(err, ErrSupplierNotConfigured) {
		t.Fatalf("no registry want ErrSupplierNotConfigured got %v", err)
	}
}

func TestHandleSupplierEvent(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 10, nil)
	order := checkoutPendingOrder(t, svc, db, tee.ID, 1, "", "sess_700")

	if _, err := svc.HandleSupplierEvent(SupplierEventInput{Event: "mystery", OrderNo: order.OrderNo}); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("unknown event want ErrOrderStatusInvalid got %v", err)
	}
	if _, err := svc.HandleSupplierEvent(SupplierEventInput{Event: constants.SupplierEventShipped, OrderNo: "HNA-missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown order want ErrNotFound got %v", err)
	}

	updated, err := svc.HandleSupplierEvent(SupplierEventInput{
		Vendor:         "printful",
		Event:          constants.SupplierEventShipped,
		OrderNo:        order.OrderNo,
		TrackingNumber: "TRACK-7",
	})
	if err != nil {
		t.Fatalf("handle event failed: %v", err)
	}
	if updated.Status != constants.OrderStatusShipped {
		t.Fatalf("status want shipped got %s", updated.Status)
	}
	if updated.TrackingNumber != "TRACK-7" {
		t.Fatalf("tracking want TRACK-7 got %q", updated.TrackingNumber)
	}
}

func TestAnalyticsAverageOrderValue(t *testing.T) {
	svc, _, db := setupOrderServiceTest(t)
	tee := createTestProduct(t, db, "Classic Tee", "classic-tee", 20, 100, nil)

	checkoutPendingOrder(t, svc, db, tee.ID, 1, "", "sess_800")
	checkoutPendingOrder(t, svc, db, tee.ID, 2, "", "sess_801")
	checkoutPendingOrder(t, svc, db, tee.ID, 3, "", "sess_802")
	if _, err := svc.ConfirmPaymentBySession("sess_800"); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if _, err := svc.ConfirmPaymentBySession("sess_801"); err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}

	analytics, err := svc.Analytics()
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}
	if analytics.TotalOrders != 3 {
		t.Fatalf("total orders want 3 got %d", analytics.TotalOrders)
	}
	if !analytics.TotalRevenue.Decimal.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("paid revenue want 60 got %s", analytics.TotalRevenue.Decimal)
	}
	if !analytics.AverageOrderValue.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("average want 20 got %s", analytics.AverageOrderValue.Decimal)
	}
	if analytics.PendingOrders != 1 || analytics.ProcessingOrders != 2 {
		t.Fatalf("status counts want pending=1 processing=2 got %d/%d", analytics.PendingOrders, analytics.ProcessingOrders)
	}
	if len(analytics.RecentOrders) != 3 {
		t.Fatalf("recent orders want 3 got %d", len(analytics.RecentOrders))
	}
}

func TestResolveVariantID(t *testing.T) {
	product := &models.Product{
		VariantsJSON: models.JSON(map[string]interface{}{
			"M/Black": "4012",
			"L":       "4013",
			"Red":     "4014",
			"default": "4011",
		}),
	}
	cases := []struct {
		size  string
		color string
		want  string
	}{
		{"M", "Black", "4012"},
		{"L", "", "4013"},
		{"", "Red", "4014"},
		{"XL", "Green", "4011"},
		{"", "", "4011"},
	}
	for _, tc := range cases {
		if got := resolveVariantID(product, tc.size, tc.color); got != tc.want {
			t.Fatalf("size=%q color=%q want %s got %s", tc.size, tc.color, tc.want, got)
		}
	}
	if got := resolveVariantID(nil, "M", "Black"); got != "" {
		t.Fatalf("nil product want empty got %s", got)
	}
}
