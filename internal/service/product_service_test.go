package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hna-storefront/internal/models"
	"github.com/hna-storefront/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T) (*ProductService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:product_svc_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewProductService(repository.NewProductRepository(db)), db
}

func TestProductCreateRejectsDuplicateSKU(t *testing.T) {
	svc, _ := setupProductServiceTest(t)

	product, err := svc.Create(ProductCreateInput{
		Name:         "Classic Tee",
		SKU:          "classic-tee",
		Price:        decimal.NewFromInt(20),
		Stock:        100,
		SupplierName: "Printful",
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if product.SKU == nil || *product.SKU != "classic-tee" {
		t.Fatalf("sku want classic-tee got %v", product.SKU)
	}
	if product.SupplierName != "printful" {
		t.Fatalf("supplier name want lowercased got %s", product.SupplierName)
	}
	if !product.IsActive {
		t.Fatalf("new product should default active")
	}

	if _, err := svc.Create(ProductCreateInput{
		Name:  "Other Tee",
		SKU:   "classic-tee",
		Price: decimal.NewFromInt(25),
	}); !errors.Is(err, ErrProductSKUTaken) {
		t.Fatalf("duplicate sku want ErrProductSKUTaken got %v", err)
	}

	if _, err := svc.Create(ProductCreateInput{
		Name:  "Negative",
		Price: decimal.NewFromInt(-1),
	}); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("negative price want ErrAmountInvalid got %v", err)
	}
}

func TestProductUpdate(t *testing.T) {
	svc, _ := setupProductServiceTest(t)

	first, err := svc.Create(ProductCreateInput{Name: "Classic Tee", SKU: "classic-tee", Price: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	second, err := svc.Create(ProductCreateInput{Name: "Camp Mug", SKU: "camp-mug", Price: decimal.NewFromInt(14)})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	taken := "classic-tee"
	if _, err := svc.Update(second.ID, ProductUpdateInput{SKU: &taken}); !errors.Is(err, ErrProductSKUTaken) {
		t.Fatalf("sku collision want ErrProductSKUTaken got %v", err)
	}

	newPrice := decimal.NewFromFloat(22.5)
	inactive := false
	stock := 42
	updated, err := svc.Update(first.ID, ProductUpdateInput{
		Price:    &newPrice,
		IsActive: &inactive,
		Stock:    &stock,
		Variants: map[string]interface{}{"default": "4011"},
	})
	if err != nil {
		t.Fatalf("update product failed: %v", err)
	}
	if !updated.PriceAmount.Decimal.Equal(newPrice) {
		t.Fatalf("price want 22.5 got %s", updated.PriceAmount.Decimal)
	}
	if updated.IsActive || updated.Stock != 42 {
		t.Fatalf("update want inactive stock=42 got active=%v stock=%d", updated.IsActive, updated.Stock)
	}
	if updated.VariantsJSON["default"] != "4011" {
		t.Fatalf("variants want default=4011 got %v", updated.VariantsJSON)
	}

	// 清空 SKU
	blank := ""
	updated, err = svc.Update(first.ID, ProductUpdateInput{SKU: &blank})
	if err != nil {
		t.Fatalf("clear sku failed: %v", err)
	}
	if updated.SKU != nil {
		t.Fatalf("sku should be cleared, got %v", *updated.SKU)
	}

	if _, err := svc.Update(9999, ProductUpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown product want ErrNotFound got %v", err)
	}
}

func TestProductListOnlyActive(t *testing.T) {
	svc, _ := setupProductServiceTest(t)

	if _, err := svc.Create(ProductCreateInput{Name: "Classic Tee", Price: decimal.NewFromInt(20), Tags: []string{"apparel"}}); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	inactive := false
	if _, err := svc.Create(ProductCreateInput{Name: "Retired Tee", Price: decimal.NewFromInt(10), IsActive: &inactive}); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	rows, total, err := svc.List(repository.ProductListFilter{Page: 1, PageSize: 10, OnlyActive: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || rows[0].Name != "Classic Tee" {
		t.Fatalf("only active want Classic Tee got total=%d rows=%+v", total, rows)
	}

	rows, total, err = svc.List(repository.ProductListFilter{Page: 1, PageSize: 10, Search: "retired"})
	if err != nil {
		t.Fatalf("list search failed: %v", err)
	}
	if total != 1 || rows[0].Name != "Retired Tee" {
		t.Fatalf("search want Retired Tee got total=%d", total)
	}

	rows, total, err = svc.List(repository.ProductListFilter{Page: 1, PageSize: 10, Tag: "apparel"})
	if err != nil {
		t.Fatalf("list by tag failed: %v", err)
	}
	if total != 1 || rows[0].Name != "Classic Tee" {
		t.Fatalf("tag filter want Classic Tee got total=%d", total)
	}
}

func TestProductDeleteSoftDeletes(t *testing.T) {
	svc, db := setupProductServiceTest(t)

	product, err := svc.Create(ProductCreateInput{Name: "Classic Tee", Price: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if err := svc.Delete(product.ID); err != nil {
		t.Fatalf("delete product failed: %v", err)
	}
	if _, err := svc.Get(product.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted product want ErrNotFound got %v", err)
	}

	var count int64
	if err := db.Unscoped().Model(&models.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
		t.Fatalf("unscoped count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("soft deleted row should remain, got %d", count)
	}

	if err := svc.Delete(product.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat delete want ErrNotFound got %v", err)
	}
}
