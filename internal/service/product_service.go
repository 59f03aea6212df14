package service

import (
	"strings"

	"github.com/hna-storefront/internal/logger"
	"github.com/hna-storefront/internal/models"
	"github.com/hna-storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ProductCreateInput 创建商品输入
type ProductCreateInput struct {
	Name         string                 `json:"name" binding:"required"`
	SKU          string                 `json:"sku"`
	Description  string                 `json:"description"`
	Price        decimal.Decimal        `json:"price" binding:"required"`
	Images       []string               `json:"images"`
	Tags         []string               `json:"tags"`
	Stock        int                    `json:"stock"`
	IsActive     *bool                  `json:"is_active"`
	SortOrder    int                    `json:"sort_order"`
	SupplierName string                 `json:"supplier_name"`
	Variants     map[string]interface{} `json:"variants"`
}

// ProductUpdateInput 更新商品输入（nil 字段不更新）
type ProductUpdateInput struct {
	Name         *string                `json:"name"`
	SKU          *string                `json:"sku"`
	Description  *string                `json:"description"`
	Price        *decimal.Decimal       `json:"price"`
	Images       []string               `json:"images"`
	Tags         []string               `json:"tags"`
	Stock        *int                   `json:"stock"`
	IsActive     *bool                  `json:"is_active"`
	SortOrder    *int                   `json:"sort_order"`
	SupplierName *string                `json:"supplier_name"`
	Variants     map[string]interface{} `json:"variants"`
}

// Create 创建商品
func (s *ProductService) Create(input ProductCreateInput) (*models.Product, error) {
	if s == nil || s.repo == nil {
		return nil, ErrNotFound
	}
	if input.Price.LessThan(decimal.Zero) {
		return nil, ErrAmountInvalid
	}

	product := &models.Product{
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		PriceAmount:  models.NewMoneyFromDecimal(input.Price),
		Images:       models.StringArray(input.Images),
		Tags:         models.StringArray(input.Tags),
		Stock:        input.Stock,
		IsActive:     true,
		SortOrder:    input.SortOrder,
		SupplierName: strings.ToLower(strings.TrimSpace(input.SupplierName)),
		VariantsJSON: models.JSON(input.Variants),
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if sku := strings.TrimSpace(input.SKU); sku != "" {
		existing, err := s.repo.GetBySKU(sku)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrProductSKUTaken
		}
		product.SKU = &sku
	}

	if err := s.repo.Create(product); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProductSKUTaken
		}
		return nil, err
	}
	logger.Infow("product_created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// Get 获取商品详情
func (s *ProductService) Get(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// List 查询商品列表
func (s *ProductService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.repo.List(filter)
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductUpdateInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			product.SKU = nil
		} else {
			existing, err := s.repo.GetBySKU(sku)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != product.ID {
				return nil, ErrProductSKUTaken
			}
			product.SKU = &sku
		}
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if input.Price.LessThan(decimal.Zero) {
			return nil, ErrAmountInvalid
		}
		product.PriceAmount = models.NewMoneyFromDecimal(*input.Price)
	}
	if input.Images != nil {
		product.Images = models.StringArray(input.Images)
	}
	if input.Tags != nil {
		product.Tags = models.StringArray(input.Tags)
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		product.SortOrder = *input.SortOrder
	}
	if input.SupplierName != nil {
		product.SupplierName = strings.ToLower(strings.TrimSpace(*input.SupplierName))
	}
	if input.Variants != nil {
		product.VariantsJSON = models.JSON(input.Variants)
	}

	if err := s.repo.Update(product); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProductSKUTaken
		}
		return nil, err
	}
	return product, nil
}

// Delete 删除商品（软删除）
func (s *ProductService) Delete(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	logger.Infow("product_deleted", "product_id", id)
	return nil
}
