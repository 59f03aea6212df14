package repository

import (
	"errors"
	"strings"

	"github.com/hna-storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
	GetByID(id uint) (*models.Product, error)
	GetByIDForUpdate(id uint) (*models.Product, error)
	GetBySKU(sku string) (*models.Product, error)
	List(filter ProductListFilter) ([]models.Product, int64, error)
	AdjustStock(id uint, delta int) error
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 保存商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}

// Delete 删除商品（软删除）
func (r *GormProductRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Product{}, id).Error
}

// GetByID 按ID获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByIDForUpdate 按ID锁定查询商品
func (r *GormProductRepository) GetByIDForUpdate(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetBySKU 按 SKU 获取商品
func (r *GormProductRepository) GetBySKU(sku string) (*models.Product, error) {
	normalized := strings.TrimSpace(sku)
	if normalized == "" {
		return nil, nil
	}
	var product models.Product
	if err := r.db.Where("sku = ?", normalized).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// List 查询商品列表
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		like := "%" + keyword + "%"
		condition, argCount := buildSearchCondition(r.db, []string{"name", "sku", "description"})
		query = query.Where("("+condition+")", repeatLikeArgs(like, argCount)...)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Product
	if err := query.Order("sort_order desc, id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AdjustStock 原子调整库存
func (r *GormProductRepository) AdjustStock(id uint, delta int) error {
	if id == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta)).Error
}
