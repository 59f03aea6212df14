package repository

import (
	"errors"
	"strings"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateStatsAggregate 推广计划汇总数据
type AffiliateStatsAggregate struct {
	TotalAffiliates  int64
	ActiveAffiliates int64
	TotalRevenue     decimal.Decimal
	TotalCommission  decimal.Decimal
	UnpaidCommission decimal.Decimal
	TotalClicks      int64
	TotalConversions int64
	TierBreakdown    map[string]int64
}

// AffiliateRepository 推广联盟数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	Create(affiliate *models.Affiliate) error
	Update(affiliate *models.Affiliate) error
	Delete(id uint) error
	GetByID(id uint) (*models.Affiliate, error)
	GetByIDForUpdate(id uint) (*models.Affiliate, error)
	GetByCode(code string) (*models.Affiliate, error)
	GetByCodeForUpdate(code string) (*models.Affiliate, error)
	GetByEmail(email string) (*models.Affiliate, error)
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)
	Top(limit int) ([]models.Affiliate, error)
	IncrementClicks(id uint) error
	GetStats() (AffiliateStatsAggregate, error)
}

// GormAffiliateRepository GORM 推广联盟仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广联盟仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推广成员
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// Update 保存推广成员
func (r *GormAffiliateRepository) Update(affiliate *models.Affiliate) error {
	return r.db.Save(affiliate).Error
}

// Delete 删除推广成员（物理删除）
func (r *GormAffiliateRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Affiliate{}, id).Error
}

// GetByID 按ID获取推广成员
func (r *GormAffiliateRepository) GetByID(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByIDForUpdate 按ID锁定查询推广成员
func (r *GormAffiliateRepository) GetByIDForUpdate(id uint) (*models.Affiliate, error) {
	if id == 0 {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&affiliate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCode 按推广码获取推广成员（推广码统一大写）
func (r *GormAffiliateRepository) GetByCode(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCodeForUpdate 按推广码锁定查询推广成员
func (r *GormAffiliateRepository) GetByCodeForUpdate(code string) (*models.Affiliate, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", normalized).
		First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByEmail 按邮箱获取推广成员
func (r *GormAffiliateRepository) GetByEmail(email string) (*models.Affiliate, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("email = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// List 查询推广成员列表（按累计营收倒序）
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("tier = ?", tier)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		like := "%" + keyword + "%"
		condition, argCount := buildSearchCondition(r.db, []string{"name", "email", "code"})
		query = query.Where("("+condition+")", repeatLikeArgs(like, argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Affiliate
	if err := query.Order("total_revenue desc, code asc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Top 查询营收最高的活跃推广成员
func (r *GormAffiliateRepository) Top(limit int) ([]models.Affiliate, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.Affiliate
	if err := r.db.Model(&models.Affiliate{}).
		Where("status = ?", constants.AffiliateStatusActive).
		Order("total_revenue desc, code asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IncrementClicks 原子累加点击数
func (r *GormAffiliateRepository) IncrementClicks(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error
}

// GetStats 汇总推广计划统计数据
func (r *GormAffiliateRepository) GetStats() (AffiliateStatsAggregate, error) {
	stats := AffiliateStatsAggregate{
		TotalRevenue:     decimal.Zero,
		TotalCommission:  decimal.Zero,
		UnpaidCommission: decimal.Zero,
		TierBreakdown:    make(map[string]int64),
	}

	var row struct {
		Total            int64           `gorm:"column:total"`
		Active           int64           `gorm:"column:active"`
		TotalRevenue     decimal.Decimal `gorm:"column:total_revenue"`
		TotalCommission  decimal.Decimal `gorm:"column:total_commission"`
		UnpaidCommission decimal.Decimal `gorm:"column:unpaid_commission"`
		TotalClicks      int64           `gorm:"column:total_clicks"`
		TotalConversions int64           `gorm:"column:total_conversions"`
	}
	err := r.db.Model(&models.Affiliate{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active, "+
				"COALESCE(SUM(total_revenue), 0) AS total_revenue, "+
				"COALESCE(SUM(total_commission), 0) AS total_commission, "+
				"COALESCE(SUM(unpaid_commission), 0) AS unpaid_commission, "+
				"COALESCE(SUM(clicks), 0) AS total_clicks, "+
				"COALESCE(SUM(conversions), 0) AS total_conversions",
			constants.AffiliateStatusActive,
		).
		Scan(&row).Error
	if err != nil {
		return stats, err
	}
	stats.TotalAffiliates = row.Total
	stats.ActiveAffiliates = row.Active
	stats.TotalRevenue = row.TotalRevenue.Round(2)
	stats.TotalCommission = row.TotalCommission.Round(2)
	stats.UnpaidCommission = row.UnpaidCommission.Round(2)
	stats.TotalClicks = row.TotalClicks
	stats.TotalConversions = row.TotalConversions

	var tierRows []struct {
		Tier  string `gorm:"column:tier"`
		Total int64  `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Affiliate{}).
		Select("tier, COUNT(*) AS total").
		Group("tier").
		Scan(&tierRows).Error; err != nil {
		return stats, err
	}
	for _, tierRow := range tierRows {
		stats.TierBreakdown[tierRow.Tier] = tierRow.Total
	}
	return stats, nil
}
