package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SalesReportRow 销售报表聚合行（按推广码 + 商品名）
type SalesReportRow struct {
	AffiliateCode string          `gorm:"column:affiliate_code"`
	ItemName      string          `gorm:"column:item_name"`
	ItemImage     string          `gorm:"column:item_image"`
	TotalQuantity int64           `gorm:"column:total_quantity"`
	TotalRevenue  decimal.Decimal `gorm:"column:total_revenue"`
	OrderCount    int64           `gorm:"column:order_count"`
}

// SalesReportCodeRow 销售报表推广码汇总行（关联推广成员名称与等级）
type SalesReportCodeRow struct {
	AffiliateCode   string          `gorm:"column:affiliate_code"`
	AffiliateName   string          `gorm:"column:affiliate_name"`
	AffiliateTier   string          `gorm:"column:affiliate_tier"`
	TotalRevenue    decimal.Decimal `gorm:"column:total_revenue"`
	TotalCommission decimal.Decimal `gorm:"column:total_commission"`
	OrderCount      int64           `gorm:"column:order_count"`
}

// OrderAnalyticsAggregate 订单分析汇总数据
type OrderAnalyticsAggregate struct {
	TotalOrders      int64
	TotalRevenue     decimal.Decimal
	MonthlyRevenue   decimal.Decimal
	PendingOrders    int64
	ProcessingOrders int64
	CompletedOrders  int64
	StatusBreakdown  map[string]int64
}

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) OrderRepository

	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByCheckoutSessionID(sessionID string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	ListRecent(limit int) ([]models.Order, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	SalesReportRows() ([]SalesReportRow, error)
	SalesReportCodeRows() ([]SalesReportCodeRow, error)
	GetAnalytics(monthStart time.Time) (OrderAnalyticsAggregate, error)
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 根据 ID 锁定查询订单
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.db.Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	normalized := strings.TrimSpace(orderNo)
	if normalized == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").Where("order_no = ?", normalized).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByCheckoutSessionID 根据收银台会话ID获取订单
func (r *GormOrderRepository) GetByCheckoutSessionID(sessionID string) (*models.Order, error) {
	normalized := strings.TrimSpace(sessionID)
	if normalized == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").Where("checkout_session_id = ?", normalized).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 查询订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if paymentStatus := strings.TrimSpace(filter.PaymentStatus); paymentStatus != "" {
		query = query.Where("payment_status = ?", paymentStatus)
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		condition, argCount := buildSearchCondition(r.db, []string{"order_no"})
		query = query.Where(condition, repeatLikeArgs("%"+orderNo+"%", argCount)...)
	}
	if email := strings.TrimSpace(filter.CustomerEmail); email != "" {
		condition, argCount := buildSearchCondition(r.db, []string{"customer_email"})
		query = query.Where(condition, repeatLikeArgs("%"+email+"%", argCount)...)
	}
	if code := strings.TrimSpace(filter.AffiliateCode); code != "" {
		query = query.Where("affiliate_code = ?", strings.ToUpper(code))
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Order
	if err := query.Preload("Items").Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListRecent 查询最近订单
func (r *GormOrderRepository) ListRecent(limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.Order
	if err := r.db.Model(&models.Order{}).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateFields 按字段更新订单
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// SalesReportRows 按推广码与商品名聚合带归因订单的销售数据
func (r *GormOrderRepository) SalesReportRows() ([]SalesReportRow, error) {
	var rows []SalesReportRow
	err := r.db.Model(&models.OrderItem{}).
		Select(
			"orders.affiliate_code AS affiliate_code, " +
				"order_items.name AS item_name, " +
				"MAX(order_items.image_url) AS item_image, " +
				"COALESCE(SUM(order_items.quantity), 0) AS total_quantity, " +
				"COALESCE(SUM(order_items.total_price), 0) AS total_revenue, " +
				"COUNT(DISTINCT orders.id) AS order_count",
		).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.affiliate_code <> '' AND orders.deleted_at IS NULL").
		Group("orders.affiliate_code, order_items.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SalesReportCodeRows 按推广码汇总带归因订单的销售数据（营收取订单实付金额，佣金取订单快照）
func (r *GormOrderRepository) SalesReportCodeRows() ([]SalesReportCodeRow, error) {
	var rows []SalesReportCodeRow
	err := r.db.Model(&models.Order{}).
		Select(
			"orders.affiliate_code AS affiliate_code, " +
				"MAX(affiliates.name) AS affiliate_name, " +
				"MAX(affiliates.tier) AS affiliate_tier, " +
				"COALESCE(SUM(orders.total_amount), 0) AS total_revenue, " +
				"COALESCE(SUM(orders.affiliate_commission), 0) AS total_commission, " +
				"COUNT(*) AS order_count",
		).
		Joins("LEFT JOIN affiliates ON affiliates.code = orders.affiliate_code").
		Where("orders.affiliate_code <> ''").
		Group("orders.affiliate_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetAnalytics 汇总订单分析数据
func (r *GormOrderRepository) GetAnalytics(monthStart time.Time) (OrderAnalyticsAggregate, error) {
	agg := OrderAnalyticsAggregate{
		TotalRevenue:    decimal.Zero,
		MonthlyRevenue:  decimal.Zero,
		StatusBreakdown: make(map[string]int64),
	}

	var row struct {
		Total          int64           `gorm:"column:total"`
		TotalRevenue   decimal.Decimal `gorm:"column:total_revenue"`
		MonthlyRevenue decimal.Decimal `gorm:"column:monthly_revenue"`
	}
	err := r.db.Model(&models.Order{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN payment_status = ? THEN total_amount ELSE 0 END), 0) AS total_revenue, "+
				"COALESCE(SUM(CASE WHEN payment_status = ? AND paid_at >= ? THEN total_amount ELSE 0 END), 0) AS monthly_revenue",
			constants.PaymentStatusPaid,
			constants.PaymentStatusPaid,
			monthStart,
		).
		Scan(&row).Error
	if err != nil {
		return agg, err
	}
	agg.TotalOrders = row.Total
	agg.TotalRevenue = row.TotalRevenue.Round(2)
	agg.MonthlyRevenue = row.MonthlyRevenue.Round(2)

	var statusRows []struct {
		Status string `gorm:"column:status"`
		Total  int64  `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return agg, err
	}
	for _, statusRow := range statusRows {
		agg.StatusBreakdown[statusRow.Status] = statusRow.Total
	}
	agg.PendingOrders = agg.StatusBreakdown[constants.OrderStatusPending]
	agg.ProcessingOrders = agg.StatusBreakdown[constants.OrderStatusProcessing]
	agg.CompletedOrders = agg.StatusBreakdown[constants.OrderStatusDelivered]
	return agg, nil
}
