package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hna-storefront/internal/constants"
	"github.com/hna-storefront/internal/logger"
	"github.com/hna-storefront/internal/models"
	"github.com/hna-storefront/internal/payment/checkout"
	"github.com/hna-storefront/internal/queue"
	"github.com/hna-storefront/internal/repository"
	"github.com/hna-storefront/internal/supplier"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orders     repository.OrderRepository
	products   repository.ProductRepository
	affiliates *AffiliateService
	checkout   *checkout.Client
	suppliers  *supplier.Registry
	queue      *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	affiliates *AffiliateService,
	checkoutClient *checkout.Client,
	suppliers *supplier.Registry,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orders:     orders,
		products:   products,
		affiliates: affiliates,
		checkout:   checkoutClient,
		suppliers:  suppliers,
		queue:      queueClient,
	}
}

// CheckoutItemInput 下单商品行输入
type CheckoutItemInput struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// CheckoutInput 下单输入
type CheckoutInput struct {
	CustomerName  string              `json:"customer_name" binding:"required"`
	CustomerEmail string              `json:"customer_email" binding:"required,email"`
	CustomerPhone string              `json:"customer_phone"`
	ShipAddress   string              `json:"ship_address"`
	ShipCity      string              `json:"ship_city"`
	ShipState     string              `json:"ship_state"`
	ShipZip       string              `json:"ship_zip"`
	ShipCountry   string              `json:"ship_country"`
	Notes         string              `json:"notes"`
	AffiliateCode string              `json:"affiliate_code"`
	Items         []CheckoutItemInput `json:"items" binding:"required"`
	ClientIP      string              `json:"-"`
	Locale        string              `json:"-"`
}

// CheckoutResult 下单返回
type CheckoutResult struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"payment_url,omitempty"`
}

// OrderStatusUpdateInput 订单状态更新输入
type OrderStatusUpdateInput struct {
	Status         string  `json:"status" binding:"required"`
	Priority       *string `json:"priority"`
	TrackingNumber *string `json:"tracking_number"`
}

// SupplierEventInput 供应商回调输入
type SupplierEventInput struct {
	Vendor          string
	Event           string
	OrderNo         string
	SupplierOrderID string
	TrackingNumber  string
}

// OrderAnalytics 订单分析结果
type OrderAnalytics struct {
	TotalOrders       int64            `json:"total_orders"`
	TotalRevenue      models.Money     `json:"total_revenue"`
	MonthlyRevenue    models.Money     `json:"monthly_revenue"`
	AverageOrderValue models.Money     `json:"average_order_value"`
	PendingOrders     int64            `json:"pending_orders"`
	ProcessingOrders  int64            `json:"processing_orders"`
	CompletedOrders   int64            `json:"completed_orders"`
	StatusBreakdown   map[string]int64 `json:"status_breakdown"`
	RecentOrders      []models.Order   `json:"recent_orders"`
}

var orderStatuses = map[string]struct{}{
	constants.OrderStatusPending:        {},
	constants.OrderStatusProcessing:     {},
	constants.OrderStatusSentToSupplier: {},
	constants.OrderStatusInProduction:   {},
	constants.OrderStatusShipped:        {},
	constants.OrderStatusDelivered:      {},
	constants.OrderStatusCancelled:      {},
}

var orderPriorities = map[string]struct{}{
	constants.OrderPriorityLow:    {},
	constants.OrderPriorityMedium: {},
	constants.OrderPriorityHigh:   {},
	constants.OrderPriorityUrgent: {},
}

// Checkout 创建订单并发起托管收银台会话
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if s == nil || s.orders == nil || s.products == nil {
		return nil, ErrNotFound
	}
	if len(input.Items) == 0 {
		return nil, ErrOrderItemsEmpty
	}

	affiliateCode := ""
	if code := normalizeAffiliateCode(input.AffiliateCode); code != "" && s.affiliates != nil {
		affiliate, err := s.affiliates.GetByCode(code)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if affiliate != nil && affiliate.Status == constants.AffiliateStatusActive {
			affiliateCode = affiliate.Code
		}
	}

	order := &models.Order{
		OrderNo:       generateOrderNo(),
		Status:        constants.OrderStatusPending,
		PaymentStatus: constants.PaymentStatusPending,
		Priority:      constants.OrderPriorityMedium,
		Currency:      constants.SiteCurrencyDefault,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(input.CustomerEmail)),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		ShipAddress:   strings.TrimSpace(input.ShipAddress),
		ShipCity:      strings.TrimSpace(input.ShipCity),
		ShipState:     strings.TrimSpace(input.ShipState),
		ShipZip:       strings.TrimSpace(input.ShipZip),
		ShipCountry:   strings.TrimSpace(input.ShipCountry),
		Notes:         strings.TrimSpace(input.Notes),
		ClientIP:      strings.TrimSpace(input.ClientIP),
		Locale:        strings.TrimSpace(input.Locale),
		AffiliateCode: affiliateCode,
	}

	var items []models.OrderItem
	err := s.orders.Transaction(func(tx *gorm.DB) error {
		productsTx := s.products.WithTx(tx)
		total := decimal.Zero
		items = items[:0]
		for _, line := range input.Items {
			if line.Quantity <= 0 {
				return ErrOrderItemsEmpty
			}
			product, err := productsTx.GetByIDForUpdate(line.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return ErrNotFound
			}
			if !product.IsActive {
				return ErrProductInactive
			}
			if product.Stock < line.Quantity {
				return ErrProductNoStock
			}
			if err := productsTx.AdjustStock(product.ID, -line.Quantity); err != nil {
				return err
			}

			unitPrice := product.PriceAmount
			lineTotal := unitPrice.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
			total = total.Add(lineTotal)

			productID := product.ID
			item := models.OrderItem{
				ProductID:         &productID,
				Name:              product.Name,
				UnitPrice:         unitPrice,
				Quantity:          line.Quantity,
				TotalPrice:        models.NewMoneyFromDecimal(lineTotal),
				Size:              strings.TrimSpace(line.Size),
				Color:             strings.TrimSpace(line.Color),
				SupplierVariantID: resolveVariantID(product, line.Size, line.Color),
			}
			if len(product.Images) > 0 {
				item.ImageURL = product.Images[0]
			}
			if order.SupplierName == "" {
				order.SupplierName = product.SupplierName
			}
			items = append(items, item)
		}

		order.TotalAmount = models.NewMoneyFromDecimal(total)
		return s.orders.WithTx(tx).Create(order, items)
	})
	if err != nil {
		return nil, err
	}
	order.Items = items

	result := &CheckoutResult{Order: order}
	if s.checkout != nil {
		sessionItems := make([]checkout.LineItem, 0, len(items))
		for _, item := range items {
			sessionItems = append(sessionItems, checkout.LineItem{
				Name:      item.Name,
				UnitPrice: item.UnitPrice.Decimal,
				Quantity:  item.Quantity,
			})
		}
		session, err := s.checkout.CreateSession(ctx, checkout.SessionInput{
			OrderNo:  order.OrderNo,
			OrderID:  order.ID,
			Currency: order.Currency,
			Items:    sessionItems,
		})
		if err != nil {
			logger.Errorw("checkout_session_create_failed",
				"order_no", order.OrderNo,
				"error", err,
			)
			return nil, err
		}
		if err := s.orders.UpdateFields(order.ID, map[string]interface{}{
			"checkout_session_id": session.SessionID,
		}); err != nil {
			return nil, err
		}
		order.CheckoutSessionID = session.SessionID
		result.PaymentURL = session.URL
	}

	logger.Infow("order_created",
		"order_no", order.OrderNo,
		"total_amount", order.TotalAmount.String(),
		"affiliate_code", order.AffiliateCode,
	)
	return result, nil
}

// Get 获取订单详情
func (s *OrderService) Get(id uint) (*models.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// GetByOrderNo 根据订单号获取订单
func (s *OrderService) GetByOrderNo(orderNo string) (*models.Order, error) {
	order, err := s.orders.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// List 查询订单列表
func (s *OrderService) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orders.List(filter)
}

// ConfirmPaymentBySession 按收银台会话确认支付（幂等）
func (s *OrderService) ConfirmPaymentBySession(sessionID string) (*models.Order, error) {
	normalized := strings.TrimSpace(sessionID)
	if normalized == "" {
		return nil, ErrNotFound
	}

	var confirmed *models.Order
	firstConfirm := false
	err := s.orders.Transaction(func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		order, err := ordersTx.GetByCheckoutSessionID(normalized)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}
		locked, err := ordersTx.GetByIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		if locked.PaymentStatus == constants.PaymentStatusPaid {
			confirmed = locked
			return nil
		}
		if locked.PaymentStatus != constants.PaymentStatusPending {
			return ErrOrderNotPayable
		}

		now := time.Now()
		updates := map[string]interface{}{
			"payment_status": constants.PaymentStatusPaid,
			"status":         constants.OrderStatusProcessing,
			"paid_at":        now,
		}

		if locked.AffiliateCode != "" && s.affiliates != nil {
			sale, err := s.affiliates.RecordSaleByCodeTx(tx, locked.AffiliateCode, locked.TotalAmount.Decimal)
			switch {
			case err == nil:
				updates["affiliate_id"] = sale.Affiliate.ID
				updates["affiliate_commission"] = sale.Commission
				locked.AffiliateCommission = sale.Commission
				affiliateID := sale.Affiliate.ID
				locked.AffiliateID = &affiliateID
			case errors.Is(err, ErrNotFound), errors.Is(err, ErrAffiliateDisabled):
				logger.Warnw("order_commission_skipped",
					"order_no", locked.OrderNo,
					"affiliate_code", locked.AffiliateCode,
					"reason", err.Error(),
				)
			default:
				return err
			}
		}

		if err := ordersTx.UpdateFields(locked.ID, updates); err != nil {
			return err
		}
		locked.PaymentStatus = constants.PaymentStatusPaid
		locked.Status = constants.OrderStatusProcessing
		locked.PaidAt = &now
		confirmed = locked
		firstConfirm = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if firstConfirm {
		s.enqueueSupplierDispatch(confirmed)
		s.enqueueStatusEmail(confirmed.ID, confirmed.Status)
		logger.Infow("order_payment_confirmed",
			"order_no", confirmed.OrderNo,
			"session_id", normalized,
			"commission", confirmed.AffiliateCommission.String(),
		)
	}
	return confirmed, nil
}

// MarkPaymentFailedBySession 按收银台会话标记支付失败并释放库存
func (s *OrderService) MarkPaymentFailedBySession(sessionID string) (*models.Order, error) {
	normalized := strings.TrimSpace(sessionID)
	if normalized == "" {
		return nil, ErrNotFound
	}

	var failed *models.Order
	err := s.orders.Transaction(func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		order, err := ordersTx.GetByCheckoutSessionID(normalized)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}
		locked, err := ordersTx.GetByIDForUpdate(order.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrNotFound
		}
		if locked.PaymentStatus != constants.PaymentStatusPending {
			failed = locked
			return nil
		}

		now := time.Now()
		if err := ordersTx.UpdateFields(locked.ID, map[string]interface{}{
			"payment_status": constants.PaymentStatusFailed,
			"status":         constants.OrderStatusCancelled,
			"cancelled_at":   now,
		}); err != nil {
			return err
		}
		productsTx := s.products.WithTx(tx)
		for _, item := range locked.Items {
			if item.ProductID == nil {
				continue
			}
			if err := productsTx.AdjustStock(*item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		locked.PaymentStatus = constants.PaymentStatusFailed
		locked.Status = constants.OrderStatusCancelled
		locked.CancelledAt = &now
		failed = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if failed != nil && failed.PaymentStatus == constants.PaymentStatusFailed {
		logger.Infow("order_payment_failed", "order_no", failed.OrderNo, "session_id", normalized)
	}
	return failed, nil
}

// UpdateStatus 更新订单状态
func (s *OrderService) UpdateStatus(id uint, input OrderStatusUpdateInput) (*models.Order, error) {
	status := strings.ToLower(strings.TrimSpace(input.Status))
	if _, ok := orderStatuses[status]; !ok {
		return nil, ErrOrderStatusInvalid
	}
	if input.Priority != nil {
		priority := strings.ToLower(strings.TrimSpace(*input.Priority))
		if _, ok := orderPriorities[priority]; !ok {
			return nil, ErrOrderStatusInvalid
		}
		input.Priority = &priority
	}

	var updated *models.Order
	err := s.orders.Transaction(func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		order, err := ordersTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrNotFound
		}

		updates := map[string]interface{}{"status": status}
		if status == constants.OrderStatusCancelled && order.CancelledAt == nil {
			updates["cancelled_at"] = time.Now()
		}
		if input.Priority != nil {
			updates["priority"] = *input.Priority
		}
		if input.TrackingNumber != nil {
			updates["tracking_number"] = strings.TrimSpace(*input.TrackingNumber)
		}
		if err := ordersTx.UpdateFields(order.ID, updates); err != nil {
			return err
		}
		order.Status = status
		if input.Priority != nil {
			order.Priority = *input.Priority
		}
		if input.TrackingNumber != nil {
			order.TrackingNumber = strings.TrimSpace(*input.TrackingNumber)
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueStatusEmail(updated.ID, updated.Status)
	logger.Infow("order_status_updated", "order_no", updated.OrderNo, "status", updated.Status)
	return updated, nil
}

// Dispatch 将已支付订单派发给供应商
func (s *OrderService) Dispatch(ctx context.Context, id uint, vendor string) (*models.Order, error) {
	if s.suppliers == nil || !s.suppliers.Enabled() {
		return nil, ErrSupplierNotConfigured
	}
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.PaymentStatus != constants.PaymentStatusPaid || order.Status == constants.OrderStatusCancelled {
		return nil, ErrOrderNotDispatchable
	}
	if order.SupplierOrderID != "" {
		return nil, ErrOrderAlreadyDispatched
	}

	client, err := s.suppliers.Resolve(vendor)
	if err != nil {
		if errors.Is(err, supplier.ErrVendorUnknown) {
			return nil, ErrSupplierVendorInvalid
		}
		return nil, err
	}
	externalID, err := client.CreateOrder(ctx, order)
	if err != nil {
		logger.Errorw("supplier_dispatch_failed",
			"order_no", order.OrderNo,
			"vendor", client.Vendor(),
			"error", err,
		)
		return nil, err
	}

	now := time.Now()
	supplierOrderID := constants.SupplierOrderNumberPrefix + externalID
	if err := s.orders.UpdateFields(order.ID, map[string]interface{}{
		"status":            constants.OrderStatusSentToSupplier,
		"supplier_name":     client.Vendor(),
		"supplier_order_id": supplierOrderID,
		"sent_to_supplier":  now,
	}); err != nil {
		return nil, err
	}
	order.Status = constants.OrderStatusSentToSupplier
	order.SupplierName = client.Vendor()
	order.SupplierOrderID = supplierOrderID
	order.SentToSupplier = &now

	s.enqueueStatusEmail(order.ID, order.Status)
	logger.Infow("order_dispatched",
		"order_no", order.OrderNo,
		"vendor", client.Vendor(),
		"supplier_order_id", supplierOrderID,
	)
	return order, nil
}

// HandleSupplierEvent 处理供应商回调事件
func (s *OrderService) HandleSupplierEvent(input SupplierEventInput) (*models.Order, error) {
	status, ok := supplier.MapEventStatus(input.Event)
	if !ok {
		return nil, ErrOrderStatusInvalid
	}
	order, err := s.orders.GetByOrderNo(input.OrderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}

	updates := map[string]interface{}{"status": status}
	if tracking := strings.TrimSpace(input.TrackingNumber); tracking != "" {
		updates["tracking_number"] = tracking
	}
	if status == constants.OrderStatusCancelled && order.CancelledAt == nil {
		updates["cancelled_at"] = time.Now()
	}
	if err := s.orders.UpdateFields(order.ID, updates); err != nil {
		return nil, err
	}
	order.Status = status
	if tracking := strings.TrimSpace(input.TrackingNumber); tracking != "" {
		order.TrackingNumber = tracking
	}

	s.enqueueStatusEmail(order.ID, order.Status)
	logger.Infow("supplier_event_applied",
		"order_no", order.OrderNo,
		"vendor", input.Vendor,
		"event", input.Event,
		"status", status,
	)
	return order, nil
}

// Analytics 汇总订单分析数据
func (s *OrderService) Analytics() (*OrderAnalytics, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	agg, err := s.orders.GetAnalytics(monthStart)
	if err != nil {
		return nil, err
	}
	recent, err := s.orders.ListRecent(10)
	if err != nil {
		return nil, err
	}

	average := decimal.Zero
	if agg.TotalOrders > 0 {
		average = agg.TotalRevenue.Div(decimal.NewFromInt(agg.TotalOrders)).Round(2)
	}
	return &OrderAnalytics{
		TotalOrders:       agg.TotalOrders,
		TotalRevenue:      models.NewMoneyFromDecimal(agg.TotalRevenue),
		MonthlyRevenue:    models.NewMoneyFromDecimal(agg.MonthlyRevenue),
		AverageOrderValue: models.NewMoneyFromDecimal(average),
		PendingOrders:     agg.PendingOrders,
		ProcessingOrders:  agg.ProcessingOrders,
		CompletedOrders:   agg.CompletedOrders,
		StatusBreakdown:   agg.StatusBreakdown,
		RecentOrders:      recent,
	}, nil
}

func (s *OrderService) enqueueSupplierDispatch(order *models.Order) {
	if s.queue == nil || !s.queue.Enabled() {
		return
	}
	if err := s.queue.EnqueueSupplierDispatch(queue.SupplierDispatchPayload{
		OrderID: order.ID,
		Vendor:  order.SupplierName,
	}); err != nil {
		logger.Warnw("supplier_dispatch_enqueue_failed", "order_no", order.OrderNo, "error", err)
	}
}

func (s *OrderService) enqueueStatusEmail(orderID uint, status string) {
	if s.queue == nil || !s.queue.Enabled() {
		return
	}
	if err := s.queue.EnqueueOrderStatusEmail(queue.OrderStatusEmailPayload{
		OrderID: orderID,
		Status:  status,
	}); err != nil {
		logger.Warnw("order_status_email_enqueue_failed", "order_id", orderID, "error", err)
	}
}

func generateOrderNo() string {
	return constants.OrderNumberPrefix + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func resolveVariantID(product *models.Product, size, color string) string {
	if product == nil || len(product.VariantsJSON) == 0 {
		return ""
	}
	keys := []string{
		strings.TrimSpace(size) + "/" + strings.TrimSpace(color),
		strings.TrimSpace(size),
		strings.TrimSpace(color),
		"default",
	}
	for _, key := range keys {
		if key == "" || key == "/" {
			continue
		}
		if value, ok := product.VariantsJSON[key]; ok {
			if id, ok := value.(string); ok && strings.TrimSpace(id) != "" {
				return strings.TrimSpace(id)
			}
		}
	}
	return ""
}
