package constants

// 订单状态常量
const (
	OrderStatusPending        = "pending"
	OrderStatusProcessing     = "processing"
	OrderStatusSentToSupplier = "sent_to_supplier"
	OrderStatusInProduction   = "in_production"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// 支付状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 订单优先级常量
const (
	OrderPriorityLow    = "low"
	OrderPriorityMedium = "medium"
	OrderPriorityHigh   = "high"
	OrderPriorityUrgent = "urgent"
)

// 订单号前缀常量
const (
	OrderNumberPrefix         = "HNA-"
	SupplierOrderNumberPrefix = "SUP-"
)

// 推广联盟状态常量（仅 active 参与归因与佣金计提）
const (
	AffiliateStatusActive    = "active"
	AffiliateStatusPending   = "pending"
	AffiliateStatusInactive  = "inactive"
	AffiliateStatusSuspended = "suspended"
)

// 推广佣金结算方式常量（空串表示未设置）
const (
	AffiliatePaymentMethodPaypal  = "paypal"
	AffiliatePaymentMethodBank    = "bank"
	AffiliatePaymentMethodVenmo   = "venmo"
	AffiliatePaymentMethodCashapp = "cashapp"
)

// 推广联盟等级常量
const (
	AffiliateTierBronze   = "Bronze"
	AffiliateTierSilver   = "Silver"
	AffiliateTierGold     = "Gold"
	AffiliateTierPlatinum = "Platinum"
)

// 供应商常量
const (
	SupplierVendorPrintful = "printful"
	SupplierVendorPrintify = "printify"
)

// 供应商回调状态常量
const (
	SupplierEventFulfilled    = "fulfilled"
	SupplierEventShipped      = "shipped"
	SupplierEventInProduction = "in_production"
	SupplierEventCanceled     = "canceled"
)

// 验证码提供方常量
const (
	CaptchaProviderNone  = "none"
	CaptchaProviderImage = "image"
)

// 队列常量
const (
	QueueDefault         = "default"
	TaskSupplierDispatch = "supplier:dispatch"
	TaskOrderStatusEmail = "order:status_email"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "hna"
)

// 币种常量
const (
	SiteCurrencyDefault = "USD"
)
