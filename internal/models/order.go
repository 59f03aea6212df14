package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID            uint   `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo       string `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号（HNA- 前缀）
	Status        string `gorm:"index;not null" json:"status"`                              // 订单状态
	PaymentStatus string `gorm:"index;not null" json:"payment_status"`                      // 支付状态
	Priority      string `gorm:"type:varchar(20);not null" json:"priority"`                 // 处理优先级
	Currency      string `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount   Money  `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额

	CustomerName  string `gorm:"type:varchar(100);not null" json:"customer_name"`  // 客户姓名
	CustomerEmail string `gorm:"index;not null" json:"customer_email"`             // 客户邮箱
	CustomerPhone string `gorm:"type:varchar(40)" json:"customer_phone,omitempty"` // 客户电话
	ShipAddress   string `gorm:"type:varchar(300)" json:"ship_address,omitempty"`  // 收货地址
	ShipCity      string `gorm:"type:varchar(100)" json:"ship_city,omitempty"`     // 城市
	ShipState     string `gorm:"type:varchar(100)" json:"ship_state,omitempty"`    // 州/省
	ShipZip       string `gorm:"type:varchar(20)" json:"ship_zip,omitempty"`       // 邮编
	ShipCountry   string `gorm:"type:varchar(100)" json:"ship_country,omitempty"`  // 国家
	Notes         string `gorm:"type:varchar(500)" json:"notes,omitempty"`         // 备注
	ClientIP      string `gorm:"type:varchar(64)" json:"client_ip,omitempty"`      // 下单客户端IP
	Locale        string `gorm:"type:varchar(20)" json:"locale,omitempty"`         // 客户语言

	CheckoutSessionID string `gorm:"index" json:"checkout_session_id,omitempty"` // 托管收银台会话ID

	AffiliateID         *uint      `gorm:"index" json:"affiliate_id,omitempty"`                               // 归因的推广成员ID
	AffiliateCode       string     `gorm:"type:varchar(32);index" json:"affiliate_code,omitempty"`            // 归因的推广码快照
	AffiliateCommission Money      `gorm:"type:decimal(20,2);not null;default:0" json:"affiliate_commission"` // 佣金快照（支付确认时写入）
	CommissionPaid      bool       `gorm:"not null;default:false" json:"commission_paid"`                     // 佣金是否已结算
	CommissionPaidAt    *time.Time `json:"commission_paid_at,omitempty"`                                      // 佣金结算时间

	SupplierName    string     `gorm:"type:varchar(40)" json:"supplier_name,omitempty"`    // 供应商名称
	SupplierOrderID string     `gorm:"index" json:"supplier_order_id,omitempty"`           // 供应商订单号（SUP- 前缀）
	TrackingNumber  string     `gorm:"type:varchar(100)" json:"tracking_number,omitempty"` // 物流单号
	SentToSupplier  *time.Time `gorm:"index" json:"sent_to_supplier_at,omitempty"`         // 派单时间

	PaidAt      *time.Time     `gorm:"index" json:"paid_at"`      // 支付时间
	CancelledAt *time.Time     `gorm:"index" json:"cancelled_at"` // 取消时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`   // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`   // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
