package models

import (
	"math"
	"time"
)

// Affiliate 推广联盟成员表
type Affiliate struct {
	ID               uint      `gorm:"primarykey" json:"id"`                                           // 主键
	Name             string    `gorm:"type:varchar(100);not null" json:"name"`                         // 成员名称
	Email            string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"email"`            // 邮箱
	Code             string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`              // 推广码（统一大写）
	CommissionRate   float64   `gorm:"not null;default:10" json:"commission_rate"`                     // 佣金比例（百分比）
	Tier             string    `gorm:"type:varchar(20);not null;index" json:"tier"`                    // 等级
	Status           string    `gorm:"type:varchar(20);not null;index" json:"status"`                  // 状态
	TotalSales       int64     `gorm:"not null;default:0" json:"total_sales"`                          // 累计成交笔数
	TotalRevenue     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_revenue"`     // 累计带来营收
	TotalCommission  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission"`  // 累计佣金
	UnpaidCommission Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unpaid_commission"` // 未结算佣金
	Clicks           int64     `gorm:"not null;default:0" json:"clicks"`                               // 点击数
	Conversions      int64     `gorm:"not null;default:0" json:"conversions"`                          // 转化数
	PaymentMethod    string    `gorm:"type:varchar(20)" json:"payment_method"`                         // 结算方式（paypal/bank/venmo/cashapp）
	PaymentDetails   string    `gorm:"type:varchar(300)" json:"payment_details"`                       // 结算账户详情
	Notes            string    `gorm:"type:varchar(500)" json:"notes"`                                 // 备注
	CreatedAt        time.Time `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt        time.Time `gorm:"index" json:"updated_at"`                                        // 更新时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// ConversionRate 点击转化率（百分比，保留 2 位小数）
func (a *Affiliate) ConversionRate() float64 {
	if a == nil || a.Clicks <= 0 {
		return 0
	}
	rate := float64(a.Conversions) / float64(a.Clicks) * 100
	return math.Round(rate*100) / 100
}
