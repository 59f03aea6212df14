package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表（下单时快照商品信息）
type OrderItem struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID           uint           `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ProductID         *uint          `gorm:"index" json:"product_id,omitempty"`                        // 商品ID（商品删除后保留快照）
	Name              string         `gorm:"type:varchar(200);not null" json:"name"`                   // 商品名称快照
	ImageURL          string         `gorm:"type:varchar(500)" json:"image_url,omitempty"`             // 商品图片快照
	UnitPrice         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 单价快照
	Quantity          int            `gorm:"not null" json:"quantity"`                                 // 数量
	TotalPrice        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	Size              string         `gorm:"type:varchar(20)" json:"size,omitempty"`                   // 尺码
	Color             string         `gorm:"type:varchar(40)" json:"color,omitempty"`                  // 颜色
	SupplierVariantID string         `gorm:"type:varchar(100)" json:"supplier_variant_id,omitempty"`   // 供应商变体ID快照
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt         time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
