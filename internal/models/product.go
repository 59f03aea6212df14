package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Name         string         `gorm:"type:varchar(200);not null" json:"name"`                    // 商品名称
	SKU          *string        `gorm:"uniqueIndex" json:"sku,omitempty"`                          // SKU（可选，唯一）
	Description  string         `gorm:"type:text" json:"description,omitempty"`                    // 商品描述
	PriceAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 价格金额
	Images       StringArray    `gorm:"type:json" json:"images"`                                   // 图片数组
	Tags         StringArray    `gorm:"type:json" json:"tags"`                                     // 标签数组
	Stock        int            `gorm:"not null;default:0" json:"stock"`                           // 库存数量
	IsActive     bool           `gorm:"default:true;index" json:"is_active"`                       // 是否上架
	SortOrder    int            `gorm:"default:0;index" json:"sort_order"`                         // 排序权重
	SupplierName string         `gorm:"type:varchar(40)" json:"supplier_name,omitempty"`           // 默认供应商
	VariantsJSON JSON           `gorm:"type:json" json:"variants"`                                 // 供应商变体映射（尺码/颜色 -> 变体ID）
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
