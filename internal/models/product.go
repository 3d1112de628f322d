package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（佣金计算的只读协作方）
type Product struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                        // 主键
	Name             string         `gorm:"type:varchar(200);not null" json:"name"`                      // 商品名称
	CostPrice        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"cost_price"`     // 成本价
	RecommendedPrice Money          `gorm:"type:decimal(20,2);not null;default:0" json:"recommended_price"` // 建议售价
	FixedCommission  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"fixed_commission"`  // 固定佣金（0 表示未设置）
	IsActive         bool           `gorm:"not null;default:true" json:"is_active"`                      // 是否上架
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
