package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（佣金台账的只读协作方）
type Order struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo     string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	AffiliateID *uint          `gorm:"index" json:"affiliate_id,omitempty"`                       // 归属推广员
	Status      string         `gorm:"index;not null" json:"status"`                              // 订单状态
	Currency    string         `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 含税实付总额
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items     []OrderLineItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`    // 订单项
	Affiliate *User           `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广员
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
