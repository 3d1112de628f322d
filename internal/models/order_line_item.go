package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderLineItem 订单项表
type OrderLineItem struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID     uint           `gorm:"index;not null" json:"order_id"`                          // 订单ID
	ProductID   uint           `gorm:"index;not null" json:"product_id"`                        // 商品ID
	Quantity    int            `gorm:"not null" json:"quantity"`                                // 数量
	SalePrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"sale_price"` // 实际成交单价
	LineTotal   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"line_total"`  // 小计
	CommandType string         `gorm:"type:varchar(20);not null;default:'normal'" json:"command_type"` // 指令类型（normal/exchange）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 商品快照来源
}

// TableName 指定表名
func (OrderLineItem) TableName() string {
	return "order_line_items"
}
