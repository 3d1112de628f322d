package models

import (
	"time"

	"gorm.io/gorm"
)

// Commission 佣金台账记录，唯一键为（订单项, 推广员）
type Commission struct {
	ID                     uint           `gorm:"primarykey" json:"id"`                                                                  // 主键
	AffiliateID            uint           `gorm:"not null;index;index:idx_commission_unique,unique" json:"affiliate_id"`                 // 推广员ID
	OrderID                uint           `gorm:"not null;index" json:"order_id"`                                                        // 订单ID
	OrderLineItemID        uint           `gorm:"not null;index;index:idx_commission_unique,unique" json:"order_line_item_id"`           // 订单项ID
	BaseAmount             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`                              // 单件基数（毛利或固定佣金）
	Rate                   *Money         `gorm:"type:decimal(10,2)" json:"rate,omitempty"`                                              // 佣金比例（固定/毛利规则为 NULL）
	Quantity               int            `gorm:"not null;default:0" json:"quantity"`                                                    // 数量
	Amount                 Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                                   // 最终应付金额（可为负）
	Currency               string         `gorm:"type:varchar(10);not null" json:"currency"`                                             // 币种
	RuleCode               string         `gorm:"type:varchar(40);not null;index" json:"rule_code"`                                      // 定价规则
	Status                 string         `gorm:"type:varchar(32);not null;index" json:"status"`                                         // 佣金状态
	EligibleAt             *time.Time     `gorm:"index" json:"eligible_at,omitempty"`                                                    // 可提现时间
	PaidAt                 *time.Time     `gorm:"index" json:"paid_at,omitempty"`                                                        // 支付时间
	ReservedByWithdrawalID *uint          `gorm:"index" json:"reserved_by_withdrawal_id,omitempty"`                                      // 占用该佣金的提现单
	Notes                  string         `gorm:"type:text" json:"notes"`                                                                // 审计备注（只追加）
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`                                                               // 创建时间
	UpdatedAt              time.Time      `gorm:"index" json:"updated_at"`                                                               // 更新时间
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`                                                                        // 软删除时间

	Affiliate            *User          `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`              // 推广员
	Order                *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`                      // 关联订单
	OrderLineItem        *OrderLineItem `gorm:"foreignKey:OrderLineItemID" json:"order_line_item,omitempty"`    // 关联订单项
	ReservedByWithdrawal *Withdrawal    `gorm:"foreignKey:ReservedByWithdrawalID" json:"reserved_by,omitempty"` // 占用提现单
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
