package models

import (
	"time"

	"gorm.io/gorm"
)

// Withdrawal 提现单（单个推广员的佣金打包批次）
type Withdrawal struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                      // 主键
	WithdrawalNo      string         `gorm:"uniqueIndex;not null" json:"withdrawal_no"`                 // 提现单号
	AffiliateID       uint           `gorm:"not null;index" json:"affiliate_id"`                        // 推广员ID
	Amount            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 批次总额（始终等于条目金额之和）
	Currency          string         `gorm:"type:varchar(10);not null" json:"currency"`                 // 币种
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`             // 状态
	Method            string         `gorm:"type:varchar(20);not null" json:"method"`                   // 提现方式
	BankName          string         `gorm:"type:varchar(100)" json:"bank_name"`                        // 开户银行快照
	BankAccountName   string         `gorm:"type:varchar(100)" json:"bank_account_name"`                // 开户名快照
	BankAccountNo     string         `gorm:"type:varchar(64)" json:"bank_account_no"`                   // 银行账号快照
	PaymentReference  string         `gorm:"type:varchar(128)" json:"payment_reference"`                // 打款流水号
	EvidenceReference string         `gorm:"type:varchar(255)" json:"evidence_reference"`               // 打款凭证
	RejectReason      string         `gorm:"type:varchar(255)" json:"reject_reason"`                    // 驳回原因
	ApprovedAt        *time.Time     `gorm:"index" json:"approved_at,omitempty"`                        // 审批时间
	PaidAt            *time.Time     `gorm:"index" json:"paid_at,omitempty"`                            // 打款时间
	ProcessedBy       *uint          `gorm:"index" json:"processed_by,omitempty"`                       // 处理人
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Affiliate *User            `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"` // 推广员
	Items     []WithdrawalItem `gorm:"foreignKey:WithdrawalID" json:"items,omitempty"`    // 批次条目
}

// TableName 指定表名
func (Withdrawal) TableName() string {
	return "withdrawals"
}

// WithdrawalItem 提现批次条目，锁定一条佣金并冻结挂载时金额
type WithdrawalItem struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                // 主键
	WithdrawalID uint           `gorm:"not null;index" json:"withdrawal_id"`                 // 提现单ID
	CommissionID uint           `gorm:"not null;index" json:"commission_id"`                 // 佣金ID（驳回单保留条目作审计，唯一性由挂载校验保证）
	Amount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 挂载时金额快照
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间

	Commission *Commission `gorm:"foreignKey:CommissionID" json:"commission,omitempty"` // 关联佣金
}

// TableName 指定表名
func (WithdrawalItem) TableName() string {
	return "withdrawal_items"
}
