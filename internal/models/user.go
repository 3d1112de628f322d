package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（推广员与普通客户共用）
type User struct {
	ID              uint           `gorm:"primarykey" json:"id"`                           // 主键
	Email           string         `gorm:"uniqueIndex;not null" json:"email"`              // 邮箱
	DisplayName     string         `gorm:"type:varchar(100)" json:"display_name"`          // 显示名称
	Role            string         `gorm:"type:varchar(20);not null;index" json:"role"`    // 角色
	Status          string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // 状态
	BankName        string         `gorm:"type:varchar(100)" json:"bank_name"`             // 开户银行
	BankAccountName string         `gorm:"type:varchar(100)" json:"bank_account_name"`     // 开户名
	BankAccountNo   string         `gorm:"type:varchar(64)" json:"bank_account_no"`        // 银行账号
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                        // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
