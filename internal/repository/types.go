package repository

import "time"

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	OrderID     uint
	OrderNo     string
	Status      string
	RuleCode    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WithdrawalListFilter 查询提现单列表的过滤条件
type WithdrawalListFilter struct {
	Page         int
	PageSize     int
	AffiliateID  uint
	Status       string
	WithdrawalNo string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	OrderNo     string
}
