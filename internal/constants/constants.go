package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCompleted      = "completed"
	OrderStatusReturned       = "returned"
	OrderStatusCanceled       = "canceled"
)

// 订单项指令类型常量
const (
	CommandTypeNormal   = "normal"
	CommandTypeExchange = "exchange"
)

// 用户角色常量
const (
	UserRoleCustomer  = "customer"
	UserRoleAffiliate = "affiliate"
	UserRoleAdmin     = "admin"
)

// 佣金状态常量
const (
	CommissionStatusPendingCalc = "pending_calc"
	CommissionStatusCalculated  = "calculated"
	CommissionStatusEligible    = "eligible"
	CommissionStatusApproved    = "approved"
	CommissionStatusPaid        = "paid"
	CommissionStatusRejected    = "rejected"
	CommissionStatusCanceled    = "canceled"
)

// 佣金定价规则常量
const (
	RuleCodeExchangeNoCommission     = "EXCHANGE_NO_COMMISSION"
	RuleCodeFixedCommission          = "FIXED_COMMISSION"
	RuleCodeRecommendedMargin        = "RECOMMENDED_MARGIN"
	RuleCodeModifiedMargin           = "MODIFIED_MARGIN"
	RuleCodeExchangeNegativeDelivery = "EXCHANGE_NEGATIVE_DELIVERY"
	RuleCodeNegativeDeliveryOnly     = "NEGATIVE_DELIVERY_ONLY"
)

// 提现单状态常量
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusPaid     = "paid"
	WithdrawalStatusRejected = "rejected"
)

// 提现方式常量
const (
	WithdrawalMethodBank   = "bank"
	WithdrawalMethodManual = "manual"
)

// 默认币种
const DefaultCurrency = "CNY"

// 异步任务名称常量
const (
	TaskOrderStatusChanged = "commission:order_status"
	TaskCommissionRecalc   = "commission:recalculate"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)
