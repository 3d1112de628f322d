package service

import "errors"

// 业务错误定义，处理器按 errors.Is 映射为响应码
var (
	ErrNotFound               = errors.New("record not found")
	ErrNoAffiliate            = errors.New("order has no affiliate")
	ErrInvalidAffiliate       = errors.New("order affiliate is not in affiliate role")
	ErrEmptyOrder             = errors.New("order has no line items")
	ErrInvalidPrice           = errors.New("line item sale price is invalid")
	ErrAlreadyReserved        = errors.New("commission already reserved by another withdrawal")
	ErrNotEligible            = errors.New("commission is not eligible for attachment")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrRejectReasonRequired   = errors.New("reject reason is required")
	ErrBelowMinWithdrawal     = errors.New("target amount is below minimum withdrawal amount")
	ErrWithdrawalHasNoItems   = errors.New("withdrawal has no attached commissions")
)
