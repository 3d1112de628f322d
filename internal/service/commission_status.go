package service

import "github.com/fenxiao-next/internal/constants"

// 佣金状态转移表，未列出的转移一律拒绝
var commissionTransitions = map[string]map[string]bool{
	constants.CommissionStatusPendingCalc: {
		constants.CommissionStatusCalculated: true,
		constants.CommissionStatusRejected:   true,
		constants.CommissionStatusCanceled:   true,
	},
	constants.CommissionStatusCalculated: {
		constants.CommissionStatusPendingCalc: true,
		constants.CommissionStatusEligible:    true,
		constants.CommissionStatusRejected:    true,
		constants.CommissionStatusCanceled:    true,
	},
	constants.CommissionStatusEligible: {
		constants.CommissionStatusPendingCalc: true,
		constants.CommissionStatusApproved:    true,
		constants.CommissionStatusRejected:    true,
		constants.CommissionStatusCanceled:    true,
	},
	constants.CommissionStatusApproved: {
		constants.CommissionStatusEligible: true,
		constants.CommissionStatusPaid:     true,
		constants.CommissionStatusRejected: true,
		constants.CommissionStatusCanceled: true,
	},
	constants.CommissionStatusPaid:     {},
	constants.CommissionStatusRejected: {},
	constants.CommissionStatusCanceled: {},
}

// 提现单状态转移表
var withdrawalTransitions = map[string]map[string]bool{
	constants.WithdrawalStatusPending: {
		constants.WithdrawalStatusApproved: true,
		constants.WithdrawalStatusRejected: true,
	},
	constants.WithdrawalStatusApproved: {
		constants.WithdrawalStatusPaid:     true,
		constants.WithdrawalStatusRejected: true,
	},
	constants.WithdrawalStatusPaid:     {},
	constants.WithdrawalStatusRejected: {},
}

// CanTransitionCommission 判断佣金状态转移是否被允许
func CanTransitionCommission(from, to string) bool {
	allowed, ok := commissionTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// CanTransitionWithdrawal 判断提现单状态转移是否被允许
func CanTransitionWithdrawal(from, to string) bool {
	allowed, ok := withdrawalTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// checkCommissionTransition 校验佣金状态转移，非法时返回 ErrInvalidStateTransition
func checkCommissionTransition(from, to string) error {
	if !CanTransitionCommission(from, to) {
		return ErrInvalidStateTransition
	}
	return nil
}

// checkWithdrawalTransition 校验提现单状态转移
func checkWithdrawalTransition(from, to string) error {
	if !CanTransitionWithdrawal(from, to) {
		return ErrInvalidStateTransition
	}
	return nil
}
