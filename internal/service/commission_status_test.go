package service

import (
	"testing"

	"github.com/fenxiao-next/internal/constants"
)

func TestCommissionTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{constants.CommissionStatusPendingCalc, constants.CommissionStatusCalculated, true},
		{constants.CommissionStatusCalculated, constants.CommissionStatusEligible, true},
		{constants.CommissionStatusCalculated, constants.CommissionStatusPendingCalc, true},
		{constants.CommissionStatusEligible, constants.CommissionStatusApproved, true},
		{constants.CommissionStatusEligible, constants.CommissionStatusPendingCalc, true},
		{constants.CommissionStatusApproved, constants.CommissionStatusEligible, true},
		{constants.CommissionStatusApproved, constants.CommissionStatusPaid, true},
		{constants.CommissionStatusPendingCalc, constants.CommissionStatusEligible, false},
		{constants.CommissionStatusPendingCalc, constants.CommissionStatusPaid, false},
		{constants.CommissionStatusEligible, constants.CommissionStatusPaid, false},
		{constants.CommissionStatusPaid, constants.CommissionStatusEligible, false},
		{constants.CommissionStatusRejected, constants.CommissionStatusPendingCalc, false},
		{constants.CommissionStatusCanceled, constants.CommissionStatusCalculated, false},
		{"unknown", constants.CommissionStatusCalculated, false},
	}
	for _, c := range cases {
		if got := CanTransitionCommission(c.from, c.to); got != c.allowed {
			t.Errorf("commission %s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestWithdrawalTransitions(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{constants.WithdrawalStatusPending, constants.WithdrawalStatusApproved, true},
		{constants.WithdrawalStatusPending, constants.WithdrawalStatusRejected, true},
		{constants.WithdrawalStatusApproved, constants.WithdrawalStatusPaid, true},
		{constants.WithdrawalStatusApproved, constants.WithdrawalStatusRejected, true},
		{constants.WithdrawalStatusPending, constants.WithdrawalStatusPaid, false},
		{constants.WithdrawalStatusPaid, constants.WithdrawalStatusRejected, false},
		{constants.WithdrawalStatusRejected, constants.WithdrawalStatusApproved, false},
	}
	for _, c := range cases {
		if got := CanTransitionWithdrawal(c.from, c.to); got != c.allowed {
			t.Errorf("withdrawal %s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}
