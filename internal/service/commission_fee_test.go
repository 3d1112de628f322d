package service

import (
	"strings"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/shopspring/decimal"
)

func newFeeCommission(amount float64, ruleCode string) *models.Commission {
	return &models.Commission{
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(amount)),
		RuleCode: ruleCode,
	}
}

func TestAllocateDeliveryFeeProportional(t *testing.T) {
	// 单条佣金独占正和时承担全部运费
	single := newFeeCommission(100, constants.RuleCodeRecommendedMargin)
	AllocateDeliveryFee([]*models.Commission{single}, decimal.NewFromInt(15), false, time.Now())

	if !single.Amount.Decimal.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected amount 85, got %s", single.Amount)
	}
	if single.Notes == "" || !strings.Contains(single.Notes, "100.00") {
		t.Fatalf("expected audit note with pre-deduction amount, got %q", single.Notes)
	}
}

func TestAllocateDeliveryFeeProportionalSplit(t *testing.T) {
	first := newFeeCommission(60, constants.RuleCodeRecommendedMargin)
	second := newFeeCommission(40, constants.RuleCodeModifiedMargin)
	AllocateDeliveryFee([]*models.Commission{first, second}, decimal.NewFromInt(10), false, time.Now())

	if !first.Amount.Decimal.Equal(decimal.NewFromInt(54)) {
		t.Fatalf("expected first amount 54, got %s", first.Amount)
	}
	if !second.Amount.Decimal.Equal(decimal.NewFromInt(36)) {
		t.Fatalf("expected second amount 36, got %s", second.Amount)
	}
}

func TestAllocateDeliveryFeeExchangeSingle(t *testing.T) {
	commission := newFeeCommission(0, constants.RuleCodeExchangeNoCommission)
	AllocateDeliveryFee([]*models.Commission{commission}, decimal.NewFromInt(20), true, time.Now())

	if !commission.Amount.Decimal.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected amount -20, got %s", commission.Amount)
	}
	if commission.RuleCode != constants.RuleCodeExchangeNegativeDelivery {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeExchangeNegativeDelivery, commission.RuleCode)
	}
}

func TestAllocateDeliveryFeeExchangeSplitSumsExactly(t *testing.T) {
	commissions := []*models.Commission{
		newFeeCommission(0, constants.RuleCodeExchangeNoCommission),
		newFeeCommission(0, constants.RuleCodeExchangeNoCommission),
		newFeeCommission(0, constants.RuleCodeExchangeNoCommission),
	}
	fee := decimal.NewFromInt(20)
	AllocateDeliveryFee(commissions, fee, true, time.Now())

	sum := decimal.Zero
	for _, commission := range commissions {
		if commission.RuleCode != constants.RuleCodeExchangeNegativeDelivery {
			t.Fatalf("expected rule %s, got %s", constants.RuleCodeExchangeNegativeDelivery, commission.RuleCode)
		}
		sum = sum.Add(commission.Amount.Decimal)
	}
	if !sum.Equal(fee.Neg()) {
		t.Fatalf("expected sum %s, got %s", fee.Neg(), sum)
	}
}

func TestAllocateDeliveryFeeDegenerateZeroSum(t *testing.T) {
	first := newFeeCommission(0, constants.RuleCodeModifiedMargin)
	second := newFeeCommission(0, constants.RuleCodeModifiedMargin)
	AllocateDeliveryFee([]*models.Commission{first, second}, decimal.NewFromInt(12), false, time.Now())

	if !first.Amount.Decimal.Equal(decimal.NewFromInt(-12)) {
		t.Fatalf("expected first amount -12, got %s", first.Amount)
	}
	if first.RuleCode != constants.RuleCodeNegativeDeliveryOnly {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeNegativeDeliveryOnly, first.RuleCode)
	}
	if !second.Amount.Decimal.IsZero() {
		t.Fatalf("expected second amount unchanged, got %s", second.Amount)
	}
}

func TestAllocateDeliveryFeeNoop(t *testing.T) {
	commission := newFeeCommission(100, constants.RuleCodeRecommendedMargin)
	AllocateDeliveryFee([]*models.Commission{commission}, decimal.Zero, false, time.Now())
	if !commission.Amount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected amount unchanged, got %s", commission.Amount)
	}
	if commission.Notes != "" {
		t.Fatalf("expected no note, got %q", commission.Notes)
	}

	AllocateDeliveryFee(nil, decimal.NewFromInt(10), false, time.Now())
}

func TestOrderDeliveryFee(t *testing.T) {
	order := &models.Order{
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(215)),
		Items: []models.OrderLineItem{
			{LineTotal: models.NewMoneyFromDecimal(decimal.NewFromInt(200))},
		},
	}
	fee := OrderDeliveryFee(order)
	if !fee.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected fee 15, got %s", fee)
	}

	// 数据异常时负运费按零处理
	order.TotalAmount = models.NewMoneyFromDecimal(decimal.NewFromInt(150))
	if fee := OrderDeliveryFee(order); !fee.IsZero() {
		t.Fatalf("expected zero fee, got %s", fee)
	}
}
