package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/shopspring/decimal"
)

// OrderDeliveryFee 计算订单的运费部分，非产品金额小于零时按零处理
func OrderDeliveryFee(order *models.Order) decimal.Decimal {
	if order == nil {
		return decimal.Zero
	}
	lineTotal := decimal.Zero
	for _, item := range order.Items {
		lineTotal = lineTotal.Add(item.LineTotal.Decimal)
	}
	fee := order.TotalAmount.Decimal.Sub(lineTotal).Round(2)
	if fee.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return fee
}

// AllocateDeliveryFee 将运费作为扣减分摊到同一订单的佣金集合上。
// 换货订单整体改写为负运费并均分；普通订单按各佣金占正和的比例扣减；
// 正和不存在时整笔运费记到首条佣金上。每次调整都追加审计备注，
// 分摊前金额可由备注还原。
func AllocateDeliveryFee(commissions []*models.Commission, deliveryFee decimal.Decimal, isExchangeOrder bool, now time.Time) {
	if len(commissions) == 0 || deliveryFee.LessThanOrEqual(decimal.Zero) {
		return
	}

	if isExchangeOrder {
		allocateExchangeDeliveryFee(commissions, deliveryFee, now)
		return
	}

	sum := decimal.Zero
	for _, commission := range commissions {
		sum = sum.Add(commission.Amount.Decimal)
	}

	if sum.LessThanOrEqual(decimal.Zero) {
		first := commissions[0]
		before := first.Amount.Decimal.Round(2)
		first.Amount = models.NewMoneyFromDecimal(before.Sub(deliveryFee))
		first.RuleCode = constants.RuleCodeNegativeDeliveryOnly
		appendCommissionNote(first, now, fmt.Sprintf(
			"运费 %s 整笔计入（分摊前金额 %s，规则 %s）",
			deliveryFee.StringFixed(2), before.StringFixed(2), constants.RuleCodeNegativeDeliveryOnly,
		))
		return
	}

	for _, commission := range commissions {
		before := commission.Amount.Decimal.Round(2)
		deduction := deliveryFee.Mul(before).Div(sum).Round(2)
		commission.Amount = models.NewMoneyFromDecimal(before.Sub(deduction))
		appendCommissionNote(commission, now, fmt.Sprintf(
			"运费按比例扣减 %s（分摊前金额 %s，规则 %s）",
			deduction.StringFixed(2), before.StringFixed(2), commission.RuleCode,
		))
	}
}

// allocateExchangeDeliveryFee 换货订单的负运费均分，集合总额精确等于负运费
func allocateExchangeDeliveryFee(commissions []*models.Commission, deliveryFee decimal.Decimal, now time.Time) {
	count := int64(len(commissions))
	share := deliveryFee.Div(decimal.NewFromInt(count)).Round(2)
	// 舍入余数记到首条，保证合计恰为 -deliveryFee
	remainder := deliveryFee.Sub(share.Mul(decimal.NewFromInt(count))).Round(2)

	for i, commission := range commissions {
		before := commission.Amount.Decimal.Round(2)
		amount := share
		if i == 0 {
			amount = amount.Add(remainder)
		}
		commission.Amount = models.NewMoneyFromDecimal(amount.Neg())
		commission.RuleCode = constants.RuleCodeExchangeNegativeDelivery
		appendCommissionNote(commission, now, fmt.Sprintf(
			"换货订单负运费 %s（分摊前金额 %s，规则 %s）",
			amount.Neg().StringFixed(2), before.StringFixed(2), constants.RuleCodeExchangeNegativeDelivery,
		))
	}
}

// appendCommissionNote 追加审计备注，历史备注只增不改
func appendCommissionNote(commission *models.Commission, now time.Time, text string) {
	if commission == nil || strings.TrimSpace(text) == "" {
		return
	}
	line := fmt.Sprintf("[%s] %s", now.Format("2006-01-02 15:04:05"), text)
	if commission.Notes == "" {
		commission.Notes = line
		return
	}
	commission.Notes = commission.Notes + "\n" + line
}
