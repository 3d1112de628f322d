package service

import (
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/shopspring/decimal"
)

// 售价与建议售价视为相等的容差
var priceMatchTolerance = decimal.NewFromFloat(0.01)

// PricingResult 单条订单项的定价结果
type PricingResult struct {
	BaseAmount decimal.Decimal
	Rate       *decimal.Decimal
	Quantity   int
	Amount     decimal.Decimal
	RuleCode   string
}

// ResolvePricing 按定价规则解析单条订单项的佣金。
// 规则按声明顺序命中：换货项零佣金、固定佣金、建议价毛利、改价毛利。
// 毛利为负时按零计，负数金额只会由运费分摊产生。
func ResolvePricing(item *models.OrderLineItem, product *models.Product) (*PricingResult, error) {
	if item == nil || product == nil {
		return nil, ErrNotFound
	}

	salePrice := item.SalePrice.Decimal.Round(2)
	if item.CommandType == constants.CommandTypeExchange {
		return &PricingResult{
			BaseAmount: decimal.Zero,
			Quantity:   item.Quantity,
			Amount:     decimal.Zero,
			RuleCode:   constants.RuleCodeExchangeNoCommission,
		}, nil
	}

	if salePrice.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrice
	}

	quantity := decimal.NewFromInt(int64(item.Quantity))
	costPrice := product.CostPrice.Decimal.Round(2)
	recommendedPrice := product.RecommendedPrice.Decimal.Round(2)
	fixedCommission := product.FixedCommission.Decimal.Round(2)

	priceMatched := salePrice.Sub(recommendedPrice).Abs().LessThanOrEqual(priceMatchTolerance)

	if priceMatched && fixedCommission.GreaterThan(decimal.Zero) {
		return &PricingResult{
			BaseAmount: fixedCommission,
			Quantity:   item.Quantity,
			Amount:     fixedCommission.Mul(quantity).Round(2),
			RuleCode:   constants.RuleCodeFixedCommission,
		}, nil
	}

	if priceMatched {
		margin := recommendedPrice.Sub(costPrice)
		if margin.LessThan(decimal.Zero) {
			margin = decimal.Zero
		}
		return &PricingResult{
			BaseAmount: margin.Round(2),
			Quantity:   item.Quantity,
			Amount:     margin.Mul(quantity).Round(2),
			RuleCode:   constants.RuleCodeRecommendedMargin,
		}, nil
	}

	margin := salePrice.Sub(costPrice)
	if margin.LessThan(decimal.Zero) {
		margin = decimal.Zero
	}
	return &PricingResult{
		BaseAmount: margin.Round(2),
		Quantity:   item.Quantity,
		Amount:     margin.Mul(quantity).Round(2),
		RuleCode:   constants.RuleCodeModifiedMargin,
	}, nil
}
