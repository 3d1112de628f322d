package service

import (
	"errors"
	"testing"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/shopspring/decimal"
)

func newTestLineItem(salePrice float64, quantity int, commandType string) *models.OrderLineItem {
	price := decimal.NewFromFloat(salePrice)
	return &models.OrderLineItem{
		Quantity:    quantity,
		SalePrice:   models.NewMoneyFromDecimal(price),
		LineTotal:   models.NewMoneyFromDecimal(price.Mul(decimal.NewFromInt(int64(quantity)))),
		CommandType: commandType,
	}
}

func newTestProduct(cost, recommended, fixed float64) *models.Product {
	return &models.Product{
		Name:             "测试商品",
		CostPrice:        models.NewMoneyFromDecimal(decimal.NewFromFloat(cost)),
		RecommendedPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(recommended)),
		FixedCommission:  models.NewMoneyFromDecimal(decimal.NewFromFloat(fixed)),
		IsActive:         true,
	}
}

func TestResolvePricingExchangeNoCommission(t *testing.T) {
	item := newTestLineItem(100, 2, constants.CommandTypeExchange)
	product := newTestProduct(50, 100, 0)

	result, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if result.RuleCode != constants.RuleCodeExchangeNoCommission {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeExchangeNoCommission, result.RuleCode)
	}
	if !result.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", result.Amount)
	}
}

func TestResolvePricingFixedCommission(t *testing.T) {
	item := newTestLineItem(100, 3, constants.CommandTypeNormal)
	product := newTestProduct(50, 100, 8)

	result, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if result.RuleCode != constants.RuleCodeFixedCommission {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeFixedCommission, result.RuleCode)
	}
	if !result.Amount.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("expected amount 24, got %s", result.Amount)
	}
}

func TestResolvePricingRecommendedMargin(t *testing.T) {
	item := newTestLineItem(100, 2, constants.CommandTypeNormal)
	product := newTestProduct(50, 100, 0)

	result, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if result.RuleCode != constants.RuleCodeRecommendedMargin {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeRecommendedMargin, result.RuleCode)
	}
	if !result.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected amount 100, got %s", result.Amount)
	}
}

func TestResolvePricingRecommendedMarginWithinTolerance(t *testing.T) {
	// 与建议售价差 0.01 以内按建议价规则处理
	item := newTestLineItem(99.99, 1, constants.CommandTypeNormal)
	product := newTestProduct(60, 100, 0)

	result, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if result.RuleCode != constants.RuleCodeRecommendedMargin {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeRecommendedMargin, result.RuleCode)
	}
	if !result.Amount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected amount 40, got %s", result.Amount)
	}
}

func TestResolvePricingModifiedMargin(t *testing.T) {
	item := newTestLineItem(120, 2, constants.CommandTypeNormal)
	product := newTestProduct(50, 100, 8)

	result, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if result.RuleCode != constants.RuleCodeModifiedMargin {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeModifiedMargin, result.RuleCode)
	}
	if !result.Amount.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("expected amount 140, got %s", result.Amount)
	}
}

func TestResolvePricingMarginFlooredAtZero(t *testing.T) {
	// 亏本卖出时毛利按零计，不产生负佣金
	item := newTestLineItem(40, 2, constants.CommandTypeNormal)
	product := newTestProduct(50, 100, 0)

	result, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if result.RuleCode != constants.RuleCodeModifiedMargin {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeModifiedMargin, result.RuleCode)
	}
	if !result.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", result.Amount)
	}
}

func TestResolvePricingInvalidPrice(t *testing.T) {
	item := newTestLineItem(0, 1, constants.CommandTypeNormal)
	product := newTestProduct(50, 100, 0)

	_, err := ResolvePricing(item, product)
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestResolvePricingDeterministic(t *testing.T) {
	item := newTestLineItem(100, 2, constants.CommandTypeNormal)
	product := newTestProduct(50, 100, 0)

	first, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	second, err := ResolvePricing(item, product)
	if err != nil {
		t.Fatalf("resolve pricing failed: %v", err)
	}
	if !first.Amount.Equal(second.Amount) || first.RuleCode != second.RuleCode {
		t.Fatalf("expected identical results, got %s/%s and %s/%s",
			first.Amount, first.RuleCode, second.Amount, second.RuleCode)
	}
}
