package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testCommissionConfig() config.CommissionConfig {
	return config.CommissionConfig{
		CooldownDays:  7,
		BufferDays:    7,
		TriggerStatus: constants.OrderStatusDelivered,
		Currency:      "CNY",
	}
}

func setupLedgerTest(t *testing.T) (*CommissionService, *WithdrawalService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.Commission{},
		&models.Withdrawal{},
		&models.WithdrawalItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	commissionRepo := repository.NewCommissionRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	cfg := testCommissionConfig()

	commissionService := NewCommissionService(commissionRepo, orderRepo, userRepo, withdrawalRepo, cfg)
	withdrawalService := NewWithdrawalService(withdrawalRepo, commissionRepo, userRepo, cfg)
	return commissionService, withdrawalService, db
}

func createTestAffiliate(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	user := &models.User{
		ID:              id,
		Email:           fmt.Sprintf("affiliate_%d@example.com", id),
		DisplayName:     fmt.Sprintf("推广员%d", id),
		Role:            constants.UserRoleAffiliate,
		Status:          "active",
		BankName:        "测试银行",
		BankAccountName: "张三",
		BankAccountNo:   "6222000011112222",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, cost, recommended, fixed float64) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:             "测试商品",
		CostPrice:        models.NewMoneyFromDecimal(decimal.NewFromFloat(cost)),
		RecommendedPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(recommended)),
		FixedCommission:  models.NewMoneyFromDecimal(decimal.NewFromFloat(fixed)),
		IsActive:         true,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func createTestOrder(t *testing.T, db *gorm.DB, affiliateID *uint, status string, total float64, items []models.OrderLineItem) *models.Order {
	t.Helper()
	now := time.Now()
	order := &models.Order{
		OrderNo:     fmt.Sprintf("SO%d", now.UnixNano()),
		AffiliateID: affiliateID,
		Status:      status,
		Currency:    "CNY",
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(total)),
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func newOrderLineItem(productID uint, quantity int, salePrice float64, commandType string) models.OrderLineItem {
	price := decimal.NewFromFloat(salePrice)
	return models.OrderLineItem{
		ProductID:   productID,
		Quantity:    quantity,
		SalePrice:   models.NewMoneyFromDecimal(price),
		LineTotal:   models.NewMoneyFromDecimal(price.Mul(decimal.NewFromInt(int64(quantity)))),
		CommandType: commandType,
	}
}

func createEligibleCommission(t *testing.T, db *gorm.DB, affiliateID, orderID, lineItemID uint, amount float64, createdAt time.Time) *models.Commission {
	t.Helper()
	eligibleAt := createdAt
	commission := &models.Commission{
		AffiliateID:     affiliateID,
		OrderID:         orderID,
		OrderLineItemID: lineItemID,
		BaseAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(amount)),
		Quantity:        1,
		Amount:          models.NewMoneyFromDecimal(decimal.NewFromFloat(amount)),
		Currency:        "CNY",
		RuleCode:        constants.RuleCodeRecommendedMargin,
		Status:          constants.CommissionStatusEligible,
		EligibleAt:      &eligibleAt,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	if err := db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return commission
}

func TestCalculateForOrderDeductsDeliveryFee(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 215, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	result, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if len(result.Commissions) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(result.Commissions))
	}
	commission := result.Commissions[0]
	if !commission.Amount.Decimal.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected amount 85, got %s", commission.Amount)
	}
	if commission.RuleCode != constants.RuleCodeRecommendedMargin {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeRecommendedMargin, commission.RuleCode)
	}
	if commission.Status != constants.CommissionStatusCalculated {
		t.Fatalf("expected status calculated, got %s", commission.Status)
	}
	if !result.TotalAmount.Decimal.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected total 85, got %s", result.TotalAmount)
	}
	if commission.EligibleAt == nil {
		t.Fatal("expected eligible_at to be set")
	}
	days := time.Until(*commission.EligibleAt).Hours() / 24
	if days < 6.5 || days > 7.5 {
		t.Fatalf("expected eligible_at around 7 days out, got %.2f days", days)
	}
}

func TestCalculateForOrderBufferBeforeTrigger(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusPaid, 200, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	result, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	commission := result.Commissions[0]
	if commission.EligibleAt == nil {
		t.Fatal("expected eligible_at to be set")
	}
	days := time.Until(*commission.EligibleAt).Hours() / 24
	if days < 13.5 || days > 14.5 {
		t.Fatalf("expected eligible_at around 14 days out, got %.2f days", days)
	}
}

func TestCalculateForOrderIdempotent(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 215, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	first, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("first calculate failed: %v", err)
	}
	second, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("second calculate failed: %v", err)
	}
	if len(first.Commissions) != len(second.Commissions) {
		t.Fatalf("expected same commission count, got %d and %d", len(first.Commissions), len(second.Commissions))
	}
	if !first.Commissions[0].Amount.Decimal.Equal(second.Commissions[0].Amount.Decimal) {
		t.Fatalf("expected identical amounts, got %s and %s",
			first.Commissions[0].Amount, second.Commissions[0].Amount)
	}
	if first.Commissions[0].RuleCode != second.Commissions[0].RuleCode {
		t.Fatalf("expected identical rule codes, got %s and %s",
			first.Commissions[0].RuleCode, second.Commissions[0].RuleCode)
	}

	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted commission, got %d", count)
	}
}

func TestCalculateForOrderExchangeNegativeDelivery(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 120, []models.OrderLineItem{
		newOrderLineItem(product.ID, 1, 100, constants.CommandTypeExchange),
	})

	result, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	commission := result.Commissions[0]
	if !commission.Amount.Decimal.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected amount -20, got %s", commission.Amount)
	}
	if commission.RuleCode != constants.RuleCodeExchangeNegativeDelivery {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeExchangeNegativeDelivery, commission.RuleCode)
	}
	if !result.TotalAmount.Decimal.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("expected total -20, got %s", result.TotalAmount)
	}
}

func TestCalculateForOrderMixedExchangeLines(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	// 普通项与换货项混合，整单不按换货订单处理
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 290, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
		newOrderLineItem(product.ID, 1, 80, constants.CommandTypeExchange),
	})

	result, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if len(result.Commissions) != 2 {
		t.Fatalf("expected 2 commissions, got %d", len(result.Commissions))
	}

	byLineItem := make(map[uint]models.Commission, len(result.Commissions))
	for _, commission := range result.Commissions {
		byLineItem[commission.OrderLineItemID] = commission
	}

	// 普通项毛利 100，运费 10 全部按比例落在普通项上
	normal := byLineItem[order.Items[0].ID]
	if normal.RuleCode != constants.RuleCodeRecommendedMargin {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeRecommendedMargin, normal.RuleCode)
	}
	if !normal.Amount.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected amount 90, got %s", normal.Amount)
	}

	// 换货项保持零佣金，不得改写为负运费规则
	exchange := byLineItem[order.Items[1].ID]
	if exchange.RuleCode != constants.RuleCodeExchangeNoCommission {
		t.Fatalf("expected rule %s, got %s", constants.RuleCodeExchangeNoCommission, exchange.RuleCode)
	}
	if !exchange.Amount.Decimal.Equal(decimal.Zero) {
		t.Fatalf("expected amount 0, got %s", exchange.Amount)
	}

	if !result.TotalAmount.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected total 90, got %s", result.TotalAmount)
	}
}

func TestCalculateForOrderPreconditions(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	product := createTestProduct(t, db, 50, 100, 0)

	// 无推广员
	noAffiliate := createTestOrder(t, db, nil, constants.OrderStatusDelivered, 100, []models.OrderLineItem{
		newOrderLineItem(product.ID, 1, 100, constants.CommandTypeNormal),
	})
	if _, err := svc.CalculateForOrder(noAffiliate.ID); !errors.Is(err, ErrNoAffiliate) {
		t.Fatalf("expected ErrNoAffiliate, got %v", err)
	}

	// 非推广员角色
	customer := &models.User{
		ID:        9,
		Email:     "customer@example.com",
		Role:      constants.UserRoleCustomer,
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	wrongRole := createTestOrder(t, db, &customer.ID, constants.OrderStatusDelivered, 100, []models.OrderLineItem{
		newOrderLineItem(product.ID, 1, 100, constants.CommandTypeNormal),
	})
	if _, err := svc.CalculateForOrder(wrongRole.ID); !errors.Is(err, ErrInvalidAffiliate) {
		t.Fatalf("expected ErrInvalidAffiliate, got %v", err)
	}

	// 空订单
	affiliate := createTestAffiliate(t, db, 1)
	empty := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 0, nil)
	if _, err := svc.CalculateForOrder(empty.ID); !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}

	if _, err := svc.CalculateForOrder(99999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCalculateForOrderPartialInvalidPrice(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 100, []models.OrderLineItem{
		newOrderLineItem(product.ID, 1, 100, constants.CommandTypeNormal),
		newOrderLineItem(product.ID, 1, 0, constants.CommandTypeNormal),
	})

	result, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if len(result.Commissions) != 1 {
		t.Fatalf("expected 1 commission, got %d", len(result.Commissions))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 line error, got %d", len(result.Errors))
	}
	if result.Errors[0].Reason != "invalid_price" {
		t.Fatalf("expected reason invalid_price, got %s", result.Errors[0].Reason)
	}
}

func TestCalculateForOrderSkipsFrozenCommissions(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 200, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	if _, err := svc.CalculateForOrder(order.ID); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	// 已越过 calculated 的佣金不应被重复计算覆盖
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).
		Updates(map[string]interface{}{
			"status": constants.CommissionStatusEligible,
			"amount": decimal.NewFromInt(42),
		}).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}

	result, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if !result.Commissions[0].Amount.Decimal.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("expected frozen amount 42, got %s", result.Commissions[0].Amount)
	}
}

func TestRecalculateResetsAndReproduces(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 215, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	first, err := svc.CalculateForOrder(order.ID)
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	// 晋升为可提现后重算仍可回退重置
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).
		Update("status", constants.CommissionStatusEligible).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}

	second, err := svc.Recalculate(order.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if !first.Commissions[0].Amount.Decimal.Equal(second.Commissions[0].Amount.Decimal) {
		t.Fatalf("expected identical amounts, got %s and %s",
			first.Commissions[0].Amount, second.Commissions[0].Amount)
	}
	if second.Commissions[0].Status != constants.CommissionStatusCalculated {
		t.Fatalf("expected status calculated, got %s", second.Commissions[0].Status)
	}
}

func TestProcessEligibleCommissions(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 200, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	if _, err := svc.CalculateForOrder(order.ID); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}

	// 未到期时不晋升
	count, err := svc.ProcessEligibleCommissions()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 promoted, got %d", count)
	}

	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).
		Update("eligible_at", past).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}

	count, err = svc.ProcessEligibleCommissions()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 promoted, got %d", count)
	}

	// 扫描幂等，重跑无副作用
	count, err = svc.ProcessEligibleCommissions()
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 promoted on rerun, got %d", count)
	}

	var commission models.Commission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.Status != constants.CommissionStatusEligible {
		t.Fatalf("expected status eligible, got %s", commission.Status)
	}
}

func TestApplyReturnPolicyCancelsUnpaid(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 200, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	if _, err := svc.CalculateForOrder(order.ID); err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	canceled, err := svc.ApplyReturnPolicy(order.ID)
	if err != nil {
		t.Fatalf("return policy failed: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled, got %d", canceled)
	}

	var commission models.Commission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.Status != constants.CommissionStatusCanceled {
		t.Fatalf("expected status canceled, got %s", commission.Status)
	}
	if commission.Notes == "" {
		t.Fatal("expected audit note on canceled commission")
	}

	// 已支付的佣金不受退货策略影响
	if err := db.Model(&commission).Update("status", constants.CommissionStatusPaid).Error; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	canceled, err = svc.ApplyReturnPolicy(order.ID)
	if err != nil {
		t.Fatalf("return policy failed: %v", err)
	}
	if canceled != 0 {
		t.Fatalf("expected 0 canceled, got %d", canceled)
	}
}

func TestApplyReturnPolicyDetachesPendingWithdrawal(t *testing.T) {
	csvc, wsvc, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order1 := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 100, []models.OrderLineItem{
		newOrderLineItem(product.ID, 1, 100, constants.CommandTypeNormal),
	})
	order2 := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 100, []models.OrderLineItem{
		newOrderLineItem(product.ID, 1, 100, constants.CommandTypeNormal),
	})
	c1 := createEligibleCommission(t, db, affiliate.ID, order1.ID, order1.Items[0].ID, 30, time.Now().Add(-48*time.Hour))
	c2 := createEligibleCommission(t, db, affiliate.ID, order2.ID, order2.Items[0].ID, 20, time.Now().Add(-24*time.Hour))

	result, err := wsvc.CreateWithdrawal(CreateWithdrawalInput{
		AffiliateID:   affiliate.ID,
		Method:        constants.WithdrawalMethodBank,
		CommissionIDs: []uint{c1.ID, c2.ID},
	})
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	withdrawal := result.Withdrawal
	if !withdrawal.Amount.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected amount 50, got %s", withdrawal.Amount)
	}

	// 待审核批次摘除作废佣金并刷新总额
	canceled, err := csvc.ApplyReturnPolicy(order1.ID)
	if err != nil {
		t.Fatalf("return policy failed: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled, got %d", canceled)
	}
	var reloaded models.Withdrawal
	if err := db.First(&reloaded, withdrawal.ID).Error; err != nil {
		t.Fatalf("load withdrawal failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusPending {
		t.Fatalf("expected status pending, got %s", reloaded.Status)
	}
	if !reloaded.Amount.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected amount 20 after detach, got %s", reloaded.Amount)
	}
	var items []models.WithdrawalItem
	if err := db.Where("withdrawal_id = ?", withdrawal.ID).Find(&items).Error; err != nil {
		t.Fatalf("load items failed: %v", err)
	}
	if len(items) != 1 || items[0].CommissionID != c2.ID {
		t.Fatalf("expected single item for commission %d, got %+v", c2.ID, items)
	}
	var commission models.Commission
	if err := db.First(&commission, c1.ID).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.Status != constants.CommissionStatusCanceled {
		t.Fatalf("expected status canceled, got %s", commission.Status)
	}
	if commission.ReservedByWithdrawalID != nil {
		t.Fatal("expected reservation released")
	}

	// 已审批批次金额定格，条目保留作审计
	if _, err := wsvc.Approve(withdrawal.ID, 7); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := csvc.ApplyReturnPolicy(order2.ID); err != nil {
		t.Fatalf("return policy failed: %v", err)
	}
	if err := db.First(&reloaded, withdrawal.ID).Error; err != nil {
		t.Fatalf("load withdrawal failed: %v", err)
	}
	if reloaded.Status != constants.WithdrawalStatusApproved {
		t.Fatalf("expected status approved, got %s", reloaded.Status)
	}
	if !reloaded.Amount.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected amount unchanged, got %s", reloaded.Amount)
	}
	if err := db.Where("withdrawal_id = ?", withdrawal.ID).Find(&items).Error; err != nil {
		t.Fatalf("load items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected item retained on approved batch, got %d", len(items))
	}
}

func TestRejectCommission(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 100, []models.OrderLineItem{
		newOrderLineItem(createTestProduct(t, db, 50, 100, 0).ID, 1, 100, constants.CommandTypeNormal),
	})
	commission := createEligibleCommission(t, db, affiliate.ID, order.ID, order.Items[0].ID, 50, time.Now())

	if _, err := svc.RejectCommission(commission.ID, "  ", 1); !errors.Is(err, ErrRejectReasonRequired) {
		t.Fatalf("expected ErrRejectReasonRequired, got %v", err)
	}

	rejected, err := svc.RejectCommission(commission.ID, "疑似刷单", 1)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.CommissionStatusRejected {
		t.Fatalf("expected status rejected, got %s", rejected.Status)
	}

	// 终态不可再驳回
	if _, err := svc.RejectCommission(commission.ID, "再次驳回", 1); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestHandleOrderStatusChanged(t *testing.T) {
	svc, _, db := setupLedgerTest(t)
	affiliate := createTestAffiliate(t, db, 1)
	product := createTestProduct(t, db, 50, 100, 0)
	order := createTestOrder(t, db, &affiliate.ID, constants.OrderStatusDelivered, 200, []models.OrderLineItem{
		newOrderLineItem(product.ID, 2, 100, constants.CommandTypeNormal),
	})

	if err := svc.HandleOrderStatusChanged(order.ID, constants.OrderStatusDelivered); err != nil {
		t.Fatalf("handle trigger status failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.Commission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 commission, got %d", count)
	}

	if err := svc.HandleOrderStatusChanged(order.ID, constants.OrderStatusReturned); err != nil {
		t.Fatalf("handle returned status failed: %v", err)
	}
	var commission models.Commission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if commission.Status != constants.CommissionStatusCanceled {
		t.Fatalf("expected status canceled, got %s", commission.Status)
	}

	// 无关状态不触发任何处理
	if err := svc.HandleOrderStatusChanged(order.ID, constants.OrderStatusShipped); err != nil {
		t.Fatalf("handle unrelated status failed: %v", err)
	}
}
