package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService 佣金台账业务服务
type CommissionService struct {
	commissionRepo repository.CommissionRepository
	orderRepo      repository.OrderRepository
	userRepo       repository.UserRepository
	withdrawalRepo repository.WithdrawalRepository
	cfg            config.CommissionConfig
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	commissionRepo repository.CommissionRepository,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	withdrawalRepo repository.WithdrawalRepository,
	cfg config.CommissionConfig,
) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		orderRepo:      orderRepo,
		userRepo:       userRepo,
		withdrawalRepo: withdrawalRepo,
		cfg:            cfg,
	}
}

// CommissionLineError 单条订单项的计算失败信息
type CommissionLineError struct {
	OrderLineItemID uint   `json:"order_line_item_id"`
	Reason          string `json:"reason"`
}

// CommissionCalcResult 订单佣金计算结果（部分失败时同时返回成功集合与失败清单）
type CommissionCalcResult struct {
	OrderID     uint                  `json:"order_id"`
	Commissions []models.Commission   `json:"commissions"`
	Errors      []CommissionLineError `json:"errors,omitempty"`
	TotalAmount models.Money          `json:"total_amount"`
}

// 计算路径可覆盖的佣金状态，其余状态视为已冻结
func commissionMutableForCalc(status string) bool {
	return status == constants.CommissionStatusPendingCalc ||
		status == constants.CommissionStatusCalculated
}

// isExchangeOrder 全部订单项均为换货指令时按换货订单处理
func isExchangeOrder(order *models.Order) bool {
	if order == nil || len(order.Items) == 0 {
		return false
	}
	for _, item := range order.Items {
		if item.CommandType != constants.CommandTypeExchange {
			return false
		}
	}
	return true
}

// loadOrderForCalc 加载订单并校验佣金计算前置条件
func (s *CommissionService) loadOrderForCalc(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	if order.AffiliateID == nil || *order.AffiliateID == 0 {
		return nil, ErrNoAffiliate
	}
	affiliate := order.Affiliate
	if affiliate == nil {
		affiliate, err = s.userRepo.GetByID(*order.AffiliateID)
		if err != nil {
			return nil, err
		}
	}
	if affiliate == nil || affiliate.Role != constants.UserRoleAffiliate {
		return nil, ErrInvalidAffiliate
	}
	if len(order.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	return order, nil
}

// eligibleAt 计算可提现时间。订单已达触发状态时只等冷却期，
// 未达触发状态时叠加缓冲期作保守估计。
func (s *CommissionService) eligibleAt(orderStatus string, now time.Time) time.Time {
	days := s.cfg.CooldownDays
	if orderStatus != s.cfg.TriggerStatus {
		days += s.cfg.BufferDays
	}
	return now.Add(time.Duration(days) * 24 * time.Hour)
}

func (s *CommissionService) ledgerCurrency(order *models.Order) string {
	if currency := strings.TrimSpace(order.Currency); currency != "" {
		return currency
	}
	if currency := strings.TrimSpace(s.cfg.Currency); currency != "" {
		return currency
	}
	return constants.DefaultCurrency
}

// CalculateForOrder 计算或更新整单佣金。
// 每个订单项对应一条佣金，定价后对可变集合做一次运费分摊；
// 已越过 calculated 的佣金不被改写。整单写入在一个事务内完成。
func (s *CommissionService) CalculateForOrder(orderID uint) (*CommissionCalcResult, error) {
	order, err := s.loadOrderForCalc(orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	currency := s.ledgerCurrency(order)
	exchange := isExchangeOrder(order)
	eligibleAt := s.eligibleAt(order.Status, now)

	result := &CommissionCalcResult{OrderID: order.ID}

	err = s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.commissionRepo.WithTx(tx)

		existing, err := repo.ListByOrderForUpdate(order.ID, nil)
		if err != nil {
			return err
		}
		byLineItem := make(map[uint]*models.Commission, len(existing))
		for i := range existing {
			byLineItem[existing[i].OrderLineItemID] = &existing[i]
		}

		var mutable []*models.Commission
		var frozen []*models.Commission
		var created []*models.Commission

		for i := range order.Items {
			item := &order.Items[i]
			prior := byLineItem[item.ID]
			if prior != nil && !commissionMutableForCalc(prior.Status) {
				frozen = append(frozen, prior)
				continue
			}

			pricing, err := ResolvePricing(item, &item.Product)
			if err != nil {
				if prior != nil {
					frozen = append(frozen, prior)
				}
				result.Errors = append(result.Errors, CommissionLineError{
					OrderLineItemID: item.ID,
					Reason:          "invalid_price",
				})
				continue
			}

			if prior != nil {
				prior.BaseAmount = models.NewMoneyFromDecimal(pricing.BaseAmount)
				prior.Rate = nil
				prior.Quantity = pricing.Quantity
				prior.Amount = models.NewMoneyFromDecimal(pricing.Amount)
				prior.Currency = currency
				prior.RuleCode = pricing.RuleCode
				prior.Status = constants.CommissionStatusCalculated
				prior.EligibleAt = &eligibleAt
				prior.UpdatedAt = now
				appendCommissionNote(prior, now, fmt.Sprintf(
					"重新计算佣金 %s（规则 %s）",
					pricing.Amount.StringFixed(2), pricing.RuleCode,
				))
				mutable = append(mutable, prior)
				continue
			}

			eligibleCopy := eligibleAt
			commission := &models.Commission{
				AffiliateID:     *order.AffiliateID,
				OrderID:         order.ID,
				OrderLineItemID: item.ID,
				BaseAmount:      models.NewMoneyFromDecimal(pricing.BaseAmount),
				Quantity:        pricing.Quantity,
				Amount:          models.NewMoneyFromDecimal(pricing.Amount),
				Currency:        currency,
				RuleCode:        pricing.RuleCode,
				Status:          constants.CommissionStatusCalculated,
				EligibleAt:      &eligibleCopy,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			appendCommissionNote(commission, now, fmt.Sprintf(
				"计算佣金 %s（规则 %s）",
				pricing.Amount.StringFixed(2), pricing.RuleCode,
			))
			mutable = append(mutable, commission)
			created = append(created, commission)
		}

		AllocateDeliveryFee(mutable, OrderDeliveryFee(order), exchange, now)

		createdSet := make(map[*models.Commission]bool, len(created))
		for _, commission := range created {
			createdSet[commission] = true
		}
		for _, commission := range mutable {
			if createdSet[commission] {
				if err := repo.Create(commission); err != nil {
					return err
				}
				continue
			}
			if err := repo.Update(commission); err != nil {
				return err
			}
		}

		total := decimal.Zero
		for _, commission := range mutable {
			result.Commissions = append(result.Commissions, *commission)
			total = total.Add(commission.Amount.Decimal)
		}
		for _, commission := range frozen {
			result.Commissions = append(result.Commissions, *commission)
			total = total.Add(commission.Amount.Decimal)
		}
		result.TotalAmount = models.NewMoneyFromDecimal(total)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("commission_calculated",
		"order_id", order.ID,
		"commission_count", len(result.Commissions),
		"error_count", len(result.Errors),
		"total_amount", result.TotalAmount.String(),
	)
	return result, nil
}

// Recalculate 将订单下仍可重算的佣金重置后重新计算。
// 只回退 calculated 与 eligible 两种状态，已审批、已支付、
// 已驳回与已作废的佣金不受影响。重复调用结果一致。
func (s *CommissionService) Recalculate(orderID uint) (*CommissionCalcResult, error) {
	if orderID == 0 {
		return nil, ErrNotFound
	}

	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.commissionRepo.WithTx(tx)
		rows, err := repo.ListByOrderForUpdate(orderID, []string{
			constants.CommissionStatusCalculated,
			constants.CommissionStatusEligible,
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		now := time.Now()
		for i := range rows {
			commission := &rows[i]
			commission.Status = constants.CommissionStatusPendingCalc
			commission.EligibleAt = nil
			commission.UpdatedAt = now
			appendCommissionNote(commission, now, "标记重算，金额待重新计算")
			if err := repo.Update(commission); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.CalculateForOrder(orderID)
}

// ApplyReturnPolicy 订单退货或取消时作废全部未支付佣金。
// 作废不可逆，绕过常规审批；被占用的佣金同时解除占用。
// 待审核提现单的条目一并摘除并刷新批次总额，
// 已审批与已驳回的提现单条目保留作审计。
func (s *CommissionService) ApplyReturnPolicy(orderID uint) (int, error) {
	if orderID == 0 {
		return 0, ErrNotFound
	}

	canceled := 0
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.commissionRepo.WithTx(tx)
		rows, err := repo.ListByOrderForUpdate(orderID, nil)
		if err != nil {
			return err
		}
		now := time.Now()
		var canceledIDs []uint
		for i := range rows {
			commission := &rows[i]
			if !CanTransitionCommission(commission.Status, constants.CommissionStatusCanceled) {
				continue
			}
			commission.Status = constants.CommissionStatusCanceled
			commission.ReservedByWithdrawalID = nil
			commission.UpdatedAt = now
			appendCommissionNote(commission, now, "订单退货或取消，佣金作废")
			if err := repo.Update(commission); err != nil {
				return err
			}
			canceledIDs = append(canceledIDs, commission.ID)
			canceled++
		}
		return s.detachCanceledFromPending(tx, canceledIDs, now)
	})
	if err != nil {
		return 0, err
	}

	if canceled > 0 {
		logger.Infow("commission_return_policy_applied",
			"order_id", orderID,
			"canceled_count", canceled,
		)
	}
	return canceled, nil
}

// detachCanceledFromPending 将作废佣金从待审核提现单摘除并刷新总额。
// 挂载关系以条目表为准，待审核阶段佣金行上尚无占用标记。
// 已审批、已驳回的提现单金额已定格，条目不动。
func (s *CommissionService) detachCanceledFromPending(tx *gorm.DB, canceledIDs []uint, now time.Time) error {
	if len(canceledIDs) == 0 {
		return nil
	}
	withdrawalRepo := s.withdrawalRepo.WithTx(tx)
	active, err := withdrawalRepo.ActiveItemCommissionIDs(canceledIDs)
	if err != nil {
		return err
	}
	attached := make(map[uint][]uint)
	for commissionID, withdrawalID := range active {
		attached[withdrawalID] = append(attached[withdrawalID], commissionID)
	}
	for withdrawalID, commissionIDs := range attached {
		withdrawal, err := withdrawalRepo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil || withdrawal.Status != constants.WithdrawalStatusPending {
			continue
		}
		if err := withdrawalRepo.DeleteItems(withdrawal.ID, commissionIDs); err != nil {
			return err
		}
		total, _, err := withdrawalRepo.SumItems(withdrawal.ID)
		if err != nil {
			return err
		}
		withdrawal.Amount = models.NewMoneyFromDecimal(total)
		withdrawal.UpdatedAt = now
		if err := withdrawalRepo.Update(withdrawal); err != nil {
			return err
		}
		logger.Infow("withdrawal_amount_recomputed",
			"withdrawal_id", withdrawal.ID,
			"withdrawal_no", withdrawal.WithdrawalNo,
			"detached_count", len(commissionIDs),
			"amount", withdrawal.Amount.String(),
		)
	}
	return nil
}

// ProcessEligibleCommissions 批量晋升到期佣金为可提现，
// 只扫描 calculated 状态行，可与自身并发重跑
func (s *CommissionService) ProcessEligibleCommissions() (int64, error) {
	now := time.Now()
	count, err := s.commissionRepo.PromoteEligible(now, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Infow("commission_eligible_promoted", "count", count)
	}
	return count, nil
}

// RejectCommission 管理端驳回单条佣金，需给出原因。
// 已被提现单占用的佣金须先经提现单驳回释放，不能在此直接驳回。
func (s *CommissionService) RejectCommission(commissionID uint, reason string, processedBy uint) (*models.Commission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}

	var rejected *models.Commission
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.commissionRepo.WithTx(tx)
		commission, err := repo.GetByIDForUpdate(commissionID)
		if err != nil {
			return err
		}
		if commission == nil {
			return ErrNotFound
		}
		if commission.ReservedByWithdrawalID != nil {
			return ErrAlreadyReserved
		}
		if err := checkCommissionTransition(commission.Status, constants.CommissionStatusRejected); err != nil {
			return err
		}
		now := time.Now()
		commission.Status = constants.CommissionStatusRejected
		commission.UpdatedAt = now
		appendCommissionNote(commission, now, fmt.Sprintf("佣金被驳回（操作人 %d）：%s", processedBy, reason))
		if err := repo.Update(commission); err != nil {
			return err
		}
		rejected = commission
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("commission_rejected",
		"commission_id", rejected.ID,
		"processed_by", processedBy,
	)
	return rejected, nil
}

// HandleOrderStatusChanged 订单状态事件入口。达到触发状态时计算佣金，
// 退货或取消时执行作废策略，其余状态不处理。
func (s *CommissionService) HandleOrderStatusChanged(orderID uint, newStatus string) error {
	switch newStatus {
	case s.cfg.TriggerStatus:
		_, err := s.CalculateForOrder(orderID)
		return err
	case constants.OrderStatusReturned, constants.OrderStatusCanceled:
		_, err := s.ApplyReturnPolicy(orderID)
		return err
	default:
		return nil
	}
}

// ListCommissions 后台佣金列表
func (s *CommissionService) ListCommissions(filter repository.CommissionListFilter) ([]models.Commission, int64, error) {
	return s.commissionRepo.List(filter)
}

// GetCommission 后台佣金详情
func (s *CommissionService) GetCommission(commissionID uint) (*models.Commission, error) {
	commission, err := s.commissionRepo.GetByID(commissionID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrNotFound
	}
	return commission, nil
}
