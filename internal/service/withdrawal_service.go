package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
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

// WithdrawalService 提现批次业务服务
type WithdrawalService struct {
	withdrawalRepo repository.WithdrawalRepository
	commissionRepo repository.CommissionRepository
	userRepo       repository.UserRepository
	cfg            config.CommissionConfig
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(
	withdrawalRepo repository.WithdrawalRepository,
	commissionRepo repository.CommissionRepository,
	userRepo repository.UserRepository,
	cfg config.CommissionConfig,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawalRepo: withdrawalRepo,
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		cfg:            cfg,
	}
}

// CreateWithdrawalInput 创建提现单输入。
// CommissionIDs 与 TargetAmount 二选一，均为空时创建空批次。
type CreateWithdrawalInput struct {
	AffiliateID   uint
	Method        string
	CommissionIDs []uint
	TargetAmount  *decimal.Decimal
}

// WithdrawalAttachError 单条佣金挂载失败信息
type WithdrawalAttachError struct {
	CommissionID uint   `json:"commission_id"`
	Reason       string `json:"reason"`
}

// WithdrawalAttachResult 批量挂载结果，逐条容错
type WithdrawalAttachResult struct {
	Attached []uint                  `json:"attached"`
	Errors   []WithdrawalAttachError `json:"errors,omitempty"`
}

// CreateWithdrawalResult 创建提现单结果
type CreateWithdrawalResult struct {
	Withdrawal            *models.Withdrawal     `json:"withdrawal"`
	Attach                WithdrawalAttachResult `json:"attach"`
	InsufficientSelection bool                   `json:"insufficient_selection,omitempty"`
}

// MarkPaidInput 打款确认输入
type MarkPaidInput struct {
	PaymentReference  string
	EvidenceReference string
	PaidAt            *time.Time
	ProcessedBy       uint
}

// 挂载失败原因
const (
	attachReasonNotFound        = "not_found"
	attachReasonWrongAffiliate  = "wrong_affiliate"
	attachReasonNotEligible     = "not_eligible"
	attachReasonAlreadyReserved = "already_reserved"
)

// generateWithdrawalNo 生成提现单号
func generateWithdrawalNo(now time.Time) string {
	suffix := int64(0)
	if n, err := rand.Int(rand.Reader, big.NewInt(1000000)); err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("WD%s%06d", now.Format("20060102150405"), suffix)
}

func normalizeWithdrawalMethod(method string) string {
	method = strings.TrimSpace(method)
	switch method {
	case constants.WithdrawalMethodBank, constants.WithdrawalMethodManual:
		return method
	default:
		return constants.WithdrawalMethodBank
	}
}

func (s *WithdrawalService) minWithdrawalAmount() decimal.Decimal {
	raw := strings.TrimSpace(s.cfg.MinWithdrawalAmount)
	if raw == "" {
		return decimal.Zero
	}
	min, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return min
}

// CreateWithdrawal 创建提现单并按需挂载佣金。
// 银行信息在创建时快照，推广员后续改绑不影响历史批次。
// 给定目标金额时按可提现佣金从旧到新贪心选取，允许超出目标；
// 选不够目标金额时批次照常创建并标记不足。
func (s *WithdrawalService) CreateWithdrawal(input CreateWithdrawalInput) (*CreateWithdrawalResult, error) {
	if input.AffiliateID == 0 {
		return nil, ErrNotFound
	}
	affiliate, err := s.userRepo.GetByID(input.AffiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil || affiliate.Role != constants.UserRoleAffiliate {
		return nil, ErrInvalidAffiliate
	}

	var target decimal.Decimal
	autoSelect := false
	if len(input.CommissionIDs) == 0 && input.TargetAmount != nil {
		target = input.TargetAmount.Round(2)
		if target.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidPrice
		}
		if min := s.minWithdrawalAmount(); min.GreaterThan(decimal.Zero) && target.LessThan(min) {
			return nil, ErrBelowMinWithdrawal
		}
		autoSelect = true
	}

	now := time.Now()
	result := &CreateWithdrawalResult{}

	err = s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		withdrawal := &models.Withdrawal{
			WithdrawalNo:    generateWithdrawalNo(now),
			AffiliateID:     affiliate.ID,
			Amount:          models.ZeroMoney(),
			Currency:        strings.TrimSpace(s.cfg.Currency),
			Status:          constants.WithdrawalStatusPending,
			Method:          normalizeWithdrawalMethod(input.Method),
			BankName:        affiliate.BankName,
			BankAccountName: affiliate.BankAccountName,
			BankAccountNo:   affiliate.BankAccountNo,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if withdrawal.Currency == "" {
			withdrawal.Currency = constants.DefaultCurrency
		}
		if err := withdrawalRepo.Create(withdrawal); err != nil {
			return err
		}

		if len(input.CommissionIDs) > 0 {
			attach, err := s.attachLocked(withdrawalRepo, commissionRepo, withdrawal, input.CommissionIDs, now)
			if err != nil {
				return err
			}
			result.Attach = *attach
		} else if autoSelect {
			candidates, err := commissionRepo.ListEligibleForUpdate(affiliate.ID)
			if err != nil {
				return err
			}
			claimed, err := withdrawalRepo.ActiveItemCommissionIDs(collectCommissionIDs(candidates))
			if err != nil {
				return err
			}
			cumulative := decimal.Zero
			var items []models.WithdrawalItem
			for i := range candidates {
				if cumulative.GreaterThanOrEqual(target) {
					break
				}
				commission := &candidates[i]
				if _, taken := claimed[commission.ID]; taken {
					continue
				}
				items = append(items, models.WithdrawalItem{
					WithdrawalID: withdrawal.ID,
					CommissionID: commission.ID,
					Amount:       commission.Amount,
					CreatedAt:    now,
					UpdatedAt:    now,
				})
				cumulative = cumulative.Add(commission.Amount.Decimal)
				result.Attach.Attached = append(result.Attach.Attached, commission.ID)
			}
			if err := withdrawalRepo.CreateItems(items); err != nil {
				return err
			}
			if cumulative.LessThan(target) {
				result.InsufficientSelection = true
			}
		}

		if err := s.recomputeAmount(withdrawalRepo, withdrawal, now); err != nil {
			return err
		}
		result.Withdrawal = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_created",
		"withdrawal_id", result.Withdrawal.ID,
		"withdrawal_no", result.Withdrawal.WithdrawalNo,
		"affiliate_id", affiliate.ID,
		"amount", result.Withdrawal.Amount.String(),
		"insufficient_selection", result.InsufficientSelection,
	)
	return result, nil
}

func collectCommissionIDs(commissions []models.Commission) []uint {
	ids := make([]uint, 0, len(commissions))
	for i := range commissions {
		ids = append(ids, commissions[i].ID)
	}
	return ids
}

// recomputeAmount 以条目合计刷新批次总额，条目存在后批次金额不再独立可信
func (s *WithdrawalService) recomputeAmount(repo repository.WithdrawalRepository, withdrawal *models.Withdrawal, now time.Time) error {
	total, _, err := repo.SumItems(withdrawal.ID)
	if err != nil {
		return err
	}
	withdrawal.Amount = models.NewMoneyFromDecimal(total)
	withdrawal.UpdatedAt = now
	return repo.Update(withdrawal)
}

// attachLocked 在持有佣金行锁的前提下逐条挂载。
// 单条失败只记录原因不中断整批，每条挂载本身是原子的。
func (s *WithdrawalService) attachLocked(
	withdrawalRepo repository.WithdrawalRepository,
	commissionRepo repository.CommissionRepository,
	withdrawal *models.Withdrawal,
	commissionIDs []uint,
	now time.Time,
) (*WithdrawalAttachResult, error) {
	result := &WithdrawalAttachResult{}

	commissions, err := commissionRepo.ListByIDsForUpdate(commissionIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Commission, len(commissions))
	for i := range commissions {
		byID[commissions[i].ID] = &commissions[i]
	}
	claimed, err := withdrawalRepo.ActiveItemCommissionIDs(commissionIDs)
	if err != nil {
		return nil, err
	}

	var items []models.WithdrawalItem
	seen := make(map[uint]bool, len(commissionIDs))
	for _, id := range commissionIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true

		commission := byID[id]
		_, taken := claimed[id]
		switch {
		case commission == nil:
			result.Errors = append(result.Errors, WithdrawalAttachError{CommissionID: id, Reason: attachReasonNotFound})
		case commission.AffiliateID != withdrawal.AffiliateID:
			result.Errors = append(result.Errors, WithdrawalAttachError{CommissionID: id, Reason: attachReasonWrongAffiliate})
		case commission.ReservedByWithdrawalID != nil || taken:
			result.Errors = append(result.Errors, WithdrawalAttachError{CommissionID: id, Reason: attachReasonAlreadyReserved})
		case commission.Status != constants.CommissionStatusEligible:
			result.Errors = append(result.Errors, WithdrawalAttachError{CommissionID: id, Reason: attachReasonNotEligible})
		default:
			items = append(items, models.WithdrawalItem{
				WithdrawalID: withdrawal.ID,
				CommissionID: id,
				Amount:       commission.Amount,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
			result.Attached = append(result.Attached, id)
		}
	}

	if err := withdrawalRepo.CreateItems(items); err != nil {
		return nil, err
	}
	return result, nil
}

// AttachCommissions 向待处理提现单挂载佣金，整批行锁内完成校验与写入
func (s *WithdrawalService) AttachCommissions(withdrawalID uint, commissionIDs []uint) (*WithdrawalAttachResult, error) {
	if withdrawalID == 0 || len(commissionIDs) == 0 {
		return nil, ErrNotFound
	}

	var result *WithdrawalAttachResult
	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		var err error
		withdrawal, err = withdrawalRepo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrNotFound
		}
		if withdrawal.Status != constants.WithdrawalStatusPending {
			return ErrInvalidStateTransition
		}

		now := time.Now()
		result, err = s.attachLocked(withdrawalRepo, commissionRepo, withdrawal, commissionIDs, now)
		if err != nil {
			return err
		}
		return s.recomputeAmount(withdrawalRepo, withdrawal, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_commissions_attached",
		"withdrawal_id", withdrawal.ID,
		"attached_count", len(result.Attached),
		"error_count", len(result.Errors),
		"amount", withdrawal.Amount.String(),
	)
	return result, nil
}

// DetachCommissions 从待处理提现单移除佣金条目并刷新总额
func (s *WithdrawalService) DetachCommissions(withdrawalID uint, commissionIDs []uint) (*models.Withdrawal, error) {
	if withdrawalID == 0 || len(commissionIDs) == 0 {
		return nil, ErrNotFound
	}

	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)

		var err error
		withdrawal, err = withdrawalRepo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrNotFound
		}
		if withdrawal.Status != constants.WithdrawalStatusPending {
			return ErrInvalidStateTransition
		}
		if err := withdrawalRepo.DeleteItems(withdrawal.ID, commissionIDs); err != nil {
			return err
		}
		return s.recomputeAmount(withdrawalRepo, withdrawal, time.Now())
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_commissions_detached",
		"withdrawal_id", withdrawal.ID,
		"amount", withdrawal.Amount.String(),
	)
	return withdrawal, nil
}

// Approve 审批提现单并独占预留全部挂载佣金。
// 任何一条佣金不可预留即整单失败回滚，审批后禁止增删条目。
func (s *WithdrawalService) Approve(withdrawalID uint, processedBy uint) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		var err error
		withdrawal, err = withdrawalRepo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrNotFound
		}
		if err := checkWithdrawalTransition(withdrawal.Status, constants.WithdrawalStatusApproved); err != nil {
			return err
		}

		items, err := withdrawalRepo.ListItems(withdrawal.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrWithdrawalHasNoItems
		}
		ids := make([]uint, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.CommissionID)
		}

		commissions, err := commissionRepo.ListByIDsForUpdate(ids)
		if err != nil {
			return err
		}
		if len(commissions) != len(ids) {
			return ErrNotEligible
		}

		now := time.Now()
		for i := range commissions {
			commission := &commissions[i]
			if commission.ReservedByWithdrawalID != nil {
				return ErrAlreadyReserved
			}
			if commission.Status != constants.CommissionStatusEligible {
				return ErrNotEligible
			}
			if err := checkCommissionTransition(commission.Status, constants.CommissionStatusApproved); err != nil {
				return err
			}
			reservedBy := withdrawal.ID
			commission.ReservedByWithdrawalID = &reservedBy
			commission.Status = constants.CommissionStatusApproved
			commission.UpdatedAt = now
			appendCommissionNote(commission, now, fmt.Sprintf("提现单 %s 审批通过，佣金被预留", withdrawal.WithdrawalNo))
			if err := commissionRepo.Update(commission); err != nil {
				return err
			}
		}

		approvedBy := processedBy
		withdrawal.Status = constants.WithdrawalStatusApproved
		withdrawal.ApprovedAt = &now
		if approvedBy != 0 {
			withdrawal.ProcessedBy = &approvedBy
		}
		withdrawal.UpdatedAt = now
		return withdrawalRepo.Update(withdrawal)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_approved",
		"withdrawal_id", withdrawal.ID,
		"withdrawal_no", withdrawal.WithdrawalNo,
		"processed_by", processedBy,
	)
	return withdrawal, nil
}

// Reject 驳回提现单并释放全部预留。
// 条目保留作审计记录，被预留的佣金回到可提现状态可再次挂载。
func (s *WithdrawalService) Reject(withdrawalID uint, reason string, processedBy uint) (*models.Withdrawal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}

	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		var err error
		withdrawal, err = withdrawalRepo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrNotFound
		}
		if err := checkWithdrawalTransition(withdrawal.Status, constants.WithdrawalStatusRejected); err != nil {
			return err
		}

		items, err := withdrawalRepo.ListItems(withdrawal.ID)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.CommissionID)
		}

		now := time.Now()
		if len(ids) > 0 {
			commissions, err := commissionRepo.ListByIDsForUpdate(ids)
			if err != nil {
				return err
			}
			for i := range commissions {
				commission := &commissions[i]
				if commission.ReservedByWithdrawalID == nil || *commission.ReservedByWithdrawalID != withdrawal.ID {
					continue
				}
				commission.ReservedByWithdrawalID = nil
				if commission.Status == constants.CommissionStatusApproved {
					commission.Status = constants.CommissionStatusEligible
				}
				commission.UpdatedAt = now
				appendCommissionNote(commission, now, fmt.Sprintf("提现单 %s 被驳回，预留释放：%s", withdrawal.WithdrawalNo, reason))
				if err := commissionRepo.Update(commission); err != nil {
					return err
				}
			}
		}

		rejectedBy := processedBy
		withdrawal.Status = constants.WithdrawalStatusRejected
		withdrawal.RejectReason = reason
		if rejectedBy != 0 {
			withdrawal.ProcessedBy = &rejectedBy
		}
		withdrawal.UpdatedAt = now
		return withdrawalRepo.Update(withdrawal)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_rejected",
		"withdrawal_id", withdrawal.ID,
		"withdrawal_no", withdrawal.WithdrawalNo,
		"processed_by", processedBy,
	)
	return withdrawal, nil
}

// MarkPaid 确认打款，级联将全部挂载佣金置为已支付。
// 该操作终态不可逆，之后不接受任何增删或驳回。
func (s *WithdrawalService) MarkPaid(withdrawalID uint, input MarkPaidInput) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal
	err := s.withdrawalRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		var err error
		withdrawal, err = withdrawalRepo.GetByIDForUpdate(withdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrNotFound
		}
		if err := checkWithdrawalTransition(withdrawal.Status, constants.WithdrawalStatusPaid); err != nil {
			return err
		}

		items, err := withdrawalRepo.ListItems(withdrawal.ID)
		if err != nil {
			return err
		}
		ids := make([]uint, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.CommissionID)
		}

		paidAt := time.Now()
		if input.PaidAt != nil {
			paidAt = *input.PaidAt
		}

		if len(ids) > 0 {
			commissions, err := commissionRepo.ListByIDsForUpdate(ids)
			if err != nil {
				return err
			}
			for i := range commissions {
				commission := &commissions[i]
				if err := checkCommissionTransition(commission.Status, constants.CommissionStatusPaid); err != nil {
					return err
				}
				paidCopy := paidAt
				commission.Status = constants.CommissionStatusPaid
				commission.PaidAt = &paidCopy
				commission.UpdatedAt = paidAt
				appendCommissionNote(commission, paidAt, fmt.Sprintf("提现单 %s 已打款，佣金结清", withdrawal.WithdrawalNo))
				if err := commissionRepo.Update(commission); err != nil {
					return err
				}
			}
		}

		processedBy := input.ProcessedBy
		withdrawal.Status = constants.WithdrawalStatusPaid
		withdrawal.PaidAt = &paidAt
		withdrawal.PaymentReference = strings.TrimSpace(input.PaymentReference)
		withdrawal.EvidenceReference = strings.TrimSpace(input.EvidenceReference)
		if processedBy != 0 {
			withdrawal.ProcessedBy = &processedBy
		}
		withdrawal.UpdatedAt = paidAt
		return withdrawalRepo.Update(withdrawal)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("withdrawal_paid",
		"withdrawal_id", withdrawal.ID,
		"withdrawal_no", withdrawal.WithdrawalNo,
		"payment_reference", withdrawal.PaymentReference,
	)
	return withdrawal, nil
}

// GetWithdrawal 提现单详情
func (s *WithdrawalService) GetWithdrawal(withdrawalID uint) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(withdrawalID)
	if err != nil {
		return nil, err
	}
	if withdrawal == nil {
		return nil, ErrNotFound
	}
	return withdrawal, nil
}

// ListWithdrawals 后台提现单列表
func (s *WithdrawalService) ListWithdrawals(filter repository.WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	return s.withdrawalRepo.List(filter)
}
