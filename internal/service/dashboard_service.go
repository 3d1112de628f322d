package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fenxiao-next/internal/cache"
	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
)

// DashboardService 台账看板聚合服务（只读）
type DashboardService struct {
	commissionRepo repository.CommissionRepository
	withdrawalRepo repository.WithdrawalRepository
	cfg            config.CommissionConfig
}

// NewDashboardService 创建看板服务
func NewDashboardService(
	commissionRepo repository.CommissionRepository,
	withdrawalRepo repository.WithdrawalRepository,
	cfg config.CommissionConfig,
) *DashboardService {
	return &DashboardService{
		commissionRepo: commissionRepo,
		withdrawalRepo: withdrawalRepo,
		cfg:            cfg,
	}
}

// LedgerOverview 全局台账概览
type LedgerOverview struct {
	CommissionByStatus map[string]models.Money `json:"commission_by_status"`
	WithdrawalByStatus map[string]int64        `json:"withdrawal_by_status"`
	TotalPaidOut       models.Money            `json:"total_paid_out"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

// AffiliateSummary 单个推广员的佣金汇总
type AffiliateSummary struct {
	AffiliateID         uint         `json:"affiliate_id"`
	PendingCommission   models.Money `json:"pending_commission"`
	AvailableCommission models.Money `json:"available_commission"`
	ReservedCommission  models.Money `json:"reserved_commission"`
	PaidCommission      models.Money `json:"paid_commission"`
}

func (s *DashboardService) cacheTTL() time.Duration {
	seconds := s.cfg.DashboardCacheSeconds
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// GetOverview 获取全局概览，命中缓存时直接返回
func (s *DashboardService) GetOverview(ctx context.Context, forceRefresh bool) (*LedgerOverview, error) {
	cacheKey := "ledger:overview"
	if !forceRefresh {
		var cached LedgerOverview
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	commissionSums, err := s.commissionRepo.SumByStatus(0)
	if err != nil {
		return nil, err
	}
	withdrawalCounts, err := s.withdrawalRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	paidOut, err := s.withdrawalRepo.SumPaidAmount()
	if err != nil {
		return nil, err
	}

	overview := &LedgerOverview{
		CommissionByStatus: make(map[string]models.Money, len(commissionSums)),
		WithdrawalByStatus: withdrawalCounts,
		TotalPaidOut:       models.NewMoneyFromDecimal(paidOut),
		GeneratedAt:        time.Now(),
	}
	for status, total := range commissionSums {
		overview.CommissionByStatus[status] = models.NewMoneyFromDecimal(total)
	}

	_ = cache.SetJSON(ctx, cacheKey, overview, s.cacheTTL())
	return overview, nil
}

// GetAffiliateSummary 获取推广员佣金汇总
func (s *DashboardService) GetAffiliateSummary(ctx context.Context, affiliateID uint, forceRefresh bool) (*AffiliateSummary, error) {
	if affiliateID == 0 {
		return nil, ErrNotFound
	}

	cacheKey := fmt.Sprintf("ledger:affiliate:%d", affiliateID)
	if !forceRefresh {
		var cached AffiliateSummary
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	pending, err := s.commissionRepo.SumByAffiliate(affiliateID, []string{
		constants.CommissionStatusPendingCalc,
		constants.CommissionStatusCalculated,
	}, false)
	if err != nil {
		return nil, err
	}
	available, err := s.commissionRepo.SumByAffiliate(affiliateID, []string{
		constants.CommissionStatusEligible,
	}, true)
	if err != nil {
		return nil, err
	}
	reserved, err := s.commissionRepo.SumByAffiliate(affiliateID, []string{
		constants.CommissionStatusApproved,
	}, false)
	if err != nil {
		return nil, err
	}
	paid, err := s.commissionRepo.SumByAffiliate(affiliateID, []string{
		constants.CommissionStatusPaid,
	}, false)
	if err != nil {
		return nil, err
	}

	summary := &AffiliateSummary{
		AffiliateID:         affiliateID,
		PendingCommission:   models.NewMoneyFromDecimal(pending),
		AvailableCommission: models.NewMoneyFromDecimal(available),
		ReservedCommission:  models.NewMoneyFromDecimal(reserved),
		PaidCommission:      models.NewMoneyFromDecimal(paid),
	}

	_ = cache.SetJSON(ctx, cacheKey, summary, s.cacheTTL())
	return summary, nil
}
