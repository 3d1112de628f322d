package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionRepository 佣金台账数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	GetByID(id uint) (*models.Commission, error)
	GetByIDForUpdate(id uint) (*models.Commission, error)
	GetByLineItemAndAffiliate(lineItemID, affiliateID uint) (*models.Commission, error)
	Create(commission *models.Commission) error
	Update(commission *models.Commission) error
	BatchUpdate(ids []uint, updates map[string]interface{}) error
	List(filter CommissionListFilter) ([]models.Commission, int64, error)
	ListByOrder(orderID uint, statuses []string) ([]models.Commission, error)
	ListByOrderForUpdate(orderID uint, statuses []string) ([]models.Commission, error)
	ListByIDsForUpdate(ids []uint) ([]models.Commission, error)
	ListEligibleForUpdate(affiliateID uint) ([]models.Commission, error)
	PromoteEligible(before, now time.Time) (int64, error)
	SumByAffiliate(affiliateID uint, statuses []string, unreservedOnly bool) (decimal.Decimal, error)
	SumByStatus(affiliateID uint) (map[string]decimal.Decimal, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Preload("Affiliate").Preload("Order").Preload("OrderLineItem").First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByIDForUpdate 按ID锁定获取佣金记录
func (r *GormCommissionRepository) GetByIDForUpdate(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := withRowLock(r.db).First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetByLineItemAndAffiliate 按订单项与推广员获取佣金
func (r *GormCommissionRepository) GetByLineItemAndAffiliate(lineItemID, affiliateID uint) (*models.Commission, error) {
	if lineItemID == 0 || affiliateID == 0 {
		return nil, nil
	}
	var commission models.Commission
	if err := r.db.Where("order_line_item_id = ? AND affiliate_id = ?", lineItemID, affiliateID).
		First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// Update 更新佣金记录
func (r *GormCommissionRepository) Update(commission *models.Commission) error {
	return r.db.Save(commission).Error
}

// BatchUpdate 批量更新佣金记录
func (r *GormCommissionRepository) BatchUpdate(ids []uint, updates map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Commission{}).Where("id IN ?", ids).Updates(updates).Error
}

// List 查询佣金列表
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.Commission, int64, error) {
	query := r.db.Model(&models.Commission{}).
		Preload("Affiliate").
		Preload("Order").
		Preload("OrderLineItem")
	if filter.AffiliateID != 0 {
		query = query.Where("commissions.affiliate_id = ?", filter.AffiliateID)
	}
	if filter.OrderID != 0 {
		query = query.Where("commissions.order_id = ?", filter.OrderID)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Joins("LEFT JOIN orders ON orders.id = commissions.order_id").
			Where("orders.order_no LIKE ?", "%"+orderNo+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("commissions.status = ?", status)
	}
	if ruleCode := strings.TrimSpace(filter.RuleCode); ruleCode != "" {
		query = query.Where("commissions.rule_code = ?", ruleCode)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("commissions.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("commissions.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Commission
	if err := query.Order("commissions.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListByOrder 按订单查询佣金记录
func (r *GormCommissionRepository) ListByOrder(orderID uint, statuses []string) ([]models.Commission, error) {
	if orderID == 0 {
		return []models.Commission{}, nil
	}
	query := r.db.Model(&models.Commission{}).Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.Commission
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByOrderForUpdate 按订单查询佣金并加锁
func (r *GormCommissionRepository) ListByOrderForUpdate(orderID uint, statuses []string) ([]models.Commission, error) {
	if orderID == 0 {
		return []models.Commission{}, nil
	}
	query := withRowLock(r.db.Model(&models.Commission{})).
		Where("order_id = ?", orderID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.Commission
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByIDsForUpdate 按ID集合锁定查询（按主键升序，避免交叉加锁死锁）
func (r *GormCommissionRepository) ListByIDsForUpdate(ids []uint) ([]models.Commission, error) {
	if len(ids) == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := withRowLock(r.db).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListEligibleForUpdate 查询并锁定推广员可提现且未被占用的佣金（先进先出）
func (r *GormCommissionRepository) ListEligibleForUpdate(affiliateID uint) ([]models.Commission, error) {
	if affiliateID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := withRowLock(r.db).
		Where("affiliate_id = ? AND status = ? AND reserved_by_withdrawal_id IS NULL",
			affiliateID, constants.CommissionStatusEligible).
		Order("created_at asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PromoteEligible 批量将到期的已计算佣金晋升为可提现
func (r *GormCommissionRepository) PromoteEligible(before, now time.Time) (int64, error) {
	result := r.db.Model(&models.Commission{}).
		Where("status = ? AND eligible_at IS NOT NULL AND eligible_at <= ?",
			constants.CommissionStatusCalculated, before).
		Updates(map[string]interface{}{
			"status":     constants.CommissionStatusEligible,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumByAffiliate 汇总指定状态佣金金额
func (r *GormCommissionRepository) SumByAffiliate(affiliateID uint, statuses []string, unreservedOnly bool) (decimal.Decimal, error) {
	if affiliateID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.Commission{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID, statuses)
	if unreservedOnly {
		query = query.Where("reserved_by_withdrawal_id IS NULL")
	}

	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(amount), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// SumByStatus 按状态汇总金额（affiliateID 为 0 时全量汇总）
func (r *GormCommissionRepository) SumByStatus(affiliateID uint) (map[string]decimal.Decimal, error) {
	query := r.db.Model(&models.Commission{})
	if affiliateID != 0 {
		query = query.Where("affiliate_id = ?", affiliateID)
	}
	var rows []struct {
		Status string          `gorm:"column:status"`
		Total  decimal.Decimal `gorm:"column:total"`
	}
	if err := query.
		Select("status, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total.Round(2)
	}
	return result, nil
}
