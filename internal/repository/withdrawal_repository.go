package repository

import (
	"errors"
	"strings"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalRepository 提现单数据访问接口
type WithdrawalRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) WithdrawalRepository

	GetByID(id uint) (*models.Withdrawal, error)
	GetByIDForUpdate(id uint) (*models.Withdrawal, error)
	GetByWithdrawalNo(no string) (*models.Withdrawal, error)
	Create(withdrawal *models.Withdrawal) error
	Update(withdrawal *models.Withdrawal) error
	List(filter WithdrawalListFilter) ([]models.Withdrawal, int64, error)

	CreateItems(items []models.WithdrawalItem) error
	DeleteItems(withdrawalID uint, commissionIDs []uint) error
	ListItems(withdrawalID uint) ([]models.WithdrawalItem, error)
	SumItems(withdrawalID uint) (decimal.Decimal, int64, error)
	ActiveItemCommissionIDs(commissionIDs []uint) (map[uint]uint, error)
	CountByStatus() (map[string]int64, error)
	SumPaidAmount() (decimal.Decimal, error)
}

// GormWithdrawalRepository GORM 提现仓储
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建提现仓储
func NewWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWithdrawalRepository) WithTx(tx *gorm.DB) WithdrawalRepository {
	if tx == nil {
		return r
	}
	return &GormWithdrawalRepository{db: tx}
}

// Transaction 执行事务
func (r *GormWithdrawalRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取提现单
func (r *GormWithdrawalRepository) GetByID(id uint) (*models.Withdrawal, error) {
	if id == 0 {
		return nil, nil
	}
	var withdrawal models.Withdrawal
	if err := r.db.Preload("Affiliate").Preload("Items").First(&withdrawal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &withdrawal, nil
}

// GetByIDForUpdate 按ID锁定获取提现单
func (r *GormWithdrawalRepository) GetByIDForUpdate(id uint) (*models.Withdrawal, error) {
	if id == 0 {
		return nil, nil
	}
	var withdrawal models.Withdrawal
	if err := withRowLock(r.db).First(&withdrawal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &withdrawal, nil
}

// GetByWithdrawalNo 按提现单号获取提现单
func (r *GormWithdrawalRepository) GetByWithdrawalNo(no string) (*models.Withdrawal, error) {
	no = strings.TrimSpace(no)
	if no == "" {
		return nil, nil
	}
	var withdrawal models.Withdrawal
	if err := r.db.Preload("Affiliate").Preload("Items").
		Where("withdrawal_no = ?", no).
		First(&withdrawal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &withdrawal, nil
}

// Create 创建提现单
func (r *GormWithdrawalRepository) Create(withdrawal *models.Withdrawal) error {
	return r.db.Create(withdrawal).Error
}

// Update 更新提现单
func (r *GormWithdrawalRepository) Update(withdrawal *models.Withdrawal) error {
	return r.db.Save(withdrawal).Error
}

// List 查询提现单列表
func (r *GormWithdrawalRepository) List(filter WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	query := r.db.Model(&models.Withdrawal{}).Preload("Affiliate")
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if no := strings.TrimSpace(filter.WithdrawalNo); no != "" {
		query = query.Where("withdrawal_no LIKE ?", "%"+no+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Withdrawal
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateItems 批量创建提现明细
func (r *GormWithdrawalRepository) CreateItems(items []models.WithdrawalItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// DeleteItems 删除指定佣金对应的提现明细
func (r *GormWithdrawalRepository) DeleteItems(withdrawalID uint, commissionIDs []uint) error {
	if withdrawalID == 0 || len(commissionIDs) == 0 {
		return nil
	}
	return r.db.Where("withdrawal_id = ? AND commission_id IN ?", withdrawalID, commissionIDs).
		Delete(&models.WithdrawalItem{}).Error
}

// ListItems 查询提现明细
func (r *GormWithdrawalRepository) ListItems(withdrawalID uint) ([]models.WithdrawalItem, error) {
	if withdrawalID == 0 {
		return []models.WithdrawalItem{}, nil
	}
	var items []models.WithdrawalItem
	if err := r.db.Where("withdrawal_id = ?", withdrawalID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SumItems 汇总提现明细金额与条数
func (r *GormWithdrawalRepository) SumItems(withdrawalID uint) (decimal.Decimal, int64, error) {
	if withdrawalID == 0 {
		return decimal.Zero, 0, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
		Count int64           `gorm:"column:item_count"`
	}
	if err := r.db.Model(&models.WithdrawalItem{}).
		Where("withdrawal_id = ?", withdrawalID).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS item_count").
		Scan(&row).Error; err != nil {
		return decimal.Zero, 0, err
	}
	return row.Total.Round(2), row.Count, nil
}

// ActiveItemCommissionIDs 查询佣金当前归属的非驳回提现单（commission_id -> withdrawal_id）
func (r *GormWithdrawalRepository) ActiveItemCommissionIDs(commissionIDs []uint) (map[uint]uint, error) {
	if len(commissionIDs) == 0 {
		return map[uint]uint{}, nil
	}
	var rows []struct {
		CommissionID uint `gorm:"column:commission_id"`
		WithdrawalID uint `gorm:"column:withdrawal_id"`
	}
	if err := r.db.Model(&models.WithdrawalItem{}).
		Joins("INNER JOIN withdrawals ON withdrawals.id = withdrawal_items.withdrawal_id").
		Where("withdrawal_items.commission_id IN ? AND withdrawals.status <> ?",
			commissionIDs, constants.WithdrawalStatusRejected).
		Select("withdrawal_items.commission_id, withdrawal_items.withdrawal_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[uint]uint, len(rows))
	for _, row := range rows {
		result[row.CommissionID] = row.WithdrawalID
	}
	return result, nil
}

// CountByStatus 按状态统计提现单数量
func (r *GormWithdrawalRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:status_count"`
	}
	if err := r.db.Model(&models.Withdrawal{}).
		Select("status, COUNT(*) AS status_count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

// SumPaidAmount 汇总已打款提现金额
func (r *GormWithdrawalRepository) SumPaidAmount() (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Withdrawal{}).
		Where("status = ?", constants.WithdrawalStatusPaid).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}
