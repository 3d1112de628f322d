package repository

import (
	"github.com/fenxiao-next/internal/models"
	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口（台账只读）
type ProductRepository interface {
	ListByIDs(ids []uint) ([]models.Product, error)
}

// GormProductRepository GORM 商品仓储
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// ListByIDs 按ID批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var rows []models.Product
	if err := r.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
