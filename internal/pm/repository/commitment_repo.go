package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/sitepm/internal/pm/entity"
	"gorm.io/gorm"
)

// CommitmentRepository 承诺仓库。承诺只由授标事务创建，这里不提供Create。
type CommitmentRepository struct {
	db *gorm.DB
}

func NewCommitmentRepository(db *gorm.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

// FindAll 查询承诺列表
func (r *CommitmentRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Commitment, int64, error) {
	var items []entity.Commitment
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Commitment{})

	if projectID := filters["project_id"]; projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if vendorID := filters["vendor_id"]; vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("contract_no ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Allocations").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找承诺（含分摊）
func (r *CommitmentRepository) FindByID(ctx context.Context, id string) (*entity.Commitment, error) {
	var commitment entity.Commitment
	err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("id = ?", id).
		First(&commitment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &commitment, nil
}

// Update 更新承诺（状态流转）
func (r *CommitmentRepository) Update(ctx context.Context, commitment *entity.Commitment) error {
	return r.db.WithContext(ctx).Save(commitment).Error
}
