package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"gorm.io/gorm"
)

// RFPRepository 招标单仓库
type RFPRepository struct {
	db *gorm.DB
}

func NewRFPRepository(db *gorm.DB) *RFPRepository {
	return &RFPRepository{db: db}
}

// FindAll 查询招标单列表
func (r *RFPRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RFP, int64, error) {
	var items []entity.RFP
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.RFP{})

	if projectID := filters["project_id"]; projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("rfp_code ILIKE ? OR title ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找招标单（含有序清单行项）
func (r *RFPRepository) FindByID(ctx context.Context, id string) (*entity.RFP, error) {
	var rfp entity.RFP
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&rfp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rfp, nil
}

// Create 创建招标单及行项
func (r *RFPRepository) Create(ctx context.Context, rfp *entity.RFP) error {
	return r.db.WithContext(ctx).Create(rfp).Error
}

// Update 更新招标单
func (r *RFPRepository) Update(ctx context.Context, rfp *entity.RFP) error {
	return r.db.WithContext(ctx).Save(rfp).Error
}

// Delete 删除招标单及行项（仅draft状态由service层把关）
func (r *RFPRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rfp_id = ?", id).Delete(&entity.RFPLineItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.RFP{}).Error
	})
}

// CreateLineItem 新增清单行项
func (r *RFPRepository) CreateLineItem(ctx context.Context, item *entity.RFPLineItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateLineItem 更新清单行项
func (r *RFPRepository) UpdateLineItem(ctx context.Context, item *entity.RFPLineItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteLineItem 删除清单行项
func (r *RFPRepository) DeleteLineItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.RFPLineItem{}).Error
}

// FindLineItemByID 查找清单行项
func (r *RFPRepository) FindLineItemByID(ctx context.Context, itemID string) (*entity.RFPLineItem, error) {
	var item entity.RFPLineItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GenerateCode 生成招标单编码 RFP-{year}-{4位}
func (r *RFPRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("RFP-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.RFP{}).
		Select("COALESCE(MAX(rfp_code), '')").
		Where("rfp_code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "RFP-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("RFP-%s-%04d", year, seq), nil
}
