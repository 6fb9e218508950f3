package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"gorm.io/gorm"
)

// BidRepository 投标仓库
type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

// FindByID 根据ID查找投标（含行项和调整项）
func (r *BidRepository) FindByID(ctx context.Context, id string) (*entity.Bid, error) {
	var bid entity.Bid
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bid, nil
}

// FindByRFPAndVendor 查找某RFP下某供应商的投标
func (r *BidRepository) FindByRFPAndVendor(ctx context.Context, rfpID, vendorID string) (*entity.Bid, error) {
	var bid entity.Bid
	err := r.db.WithContext(ctx).
		Where("rfp_id = ? AND vendor_id = ?", rfpID, vendorID).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &bid, nil
}

// FindSubmittedByRFP 查找某RFP下全部已提交投标（含行项和调整项）。
// draft/withdrawn的投标永远不进入比价表。排序保证遍历顺序确定：
// 先提交时间、再供应商ID。
func (r *BidRepository) FindSubmittedByRFP(ctx context.Context, rfpID string) ([]entity.Bid, error) {
	var bids []entity.Bid
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC, created_at ASC")
		}).
		Where("rfp_id = ? AND status = ?", rfpID, entity.BidStatusSubmitted).
		Order("submitted_at ASC, vendor_id ASC").
		Find(&bids).Error
	return bids, err
}

// FindByRFP 查找某RFP下全部投标
func (r *BidRepository) FindByRFP(ctx context.Context, rfpID string) ([]entity.Bid, error) {
	var bids []entity.Bid
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("rfp_id = ?", rfpID).
		Order("created_at ASC").
		Find(&bids).Error
	return bids, err
}

// Create 创建投标
func (r *BidRepository) Create(ctx context.Context, bid *entity.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// Update 更新投标
func (r *BidRepository) Update(ctx context.Context, bid *entity.Bid) error {
	return r.db.WithContext(ctx).Save(bid).Error
}

// CreateItem 新增投标行项
func (r *BidRepository) CreateItem(ctx context.Context, item *entity.BidItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItem 更新投标行项
func (r *BidRepository) UpdateItem(ctx context.Context, item *entity.BidItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem 删除投标行项
func (r *BidRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.BidItem{}).Error
}

// FindItemByID 查找投标行项
func (r *BidRepository) FindItemByID(ctx context.Context, itemID string) (*entity.BidItem, error) {
	var item entity.BidItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CreateAdjustment 新增调整项
func (r *BidRepository) CreateAdjustment(ctx context.Context, adj *entity.BidAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

// UpdateAdjustment 更新调整项
func (r *BidRepository) UpdateAdjustment(ctx context.Context, adj *entity.BidAdjustment) error {
	return r.db.WithContext(ctx).Save(adj).Error
}

// DeleteAdjustment 删除调整项
func (r *BidRepository) DeleteAdjustment(ctx context.Context, adjID string) error {
	return r.db.WithContext(ctx).Where("id = ?", adjID).Delete(&entity.BidAdjustment{}).Error
}

// FindAdjustmentByID 查找调整项
func (r *BidRepository) FindAdjustmentByID(ctx context.Context, adjID string) (*entity.BidAdjustment, error) {
	var adj entity.BidAdjustment
	err := r.db.WithContext(ctx).Where("id = ?", adjID).First(&adj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &adj, nil
}

// ReplaceLeveling 整批替换某投标的plug/normalization调整项。
// 删除+插入在同一事务中完成：清标是幂等的，最后一次调用完全覆盖之前的
// plug/normalization行，中途失败不会让投标丢失原有调整。
func (r *BidRepository) ReplaceLeveling(ctx context.Context, bidID string, adjustments []entity.BidAdjustment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bid_id = ? AND type IN ?", bidID,
			[]string{entity.AdjustmentPlug, entity.AdjustmentNormalization}).
			Delete(&entity.BidAdjustment{}).Error; err != nil {
			return err
		}
		if len(adjustments) == 0 {
			return nil
		}
		return tx.Create(&adjustments).Error
	})
}
