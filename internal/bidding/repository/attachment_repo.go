package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"gorm.io/gorm"
)

// AttachmentRepository 投标附件仓库
type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.BidAttachment, error) {
	var attachment entity.BidAttachment
	err := r.db.WithContext(ctx).First(&attachment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &attachment, nil
}

func (r *AttachmentRepository) FindByBid(ctx context.Context, bidID string) ([]entity.BidAttachment, error) {
	var attachments []entity.BidAttachment
	err := r.db.WithContext(ctx).Where("bid_id = ?", bidID).
		Order("created_at ASC").Find(&attachments).Error
	return attachments, err
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment *entity.BidAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.BidAttachment{}, "id = ?", id).Error
}
