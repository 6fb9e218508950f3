package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	"github.com/bitfantasy/sitepm/internal/shared/storage"
	"github.com/google/uuid"
)

// AttachmentService 投标附件服务，文件本体走对象存储
type AttachmentService struct {
	attachmentRepo *repository.AttachmentRepository
	bidRepo        *repository.BidRepository
	store          *storage.ObjectStore
}

func NewAttachmentService(attachmentRepo *repository.AttachmentRepository, bidRepo *repository.BidRepository, store *storage.ObjectStore) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		bidRepo:        bidRepo,
		store:          store,
	}
}

// Upload 上传附件。对象名带投标ID前缀和时间戳避免覆盖。
func (s *AttachmentService) Upload(ctx context.Context, rfpID, bidID, fileName, contentType string, reader io.Reader, size int64, userID string) (*entity.BidAttachment, error) {
	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.RFPID != rfpID {
		return nil, ErrBidNotFound
	}
	if s.store == nil {
		return nil, fmt.Errorf("对象存储未配置")
	}

	objectName := fmt.Sprintf("bids/%s/%d%s", bidID, time.Now().UnixNano(), filepath.Ext(fileName))
	if err := s.store.Put(ctx, objectName, reader, size, contentType); err != nil {
		return nil, err
	}

	attachment := &entity.BidAttachment{
		ID:         uuid.New().String()[:32],
		BidID:      bidID,
		FileName:   fileName,
		ObjectPath: objectName,
		FileSize:   size,
		MimeType:   contentType,
		UploadedBy: userID,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// List 列出投标的全部附件
func (s *AttachmentService) List(ctx context.Context, rfpID, bidID string) ([]entity.BidAttachment, error) {
	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.RFPID != rfpID {
		return nil, ErrBidNotFound
	}
	return s.attachmentRepo.FindByBid(ctx, bidID)
}

// Download 下载附件，调用方负责Close
func (s *AttachmentService) Download(ctx context.Context, attachmentID string) (io.ReadCloser, *entity.BidAttachment, error) {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil, fmt.Errorf("附件不存在: %s", attachmentID)
		}
		return nil, nil, err
	}
	if s.store == nil {
		return nil, attachment, fmt.Errorf("对象存储未配置")
	}
	reader, err := s.store.Get(ctx, attachment.ObjectPath)
	if err != nil {
		return nil, nil, err
	}
	return reader, attachment, nil
}

// Delete 删除附件，对象存储删除失败不阻塞库记录删除
func (s *AttachmentService) Delete(ctx context.Context, attachmentID string) error {
	attachment, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil
		}
		return err
	}
	if s.store != nil {
		_ = s.store.Remove(ctx, attachment.ObjectPath)
	}
	return s.attachmentRepo.Delete(ctx, attachmentID)
}
