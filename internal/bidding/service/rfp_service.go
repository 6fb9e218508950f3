package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	"github.com/bitfantasy/sitepm/internal/bidding/uom"
	pmrepo "github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/bitfantasy/sitepm/internal/shared/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RFPService 招标单服务：起草、清单维护、发布、取消
type RFPService struct {
	rfpRepo     *repository.RFPRepository
	bidRepo     *repository.BidRepository
	projectRepo *pmrepo.ProjectRepository
	notifier    *notify.Notifier
	logger      *zap.Logger
}

func NewRFPService(rfpRepo *repository.RFPRepository, bidRepo *repository.BidRepository, projectRepo *pmrepo.ProjectRepository, notifier *notify.Notifier, logger *zap.Logger) *RFPService {
	return &RFPService{
		rfpRepo:     rfpRepo,
		bidRepo:     bidRepo,
		projectRepo: projectRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateRFPInput 创建招标单请求
type CreateRFPInput struct {
	ProjectID   string     `json:"project_id" binding:"required"`
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at"`
	Notes       string     `json:"notes"`
}

// UpdateRFPInput 更新招标单请求，仅草稿可改
type UpdateRFPInput struct {
	Title        string     `json:"title" binding:"omitempty,max=200"`
	Description  *string    `json:"description"`
	DueAt        *time.Time `json:"due_at"`
	BidOpeningAt *time.Time `json:"bid_opening_at"`
	Notes        *string    `json:"notes"`
}

// LineItemInput 清单行项请求
type LineItemInput struct {
	SpecCode    string          `json:"spec_code" binding:"required,max=32"`
	Description string          `json:"description" binding:"max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Unit        string          `json:"unit" binding:"required,max=10"`
	SortOrder   int             `json:"sort_order"`
}

// ListRFPs 分页查询招标单
func (s *RFPService) ListRFPs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.RFP, int64, error) {
	return s.rfpRepo.FindAll(ctx, page, pageSize, filters)
}

// GetRFP 查询单个招标单
func (s *RFPService) GetRFP(ctx context.Context, id string) (*entity.RFP, error) {
	rfp, err := s.rfpRepo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRFPNotFound
		}
		return nil, err
	}
	return rfp, nil
}

// CreateRFP 创建招标单（草稿）
func (s *RFPService) CreateRFP(ctx context.Context, input *CreateRFPInput, createdBy string) (*entity.RFP, error) {
	if _, err := s.projectRepo.FindByID(ctx, input.ProjectID); err != nil {
		if err == pmrepo.ErrNotFound {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	code, err := s.rfpRepo.GenerateCode(ctx)
	if err != nil {
		return nil, err
	}

	rfp := &entity.RFP{
		ID:          uuid.New().String()[:32],
		RFPCode:     code,
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      entity.RFPStatusDraft,
		DueAt:       input.DueAt,
		CreatedBy:   createdBy,
		Notes:       input.Notes,
	}
	if err := s.rfpRepo.Create(ctx, rfp); err != nil {
		return nil, err
	}
	return rfp, nil
}

// UpdateRFP 更新招标单，仅草稿状态允许
func (s *RFPService) UpdateRFP(ctx context.Context, id string, input *UpdateRFPInput) (*entity.RFP, error) {
	rfp, err := s.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	if rfp.Status != entity.RFPStatusDraft {
		return nil, precondition(RuleRFPNotDraft, "仅草稿状态的招标单可修改",
			entity.RFPStatusDraft, rfp.Status)
	}

	if input.Title != "" {
		rfp.Title = input.Title
	}
	if input.Description != nil {
		rfp.Description = *input.Description
	}
	if input.DueAt != nil {
		rfp.DueAt = input.DueAt
	}
	if input.BidOpeningAt != nil {
		rfp.BidOpeningAt = input.BidOpeningAt
	}
	if input.Notes != nil {
		rfp.Notes = *input.Notes
	}
	if err := s.rfpRepo.Update(ctx, rfp); err != nil {
		return nil, err
	}
	return rfp, nil
}

// AddLineItem 添加清单行项，仅草稿状态允许，单位必须是已知计量单位
func (s *RFPService) AddLineItem(ctx context.Context, rfpID string, input *LineItemInput) (*entity.RFPLineItem, error) {
	rfp, err := s.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	if rfp.Status != entity.RFPStatusDraft {
		return nil, precondition(RuleRFPNotDraft, "招标单发布后清单不可修改",
			entity.RFPStatusDraft, rfp.Status)
	}
	if !uom.Known(input.Unit) {
		return nil, precondition(RuleUnknownUnit, "未知计量单位", "已注册单位", input.Unit)
	}
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, precondition(RuleInvalidAdjustment, "数量必须为正", "> 0", input.Quantity.String())
	}

	item := &entity.RFPLineItem{
		ID:          uuid.New().String()[:32],
		RFPID:       rfpID,
		SpecCode:    input.SpecCode,
		Description: input.Description,
		Quantity:    input.Quantity,
		Unit:        input.Unit,
		SortOrder:   input.SortOrder,
	}
	if err := s.rfpRepo.CreateLineItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateLineItem 更新清单行项，仅草稿状态允许
func (s *RFPService) UpdateLineItem(ctx context.Context, rfpID, itemID string, input *LineItemInput) (*entity.RFPLineItem, error) {
	rfp, err := s.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	if rfp.Status != entity.RFPStatusDraft {
		return nil, precondition(RuleRFPNotDraft, "招标单发布后清单不可修改",
			entity.RFPStatusDraft, rfp.Status)
	}

	item, err := s.rfpRepo.FindLineItemByID(ctx, itemID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrLineItemNotFound
		}
		return nil, err
	}
	if item.RFPID != rfpID {
		return nil, ErrLineItemNotFound
	}
	if !uom.Known(input.Unit) {
		return nil, precondition(RuleUnknownUnit, "未知计量单位", "已注册单位", input.Unit)
	}

	item.SpecCode = input.SpecCode
	item.Description = input.Description
	item.Quantity = input.Quantity
	item.Unit = input.Unit
	item.SortOrder = input.SortOrder
	if err := s.rfpRepo.UpdateLineItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteLineItem 删除清单行项，仅草稿状态允许
func (s *RFPService) DeleteLineItem(ctx context.Context, rfpID, itemID string) error {
	rfp, err := s.GetRFP(ctx, rfpID)
	if err != nil {
		return err
	}
	if rfp.Status != entity.RFPStatusDraft {
		return precondition(RuleRFPNotDraft, "招标单发布后清单不可修改",
			entity.RFPStatusDraft, rfp.Status)
	}
	item, err := s.rfpRepo.FindLineItemByID(ctx, itemID)
	if err != nil || item.RFPID != rfpID {
		return ErrLineItemNotFound
	}
	return s.rfpRepo.DeleteLineItem(ctx, itemID)
}

// PublishRFP 发布招标单：至少一条清单行项，须设置开标时间，
// 发布后清单冻结、供应商可开始投标。
func (s *RFPService) PublishRFP(ctx context.Context, id, userID string) (*entity.RFP, error) {
	rfp, err := s.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	if rfp.Status != entity.RFPStatusDraft {
		return nil, precondition(RuleRFPNotDraft, "仅草稿状态的招标单可发布",
			entity.RFPStatusDraft, rfp.Status)
	}
	if len(rfp.LineItems) == 0 {
		return nil, precondition(RuleRFPNotDraft, "招标单至少需要一条清单行项",
			">= 1", "0")
	}
	if rfp.BidOpeningAt == nil {
		return nil, precondition(RuleRFPNotDraft, "发布前必须设置开标时间",
			"非空", "空")
	}

	rfp.Status = entity.RFPStatusPublished
	if err := s.rfpRepo.Update(ctx, rfp); err != nil {
		return nil, err
	}

	go s.sendRFPNotification(context.Background(), rfp, userID)

	return rfp, nil
}

// CancelRFP 取消招标单。已定标的不可取消。
func (s *RFPService) CancelRFP(ctx context.Context, id string) (*entity.RFP, error) {
	rfp, err := s.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	if rfp.Status == entity.RFPStatusAwarded {
		return nil, precondition(RuleRFPAlreadyAwarded, "已定标的招标单不可取消",
			entity.RFPStatusPublished, rfp.Status)
	}
	rfp.Status = entity.RFPStatusCancelled
	if err := s.rfpRepo.Update(ctx, rfp); err != nil {
		return nil, err
	}
	return rfp, nil
}

func (s *RFPService) sendRFPNotification(ctx context.Context, rfp *entity.RFP, userID string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventRFPPublished,
		Subject: rfp.ID,
		Message: fmt.Sprintf("招标单 %s (%s) 已发布", rfp.RFPCode, rfp.Title),
		Actor:   userID,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("发送发布通知失败", zap.String("rfp_id", rfp.ID), zap.Error(err))
	}
}
