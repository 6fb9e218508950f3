package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	"github.com/bitfantasy/sitepm/internal/bidding/uom"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	pmrepo "github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/bitfantasy/sitepm/internal/shared/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BidService 投标服务：录入、提交、撤回、调整项维护
type BidService struct {
	rfpRepo    *repository.RFPRepository
	bidRepo    *repository.BidRepository
	vendorRepo *pmrepo.VendorRepository
	notifier   *notify.Notifier
	logger     *zap.Logger
}

func NewBidService(rfpRepo *repository.RFPRepository, bidRepo *repository.BidRepository, vendorRepo *pmrepo.VendorRepository, notifier *notify.Notifier, logger *zap.Logger) *BidService {
	return &BidService{
		rfpRepo:    rfpRepo,
		bidRepo:    bidRepo,
		vendorRepo: vendorRepo,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateBidInput 创建投标请求
type CreateBidInput struct {
	VendorID string `json:"vendor_id" binding:"required"`
	Notes    string `json:"notes"`
}

// BidItemInput 投标行项请求
type BidItemInput struct {
	RFPLineItemID string          `json:"rfp_line_item_id" binding:"required"`
	UnitPrice     decimal.Decimal `json:"unit_price" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Unit          string          `json:"unit" binding:"omitempty,max=10"`
	Notes         string          `json:"notes"`
}

// AdjustmentInput 投标人自带调整项请求（add/deduct/alternate/allowance）
type AdjustmentInput struct {
	Type        string          `json:"type" binding:"required,oneof=add deduct alternate allowance"`
	Description string          `json:"description" binding:"required,max=500"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Accepted    bool            `json:"accepted"`
}

// GetBid 查询投标。开标前非管理员只能看到脱敏后的投标（金额抹零）。
func (s *BidService) GetBid(ctx context.Context, rfpID, bidID string, isAdmin bool) (*entity.Bid, error) {
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

	if !isAdmin {
		rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
		if err != nil {
			return nil, err
		}
		if rfp.BidOpeningAt == nil || rfp.BidOpeningAt.After(time.Now()) {
			redactBid(bid)
		}
	}
	return bid, nil
}

// ListBids 列出某RFP下全部投标，开标前非管理员看到脱敏版本
func (s *BidService) ListBids(ctx context.Context, rfpID string, isAdmin bool) ([]entity.Bid, error) {
	rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRFPNotFound
		}
		return nil, err
	}

	bids, err := s.bidRepo.FindByRFP(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && (rfp.BidOpeningAt == nil || rfp.BidOpeningAt.After(time.Now())) {
		for i := range bids {
			redactBid(&bids[i])
		}
	}
	return bids, nil
}

// redactBid 开标前抹掉金额字段，只保留投标存在性和状态
func redactBid(bid *entity.Bid) {
	for i := range bid.Items {
		bid.Items[i].UnitPrice = decimal.Zero
		bid.Items[i].TotalPrice = decimal.Zero
	}
	for i := range bid.Adjustments {
		bid.Adjustments[i].Amount = decimal.Zero
	}
}

// CreateBid 为供应商创建投标草稿。每个 (RFP, 供应商) 仅一份。
func (s *BidService) CreateBid(ctx context.Context, rfpID string, input *CreateBidInput, createdBy string) (*entity.Bid, error) {
	rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRFPNotFound
		}
		return nil, err
	}
	if rfp.Status != entity.RFPStatusPublished {
		return nil, precondition(RuleRFPNotPublished, "仅已发布的招标单可投标",
			entity.RFPStatusPublished, rfp.Status)
	}

	vendor, err := s.vendorRepo.FindByID(ctx, input.VendorID)
	if err != nil {
		if err == pmrepo.ErrNotFound {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	if vendor.Status == pmentity.VendorStatusDisbarred {
		return nil, precondition(RuleBidNotEditable, "禁用供应商不能投标",
			pmentity.VendorStatusActive, vendor.Status)
	}

	if existing, err := s.bidRepo.FindByRFPAndVendor(ctx, rfpID, input.VendorID); err == nil && existing != nil {
		return nil, precondition(RuleBidAlreadyExists, "该供应商已对此招标单投标",
			"无投标记录", existing.ID)
	}

	bid := &entity.Bid{
		ID:        uuid.New().String()[:32],
		RFPID:     rfpID,
		VendorID:  input.VendorID,
		Status:    entity.BidStatusDraft,
		CreatedBy: createdBy,
		Notes:     input.Notes,
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		if isDuplicateKey(err) {
			return nil, precondition(RuleBidAlreadyExists, "该供应商已对此招标单投标",
				"无投标记录", input.VendorID)
		}
		return nil, err
	}
	return bid, nil
}

// UpsertItem 录入/更新投标行项。仅草稿状态可编辑，
// 单位非空时必须可折算到清单行项单位。
func (s *BidService) UpsertItem(ctx context.Context, rfpID, bidID string, input *BidItemInput) (*entity.BidItem, error) {
	bid, err := s.editableBid(ctx, rfpID, bidID)
	if err != nil {
		return nil, err
	}

	lineItem, err := s.rfpRepo.FindLineItemByID(ctx, input.RFPLineItemID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrLineItemNotFound
		}
		return nil, err
	}
	if lineItem.RFPID != rfpID {
		return nil, ErrLineItemNotFound
	}

	if input.Unit != "" && input.Unit != lineItem.Unit {
		if _, ok := uom.Convert(input.Unit, lineItem.Unit); !ok {
			return nil, preconditionf(RuleUnknownUnit, lineItem.Unit, input.Unit,
				"单位 %s 无法折算到清单单位 %s", input.Unit, lineItem.Unit)
		}
	}
	if input.UnitPrice.IsNegative() {
		return nil, precondition(RuleInvalidAdjustment, "单价不能为负", ">= 0", input.UnitPrice.String())
	}

	quantity := input.Quantity
	if quantity.IsZero() {
		quantity = lineItem.Quantity
	}

	item := &entity.BidItem{
		BidID:         bid.ID,
		RFPLineItemID: input.RFPLineItemID,
		UnitPrice:     input.UnitPrice,
		Quantity:      quantity,
		Unit:          input.Unit,
		TotalPrice:    input.UnitPrice.Mul(quantity),
		Notes:         input.Notes,
	}

	// 已有同行项投标则覆盖，否则新建
	for i := range bid.Items {
		if bid.Items[i].RFPLineItemID == input.RFPLineItemID {
			item.ID = bid.Items[i].ID
			if err := s.bidRepo.UpdateItem(ctx, item); err != nil {
				return nil, err
			}
			return item, nil
		}
	}
	item.ID = uuid.New().String()[:32]
	if err := s.bidRepo.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem 删除投标行项（制造范围缺口），仅草稿状态允许
func (s *BidService) DeleteItem(ctx context.Context, rfpID, bidID, itemID string) error {
	bid, err := s.editableBid(ctx, rfpID, bidID)
	if err != nil {
		return err
	}
	for i := range bid.Items {
		if bid.Items[i].ID == itemID {
			return s.bidRepo.DeleteItem(ctx, itemID)
		}
	}
	return ErrBidItemNotFound
}

// AddAdjustment 添加投标人自带调整项。提交前后都允许——
// 评标过程中接受/拒绝alternate就是改这里的Accepted。
func (s *BidService) AddAdjustment(ctx context.Context, rfpID, bidID string, input *AdjustmentInput, userID string) (*entity.BidAdjustment, error) {
	bid, err := s.reviewableBid(ctx, rfpID, bidID)
	if err != nil {
		return nil, err
	}
	if !entity.ValidAdjustmentType(input.Type) || entity.IsLevelingType(input.Type) {
		return nil, precondition(RuleInvalidAdjustment, "清标调整项须走清标接口",
			"add/deduct/alternate/allowance", input.Type)
	}

	adj := &entity.BidAdjustment{
		ID:            uuid.New().String()[:32],
		BidID:         bid.ID,
		Type:          input.Type,
		Description:   input.Description,
		Amount:        input.Amount,
		Accepted:      input.Accepted,
		SequenceOrder: len(bid.Adjustments),
		CreatedBy:     userID,
	}
	if err := s.bidRepo.CreateAdjustment(ctx, adj); err != nil {
		return nil, err
	}
	return adj, nil
}

// UpdateAdjustment 更新调整项（含接受/拒绝翻转）
func (s *BidService) UpdateAdjustment(ctx context.Context, rfpID, bidID, adjID string, input *AdjustmentInput) (*entity.BidAdjustment, error) {
	if _, err := s.reviewableBid(ctx, rfpID, bidID); err != nil {
		return nil, err
	}
	adj, err := s.bidRepo.FindAdjustmentByID(ctx, adjID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrAdjustmentNotFound
		}
		return nil, err
	}
	if adj.BidID != bidID {
		return nil, ErrAdjustmentNotFound
	}
	if entity.IsLevelingType(adj.Type) {
		return nil, precondition(RuleInvalidAdjustment, "清标调整项须走清标接口",
			"add/deduct/alternate/allowance", adj.Type)
	}

	adj.Type = input.Type
	adj.Description = input.Description
	adj.Amount = input.Amount
	adj.Accepted = input.Accepted
	if err := s.bidRepo.UpdateAdjustment(ctx, adj); err != nil {
		return nil, err
	}
	return adj, nil
}

// DeleteAdjustment 删除调整项
func (s *BidService) DeleteAdjustment(ctx context.Context, rfpID, bidID, adjID string) error {
	if _, err := s.reviewableBid(ctx, rfpID, bidID); err != nil {
		return err
	}
	adj, err := s.bidRepo.FindAdjustmentByID(ctx, adjID)
	if err != nil || adj.BidID != bidID {
		return ErrAdjustmentNotFound
	}
	if entity.IsLevelingType(adj.Type) {
		return precondition(RuleInvalidAdjustment, "清标调整项须走清标接口",
			"add/deduct/alternate/allowance", adj.Type)
	}
	return s.bidRepo.DeleteAdjustment(ctx, adjID)
}

// SubmitBid 提交投标：草稿转submitted，记录提交时间。
// 截标时间已过则拒绝。提交顺序参与同价排名的先后裁决。
func (s *BidService) SubmitBid(ctx context.Context, rfpID, bidID, userID string) (*entity.Bid, error) {
	bid, err := s.editableBid(ctx, rfpID, bidID)
	if err != nil {
		return nil, err
	}
	if len(bid.Items) == 0 {
		return nil, precondition(RuleBidNotEditable, "投标至少需要一条行项报价",
			">= 1", "0")
	}

	rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	if rfp.DueAt != nil && time.Now().After(*rfp.DueAt) {
		return nil, precondition(RuleBidNotEditable, "已过截标时间",
			rfp.DueAt.Format(time.RFC3339), time.Now().Format(time.RFC3339))
	}

	now := time.Now()
	bid.Status = entity.BidStatusSubmitted
	bid.SubmittedAt = &now
	if err := s.bidRepo.Update(ctx, bid); err != nil {
		return nil, err
	}

	go s.sendBidNotification(context.Background(), notify.EventBidSubmitted, bid, userID)

	return bid, nil
}

// WithdrawBid 撤回投标。开标后不可撤回。
func (s *BidService) WithdrawBid(ctx context.Context, rfpID, bidID, userID string) (*entity.Bid, error) {
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
	if bid.Status != entity.BidStatusDraft && bid.Status != entity.BidStatusSubmitted {
		return nil, precondition(RuleBidNotEditable, "该状态的投标不可撤回",
			entity.BidStatusSubmitted, bid.Status)
	}

	rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	if rfp.BidOpeningAt != nil && time.Now().After(*rfp.BidOpeningAt) {
		return nil, precondition(RuleBidNotEditable, "开标后投标不可撤回",
			"开标前", "开标后")
	}

	now := time.Now()
	bid.Status = entity.BidStatusWithdrawn
	bid.WithdrawnAt = &now
	if err := s.bidRepo.Update(ctx, bid); err != nil {
		return nil, err
	}

	go s.sendBidNotification(context.Background(), notify.EventBidWithdrawn, bid, userID)

	return bid, nil
}

// editableBid 取草稿状态的投标，其余状态一律拒绝编辑
func (s *BidService) editableBid(ctx context.Context, rfpID, bidID string) (*entity.Bid, error) {
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
	if bid.Status != entity.BidStatusDraft {
		return nil, precondition(RuleBidNotEditable, "仅草稿状态的投标可编辑",
			entity.BidStatusDraft, bid.Status)
	}
	return bid, nil
}

// reviewableBid 草稿或已提交的投标，调整项在评标期仍可维护
func (s *BidService) reviewableBid(ctx context.Context, rfpID, bidID string) (*entity.Bid, error) {
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
	if bid.Status != entity.BidStatusDraft && bid.Status != entity.BidStatusSubmitted {
		return nil, precondition(RuleBidNotEditable, "该状态的投标不可维护调整项",
			entity.BidStatusSubmitted, bid.Status)
	}
	return bid, nil
}

func (s *BidService) sendBidNotification(ctx context.Context, eventType string, bid *entity.Bid, userID string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, notify.Event{
		Type:    eventType,
		Subject: bid.RFPID,
		Message: fmt.Sprintf("供应商 %s 的投标 %s 状态变更为 %s", bid.VendorID, bid.ID, bid.Status),
		Actor:   userID,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("发送投标通知失败", zap.String("bid_id", bid.ID), zap.Error(err))
	}
}
