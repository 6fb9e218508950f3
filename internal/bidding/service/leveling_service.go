package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	"github.com/bitfantasy/sitepm/internal/shared/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LevelingService 评标清标服务：对单个投标整体替换plug/normalization调整项
type LevelingService struct {
	bidRepo    *repository.BidRepository
	tabulation *TabulationService
	notifier   *notify.Notifier
	logger     *zap.Logger
	timeout    time.Duration
}

func NewLevelingService(bidRepo *repository.BidRepository, tabulation *TabulationService, notifier *notify.Notifier, logger *zap.Logger, timeout time.Duration) *LevelingService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LevelingService{
		bidRepo:    bidRepo,
		tabulation: tabulation,
		notifier:   notifier,
		logger:     logger,
		timeout:    timeout,
	}
}

// LevelingAdjustmentInput 单条清标调整项
type LevelingAdjustmentInput struct {
	Type        string          `json:"type" binding:"required,oneof=plug normalization"`
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Accepted    bool            `json:"accepted"`
}

// LevelingResult 清标应用后的即时反馈
type LevelingResult struct {
	BidID         string          `json:"bid_id"`
	AdjustedTotal decimal.Decimal `json:"adjusted_total"`
	Rank          int             `json:"rank"`
}

// ApplyLeveling 整体替换某投标的清标调整项并返回重算后的合计与排名。
// 替换在单事务内完成：先删旧的plug/normalization，再插入新批次，
// 不触碰投标人自带的add/deduct/alternate/allowance调整项。
func (s *LevelingService) ApplyLeveling(ctx context.Context, rfpID, bidID, userID string, inputs []LevelingAdjustmentInput) (*LevelingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, classifyTimeout(ctx, err)
	}
	if bid.RFPID != rfpID {
		return nil, ErrBidNotFound
	}
	if bid.Status != entity.BidStatusSubmitted {
		return nil, precondition(RuleBidNotEditable, "仅已提交的投标可做清标调整",
			entity.BidStatusSubmitted, bid.Status)
	}

	adjustments := make([]entity.BidAdjustment, 0, len(inputs))
	for i, in := range inputs {
		if !entity.IsLevelingType(in.Type) {
			return nil, preconditionf(RuleInvalidAdjustment, "plug/normalization",
				in.Type, "第%d条调整项类型无效: %s", i+1, in.Type)
		}
		adjustments = append(adjustments, entity.BidAdjustment{
			ID:            uuid.New().String()[:32],
			BidID:         bidID,
			Type:          in.Type,
			Description:   in.Description,
			Amount:        in.Amount,
			Accepted:      in.Accepted,
			SequenceOrder: i,
			CreatedBy:     userID,
		})
	}

	if err := s.bidRepo.ReplaceLeveling(ctx, bidID, adjustments); err != nil {
		return nil, classifyTimeout(ctx, err)
	}

	comparison, err := s.tabulation.BuildComparison(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	result := &LevelingResult{BidID: bidID}
	result.AdjustedTotal = comparison.Totals[bid.VendorID].AdjustedTotal
	for _, entry := range comparison.Rankings {
		if entry.BidID == bidID {
			result.Rank = entry.Rank
			break
		}
	}

	// 异步通知，失败只记日志
	go s.sendLevelingNotification(context.Background(), bid, userID, len(adjustments))

	return result, nil
}

func (s *LevelingService) sendLevelingNotification(ctx context.Context, bid *entity.Bid, userID string, count int) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventBidLeveled,
		Subject: bid.RFPID,
		Message: fmt.Sprintf("投标 %s 应用了 %d 条清标调整", bid.ID, count),
		Actor:   userID,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("发送清标通知失败", zap.String("bid_id", bid.ID), zap.Error(err))
	}
}
