package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bidentity "github.com/bitfantasy/sitepm/internal/bidding/entity"
	"github.com/bitfantasy/sitepm/internal/bidding/repository"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	pmrepo "github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/bitfantasy/sitepm/internal/shared/notify"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AwardService 定标服务：把中标决定落为合同承诺并占用预算，整个过程单事务
type AwardService struct {
	db          *gorm.DB
	rfpRepo     *repository.RFPRepository
	bidRepo     *repository.BidRepository
	awardRepo   *repository.AwardRepository
	projectRepo *pmrepo.ProjectRepository
	tabulation  *TabulationService
	notifier    *notify.Notifier
	logger      *zap.Logger
	tolerance   decimal.Decimal // 定标金额允许偏离调整后合计的比例，如0.01表示1%
	timeout     time.Duration
}

func NewAwardService(db *gorm.DB, rfpRepo *repository.RFPRepository, bidRepo *repository.BidRepository, awardRepo *repository.AwardRepository, projectRepo *pmrepo.ProjectRepository, tabulation *TabulationService, notifier *notify.Notifier, logger *zap.Logger, tolerance decimal.Decimal, timeout time.Duration) *AwardService {
	if tolerance.LessThanOrEqual(decimal.Zero) {
		tolerance = decimal.NewFromFloat(0.01)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AwardService{
		db:          db,
		rfpRepo:     rfpRepo,
		bidRepo:     bidRepo,
		awardRepo:   awardRepo,
		projectRepo: projectRepo,
		tabulation:  tabulation,
		notifier:    notifier,
		logger:      logger,
		tolerance:   tolerance,
		timeout:     timeout,
	}
}

// AllocationInput 定标金额在预算项上的分摊
type AllocationInput struct {
	BudgetItemID string          `json:"budget_item_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
}

// AwardRequest 定标请求
type AwardRequest struct {
	BidID          string            `json:"bid_id" binding:"required"`
	Amount         decimal.Decimal   `json:"amount" binding:"required"`
	Justification  string            `json:"justification"`
	CommitmentType string            `json:"commitment_type" binding:"omitempty,oneof=contract purchase_order"`
	Allocations    []AllocationInput `json:"allocations" binding:"required,min=1,dive"`
}

// AwardResult 定标结果
type AwardResult struct {
	Award      *bidentity.Award     `json:"award"`
	Commitment *pmentity.Commitment `json:"commitment"`
}

// AwardBid 定标。先做全部前置校验，再在单事务内完成：
// 写定标记录、翻转中标/落选投标状态、生成合同号、建立合同承诺与分摊、
// 锁预算行校验余额并记账、RFP状态置为awarded。
// 任何一步失败整体回滚，不留半截状态。
func (s *AwardService) AwardBid(ctx context.Context, rfpID, userID string, req *AwardRequest) (*AwardResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rfp, err := s.rfpRepo.FindByID(ctx, rfpID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrRFPNotFound
		}
		return nil, classifyTimeout(ctx, err)
	}

	// 前置1：RFP未被定标
	if rfp.Status == bidentity.RFPStatusAwarded {
		return nil, precondition(RuleRFPAlreadyAwarded, "该RFP已定标",
			bidentity.RFPStatusPublished, rfp.Status)
	}
	if existing, err := s.awardRepo.FindByRFP(ctx, rfpID); err == nil && existing != nil {
		return nil, precondition(RuleRFPAlreadyAwarded, "该RFP已存在有效定标记录",
			"无有效定标记录", existing.ID)
	}

	bid, err := s.bidRepo.FindByID(ctx, req.BidID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrBidNotFound
		}
		return nil, classifyTimeout(ctx, err)
	}

	// 前置2：投标属于该RFP且处于已提交状态
	if bid.RFPID != rfpID {
		return nil, ErrBidNotFound
	}
	if bid.Status != bidentity.BidStatusSubmitted {
		return nil, precondition(RuleBidNotAwardable, "仅已提交的投标可定标",
			bidentity.BidStatusSubmitted, bid.Status)
	}

	// 前置3：定标金额与当前调整后合计的偏差在容差内。
	// 比价表在此刻重算，拿到的是含全部平整调整的最新数字——
	// 评标期间预算或调整有变动时，过期的定标请求会在这里被拒绝。
	comparison, err := s.tabulation.BuildComparison(ctx, rfpID)
	if err != nil {
		return nil, err
	}
	adjustedTotal := comparison.Totals[bid.VendorID].AdjustedTotal
	if adjustedTotal.IsPositive() {
		deviation := req.Amount.Sub(adjustedTotal).Abs().Div(adjustedTotal)
		if deviation.GreaterThan(s.tolerance) {
			return nil, preconditionf(RuleAmountOutOfTolerance,
				adjustedTotal.StringFixed(2), req.Amount.StringFixed(2),
				"定标金额偏离调整后合计超过%s%%", s.tolerance.Mul(decimal.NewFromInt(100)).String())
		}
	} else if !req.Amount.Equal(adjustedTotal) {
		// 合计为零或负时相对偏差无定义，要求金额与合计完全一致
		return nil, precondition(RuleAmountOutOfTolerance, "调整后合计非正，定标金额必须与其相等",
			adjustedTotal.StringFixed(2), req.Amount.StringFixed(2))
	}

	// 前置4：分摊合计等于定标金额，且预算项不重复
	allocTotal := decimal.Zero
	seen := make(map[string]bool, len(req.Allocations))
	for _, alloc := range req.Allocations {
		if alloc.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, precondition(RuleAllocationMismatch, "分摊金额必须为正",
				"> 0", alloc.Amount.String())
		}
		if seen[alloc.BudgetItemID] {
			return nil, precondition(RuleAllocationMismatch, "同一预算项不能重复分摊",
				"唯一预算项", alloc.BudgetItemID)
		}
		seen[alloc.BudgetItemID] = true
		allocTotal = allocTotal.Add(alloc.Amount)
	}
	if !allocTotal.Equal(req.Amount) {
		return nil, precondition(RuleAllocationMismatch, "分摊合计必须等于定标金额",
			req.Amount.String(), allocTotal.String())
	}

	project, err := s.projectRepo.FindByID(ctx, rfp.ProjectID)
	if err != nil {
		if err == pmrepo.ErrNotFound {
			return nil, fmt.Errorf("RFP关联项目不存在: %s", rfp.ProjectID)
		}
		return nil, classifyTimeout(ctx, err)
	}

	commitmentType := req.CommitmentType
	if commitmentType == "" {
		commitmentType = pmentity.CommitmentTypeContract
	}

	award := &bidentity.Award{
		ID:            uuid.New().String()[:32],
		RFPID:         rfpID,
		BidID:         bid.ID,
		VendorID:      bid.VendorID,
		Amount:        req.Amount,
		Justification: req.Justification,
		Status:        bidentity.AwardStatusActive,
		AwardedBy:     userID,
	}
	commitment := &pmentity.Commitment{
		ID:             uuid.New().String()[:32],
		ProjectID:      rfp.ProjectID,
		VendorID:       bid.VendorID,
		AwardID:        &award.ID,
		Type:           commitmentType,
		Status:         pmentity.CommitmentStatusDraft,
		OriginalAmount: req.Amount,
		CurrentAmount:  req.Amount,
		CreatedBy:      userID,
	}

	var losers []bidentity.Bid

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 定标记录。rfp_id上status='active'的部分唯一索引兜底并发双定标
		if err := tx.Create(award).Error; err != nil {
			if isDuplicateKey(err) {
				return precondition(RuleRFPAlreadyAwarded, "该RFP已被并发定标",
					"无定标记录", rfpID)
			}
			return err
		}

		// 翻转投标状态：中标方awarded，其余已提交方unsuccessful
		if err := tx.Model(&bidentity.Bid{}).Where("id = ?", bid.ID).
			Update("status", bidentity.BidStatusAwarded).Error; err != nil {
			return err
		}
		if err := tx.Model(&bidentity.Bid{}).
			Where("rfp_id = ? AND id <> ? AND status = ?", rfpID, bid.ID, bidentity.BidStatusSubmitted).
			Update("status", bidentity.BidStatusUnsuccessful).Error; err != nil {
			return err
		}
		for _, other := range comparison.Vendors {
			if other.BidID != bid.ID {
				losers = append(losers, bidentity.Bid{ID: other.BidID, VendorID: other.VendorID, RFPID: rfpID})
			}
		}

		// 合同承诺与分摊
		contractNo, err := repository.GenerateContractNo(tx, project.Code)
		if err != nil {
			return err
		}
		commitment.ContractNo = contractNo
		if err := tx.Create(commitment).Error; err != nil {
			return err
		}
		for _, alloc := range req.Allocations {
			pct := decimal.Zero
			if req.Amount.IsPositive() {
				pct = alloc.Amount.Div(req.Amount).Mul(decimal.NewFromInt(100)).Round(4)
			}
			if err := tx.Create(&pmentity.CommitmentAllocation{
				ID:           uuid.New().String()[:32],
				CommitmentID: commitment.ID,
				BudgetItemID: alloc.BudgetItemID,
				Amount:       alloc.Amount,
				Percentage:   pct,
			}).Error; err != nil {
				return err
			}
		}

		// 预算校验与记账。按ID排序加锁避免并发定标互相死锁，
		// 已占用金额的统计包含刚插入的本承诺，所以直接与预算总额比较。
		budgetItemIDs := make([]string, 0, len(req.Allocations))
		allocByItem := make(map[string]decimal.Decimal, len(req.Allocations))
		for _, alloc := range req.Allocations {
			budgetItemIDs = append(budgetItemIDs, alloc.BudgetItemID)
			allocByItem[alloc.BudgetItemID] = alloc.Amount
		}
		sort.Strings(budgetItemIDs)

		for _, itemID := range budgetItemIDs {
			budgetItem, err := pmrepo.LockForUpdate(tx, itemID)
			if err != nil {
				if errors.Is(err, pmrepo.ErrNotFound) {
					return ErrBudgetItemNotFound
				}
				return err
			}
			if budgetItem.ProjectID != rfp.ProjectID {
				return precondition(RuleAllocationMismatch, "预算项不属于RFP所在项目",
					rfp.ProjectID, budgetItem.ProjectID)
			}

			committed, err := pmrepo.CommittedAmount(tx, itemID)
			if err != nil {
				return err
			}
			if committed.GreaterThan(budgetItem.EstimatedTotal) {
				return preconditionf(RuleInsufficientBudget,
					budgetItem.EstimatedTotal.StringFixed(2), committed.StringFixed(2),
					"预算项 %s 余额不足", budgetItem.CostCode)
			}

			if err := tx.Model(&pmentity.BudgetItem{}).Where("id = ?", itemID).
				Update("committed_total", gorm.Expr("committed_total + ?", allocByItem[itemID])).Error; err != nil {
				return err
			}
			if err := tx.Create(&pmentity.BudgetTransaction{
				ID:           uuid.New().String()[:32],
				BudgetItemID: itemID,
				CommitmentID: &commitment.ID,
				Type:         pmentity.BudgetTxDebit,
				Amount:       allocByItem[itemID],
				Description:  fmt.Sprintf("定标承诺 %s 占用", commitment.ContractNo),
				CreatedBy:    userID,
			}).Error; err != nil {
				return err
			}
		}

		// 回填承诺ID并收尾RFP状态
		award.CommitmentID = &commitment.ID
		if err := tx.Model(&bidentity.Award{}).Where("id = ?", award.ID).
			Update("commitment_id", commitment.ID).Error; err != nil {
			return err
		}
		return tx.Model(&bidentity.RFP{}).Where("id = ?", rfpID).
			Update("status", bidentity.RFPStatusAwarded).Error
	})
	if err != nil {
		var pe *PreconditionError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, classifyTimeout(ctx, err)
	}

	rfp.Status = bidentity.RFPStatusAwarded

	// 异步通知中标与落选方，失败只记日志
	go s.sendAwardNotifications(context.Background(), rfp, bid, losers, userID, req.Amount)

	return &AwardResult{Award: award, Commitment: commitment}, nil
}

// RescindAward 撤销定标：定标记录置为rescinded，承诺取消，
// 预算释放（贷记），RFP和中标投标退回可评审状态。
func (s *AwardService) RescindAward(ctx context.Context, rfpID, userID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	award, err := s.awardRepo.FindByRFP(ctx, rfpID)
	if err != nil {
		if err == repository.ErrNotFound {
			return ErrAwardNotFound
		}
		return classifyTimeout(ctx, err)
	}
	if award.Status != bidentity.AwardStatusActive {
		return precondition(RuleBidNotAwardable, "仅有效定标可撤销",
			bidentity.AwardStatusActive, award.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&bidentity.Award{}).Where("id = ?", award.ID).
			Updates(map[string]interface{}{"status": bidentity.AwardStatusRescinded, "justification": reason}).Error; err != nil {
			return err
		}

		if award.CommitmentID != nil {
			var commitment pmentity.Commitment
			if err := tx.Preload("Allocations").First(&commitment, "id = ?", *award.CommitmentID).Error; err != nil {
				return err
			}
			if err := tx.Model(&pmentity.Commitment{}).Where("id = ?", commitment.ID).
				Update("status", pmentity.CommitmentStatusCancelled).Error; err != nil {
				return err
			}
			for _, alloc := range commitment.Allocations {
				if err := tx.Model(&pmentity.BudgetItem{}).Where("id = ?", alloc.BudgetItemID).
					Update("committed_total", gorm.Expr("committed_total - ?", alloc.Amount)).Error; err != nil {
					return err
				}
				if err := tx.Create(&pmentity.BudgetTransaction{
					ID:           uuid.New().String()[:32],
					BudgetItemID: alloc.BudgetItemID,
					CommitmentID: &commitment.ID,
					Type:         pmentity.BudgetTxCredit,
					Amount:       alloc.Amount,
					Description:  fmt.Sprintf("撤销定标释放承诺 %s", commitment.ContractNo),
					CreatedBy:    userID,
				}).Error; err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&bidentity.Bid{}).Where("id = ?", award.BidID).
			Update("status", bidentity.BidStatusSubmitted).Error; err != nil {
			return err
		}
		if err := tx.Model(&bidentity.Bid{}).
			Where("rfp_id = ? AND status = ?", rfpID, bidentity.BidStatusUnsuccessful).
			Update("status", bidentity.BidStatusSubmitted).Error; err != nil {
			return err
		}
		return tx.Model(&bidentity.RFP{}).Where("id = ?", rfpID).
			Update("status", bidentity.RFPStatusPublished).Error
	})
	if err != nil {
		return classifyTimeout(ctx, err)
	}

	if s.logger != nil {
		s.logger.Info("定标已撤销",
			zap.String("rfp_id", rfpID),
			zap.String("award_id", award.ID),
			zap.String("user_id", userID))
	}
	return nil
}

// GetAward 查询某RFP的定标记录
func (s *AwardService) GetAward(ctx context.Context, rfpID string) (*bidentity.Award, error) {
	award, err := s.awardRepo.FindByRFP(ctx, rfpID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrAwardNotFound
		}
		return nil, classifyTimeout(ctx, err)
	}
	return award, nil
}

func (s *AwardService) sendAwardNotifications(ctx context.Context, rfp *bidentity.RFP, winner *bidentity.Bid, losers []bidentity.Bid, userID string, amount decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventBidAwarded,
		Subject: rfp.ID,
		Message: fmt.Sprintf("RFP %s 已定标，中标供应商 %s，金额 %s", rfp.RFPCode, winner.VendorID, amount.StringFixed(2)),
		Actor:   userID,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("发送定标通知失败", zap.String("rfp_id", rfp.ID), zap.Error(err))
	}
	for _, loser := range losers {
		err := s.notifier.Publish(ctx, notify.Event{
			Type:    notify.EventBidAwarded,
			Subject: rfp.ID,
			Message: fmt.Sprintf("RFP %s 已定标，供应商 %s 未中标", rfp.RFPCode, loser.VendorID),
			Actor:   userID,
		})
		if err != nil && s.logger != nil {
			s.logger.Warn("发送落选通知失败", zap.String("bid_id", loser.ID), zap.Error(err))
		}
	}
}

// isDuplicateKey 识别唯一索引冲突
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key")
}
