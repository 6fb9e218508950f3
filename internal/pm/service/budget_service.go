package service

import (
	"context"

	"github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetService 预算科目服务
type BudgetService struct {
	budgetRepo  *repository.BudgetRepository
	projectRepo *repository.ProjectRepository
}

func NewBudgetService(budgetRepo *repository.BudgetRepository, projectRepo *repository.ProjectRepository) *BudgetService {
	return &BudgetService{
		budgetRepo:  budgetRepo,
		projectRepo: projectRepo,
	}
}

// CreateBudgetItemInput 创建预算科目请求
type CreateBudgetItemInput struct {
	ProjectID      string          `json:"project_id" binding:"required"`
	CostCode       string          `json:"cost_code" binding:"required,max=32"`
	Name           string          `json:"name" binding:"required,max=200"`
	EstimatedTotal decimal.Decimal `json:"estimated_total" binding:"required"`
	Notes          string          `json:"notes"`
}

// UpdateBudgetItemInput 更新预算科目请求
type UpdateBudgetItemInput struct {
	Name           string           `json:"name" binding:"omitempty,max=200"`
	EstimatedTotal *decimal.Decimal `json:"estimated_total"`
	Status         string           `json:"status" binding:"omitempty,oneof=active locked"`
	Notes          *string          `json:"notes"`
}

// BudgetBalance 预算科目余额视图。
// Committed按draft/active承诺分摊实时求和，不依赖committed_total缓存列。
type BudgetBalance struct {
	BudgetItem *entity.BudgetItem `json:"budget_item"`
	Committed  decimal.Decimal    `json:"committed"`
	Available  decimal.Decimal    `json:"available"`
}

func (s *BudgetService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.BudgetItem, int64, error) {
	return s.budgetRepo.FindAll(ctx, page, pageSize, filters)
}

func (s *BudgetService) Get(ctx context.Context, id string) (*entity.BudgetItem, error) {
	return s.budgetRepo.FindByID(ctx, id)
}

func (s *BudgetService) Create(ctx context.Context, input *CreateBudgetItemInput, createdBy string) (*entity.BudgetItem, error) {
	if _, err := s.projectRepo.FindByID(ctx, input.ProjectID); err != nil {
		return nil, err
	}
	item := &entity.BudgetItem{
		ID:             uuid.New().String()[:32],
		ProjectID:      input.ProjectID,
		CostCode:       input.CostCode,
		Name:           input.Name,
		EstimatedTotal: input.EstimatedTotal,
		CommittedTotal: decimal.Zero,
		Status:         entity.BudgetItemStatusActive,
		CreatedBy:      createdBy,
		Notes:          input.Notes,
	}
	if err := s.budgetRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *BudgetService) Update(ctx context.Context, id string, input *UpdateBudgetItemInput) (*entity.BudgetItem, error) {
	item, err := s.budgetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		item.Name = input.Name
	}
	if input.EstimatedTotal != nil {
		item.EstimatedTotal = *input.EstimatedTotal
	}
	if input.Status != "" {
		item.Status = input.Status
	}
	if input.Notes != nil {
		item.Notes = *input.Notes
	}
	if err := s.budgetRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Balance 实时余额：估算总额减去draft/active承诺的分摊合计
func (s *BudgetService) Balance(ctx context.Context, id string) (*BudgetBalance, error) {
	item, err := s.budgetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	committed, err := s.budgetRepo.CommittedAmountCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BudgetBalance{
		BudgetItem: item,
		Committed:  committed,
		Available:  item.EstimatedTotal.Sub(committed),
	}, nil
}

// ListTransactions 预算台账流水
func (s *BudgetService) ListTransactions(ctx context.Context, id string, page, pageSize int) ([]entity.BudgetTransaction, int64, error) {
	return s.budgetRepo.ListTransactions(ctx, id, page, pageSize)
}
