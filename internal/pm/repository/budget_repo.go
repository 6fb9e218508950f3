package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetRepository 预算仓库
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// FindAll 查询预算科目列表
func (r *BudgetRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.BudgetItem, int64, error) {
	var items []entity.BudgetItem
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BudgetItem{})

	if projectID := filters["project_id"]; projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("cost_code ILIKE ? OR name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("cost_code ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找预算科目
func (r *BudgetRepository) FindByID(ctx context.Context, id string) (*entity.BudgetItem, error) {
	var item entity.BudgetItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// Create 创建预算科目
func (r *BudgetRepository) Create(ctx context.Context, item *entity.BudgetItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新预算科目
func (r *BudgetRepository) Update(ctx context.Context, item *entity.BudgetItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// LockForUpdate 在事务内对预算科目加行锁后返回。
// 授标事务校验可用余额前必须先锁行，避免两笔并发授标同时通过余额校验。
func LockForUpdate(tx *gorm.DB, budgetItemID string) (*entity.BudgetItem, error) {
	var item entity.BudgetItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", budgetItemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// CommittedAmount 统计某预算科目当前已承诺金额：
// 只累计draft/active状态承诺的分摊，cancelled/closed不计入。
// 可传事务句柄（授标校验在锁内重算）或普通句柄（余额查询接口）。
func CommittedAmount(tx *gorm.DB, budgetItemID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&entity.CommitmentAllocation{}).
		Select("SUM(pm_commitment_allocations.amount)").
		Joins("JOIN pm_commitments ON pm_commitments.id = pm_commitment_allocations.commitment_id").
		Where("pm_commitment_allocations.budget_item_id = ?", budgetItemID).
		Where("pm_commitments.status IN ?", []string{entity.CommitmentStatusDraft, entity.CommitmentStatusActive}).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// CommittedAmountCtx 带上下文的已承诺金额查询
func (r *BudgetRepository) CommittedAmountCtx(ctx context.Context, budgetItemID string) (decimal.Decimal, error) {
	return CommittedAmount(r.db.WithContext(ctx), budgetItemID)
}

// ListTransactions 查询预算科目台账流水
func (r *BudgetRepository) ListTransactions(ctx context.Context, budgetItemID string, page, pageSize int) ([]entity.BudgetTransaction, int64, error) {
	var items []entity.BudgetTransaction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BudgetTransaction{}).
		Where("budget_item_id = ?", budgetItemID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
