package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetItem 预算科目。committed_total只会由授标事务累加，
// 每个承诺分摊恰好记一次，重试不会重复累计。
type BudgetItem struct {
	ID             string          `json:"id" gorm:"primaryKey;size:32"`
	ProjectID      string          `json:"project_id" gorm:"size:32;not null;index;uniqueIndex:uniq_project_cost_code"`
	CostCode       string          `json:"cost_code" gorm:"size:32;not null;uniqueIndex:uniq_project_cost_code"`
	Name           string          `json:"name" gorm:"size:200;not null"`
	EstimatedTotal decimal.Decimal `json:"estimated_total" gorm:"type:decimal(18,4);not null"`
	CommittedTotal decimal.Decimal `json:"committed_total" gorm:"type:decimal(18,4);default:0"`
	Status         string          `json:"status" gorm:"size:20;default:active"` // active/locked
	CreatedBy      string          `json:"created_by" gorm:"size:32"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Notes          string          `json:"notes" gorm:"type:text"`
}

func (BudgetItem) TableName() string {
	return "pm_budget_items"
}

// 预算科目状态
const (
	BudgetItemStatusActive = "active"
	BudgetItemStatusLocked = "locked"
)

// BudgetTransaction 预算台账流水。授标事务为每条分摊记一笔debit，
// 承诺对可用预算的影响可独立审计重建，不依赖承诺行本身。
type BudgetTransaction struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	BudgetItemID string          `json:"budget_item_id" gorm:"size:32;not null;index"`
	CommitmentID *string         `json:"commitment_id" gorm:"size:32;index"`
	Type         string          `json:"type" gorm:"size:20;not null"` // debit/credit
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Description  string          `json:"description" gorm:"size:500"`
	CreatedBy    string          `json:"created_by" gorm:"size:32"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (BudgetTransaction) TableName() string {
	return "pm_budget_transactions"
}

// 台账流水类型
const (
	BudgetTxDebit  = "debit"
	BudgetTxCredit = "credit"
)
