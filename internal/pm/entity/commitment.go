package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commitment 财务承诺（合同/采购订单），由授标事务原子创建。
// 计算预算科目已承诺金额时只统计draft/active状态的承诺。
type Commitment struct {
	ID             string          `json:"id" gorm:"primaryKey;size:32"`
	ContractNo     string          `json:"contract_no" gorm:"size:40;uniqueIndex;not null"`
	ProjectID      string          `json:"project_id" gorm:"size:32;not null;index"`
	VendorID       string          `json:"vendor_id" gorm:"size:32;not null;index"`
	AwardID        *string         `json:"award_id" gorm:"size:32;uniqueIndex"`
	Type           string          `json:"type" gorm:"size:20;not null"` // contract/purchase_order
	Status         string          `json:"status" gorm:"size:20;default:draft"`
	OriginalAmount decimal.Decimal `json:"original_amount" gorm:"type:decimal(18,4);not null"`
	CurrentAmount  decimal.Decimal `json:"current_amount" gorm:"type:decimal(18,4);not null"`
	Terms          string          `json:"terms" gorm:"type:text"`
	CreatedBy      string          `json:"created_by" gorm:"size:32"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Allocations []CommitmentAllocation `json:"allocations,omitempty" gorm:"foreignKey:CommitmentID"`
}

func (Commitment) TableName() string {
	return "pm_commitments"
}

// 承诺状态
const (
	CommitmentStatusDraft     = "draft"
	CommitmentStatusActive    = "active"
	CommitmentStatusClosed    = "closed"
	CommitmentStatusCancelled = "cancelled"
)

// 承诺类型
const (
	CommitmentTypeContract      = "contract"
	CommitmentTypePurchaseOrder = "purchase_order"
)

// CommitmentAllocation 承诺对预算科目的分摊。
// 一笔承诺的全部分摊金额之和必须恰好等于承诺金额。
type CommitmentAllocation struct {
	ID           string          `json:"id" gorm:"primaryKey;size:32"`
	CommitmentID string          `json:"commitment_id" gorm:"size:32;not null;index;uniqueIndex:uniq_commitment_budget"`
	BudgetItemID string          `json:"budget_item_id" gorm:"size:32;not null;index;uniqueIndex:uniq_commitment_budget"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Percentage   decimal.Decimal `json:"percentage" gorm:"type:decimal(7,4);default:0"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (CommitmentAllocation) TableName() string {
	return "pm_commitment_allocations"
}
