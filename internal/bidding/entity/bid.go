package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid 投标。每个 (RFP, 供应商) 只允许一份投标（唯一索引约束）。
type Bid struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	RFPID    string `json:"rfp_id" gorm:"size:32;not null;index;uniqueIndex:uniq_rfp_vendor"`
	VendorID string `json:"vendor_id" gorm:"size:32;not null;index;uniqueIndex:uniq_rfp_vendor"`
	Status   string `json:"status" gorm:"size:20;default:draft"` // draft/submitted/awarded/unsuccessful/withdrawn

	SubmittedAt *time.Time `json:"submitted_at"`
	WithdrawnAt *time.Time `json:"withdrawn_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Items       []BidItem       `json:"items,omitempty" gorm:"foreignKey:BidID"`
	Adjustments []BidAdjustment `json:"adjustments,omitempty" gorm:"foreignKey:BidID"`
}

func (Bid) TableName() string {
	return "bid_bids"
}

// 投标状态
const (
	BidStatusDraft        = "draft"
	BidStatusSubmitted    = "submitted"
	BidStatusAwarded      = "awarded"
	BidStatusUnsuccessful = "unsuccessful"
	BidStatusWithdrawn    = "withdrawn"
)

// BidItem 投标行项，对应一条招标清单行项。
// 某清单行项没有对应BidItem表示范围缺口（scope gap），不代表报价为0。
type BidItem struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	BidID         string          `json:"bid_id" gorm:"size:32;not null;index;uniqueIndex:uniq_bid_line_item"`
	RFPLineItemID string          `json:"rfp_line_item_id" gorm:"size:32;not null;uniqueIndex:uniq_bid_line_item"`
	UnitPrice     decimal.Decimal `json:"unit_price" gorm:"type:decimal(15,4);not null"`
	Quantity      decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit          string          `json:"unit" gorm:"size:10"` // 为空时默认取清单行项单位
	TotalPrice    decimal.Decimal `json:"total_price" gorm:"type:decimal(18,4);not null"`
	Notes         string          `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (BidItem) TableName() string {
	return "bid_bid_items"
}

// BidAdjustment 投标调整项。add/allowance计入加项，deduct计入减项，
// alternate仅供参考不计入合计；plug/normalization由清标（leveling）整批替换。
type BidAdjustment struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	BidID         string          `json:"bid_id" gorm:"size:32;not null;index"`
	Type          string          `json:"type" gorm:"size:20;not null"`
	Description   string          `json:"description" gorm:"size:500"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Accepted      bool            `json:"accepted" gorm:"default:false"`
	SequenceOrder int             `json:"sequence_order" gorm:"default:0"`
	CreatedBy     string          `json:"created_by" gorm:"size:32"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (BidAdjustment) TableName() string {
	return "bid_adjustments"
}

// 调整类型
const (
	AdjustmentAdd           = "add"
	AdjustmentDeduct        = "deduct"
	AdjustmentAlternate     = "alternate"
	AdjustmentAllowance     = "allowance"
	AdjustmentPlug          = "plug"
	AdjustmentNormalization = "normalization"
)

// ValidAdjustmentType 调整类型是否合法
func ValidAdjustmentType(t string) bool {
	switch t {
	case AdjustmentAdd, AdjustmentDeduct, AdjustmentAlternate,
		AdjustmentAllowance, AdjustmentPlug, AdjustmentNormalization:
		return true
	default:
		return false
	}
}

// IsLevelingType plug/normalization属于清标批次，整批替换
func IsLevelingType(t string) bool {
	return t == AdjustmentPlug || t == AdjustmentNormalization
}

// SignedContribution 调整项对合计的带符号贡献。
// 仅accepted的调整计入；alternate永远返回0。
func (a BidAdjustment) SignedContribution() decimal.Decimal {
	if !a.Accepted {
		return decimal.Zero
	}
	switch a.Type {
	case AdjustmentDeduct:
		return a.Amount.Neg()
	case AdjustmentAlternate:
		return decimal.Zero
	default:
		return a.Amount
	}
}
