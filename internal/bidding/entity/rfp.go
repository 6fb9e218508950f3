package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RFP 招标单（Request for Proposal）
type RFP struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	RFPCode      string     `json:"rfp_code" gorm:"size:32;uniqueIndex;not null"`
	ProjectID    string     `json:"project_id" gorm:"size:32;not null;index"`
	Title        string     `json:"title" gorm:"size:200;not null"`
	Description  string     `json:"description" gorm:"type:text"`
	Status       string     `json:"status" gorm:"size:20;default:draft"` // draft/published/awarded/cancelled
	BidOpeningAt *time.Time `json:"bid_opening_at"`                      // 开标时间，此前投标金额对外不可见
	DueAt        *time.Time `json:"due_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	LineItems []RFPLineItem `json:"line_items,omitempty" gorm:"foreignKey:RFPID"`
	Bids      []Bid         `json:"bids,omitempty" gorm:"foreignKey:RFPID"`
}

func (RFP) TableName() string {
	return "bid_rfps"
}

// RFP状态
const (
	RFPStatusDraft     = "draft"
	RFPStatusPublished = "published"
	RFPStatusAwarded   = "awarded"
	RFPStatusCancelled = "cancelled"
)

// RFPLineItem 招标清单行项。RFP离开draft状态后行项不可再修改。
type RFPLineItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	RFPID       string          `json:"rfp_id" gorm:"size:32;not null;index;uniqueIndex:uniq_rfp_spec_code"`
	SpecCode    string          `json:"spec_code" gorm:"size:32;not null;uniqueIndex:uniq_rfp_spec_code"`
	Description string          `json:"description" gorm:"size:500"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`
	Unit        string          `json:"unit" gorm:"size:10;not null"`
	SortOrder   int             `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (RFPLineItem) TableName() string {
	return "bid_rfp_line_items"
}
