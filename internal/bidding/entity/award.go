package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Award 中标记录。每个RFP至多一条（rfp_id唯一索引），创建后除状态外不可变。
type Award struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	RFPID         string          `json:"rfp_id" gorm:"size:32;not null;uniqueIndex"`
	BidID         string          `json:"bid_id" gorm:"size:32;not null;uniqueIndex"`
	VendorID      string          `json:"vendor_id" gorm:"size:32;not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(18,4);not null"`
	Justification string          `json:"justification" gorm:"type:text"`
	Status        string          `json:"status" gorm:"size:20;default:active"` // active/rescinded
	CommitmentID  *string         `json:"commitment_id" gorm:"size:32"`
	AwardedBy     string          `json:"awarded_by" gorm:"size:32"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Award) TableName() string {
	return "bid_awards"
}

// 中标记录状态
const (
	AwardStatusActive    = "active"
	AwardStatusRescinded = "rescinded"
)
