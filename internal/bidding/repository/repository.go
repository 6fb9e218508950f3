package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 招投标仓库集合
type Repositories struct {
	RFP   *RFPRepository
	Bid   *BidRepository
	Award *AwardRepository
}

// NewRepositories 创建招投标仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		RFP:   NewRFPRepository(db),
		Bid:   NewBidRepository(db),
		Award: NewAwardRepository(db),
	}
}
