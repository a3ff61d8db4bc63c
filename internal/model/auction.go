package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AuctionStatusActive    = "active"
	AuctionStatusPaused    = "paused"
	AuctionStatusFinalized = "finalized"
	AuctionStatusCancelled = "cancelled"
)

var ValidAuctionTransitions = map[string][]string{
	AuctionStatusActive: {AuctionStatusPaused, AuctionStatusFinalized, AuctionStatusCancelled},
	AuctionStatusPaused: {AuctionStatusActive},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidAuctionTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

type Auction struct {
	ID           string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	SellerID     string              `gorm:"type:varchar(36);index;not null" json:"seller_id"`
	Title        string              `gorm:"type:varchar(200);not null" json:"title"`
	Description  string              `gorm:"type:text" json:"description"`
	StartPrice   decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"start_price"`
	CurrentPrice decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"current_price"`
	ReservePrice decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"reserve_price"`
	MinIncrement decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"min_increment"`
	StartTime    time.Time           `gorm:"not null" json:"start_time"`
	EndTime      time.Time           `gorm:"index;not null" json:"end_time"`
	Status       string              `gorm:"type:varchar(16);index;not null" json:"status"`
	BidCount     int                 `gorm:"not null;default:0" json:"bid_count"`
	WinnerID     *string             `gorm:"type:varchar(36)" json:"winner_id"`
	FinalPrice   decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"final_price"`
	FinalizedAt  *time.Time          `json:"finalized_at"`
	Version      int                 `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Auction) TableName() string {
	return "auction"
}

// MinimumBid is the lowest amount the next bid may carry.
func (a *Auction) MinimumBid() decimal.Decimal {
	return a.CurrentPrice.Add(a.MinIncrement)
}

// OpenAt reports whether the auction accepts bids at now.
func (a *Auction) OpenAt(now time.Time) bool {
	return a.Status == AuctionStatusActive && !now.Before(a.StartTime) && !now.After(a.EndTime)
}

func (a *Auction) OwnedBy(accountID string) bool {
	return a.SellerID == accountID
}
