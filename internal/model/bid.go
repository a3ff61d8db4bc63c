package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BidStatusActive     = "active"
	BidStatusSuperseded = "superseded"
	BidStatusWinning    = "winning"
	BidStatusRefunded   = "refunded"
)

// Bid holds Amount of the bidder's funds while Status is active.
// At most one active bid exists per (AuctionID, BidderID).
type Bid struct {
	ID          string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	AuctionID   string          `gorm:"type:varchar(36);index:idx_bid_auction_bidder_status,priority:1;not null" json:"auction_id"`
	BidderID    string          `gorm:"type:varchar(36);index:idx_bid_auction_bidder_status,priority:2;index;not null" json:"bidder_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status      string          `gorm:"type:varchar(16);index:idx_bid_auction_bidder_status,priority:3;not null" json:"status"`
	Automatic   bool            `gorm:"not null;default:false" json:"automatic"`
	HoldEntryNo string          `gorm:"type:varchar(64)" json:"hold_entry_no"`
	ReleasedAt  *time.Time      `json:"released_at"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (Bid) TableName() string {
	return "bid"
}
