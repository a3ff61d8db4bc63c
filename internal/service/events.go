package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outbox payloads. Field names are part of the Kafka contract.

type BidPlacedEvent struct {
	AuctionID    string          `json:"auction_id"`
	BidID        string          `json:"bid_id"`
	BidderID     string          `json:"bidder_id"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	BidCount     int             `json:"bid_count"`
	Automatic    bool            `json:"automatic"`
	PlacedAt     time.Time       `json:"placed_at"`
}

type AuctionEvent struct {
	AuctionID  string           `json:"auction_id"`
	SellerID   string           `json:"seller_id"`
	Status     string           `json:"status"`
	Outcome    string           `json:"outcome,omitempty"`
	WinnerID   *string          `json:"winner_id,omitempty"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
	Refunded   int              `json:"refunded,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type WalletEvent struct {
	AccountID    string          `json:"account_id"`
	EntryNo      string          `json:"entry_no"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
