package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EntryKindDeposit      = "deposit"
	EntryKindWithdrawal   = "withdrawal"
	EntryKindBidHold      = "bid_hold"
	EntryKindBidRefund    = "bid_refund"
	EntryKindBidWinPayout = "bid_win_payout"
	EntryKindDonation     = "donation"
)

const (
	ReferenceTypeAuction = "auction"
	ReferenceTypeBid     = "bid"
	ReferenceTypeWallet  = "wallet"
)

// LedgerEntry records one balance change of one account.
//
// Entries are append-only: never updated, never deleted. Amount is the signed
// delta, and BalanceAfter = BalanceBefore + Amount always holds.
type LedgerEntry struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo       string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"`
	AccountID     string          `gorm:"type:varchar(36);index;not null" json:"account_id"`
	Kind          string          `gorm:"type:varchar(20);index;not null" json:"kind"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	ReferenceType string          `gorm:"type:varchar(20)" json:"reference_type"`
	ReferenceID   string          `gorm:"type:varchar(36);index" json:"reference_id"`
	Remark        string          `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}

// Reference points a ledger entry at the auction, bid or wallet operation that caused it.
type Reference struct {
	Type   string
	ID     string
	Remark string
}
