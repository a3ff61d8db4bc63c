package service

import (
	"strings"
	"time"

	"nexos/internal/bizerr"

	"github.com/shopspring/decimal"
)

var (
	minIncrementRate  = decimal.NewFromFloat(0.05)
	minIncrementFloor = decimal.NewFromInt(1)
)

// validMoney rejects negative amounts and sub-cent precision.
func validMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

type PlaceBidRequest struct {
	AuctionID string          `json:"-"`
	BidderID  string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Automatic bool            `json:"automatic"`
}

func (r *PlaceBidRequest) Validate() error {
	if strings.TrimSpace(r.AuctionID) == "" {
		return bizerr.Invalid("auction id is required")
	}
	if strings.TrimSpace(r.BidderID) == "" {
		return bizerr.Invalid("bidder id is required")
	}
	if !r.Amount.IsPositive() {
		return bizerr.Invalid("amount must be greater than 0")
	}
	if !validMoney(r.Amount) {
		return bizerr.Invalid("amount must have at most two decimal places")
	}
	return nil
}

type CreateAuctionRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	StartPrice   decimal.Decimal  `json:"start_price"`
	ReservePrice *decimal.Decimal `json:"reserve_price"`
	MinIncrement *decimal.Decimal `json:"min_increment"`
	StartTime    *time.Time       `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
}

// Validate checks the request against now and fills defaults for omitted fields.
func (r *CreateAuctionRequest) Validate(now time.Time) error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return bizerr.Invalid("title is required")
	}
	if len(r.Title) > 200 {
		return bizerr.Invalid("title must be at most 200 characters")
	}
	if !validMoney(r.StartPrice) {
		return bizerr.Invalid("start price must be a non-negative amount with at most two decimal places")
	}

	if r.StartTime == nil {
		start := now
		r.StartTime = &start
	}
	start := r.StartTime.UTC()
	r.StartTime = &start
	r.EndTime = r.EndTime.UTC()
	if !r.EndTime.After(start) {
		return bizerr.Invalid("end time must be after start time")
	}
	if !r.EndTime.After(now) {
		return bizerr.Invalid("end time must be in the future")
	}

	if r.MinIncrement == nil {
		inc := DefaultMinIncrement(r.StartPrice)
		r.MinIncrement = &inc
	}
	if !r.MinIncrement.IsPositive() || !validMoney(*r.MinIncrement) {
		return bizerr.Invalid("min increment must be a positive amount with at most two decimal places")
	}

	if r.ReservePrice != nil {
		if !validMoney(*r.ReservePrice) {
			return bizerr.Invalid("reserve price must be a non-negative amount with at most two decimal places")
		}
		if r.ReservePrice.LessThan(r.StartPrice) {
			return bizerr.Invalid("reserve price must not be below the start price")
		}
	}
	return nil
}

// DefaultMinIncrement is 5% of the start price, never below 1.
func DefaultMinIncrement(startPrice decimal.Decimal) decimal.Decimal {
	inc := startPrice.Mul(minIncrementRate).Round(2)
	if inc.LessThan(minIncrementFloor) {
		return minIncrementFloor
	}
	return inc
}

// UpdateAuctionRequest carries the fields to change; nil means unchanged.
// Prices can only change while the auction has no bids.
type UpdateAuctionRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	EndTime      *time.Time       `json:"end_time"`
	StartPrice   *decimal.Decimal `json:"start_price"`
	MinIncrement *decimal.Decimal `json:"min_increment"`
	ReservePrice *decimal.Decimal `json:"reserve_price"`
}

func (r *UpdateAuctionRequest) changesPrices() bool {
	return r.StartPrice != nil || r.MinIncrement != nil || r.ReservePrice != nil
}

type WalletRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Remark string          `json:"remark"`
}

func (r *WalletRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return bizerr.Invalid("amount must be greater than 0")
	}
	if !validMoney(r.Amount) {
		return bizerr.Invalid("amount must have at most two decimal places")
	}
	if len(r.Remark) > 256 {
		return bizerr.Invalid("remark must be at most 256 characters")
	}
	return nil
}
