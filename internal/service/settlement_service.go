package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/config"
	"nexos/internal/infrastructure/metrics"
	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OutcomeSold          = "sold"
	OutcomeNoBids        = "no_bids"
	OutcomeReserveNotMet = "reserve_not_met"
)

type SettlementResult struct {
	Auction    *model.Auction  `json:"auction"`
	Winner     *model.Bid      `json:"winner"`
	FinalPrice decimal.Decimal `json:"final_price"`
	Outcome    string          `json:"outcome"`
}

// SettlementService ends auctions: cancel refunds everybody, finalize pays
// the seller from the winning hold and refunds the rest.
type SettlementService struct {
	db          *gorm.DB
	cfg         *config.Config
	ledger      *Ledger
	auctionRepo *repository.AuctionRepository
	bidRepo     *repository.BidRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewSettlementService(db *gorm.DB, cfg *config.Config, ledger *Ledger) *SettlementService {
	return &SettlementService{
		db:          db,
		cfg:         cfg,
		ledger:      ledger,
		auctionRepo: repository.NewAuctionRepository(db),
		bidRepo:     repository.NewBidRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		now:         utcNow,
	}
}

// Cancel refunds every active bid and moves the auction to cancelled.
// Only an active auction can be cancelled.
func (s *SettlementService) Cancel(ctx context.Context, caller Caller, id string) (*model.Auction, error) {
	now := s.now()
	var (
		auction  *model.Auction
		refunded int
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		auction, err = s.lockManaged(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		if auction.Status != model.AuctionStatusActive {
			return fmt.Errorf("%w: auction is %s", bizerr.ErrAuctionNotOpen, auction.Status)
		}

		bids, err := s.bidRepo.ListActiveForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("load active bids: %w", err)
		}
		for _, bid := range byBidder(bids) {
			if err := s.refund(ctx, tx, bid, now, "auction cancelled"); err != nil {
				return err
			}
		}
		refunded = len(bids)

		if err := s.auctionRepo.UpdateStatus(ctx, tx, id, model.AuctionStatusActive, model.AuctionStatusCancelled, nil); err != nil {
			return err
		}
		auction.Status = model.AuctionStatusCancelled
		auction.Version++

		return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.AuctionEvents, id, model.EventAuctionCancelled, AuctionEvent{
			AuctionID:  id,
			SellerID:   auction.SellerID,
			Status:     auction.Status,
			Refunded:   refunded,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("auction cancelled", logger.Fields{
		"auction_id": id,
		"caller":     caller.AccountID,
		"refunded":   refunded,
	})
	return auction, nil
}

// Finalize settles an active auction. A finalized auction yields
// ErrAlreadyFinalized so a second call never pays twice.
func (s *SettlementService) Finalize(ctx context.Context, caller Caller, id string) (*SettlementResult, error) {
	now := s.now()
	var result *SettlementResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		auction, err := s.lockManaged(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		switch auction.Status {
		case model.AuctionStatusActive:
		case model.AuctionStatusFinalized:
			return bizerr.ErrAlreadyFinalized
		default:
			return fmt.Errorf("%w: auction is %s", bizerr.ErrAuctionNotOpen, auction.Status)
		}

		bids, err := s.bidRepo.ListActiveForUpdate(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("load active bids: %w", err)
		}

		result, err = s.settle(ctx, tx, auction, bids, now)
		if err != nil {
			return err
		}

		extra := map[string]interface{}{
			"final_price":  result.FinalPrice,
			"finalized_at": now,
		}
		if result.Winner != nil {
			extra["winner_id"] = result.Winner.BidderID
		}
		if err := s.auctionRepo.UpdateStatus(ctx, tx, id, model.AuctionStatusActive, model.AuctionStatusFinalized, extra); err != nil {
			return err
		}
		auction.Status = model.AuctionStatusFinalized
		auction.FinalPrice = decimal.NewNullDecimal(result.FinalPrice)
		auction.FinalizedAt = &now
		auction.Version++
		if result.Winner != nil {
			winnerID := result.Winner.BidderID
			auction.WinnerID = &winnerID
		}

		finalPrice := result.FinalPrice
		return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.AuctionEvents, id, model.EventAuctionFinalized, AuctionEvent{
			AuctionID:  id,
			SellerID:   auction.SellerID,
			Status:     auction.Status,
			Outcome:    result.Outcome,
			WinnerID:   auction.WinnerID,
			FinalPrice: &finalPrice,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.WithLabelValues(result.Outcome).Inc()
	logger.Info("auction finalized", logger.Fields{
		"auction_id":  id,
		"caller":      caller.AccountID,
		"outcome":     result.Outcome,
		"final_price": result.FinalPrice.StringFixed(2),
	})
	return result, nil
}

// settle moves the money for a finalization and reports the outcome.
// The auction row itself is updated by the caller.
func (s *SettlementService) settle(ctx context.Context, tx *gorm.DB, auction *model.Auction, bids []*model.Bid, now time.Time) (*SettlementResult, error) {
	result := &SettlementResult{Auction: auction, FinalPrice: auction.StartPrice}

	winner := pickWinner(bids)
	if winner == nil {
		result.Outcome = OutcomeNoBids
		return result, nil
	}

	if auction.ReservePrice.Valid && winner.Amount.LessThan(auction.ReservePrice.Decimal) {
		for _, bid := range byBidder(bids) {
			if err := s.refund(ctx, tx, bid, now, "reserve price not met"); err != nil {
				return nil, err
			}
		}
		result.Outcome = OutcomeReserveNotMet
		return result, nil
	}

	// the winner's hold was already debited when the bid was placed
	if _, err := s.ledger.Adjust(ctx, tx, auction.SellerID, winner.Amount, model.EntryKindBidWinPayout, model.Reference{
		Type:   model.ReferenceTypeAuction,
		ID:     auction.ID,
		Remark: "winning bid " + winner.ID,
	}); err != nil {
		return nil, err
	}
	if err := s.bidRepo.UpdateStatus(ctx, tx, winner.ID, model.BidStatusActive, model.BidStatusWinning, &now); err != nil {
		return nil, err
	}
	winner.Status = model.BidStatusWinning
	winner.ReleasedAt = &now

	for _, bid := range byBidder(bids) {
		if bid.ID == winner.ID {
			continue
		}
		if err := s.refund(ctx, tx, bid, now, "outbid at settlement"); err != nil {
			return nil, err
		}
	}

	result.Winner = winner
	result.FinalPrice = winner.Amount
	result.Outcome = OutcomeSold
	return result, nil
}

func (s *SettlementService) refund(ctx context.Context, tx *gorm.DB, bid *model.Bid, now time.Time, remark string) error {
	if _, err := s.ledger.Adjust(ctx, tx, bid.BidderID, bid.Amount, model.EntryKindBidRefund, model.Reference{
		Type:   model.ReferenceTypeBid,
		ID:     bid.ID,
		Remark: remark,
	}); err != nil {
		return err
	}
	if err := s.bidRepo.UpdateStatus(ctx, tx, bid.ID, model.BidStatusActive, model.BidStatusRefunded, &now); err != nil {
		return err
	}
	bid.Status = model.BidStatusRefunded
	bid.ReleasedAt = &now
	return nil
}

func (s *SettlementService) lockManaged(ctx context.Context, tx *gorm.DB, caller Caller, id string) (*model.Auction, error) {
	auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !caller.canManage(auction) {
		return nil, fmt.Errorf("%w: only the seller or an admin can end this auction", bizerr.ErrUnauthorized)
	}
	return auction, nil
}

// byBidder returns bids sorted by bidder id. Refunds lock bidder accounts in
// this order, after the seller when there is one.
func byBidder(bids []*model.Bid) []*model.Bid {
	sorted := make([]*model.Bid, len(bids))
	copy(sorted, bids)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].BidderID != sorted[j].BidderID {
			return sorted[i].BidderID < sorted[j].BidderID
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// pickWinner returns the highest bid. Equal amounts go to the earlier bid,
// then to the lower id.
func pickWinner(bids []*model.Bid) *model.Bid {
	var best *model.Bid
	for _, bid := range bids {
		if best == nil || bid.Amount.GreaterThan(best.Amount) {
			best = bid
			continue
		}
		if bid.Amount.Equal(best.Amount) {
			if bid.CreatedAt.Before(best.CreatedAt) ||
				(bid.CreatedAt.Equal(best.CreatedAt) && bid.ID < best.ID) {
				best = bid
			}
		}
	}
	return best
}
