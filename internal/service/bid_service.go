package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/config"
	"nexos/internal/infrastructure/lock"
	"nexos/internal/infrastructure/metrics"
	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Locker serializes work on one key across instances.
type Locker interface {
	Acquire(ctx context.Context, key, owner string) (release func(context.Context) error, err error)
}

type BidService struct {
	db          *gorm.DB
	cfg         *config.Config
	locker      Locker
	ledger      *Ledger
	auctionRepo *repository.AuctionRepository
	accountRepo *repository.AccountRepository
	bidRepo     *repository.BidRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewBidService(db *gorm.DB, cfg *config.Config, locker Locker, ledger *Ledger) *BidService {
	return &BidService{
		db:          db,
		cfg:         cfg,
		locker:      locker,
		ledger:      ledger,
		auctionRepo: repository.NewAuctionRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		bidRepo:     repository.NewBidRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		now:         utcNow,
	}
}

// PlaceBid validates the bid against the locked auction row and, on success,
// swaps the bidder's standing hold for a hold of the new amount.
func (s *BidService) PlaceBid(ctx context.Context, req *PlaceBidRequest) (bid *model.Bid, err error) {
	timer := prometheus.NewTimer(metrics.BidLatency)
	defer func() {
		timer.ObserveDuration()
		metrics.BidsTotal.WithLabelValues(bidResult(err)).Inc()
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.AuctionKey(req.AuctionID), uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("lock auction %s: %w", req.AuctionID, err)
	}
	defer func() {
		if rerr := release(context.Background()); rerr != nil {
			logger.Warn("release auction lock failed", logger.Fields{"auction_id": req.AuctionID, "error": rerr.Error()})
		}
	}()

	var auction *model.Auction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		auction, bid, err = s.placeBid(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("bid placed", logger.Fields{
		"auction_id":    req.AuctionID,
		"bid_id":        bid.ID,
		"bidder_id":     req.BidderID,
		"amount":        req.Amount.StringFixed(2),
		"current_price": auction.CurrentPrice.StringFixed(2),
		"bid_count":     auction.BidCount,
	})
	return bid, nil
}

func (s *BidService) placeBid(ctx context.Context, tx *gorm.DB, req *PlaceBidRequest) (*model.Auction, *model.Bid, error) {
	now := s.now()

	auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, req.AuctionID)
	if err != nil {
		return nil, nil, err
	}
	if !auction.OpenAt(now) {
		return nil, nil, bizerr.ErrAuctionNotOpen
	}
	if auction.OwnedBy(req.BidderID) {
		return nil, nil, fmt.Errorf("%w: sellers cannot bid on their own auction", bizerr.ErrUnauthorized)
	}
	if minimum := auction.MinimumBid(); req.Amount.LessThan(minimum) {
		return nil, nil, fmt.Errorf("%w: the minimum acceptable bid is %s", bizerr.ErrBidTooLow, minimum.StringFixed(2))
	}

	bidder, err := s.accountRepo.GetByIDForUpdate(ctx, tx, req.BidderID)
	if err != nil {
		return nil, nil, err
	}
	// the standing hold is not spendable: the balance alone must cover the bid
	if bidder.Balance.LessThan(req.Amount) {
		return nil, nil, fmt.Errorf("%w: balance %s, bid %s",
			bizerr.ErrInsufficientFunds, bidder.Balance.StringFixed(2), req.Amount.StringFixed(2))
	}
	previous, err := s.bidRepo.GetActiveForUpdate(ctx, tx, req.AuctionID, req.BidderID)
	if err != nil {
		return nil, nil, fmt.Errorf("load standing bid: %w", err)
	}

	if previous != nil {
		if _, err := s.ledger.Adjust(ctx, tx, req.BidderID, previous.Amount, model.EntryKindBidRefund, model.Reference{
			Type:   model.ReferenceTypeBid,
			ID:     previous.ID,
			Remark: "superseded by a higher bid",
		}); err != nil {
			return nil, nil, err
		}
		if err := s.bidRepo.UpdateStatus(ctx, tx, previous.ID, model.BidStatusActive, model.BidStatusSuperseded, &now); err != nil {
			return nil, nil, err
		}
	}

	bid := &model.Bid{
		ID:        uuid.NewString(),
		AuctionID: req.AuctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		Status:    model.BidStatusActive,
		Automatic: req.Automatic,
		CreatedAt: now,
	}
	hold, err := s.ledger.Adjust(ctx, tx, req.BidderID, req.Amount.Neg(), model.EntryKindBidHold, model.Reference{
		Type:   model.ReferenceTypeBid,
		ID:     bid.ID,
		Remark: "hold for auction " + auction.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	bid.HoldEntryNo = hold.EntryNo
	if err := s.bidRepo.Create(ctx, tx, bid); err != nil {
		return nil, nil, fmt.Errorf("create bid: %w", err)
	}

	if err := s.auctionRepo.Update(ctx, tx, auction.ID, auction.Version, map[string]interface{}{
		"current_price": req.Amount,
		"bid_count":     gorm.Expr("bid_count + 1"),
	}); err != nil {
		return nil, nil, err
	}
	auction.CurrentPrice = req.Amount
	auction.BidCount++
	auction.Version++

	err = s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.AuctionEvents, auction.ID, model.EventBidPlaced, BidPlacedEvent{
		AuctionID:    auction.ID,
		BidID:        bid.ID,
		BidderID:     bid.BidderID,
		Amount:       bid.Amount,
		CurrentPrice: auction.CurrentPrice,
		BidCount:     auction.BidCount,
		Automatic:    bid.Automatic,
		PlacedAt:     now,
	})
	if err != nil {
		return nil, nil, err
	}
	return auction, bid, nil
}

// ListAuctionBids returns the newest bids on an existing auction.
func (s *BidService) ListAuctionBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error) {
	if _, err := s.auctionRepo.GetByID(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bidRepo.ListByAuction(ctx, auctionID, limit)
}

func (s *BidService) ListMyBids(ctx context.Context, bidderID, status string, page, pageSize int) ([]*model.Bid, int64, error) {
	return s.bidRepo.ListByBidder(ctx, bidderID, status, repository.Page{Page: page, PageSize: pageSize})
}

// bidResult is the metrics label for a PlaceBid outcome.
func bidResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, bizerr.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, bizerr.ErrNotFound):
		return "not_found"
	case errors.Is(err, bizerr.ErrAuctionNotOpen):
		return "not_open"
	case errors.Is(err, bizerr.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, bizerr.ErrBidTooLow):
		return "too_low"
	case errors.Is(err, bizerr.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, bizerr.ErrBusy):
		return "busy"
	case errors.Is(err, bizerr.ErrConflict):
		return "conflict"
	default:
		return metrics.ResultFailed
	}
}
