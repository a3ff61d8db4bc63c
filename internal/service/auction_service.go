package service

import (
	"context"
	"fmt"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/config"
	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AuctionService covers creation, edits and the pause/resume side of the
// lifecycle. Cancel and finalize move money and live in SettlementService.
type AuctionService struct {
	db          *gorm.DB
	cfg         *config.Config
	auctionRepo *repository.AuctionRepository
	accountRepo *repository.AccountRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewAuctionService(db *gorm.DB, cfg *config.Config) *AuctionService {
	return &AuctionService{
		db:          db,
		cfg:         cfg,
		auctionRepo: repository.NewAuctionRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		now:         utcNow,
	}
}

func (s *AuctionService) Create(ctx context.Context, sellerID string, req *CreateAuctionRequest) (*model.Auction, error) {
	now := s.now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	seller, err := s.accountRepo.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !seller.IsCompany() {
		return nil, fmt.Errorf("%w: only company accounts can create auctions", bizerr.ErrUnauthorized)
	}

	auction := &model.Auction{
		ID:           uuid.NewString(),
		SellerID:     sellerID,
		Title:        req.Title,
		Description:  req.Description,
		StartPrice:   req.StartPrice,
		CurrentPrice: req.StartPrice,
		MinIncrement: *req.MinIncrement,
		StartTime:    *req.StartTime,
		EndTime:      req.EndTime,
		Status:       model.AuctionStatusActive,
	}
	if req.ReservePrice != nil {
		auction.ReservePrice = decimal.NewNullDecimal(*req.ReservePrice)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.auctionRepo.Create(ctx, tx, auction); err != nil {
			return fmt.Errorf("create auction: %w", err)
		}
		return s.enqueue(ctx, tx, auction, model.EventAuctionCreated, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("auction created", logger.Fields{
		"auction_id":  auction.ID,
		"seller_id":   sellerID,
		"start_price": auction.StartPrice.StringFixed(2),
		"end_time":    auction.EndTime,
	})
	return auction, nil
}

func (s *AuctionService) Get(ctx context.Context, id string) (*model.Auction, error) {
	return s.auctionRepo.GetByID(ctx, id)
}

func (s *AuctionService) List(ctx context.Context, filter repository.AuctionFilter) ([]*model.Auction, int64, error) {
	return s.auctionRepo.List(ctx, filter)
}

// Update edits an active or paused auction owned by caller.
func (s *AuctionService) Update(ctx context.Context, caller Caller, id string, req *UpdateAuctionRequest) (*model.Auction, error) {
	now := s.now()
	var updated *model.Auction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !auction.OwnedBy(caller.AccountID) {
			return fmt.Errorf("%w: only the seller can edit this auction", bizerr.ErrUnauthorized)
		}
		if auction.Status != model.AuctionStatusActive && auction.Status != model.AuctionStatusPaused {
			return bizerr.ErrAuctionNotOpen
		}

		updates, err := s.applyUpdate(auction, req, now)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			updated = auction
			return nil
		}
		if err := s.auctionRepo.Update(ctx, tx, id, auction.Version, updates); err != nil {
			return err
		}
		auction.Version++
		updated = auction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyUpdate copies req onto auction and returns the changed columns.
func (s *AuctionService) applyUpdate(auction *model.Auction, req *UpdateAuctionRequest, now time.Time) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if req.changesPrices() && auction.BidCount > 0 {
		return nil, bizerr.Invalid("prices cannot change once the auction has bids")
	}

	if req.Title != nil {
		if *req.Title == "" || len(*req.Title) > 200 {
			return nil, bizerr.Invalid("title must be 1 to 200 characters")
		}
		auction.Title = *req.Title
		updates["title"] = auction.Title
	}
	if req.Description != nil {
		auction.Description = *req.Description
		updates["description"] = auction.Description
	}
	if req.EndTime != nil {
		end := req.EndTime.UTC()
		if !end.After(auction.StartTime) || !end.After(now) {
			return nil, bizerr.Invalid("end time must be after the start time and in the future")
		}
		auction.EndTime = end
		updates["end_time"] = end
	}
	if req.StartPrice != nil {
		if !validMoney(*req.StartPrice) {
			return nil, bizerr.Invalid("start price must be a non-negative amount with at most two decimal places")
		}
		auction.StartPrice = *req.StartPrice
		auction.CurrentPrice = *req.StartPrice
		updates["start_price"] = auction.StartPrice
		updates["current_price"] = auction.CurrentPrice
	}
	if req.MinIncrement != nil {
		if !req.MinIncrement.IsPositive() || !validMoney(*req.MinIncrement) {
			return nil, bizerr.Invalid("min increment must be a positive amount with at most two decimal places")
		}
		auction.MinIncrement = *req.MinIncrement
		updates["min_increment"] = auction.MinIncrement
	}
	if req.ReservePrice != nil {
		auction.ReservePrice = decimal.NewNullDecimal(*req.ReservePrice)
		updates["reserve_price"] = auction.ReservePrice
	}
	if auction.ReservePrice.Valid && auction.ReservePrice.Decimal.LessThan(auction.StartPrice) {
		return nil, bizerr.Invalid("reserve price must not be below the start price")
	}
	return updates, nil
}

func (s *AuctionService) Pause(ctx context.Context, caller Caller, id string) (*model.Auction, error) {
	return s.transition(ctx, caller, id, model.AuctionStatusActive, model.AuctionStatusPaused, model.EventAuctionPaused)
}

func (s *AuctionService) Resume(ctx context.Context, caller Caller, id string) (*model.Auction, error) {
	return s.transition(ctx, caller, id, model.AuctionStatusPaused, model.AuctionStatusActive, model.EventAuctionResumed)
}

func (s *AuctionService) transition(ctx context.Context, caller Caller, id, from, to, event string) (*model.Auction, error) {
	now := s.now()
	var result *model.Auction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !caller.canManage(auction) {
			return bizerr.ErrUnauthorized
		}
		if auction.Status != from {
			return fmt.Errorf("%w: auction is %s", bizerr.ErrAuctionNotOpen, auction.Status)
		}
		if err := s.auctionRepo.UpdateStatus(ctx, tx, id, from, to, nil); err != nil {
			return err
		}
		auction.Status = to
		auction.Version++
		result = auction
		return s.enqueue(ctx, tx, auction, event, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("auction status changed", logger.Fields{
		"auction_id": id,
		"from":       from,
		"to":         to,
		"caller":     caller.AccountID,
	})
	return result, nil
}

func (s *AuctionService) enqueue(ctx context.Context, tx *gorm.DB, a *model.Auction, eventType string, now time.Time) error {
	return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.AuctionEvents, a.ID, eventType, AuctionEvent{
		AuctionID:  a.ID,
		SellerID:   a.SellerID,
		Status:     a.Status,
		OccurredAt: now,
	})
}
