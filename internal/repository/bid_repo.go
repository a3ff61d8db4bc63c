package repository

import (
	"context"
	"errors"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Create(ctx context.Context, tx *gorm.DB, bid *model.Bid) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(bid).Error
}

func (r *BidRepository) GetByID(ctx context.Context, id string) (*model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.ErrBidNotFound
		}
		return nil, err
	}
	return &bid, nil
}

// GetActiveForUpdate returns the bidder's standing bid on the auction, or nil.
func (r *BidRepository) GetActiveForUpdate(ctx context.Context, tx *gorm.DB, auctionID, bidderID string) (*model.Bid, error) {
	var bids []*model.Bid
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("auction_id = ? AND bidder_id = ? AND status = ?", auctionID, bidderID, model.BidStatusActive).
		Limit(1).
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, nil
	}
	return bids[0], nil
}

// ListActiveForUpdate returns every active bid on the auction in placement order.
func (r *BidRepository) ListActiveForUpdate(ctx context.Context, tx *gorm.DB, auctionID string) ([]*model.Bid, error) {
	var bids []*model.Bid
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("auction_id = ? AND status = ?", auctionID, model.BidStatusActive).
		Order("created_at ASC").
		Order("id ASC").
		Find(&bids).Error
	return bids, err
}

// UpdateStatus moves a bid out of fromStatus. releasedAt is recorded when the
// hold is given back or paid out.
func (r *BidRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id, fromStatus, toStatus string, releasedAt *time.Time) error {
	updates := map[string]interface{}{"status": toStatus}
	if releasedAt != nil {
		updates["released_at"] = releasedAt
	}

	result := tx.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerr.ErrConflict
	}
	return nil
}

// ListByAuction returns the newest bids on an auction first.
func (r *BidRepository) ListByAuction(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = 50
	}
	var bids []*model.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&bids).Error
	return bids, err
}

func (r *BidRepository) ListByBidder(ctx context.Context, bidderID, status string, p Page) ([]*model.Bid, int64, error) {
	var bids []*model.Bid
	var total int64
	page := p.normalize()

	query := r.db.WithContext(ctx).Model(&model.Bid{}).Where("bidder_id = ?", bidderID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.offset()).
		Limit(page.PageSize).
		Find(&bids).Error

	return bids, total, err
}
