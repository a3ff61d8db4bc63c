package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuctionFilter narrows List; zero values mean "any".
type AuctionFilter struct {
	Status   string
	SellerID string
	Search   string
	Page
}

type AuctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) Create(ctx context.Context, tx *gorm.DB, auction *model.Auction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(auction).Error
}

func (r *AuctionRepository) GetByID(ctx context.Context, id string) (*model.Auction, error) {
	var auction model.Auction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

// GetByIDForUpdate locks the auction row for the rest of tx. Bid placement,
// cancel and finalize all go through it, which serializes them per auction.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Auction, error) {
	var auction model.Auction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&auction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.ErrAuctionNotFound
		}
		return nil, err
	}
	return &auction, nil
}

// Update applies updates to the auction if it is still at version.
func (r *AuctionRepository) Update(ctx context.Context, tx *gorm.DB, id string, version int, updates map[string]interface{}) error {
	if tx == nil {
		tx = r.db
	}
	updates["version"] = gorm.Expr("version + 1")

	result := tx.WithContext(ctx).
		Model(&model.Auction{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerr.ErrConflict
	}
	return nil
}

// UpdateStatus moves the auction from fromStatus to toStatus, writing extra
// columns in the same statement.
func (r *AuctionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id, fromStatus, toStatus string, extra map[string]interface{}) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return bizerr.ErrAuctionNotOpen
	}
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status":  toStatus,
		"version": gorm.Expr("version + 1"),
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := tx.WithContext(ctx).
		Model(&model.Auction{}).
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

func (r *AuctionRepository) List(ctx context.Context, filter AuctionFilter) ([]*model.Auction, int64, error) {
	var auctions []*model.Auction
	var total int64
	page := filter.Page.normalize()

	query := r.db.WithContext(ctx).Model(&model.Auction{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.offset()).
		Limit(page.PageSize).
		Find(&auctions).Error

	return auctions, total, err
}

// ListExpired returns active auctions whose end time is before now, oldest first.
// Paused auctions are left out until they are resumed.
func (r *AuctionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Auction, error) {
	var auctions []*model.Auction
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time < ?", model.AuctionStatusActive, now).
		Order("end_time ASC").
		Limit(limit).
		Find(&auctions).Error
	return auctions, err
}
