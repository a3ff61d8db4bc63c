package repository

import (
	"context"
	"errors"

	"nexos/internal/bizerr"
	"nexos/internal/model"

	"gorm.io/gorm"
)

// LedgerRepository only inserts and reads; ledger entries are never updated.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.LedgerEntry) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *LedgerRepository) GetByEntryNo(ctx context.Context, accountID, entryNo string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND entry_no = ?", accountID, entryNo).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID, kind string, p Page) ([]*model.LedgerEntry, int64, error) {
	var entries []*model.LedgerEntry
	var total int64
	page := p.normalize()

	query := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Where("account_id = ?", accountID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset(page.offset()).
		Limit(page.PageSize).
		Find(&entries).Error

	return entries, total, err
}

// ListByReference returns all entries caused by one auction or bid, oldest first.
func (r *LedgerRepository) ListByReference(ctx context.Context, referenceID string) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// Latest returns the newest entry of the account, or nil when it has none.
func (r *LedgerRepository) Latest(ctx context.Context, accountID string) (*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}
