package repository

import (
	"context"
	"errors"

	"nexos/internal/bizerr"
	"nexos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByIDForUpdate reads the account with a row lock held until tx ends.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// SetBalance writes balance if the row is still at version and bumps the version.
// It is only called by the ledger.
func (r *AccountRepository) SetBalance(ctx context.Context, tx *gorm.DB, id string, balance decimal.Decimal, version int) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerr.ErrConflict
	}
	return nil
}

// GetOrCreate returns the account with template.ID, inserting template when it
// does not exist yet. Concurrent callers race on the primary key, not on a read.
func (r *AccountRepository) GetOrCreate(ctx context.Context, template *model.Account) (*model.Account, error) {
	account, err := r.GetByID(ctx, template.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, bizerr.ErrAccountNotFound) {
		return nil, err
	}

	newAccount := *template
	newAccount.Balance = decimal.Zero
	newAccount.Version = 0

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&newAccount).Error
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, template.ID)
}

// ListAfter pages through all accounts in id order, for batch jobs.
func (r *AccountRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
