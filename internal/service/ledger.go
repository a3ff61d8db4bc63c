package service

import (
	"context"
	"fmt"

	"nexos/internal/bizerr"
	"nexos/internal/infrastructure/metrics"
	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger is the only writer of account balances. Every change it makes is
// paired with one LedgerEntry in the same transaction.
type Ledger struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	entryRepo   *repository.LedgerRepository
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		entryRepo:   repository.NewLedgerRepository(db),
	}
}

// Adjust adds delta to the account balance inside tx and records the entry.
// A debit that would take the balance below zero fails with
// ErrInsufficientFunds and changes nothing.
func (l *Ledger) Adjust(ctx context.Context, tx *gorm.DB, accountID string, delta decimal.Decimal, kind string, ref model.Reference) (*model.LedgerEntry, error) {
	if delta.IsZero() {
		return nil, bizerr.Invalid("ledger delta must not be zero")
	}

	account, err := l.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	after := account.Balance.Add(delta)
	if after.IsNegative() {
		return nil, fmt.Errorf("%w: balance %s, debit %s",
			bizerr.ErrInsufficientFunds, account.Balance.StringFixed(2), delta.Neg().StringFixed(2))
	}

	if err := l.accountRepo.SetBalance(ctx, tx, accountID, after, account.Version); err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		EntryNo:       idgen.GenerateEntryNo(),
		AccountID:     accountID,
		Kind:          kind,
		Amount:        delta,
		BalanceBefore: account.Balance,
		BalanceAfter:  after,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		Remark:        ref.Remark,
	}
	if err := l.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("write ledger entry: %w", err)
	}

	metrics.LedgerEntriesTotal.WithLabelValues(kind).Inc()
	return entry, nil
}

// Apply runs Adjust in a transaction of its own.
func (l *Ledger) Apply(ctx context.Context, accountID string, delta decimal.Decimal, kind string, ref model.Reference) (*model.LedgerEntry, error) {
	var entry *model.LedgerEntry
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = l.Adjust(ctx, tx, accountID, delta, kind, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
