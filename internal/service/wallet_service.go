package service

import (
	"context"
	"time"

	"nexos/internal/config"
	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletService struct {
	db          *gorm.DB
	cfg         *config.Config
	ledger      *Ledger
	accountRepo *repository.AccountRepository
	entryRepo   *repository.LedgerRepository
	outboxRepo  *repository.OutboxRepository
	now         func() time.Time
}

func NewWalletService(db *gorm.DB, cfg *config.Config, ledger *Ledger) *WalletService {
	return &WalletService{
		db:          db,
		cfg:         cfg,
		ledger:      ledger,
		accountRepo: repository.NewAccountRepository(db),
		entryRepo:   repository.NewLedgerRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		now:         utcNow,
	}
}

func (s *WalletService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.GetByID(ctx, accountID)
}

// EnsureAccount returns the account, provisioning an empty one on first sight.
func (s *WalletService) EnsureAccount(ctx context.Context, accountID, kind, role, name string) (*model.Account, error) {
	if !model.ValidAccountKind(kind) {
		kind = model.AccountKindUser
	}
	if role == "" {
		role = kind
	}
	return s.accountRepo.GetOrCreate(ctx, &model.Account{
		ID:   accountID,
		Kind: kind,
		Role: role,
		Name: name,
	})
}

func (s *WalletService) Deposit(ctx context.Context, accountID string, req *WalletRequest) (*model.LedgerEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.move(ctx, accountID, req.Amount, model.EntryKindDeposit, req.Remark)
}

func (s *WalletService) Withdraw(ctx context.Context, accountID string, req *WalletRequest) (*model.LedgerEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.move(ctx, accountID, req.Amount.Neg(), model.EntryKindWithdrawal, req.Remark)
}

func (s *WalletService) move(ctx context.Context, accountID string, delta decimal.Decimal, kind, remark string) (*model.LedgerEntry, error) {
	var entry *model.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.ledger.Adjust(ctx, tx, accountID, delta, kind, model.Reference{
			Type:   model.ReferenceTypeWallet,
			ID:     accountID,
			Remark: remark,
		})
		if err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, s.cfg.Kafka.Topic.WalletEvents, accountID, model.EventWalletChanged, WalletEvent{
			AccountID:    accountID,
			EntryNo:      entry.EntryNo,
			Kind:         kind,
			Amount:       delta,
			BalanceAfter: entry.BalanceAfter,
			OccurredAt:   s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("wallet balance changed", logger.Fields{
		"account_id": accountID,
		"kind":       kind,
		"amount":     delta.StringFixed(2),
		"entry_no":   entry.EntryNo,
	})
	return entry, nil
}

func (s *WalletService) ListEntries(ctx context.Context, accountID, kind string, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	return s.entryRepo.ListByAccount(ctx, accountID, kind, repository.Page{Page: page, PageSize: pageSize})
}

func (s *WalletService) GetEntry(ctx context.Context, accountID, entryNo string) (*model.LedgerEntry, error) {
	return s.entryRepo.GetByEntryNo(ctx, accountID, entryNo)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
