package job

import (
	"context"
	"time"

	"nexos/internal/config"
	"nexos/internal/infrastructure/metrics"
	"nexos/internal/repository"
	"nexos/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const auditPageSize = 200

// LedgerAuditJob checks that every account balance equals the balance_after
// of its newest ledger entry. It only reports; it never repairs.
type LedgerAuditJob struct {
	accountRepo *repository.AccountRepository
	ledgerRepo  *repository.LedgerRepository
	stopCh      chan struct{}
	interval    time.Duration
}

func NewLedgerAuditJob(db *gorm.DB, cfg *config.Config) *LedgerAuditJob {
	return &LedgerAuditJob{
		accountRepo: repository.NewAccountRepository(db),
		ledgerRepo:  repository.NewLedgerRepository(db),
		stopCh:      make(chan struct{}),
		interval:    time.Duration(cfg.Business.AuditIntervalSecs) * time.Second,
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	logger.Info("ledger audit job started", logger.Fields{"interval": j.interval.String()})

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("ledger audit job stopped", logger.Fields{"reason": "context done"})
			return
		case <-j.stopCh:
			logger.Info("ledger audit job stopped", nil)
			return
		case <-ticker.C:
			j.Audit(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

// Audit walks all accounts and returns the ids whose balance disagrees with the ledger.
func (j *LedgerAuditJob) Audit(ctx context.Context) []string {
	var mismatched []string
	afterID := ""

	for {
		accounts, err := j.accountRepo.ListAfter(ctx, afterID, auditPageSize)
		if err != nil {
			logger.Error("ledger audit: list accounts failed", logger.Fields{"error": err.Error()})
			return mismatched
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			latest, err := j.ledgerRepo.Latest(ctx, account.ID)
			if err != nil {
				logger.Error("ledger audit: load latest entry failed", logger.Fields{"account_id": account.ID, "error": err.Error()})
				continue
			}
			expected := decimal.Zero
			if latest != nil {
				expected = latest.BalanceAfter
			}
			if !account.Balance.Equal(expected) {
				mismatched = append(mismatched, account.ID)
				logger.Error("ledger audit: balance mismatch", logger.Fields{
					"account_id": account.ID,
					"balance":    account.Balance.StringFixed(2),
					"ledger":     expected.StringFixed(2),
				})
			}
		}
		afterID = accounts[len(accounts)-1].ID
	}

	metrics.LedgerAuditMismatches.Set(float64(len(mismatched)))
	return mismatched
}
