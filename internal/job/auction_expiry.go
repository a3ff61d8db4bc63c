package job

import (
	"context"
	"errors"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/config"
	"nexos/internal/repository"
	"nexos/internal/service"
	"nexos/pkg/logger"

	"gorm.io/gorm"
)

type Finalizer interface {
	Finalize(ctx context.Context, caller service.Caller, id string) (*service.SettlementResult, error)
}

// AuctionExpiryJob finalizes active auctions whose end time has passed.
type AuctionExpiryJob struct {
	auctionRepo *repository.AuctionRepository
	finalizer   Finalizer
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

func NewAuctionExpiryJob(db *gorm.DB, cfg *config.Config, finalizer Finalizer) *AuctionExpiryJob {
	return &AuctionExpiryJob{
		auctionRepo: repository.NewAuctionRepository(db),
		finalizer:   finalizer,
		stopCh:      make(chan struct{}),
		interval:    time.Duration(cfg.Business.ExpirySweepSeconds) * time.Second,
		batchSize:   cfg.Business.ExpiryBatchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (j *AuctionExpiryJob) Start(ctx context.Context) {
	logger.Info("auction expiry job started", logger.Fields{"interval": j.interval.String()})

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("auction expiry job stopped", logger.Fields{"reason": "context done"})
			return
		case <-j.stopCh:
			logger.Info("auction expiry job stopped", nil)
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *AuctionExpiryJob) Stop() {
	close(j.stopCh)
}

// Sweep finalizes one batch of expired auctions and returns how many it settled.
func (j *AuctionExpiryJob) Sweep(ctx context.Context) int {
	auctions, err := j.auctionRepo.ListExpired(ctx, j.now(), j.batchSize)
	if err != nil {
		logger.Error("list expired auctions failed", logger.Fields{"error": err.Error()})
		return 0
	}
	if len(auctions) == 0 {
		return 0
	}

	settled := 0
	for _, auction := range auctions {
		result, err := j.finalizer.Finalize(ctx, service.SystemCaller, auction.ID)
		if err != nil {
			// somebody else finalized or cancelled it first
			if errors.Is(err, bizerr.ErrAlreadyFinalized) || errors.Is(err, bizerr.ErrAuctionNotOpen) {
				continue
			}
			logger.Error("finalize expired auction failed", logger.Fields{
				"auction_id": auction.ID,
				"error":      err.Error(),
			})
			continue
		}
		settled++
		logger.Info("expired auction finalized", logger.Fields{
			"auction_id":  auction.ID,
			"outcome":     result.Outcome,
			"final_price": result.FinalPrice.StringFixed(2),
		})
	}

	logger.Info("auction expiry sweep finished", logger.Fields{"found": len(auctions), "finalized": settled})
	return settled
}
