package handler

import (
	"context"

	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/internal/service"
)

//go:generate mockgen -source=services.go -destination=mock_services_test.go -package=handler

type WalletService interface {
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	EnsureAccount(ctx context.Context, accountID, kind, role, name string) (*model.Account, error)
	Deposit(ctx context.Context, accountID string, req *service.WalletRequest) (*model.LedgerEntry, error)
	Withdraw(ctx context.Context, accountID string, req *service.WalletRequest) (*model.LedgerEntry, error)
	ListEntries(ctx context.Context, accountID, kind string, page, pageSize int) ([]*model.LedgerEntry, int64, error)
	GetEntry(ctx context.Context, accountID, entryNo string) (*model.LedgerEntry, error)
}

type AuctionService interface {
	Create(ctx context.Context, sellerID string, req *service.CreateAuctionRequest) (*model.Auction, error)
	Get(ctx context.Context, id string) (*model.Auction, error)
	List(ctx context.Context, filter repository.AuctionFilter) ([]*model.Auction, int64, error)
	Update(ctx context.Context, caller service.Caller, id string, req *service.UpdateAuctionRequest) (*model.Auction, error)
	Pause(ctx context.Context, caller service.Caller, id string) (*model.Auction, error)
	Resume(ctx context.Context, caller service.Caller, id string) (*model.Auction, error)
}

type BidService interface {
	PlaceBid(ctx context.Context, req *service.PlaceBidRequest) (*model.Bid, error)
	ListAuctionBids(ctx context.Context, auctionID string, limit int) ([]*model.Bid, error)
	ListMyBids(ctx context.Context, bidderID, status string, page, pageSize int) ([]*model.Bid, int64, error)
}

type SettlementService interface {
	Cancel(ctx context.Context, caller service.Caller, id string) (*model.Auction, error)
	Finalize(ctx context.Context, caller service.Caller, id string) (*service.SettlementResult, error)
}
