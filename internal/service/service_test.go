package service

import (
	"context"
	"testing"
	"time"

	"nexos/internal/config"
	"nexos/internal/infrastructure/lock"
	"nexos/internal/model"
	"nexos/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	admin = Caller{AccountID: "admin-1", Kind: model.AccountKindUser, Role: model.RoleAdmin}
)

type testEnv struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	cfg        *config.Config
	ledger     *Ledger
	wallet     *WalletService
	auctions   *AuctionService
	bids       *BidService
	settlement *SettlementService
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	mr, rdb := testutil.NewTestRedis(t)
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Topic: config.KafkaTopicConfig{
			AuctionEvents: "auction-events",
			WalletEvents:  "wallet-events",
		}},
	}

	ledger := NewLedger(db)
	env := &testEnv{
		db:         db,
		mr:         mr,
		rdb:        rdb,
		cfg:        cfg,
		ledger:     ledger,
		wallet:     NewWalletService(db, cfg, ledger),
		auctions:   NewAuctionService(db, cfg),
		bids:       NewBidService(db, cfg, lock.NewRedisLocker(rdb, 5*time.Second, 100), ledger),
		settlement: NewSettlementService(db, cfg, ledger),
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	env.wallet.now = clock
	env.auctions.now = clock
	env.bids.now = clock
	env.settlement.now = clock
	return env
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) advance(dur time.Duration) {
	e.now = e.now.Add(dur)
}

// user provisions a user account holding balance.
func (e *testEnv) user(t *testing.T, id, balance string) Caller {
	t.Helper()
	return e.account(t, id, model.AccountKindUser, balance)
}

func (e *testEnv) company(t *testing.T, id string) Caller {
	t.Helper()
	return e.account(t, id, model.AccountKindCompany, "0")
}

func (e *testEnv) account(t *testing.T, id, kind, balance string) Caller {
	t.Helper()
	ctx := context.Background()
	acc, err := e.wallet.EnsureAccount(ctx, id, kind, kind, id)
	require.NoError(t, err)
	if amount := d(balance); amount.IsPositive() {
		_, err := e.wallet.Deposit(ctx, id, &WalletRequest{Amount: amount})
		require.NoError(t, err)
	}
	return Caller{AccountID: acc.ID, Kind: acc.Kind, Role: acc.Role}
}

type auctionOpts struct {
	start     string
	increment string
	reserve   string
}

func (e *testEnv) auction(t *testing.T, seller Caller, o auctionOpts) *model.Auction {
	t.Helper()
	req := &CreateAuctionRequest{
		Title:      "Lot " + seller.AccountID,
		StartPrice: d(o.start),
		EndTime:    e.now.Add(time.Hour),
	}
	if o.increment != "" {
		inc := d(o.increment)
		req.MinIncrement = &inc
	}
	if o.reserve != "" {
		r := d(o.reserve)
		req.ReservePrice = &r
	}
	a, err := e.auctions.Create(context.Background(), seller.AccountID, req)
	require.NoError(t, err)
	e.advance(time.Second)
	return a
}

func (e *testEnv) bid(t *testing.T, auctionID string, bidder Caller, amount string) (*model.Bid, error) {
	t.Helper()
	b, err := e.bids.PlaceBid(context.Background(), &PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidder.AccountID,
		Amount:    d(amount),
	})
	e.advance(time.Second)
	return b, err
}

func (e *testEnv) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, err := e.wallet.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func (e *testEnv) requireBalance(t *testing.T, id, want string) {
	t.Helper()
	got := e.balance(t, id)
	require.True(t, got.Equal(d(want)), "balance of %s: want %s, got %s", id, want, got)
}

func (e *testEnv) loadAuction(t *testing.T, id string) *model.Auction {
	t.Helper()
	a, err := e.auctions.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (e *testEnv) activeBids(t *testing.T, auctionID, bidderID string) []*model.Bid {
	t.Helper()
	var bids []*model.Bid
	require.NoError(t, e.db.
		Where("auction_id = ? AND bidder_id = ? AND status = ?", auctionID, bidderID, model.BidStatusActive).
		Find(&bids).Error)
	return bids
}

func (e *testEnv) bidStatus(t *testing.T, id string) string {
	t.Helper()
	var bid model.Bid
	require.NoError(t, e.db.Where("id = ?", id).First(&bid).Error)
	return bid.Status
}

// platformFunds is every balance plus every outstanding hold.
func (e *testEnv) platformFunds(t *testing.T) decimal.Decimal {
	t.Helper()
	var accounts []*model.Account
	require.NoError(t, e.db.Find(&accounts).Error)
	var bids []*model.Bid
	require.NoError(t, e.db.Where("status = ?", model.BidStatusActive).Find(&bids).Error)

	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	for _, b := range bids {
		total = total.Add(b.Amount)
	}
	return total
}

func (e *testEnv) events(t *testing.T, key string) []string {
	t.Helper()
	var msgs []*model.OutboxMessage
	require.NoError(t, e.db.Where("message_key = ?", key).Order("id ASC").Find(&msgs).Error)
	types := make([]string, 0, len(msgs))
	for _, m := range msgs {
		types = append(types, m.EventType)
	}
	return types
}

// entriesSum is the net ledger movement of one account.
func (e *testEnv) entriesSum(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	var entries []*model.LedgerEntry
	require.NoError(t, e.db.Where("account_id = ?", accountID).Order("id ASC").Find(&entries).Error)
	sum := decimal.Zero
	prev := decimal.Zero
	for _, en := range entries {
		require.True(t, en.BalanceBefore.Equal(prev), "entry %s does not chain", en.EntryNo)
		require.True(t, en.BalanceAfter.Equal(en.BalanceBefore.Add(en.Amount)))
		prev = en.BalanceAfter
		sum = sum.Add(en.Amount)
	}
	return sum
}
