package service

import (
	"context"
	"testing"
	"time"

	"nexos/internal/bizerr"
	"nexos/internal/model"

	"github.com/stretchr/testify/require"
)

func TestFinalize_ReserveNotMet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.company(t, "c1")
	alice := env.user(t, "alice", "10000")
	bob := env.user(t, "bob", "10000")
	a := env.auction(t, seller, auctionOpts{start: "1000", increment: "100", reserve: "5000"})

	b1, err := env.bid(t, a.ID, alice, "3000")
	require.NoError(t, err)
	b2, err := env.bid(t, a.ID, bob, "4000")
	require.NoError(t, err)
	before := env.platformFunds(t)

	res, err := env.settlement.Finalize(ctx, seller, a.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeReserveNotMet, res.Outcome)
	require.Nil(t, res.Winner)
	require.True(t, res.FinalPrice.Equal(d("1000")))

	env.requireBalance(t, "c1", "0")
	env.requireBalance(t, "alice", "10000")
	env.requireBalance(t, "bob", "10000")
	require.Equal(t, model.BidStatusRefunded, env.bidStatus(t, b1.ID))
	require.Equal(t, model.BidStatusRefunded, env.bidStatus(t, b2.ID))

	got := env.loadAuction(t, a.ID)
	require.Equal(t, model.AuctionStatusFinalized, got.Status)
	require.Nil(t, got.WinnerID)
	require.NotNil(t, got.FinalizedAt)
	require.True(t, env.platformFunds(t).Equal(before))
}

func TestFinalize_Sold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.company(t, "c1")
	alice := env.user(t, "alice", "5000")
	bob := env.user(t, "bob", "5000")
	a := env.auction(t, seller, auctionOpts{start: "500", increment: "100"})

	losing, err := env.bid(t, a.ID, alice, "1000")
	require.NoError(t, err)
	winning, err := env.bid(t, a.ID, bob, "1500")
	require.NoError(t, err)
	before := env.platformFunds(t)

	env.advance(2 * time.Hour)
	res, err := env.settlement.Finalize(ctx, SystemCaller, a.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeSold, res.Outcome)
	require.Equal(t, winning.ID, res.Winner.ID)
	require.True(t, res.FinalPrice.Equal(d("1500")))

	env.requireBalance(t, "c1", "1500")
	env.requireBalance(t, "alice", "5000")
	env.requireBalance(t, "bob", "3500")
	require.Equal(t, model.BidStatusWinning, env.bidStatus(t, winning.ID))
	require.Equal(t, model.BidStatusRefunded, env.bidStatus(t, losing.ID))

	got := env.loadAuction(t, a.ID)
	require.Equal(t, model.AuctionStatusFinalized, got.Status)
	require.NotNil(t, got.WinnerID)
	require.Equal(t, "bob", *got.WinnerID)
	require.True(t, got.FinalPrice.Valid)
	require.True(t, got.FinalPrice.Decimal.Equal(d("1500")))

	// the winning hold became the payout
	require.True(t, env.platformFunds(t).Equal(before))
	require.True(t, env.entriesSum(t, "c1").Equal(d("1500")))
	require.Contains(t, env.events(t, a.ID), model.EventAuctionFinalized)
}

func TestFinalize_NoBids(t *testing.T) {
	env := newTestEnv(t)
	seller := env.company(t, "c1")
	a := env.auction(t, seller, auctionOpts{start: "750"})

	res, err := env.settlement.Finalize(context.Background(), admin, a.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoBids, res.Outcome)
	require.Nil(t, res.Winner)
	require.True(t, res.FinalPrice.Equal(d("750")))
	env.requireBalance(t, "c1", "0")
}

func TestFinalize_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.company(t, "c1")
	alice := env.user(t, "alice", "5000")
	a := env.auction(t, seller, auctionOpts{start: "100", increment: "10"})
	_, err := env.bid(t, a.ID, alice, "200")
	require.NoError(t, err)

	_, err = env.settlement.Finalize(ctx, seller, a.ID)
	require.NoError(t, err)
	_, err = env.settlement.Finalize(ctx, seller, a.ID)
	require.ErrorIs(t, err, bizerr.ErrAlreadyFinalized)

	env.requireBalance(t, "c1", "200")
	env.requireBalance(t, "alice", "4800")

	// no bids or cancellation after finalization either
	_, err = env.bid(t, a.ID, alice, "300")
	require.ErrorIs(t, err, bizerr.ErrAuctionNotOpen)
	_, err = env.settlement.Cancel(ctx, seller, a.ID)
	require.ErrorIs(t, err, bizerr.ErrAuctionNotOpen)
}

func TestFinalize_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.company(t, "c1")
	other := env.company(t, "c2")
	bidder := env.user(t, "alice", "0")

	cancelled := env.auction(t, seller, auctionOpts{start: "100"})
	_, err := env.settlement.Cancel(ctx, seller, cancelled.ID)
	require.NoError(t, err)
	paused := env.auction(t, seller, auctionOpts{start: "100"})
	_, err = env.auctions.Pause(ctx, seller, paused.ID)
	require.NoError(t, err)
	open := env.auction(t, seller, auctionOpts{start: "100"})

	tests := []struct {
		name    string
		caller  Caller
		id      string
		wantErr error
	}{
		{"cancelled", seller, cancelled.ID, bizerr.ErrAuctionNotOpen},
		{"paused", seller, paused.ID, bizerr.ErrAuctionNotOpen},
		{"missing", seller, "missing", bizerr.ErrNotFound},
		{"other company", other, open.ID, bizerr.ErrUnauthorized},
		{"bidder", bidder, open.ID, bizerr.ErrUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.settlement.Finalize(ctx, tc.caller, tc.id)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
	require.Equal(t, model.AuctionStatusActive, env.loadAuction(t, open.ID).Status)
}

func TestCancel_RefundsAllBids(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.company(t, "c1")
	alice := env.user(t, "alice", "1000")
	bob := env.user(t, "bob", "1000")
	a := env.auction(t, seller, auctionOpts{start: "500", increment: "100"})

	b1, err := env.bid(t, a.ID, alice, "800")
	require.NoError(t, err)
	b2, err := env.bid(t, a.ID, bob, "900")
	require.NoError(t, err)
	env.requireBalance(t, "alice", "200")
	env.requireBalance(t, "bob", "100")
	before := env.platformFunds(t)

	got, err := env.settlement.Cancel(ctx, admin, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionStatusCancelled, got.Status)
	require.Nil(t, got.WinnerID)

	env.requireBalance(t, "alice", "1000")
	env.requireBalance(t, "bob", "1000")
	env.requireBalance(t, "c1", "0")
	require.Equal(t, model.BidStatusRefunded, env.bidStatus(t, b1.ID))
	require.Equal(t, model.BidStatusRefunded, env.bidStatus(t, b2.ID))
	require.True(t, env.platformFunds(t).Equal(before))

	stored := env.loadAuction(t, a.ID)
	require.Equal(t, model.AuctionStatusCancelled, stored.Status)
	require.Nil(t, stored.WinnerID)

	// a second cancel must not refund again
	_, err = env.settlement.Cancel(ctx, admin, a.ID)
	require.ErrorIs(t, err, bizerr.ErrAuctionNotOpen)
	env.requireBalance(t, "alice", "1000")
	env.requireBalance(t, "bob", "1000")

	require.Equal(t, []string{
		model.EventAuctionCreated,
		model.EventBidPlaced,
		model.EventBidPlaced,
		model.EventAuctionCancelled,
	}, env.events(t, a.ID))
}

func TestCancel_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	seller := env.company(t, "c1")
	alice := env.user(t, "alice", "0")
	a := env.auction(t, seller, auctionOpts{start: "100"})

	_, err := env.settlement.Cancel(context.Background(), alice, a.ID)
	require.ErrorIs(t, err, bizerr.ErrUnauthorized)
	require.Equal(t, model.AuctionStatusActive, env.loadAuction(t, a.ID).Status)
}

func TestPickWinner(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bid := func(id, amount string, at time.Duration) *model.Bid {
		return &model.Bid{ID: id, Amount: d(amount), CreatedAt: t0.Add(at)}
	}

	tests := []struct {
		name string
		bids []*model.Bid
		want string
	}{
		{"empty", nil, ""},
		{"single", []*model.Bid{bid("a", "10", 0)}, "a"},
		{"highest amount", []*model.Bid{bid("a", "10", 0), bid("b", "30", time.Second), bid("c", "20", 2 * time.Second)}, "b"},
		{"tie goes to earliest", []*model.Bid{bid("late", "30", 5 * time.Second), bid("early", "30", time.Second)}, "early"},
		{"tie on time goes to lowest id", []*model.Bid{bid("b", "30", 0), bid("a", "30", 0)}, "a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pickWinner(tc.bids)
			if tc.want == "" {
				require.Nil(t, got)
				return
			}
			require.Equal(t, tc.want, got.ID)
		})
	}
}

func TestSettlement_RefundsInBidderOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.company(t, "c1")
	// placement order differs from account id order
	carol := env.user(t, "carol", "1000")
	alice := env.user(t, "alice", "1000")
	bob := env.user(t, "bob", "1000")
	dave := env.user(t, "dave", "1000")

	cancelled := env.auction(t, seller, auctionOpts{start: "100", increment: "10"})
	sold := env.auction(t, seller, auctionOpts{start: "100", increment: "10"})
	for i, b := range []Caller{carol, alice, bob} {
		_, err := env.bid(t, cancelled.ID, b, []string{"200", "300", "400"}[i])
		require.NoError(t, err)
	}
	for i, b := range []Caller{dave, carol, bob, alice} {
		_, err := env.bid(t, sold.ID, b, []string{"200", "300", "400", "500"}[i])
		require.NoError(t, err)
	}

	refundOrder := func(auctionID string) []string {
		var ids []string
		require.NoError(t, env.db.Model(&model.LedgerEntry{}).
			Joins("JOIN bid ON bid.id = ledger_entry.reference_id").
			Where("ledger_entry.kind = ? AND bid.auction_id = ?", model.EntryKindBidRefund, auctionID).
			Order("ledger_entry.id ASC").
			Pluck("ledger_entry.account_id", &ids).Error)
		return ids
	}

	_, err := env.settlement.Cancel(ctx, admin, cancelled.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, refundOrder(cancelled.ID))

	result, err := env.settlement.Finalize(ctx, admin, sold.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", result.Winner.BidderID)
	require.Equal(t, []string{"bob", "carol", "dave"}, refundOrder(sold.ID))
}

func TestByBidder(t *testing.T) {
	bids := []*model.Bid{
		{ID: "3", BidderID: "carol"},
		{ID: "2", BidderID: "alice"},
		{ID: "1", BidderID: "bob"},
	}
	sorted := byBidder(bids)

	var got []string
	for _, b := range sorted {
		got = append(got, b.BidderID)
	}
	require.Equal(t, []string{"alice", "bob", "carol"}, got)
	// input left untouched
	require.Equal(t, "carol", bids[0].BidderID)
}
