package handler

import (
	"strconv"

	"nexos/internal/auth"
	"nexos/internal/repository"
	"nexos/internal/service"
	"nexos/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	wallet     WalletService
	auctions   AuctionService
	bids       BidService
	settlement SettlementService
}

func NewHandler(wallet WalletService, auctions AuctionService, bids BidService, settlement SettlementService) *Handler {
	return &Handler{
		wallet:     wallet,
		auctions:   auctions,
		bids:       bids,
		settlement: settlement,
	}
}

// caller converts the verified token identity into a service caller.
func caller(c *gin.Context) (service.Caller, bool) {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return service.Caller{}, false
	}
	return service.Caller{
		AccountID: identity.AccountID,
		Kind:      identity.Kind,
		Role:      identity.Role,
	}, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func pageBody(list any, total int64, page, pageSize int) gin.H {
	return gin.H{
		"list":      list,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	}
}

// ============================================================
// auctions
// ============================================================

// ListAuctions
// GET /api/v1/auctions?status=&seller_id=&q=&page=&page_size=
func (h *Handler) ListAuctions(c *gin.Context) {
	page, pageSize := pageParams(c)
	auctions, total, err := h.auctions.List(c.Request.Context(), repository.AuctionFilter{
		Status:   c.Query("status"),
		SellerID: c.Query("seller_id"),
		Search:   c.Query("q"),
		Page:     repository.Page{Page: page, PageSize: pageSize},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, pageBody(auctions, total, page, pageSize))
}

// GET /api/v1/auctions/:id
func (h *Handler) GetAuction(c *gin.Context) {
	auction, err := h.auctions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, auction)
}

// POST /api/v1/auctions
func (h *Handler) CreateAuction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req service.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request payload")
		return
	}

	auction, err := h.auctions.Create(c.Request.Context(), who.AccountID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, "auction created", auction)
}

// PUT /api/v1/auctions/:id
func (h *Handler) UpdateAuction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req service.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request payload")
		return
	}

	auction, err := h.auctions.Update(c.Request.Context(), who, c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, auction)
}

// POST /api/v1/auctions/:id/pause
func (h *Handler) PauseAuction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	auction, err := h.auctions.Pause(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, auction)
}

// POST /api/v1/auctions/:id/resume
func (h *Handler) ResumeAuction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	auction, err := h.auctions.Resume(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, auction)
}

// CancelAuction refunds every standing bid.
// POST /api/v1/auctions/:id/cancel
func (h *Handler) CancelAuction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	auction, err := h.settlement.Cancel(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, auction)
}

// FinalizeAuction settles the auction now, whether or not its end time has passed.
// POST /api/v1/auctions/:id/finalize
func (h *Handler) FinalizeAuction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	result, err := h.settlement.Finalize(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// bids
// ============================================================

// POST /api/v1/auctions/:id/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	req := service.PlaceBidRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request payload")
		return
	}
	req.AuctionID = c.Param("id")
	req.BidderID = who.AccountID

	bid, err := h.bids.PlaceBid(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, "bid placed", bid)
}

// GET /api/v1/auctions/:id/bids?limit=
func (h *Handler) ListAuctionBids(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	bids, err := h.bids.ListAuctionBids(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, bids)
}

// GET /api/v1/bids/mine?status=&page=&page_size=
func (h *Handler) ListMyBids(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	bids, total, err := h.bids.ListMyBids(c.Request.Context(), who.AccountID, c.Query("status"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, pageBody(bids, total, page, pageSize))
}

// ============================================================
// wallet
// ============================================================

// GET /api/v1/account
func (h *Handler) GetAccount(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	account, err := h.wallet.GetAccount(c.Request.Context(), who.AccountID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, account)
}

// Deposit credits the caller's wallet. Funding is assumed to be settled
// upstream by the payment provider.
// POST /api/v1/wallet/deposit
func (h *Handler) Deposit(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req service.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request payload")
		return
	}
	entry, err := h.wallet.Deposit(c.Request.Context(), who.AccountID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, "deposit recorded", entry)
}

// POST /api/v1/wallet/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req service.WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request payload")
		return
	}
	entry, err := h.wallet.Withdraw(c.Request.Context(), who.AccountID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, "withdrawal recorded", entry)
}

// GET /api/v1/wallet/transactions?kind=&page=&page_size=
func (h *Handler) ListTransactions(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	entries, total, err := h.wallet.ListEntries(c.Request.Context(), who.AccountID, c.Query("kind"), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, pageBody(entries, total, page, pageSize))
}

// GET /api/v1/wallet/transactions/:entry_no
func (h *Handler) GetTransaction(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	entry, err := h.wallet.GetEntry(c.Request.Context(), who.AccountID, c.Param("entry_no"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entry)
}
