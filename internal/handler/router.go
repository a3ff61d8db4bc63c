package handler

import (
	"net/http"

	"nexos/internal/auth"
	"nexos/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(h *Handler, jwtSecret []byte) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		api.GET("/auctions", h.ListAuctions)
		api.GET("/auctions/:id", h.GetAuction)
		api.GET("/auctions/:id/bids", h.ListAuctionBids)

		authed := api.Group("")
		authed.Use(auth.Authenticate(jwtSecret), ProvisionAccount(h.wallet))
		{
			authed.GET("/account", h.GetAccount)

			wallet := authed.Group("/wallet")
			{
				wallet.POST("/deposit", h.Deposit)
				wallet.POST("/withdraw", h.Withdraw)
				wallet.GET("/transactions", h.ListTransactions)
				wallet.GET("/transactions/:entry_no", h.GetTransaction)
			}

			bidder := authed.Group("")
			bidder.Use(auth.RequireKind(model.AccountKindUser))
			{
				bidder.POST("/auctions/:id/bids", h.PlaceBid)
				bidder.GET("/bids/mine", h.ListMyBids)
			}

			seller := authed.Group("/auctions")
			seller.Use(auth.RequireKind(model.AccountKindCompany))
			{
				seller.POST("", h.CreateAuction)
				seller.PUT("/:id", h.UpdateAuction)
				seller.POST("/:id/finalize", h.FinalizeAuction)
				seller.POST("/:id/cancel", h.CancelAuction)
				seller.POST("/:id/pause", h.PauseAuction)
				seller.POST("/:id/resume", h.ResumeAuction)
			}
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
