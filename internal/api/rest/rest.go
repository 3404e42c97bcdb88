package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenlink-eco/credit-engine/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler *Handler, authCfg middleware.AuthConfig) {
	// Health and metrics endpoints (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public read access
		v1.GET("/submissions/:id", handler.GetSubmission)
		v1.GET("/submissions", handler.ListSubmissions)
		v1.GET("/registry/stats", handler.RegistryStats)
		v1.GET("/tokens/:id", handler.GetToken)
		v1.GET("/tokens", handler.ListTokens)
		v1.GET("/listings/:id", handler.GetListing)
		v1.GET("/listings", handler.ListActiveListings)
		v1.GET("/market/stats", handler.MarketStats)
		v1.GET("/accounts/:id/balance", handler.GetBalance)
		v1.GET("/accounts/:id/roles", handler.GetRoles)
		v1.GET("/events", handler.ListEvents)

		// Mutations require authentication
		auth := v1.Group("", middleware.Auth(authCfg))
		{
			auth.POST("/submissions", handler.RegisterSubmission)
			auth.POST("/submissions/:id/tokenize", handler.Tokenize)
			auth.POST("/tokens/mint", handler.Mint)
			auth.POST("/tokens/mint-batch", handler.BatchMint)
			auth.POST("/tokens/:id/transfer", handler.Transfer)
			auth.POST("/listings", handler.CreateListing)
			auth.POST("/listings/:id/buy", handler.Buy)
			auth.PATCH("/listings/:id/price", handler.UpdateListingPrice)
			auth.POST("/listings/:id/cancel", handler.CancelListing)
			auth.POST("/listings/:id/emergency-return", handler.EmergencyReturn)
			auth.POST("/accounts/:id/deposit", handler.Deposit)

			auth.POST("/admin/pause", handler.Pause)
			auth.POST("/admin/unpause", handler.Unpause)
			auth.PUT("/admin/threshold", handler.SetThreshold)
			auth.PUT("/admin/fee", handler.SetFee)
			auth.PUT("/admin/submissions/:id", handler.OverrideSubmission)
			auth.POST("/admin/roles/grant", handler.GrantRole)
			auth.POST("/admin/roles/revoke", handler.RevokeRole)
			auth.PUT("/admin/base-locator", handler.SetBaseLocator)
		}
	}
}
