package handlers

import (
	"github.com/gin-gonic/gin"

	"vaultcore/internal/middleware"
)

// Handlers groups the HTTP handlers served under /api/v1.
type Handlers struct {
	Auth     *AuthHandler
	Vault    *VaultHandler
	Registry *RegistryHandler
	Price    *PriceHandler
}

// RegisterRoutes mounts every route on api. Mutating vault and registry
// routes require a bearer token signed with jwtSecret; price ingestion
// requires ingestKey.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, jwtSecret, ingestKey string) {
	auth := api.Group("/auth")
	{
		auth.POST("/challenge", h.Auth.Challenge)
		auth.POST("/verify", h.Auth.Verify)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	api.GET("/vaults", h.Vault.ListVaults)
	api.GET("/vaults/:address", h.Vault.GetVault)
	api.GET("/vaults/:address/summary", h.Vault.GetSummary)
	api.GET("/vaults/:address/positions/:holder", h.Vault.GetPosition)
	api.GET("/vaults/:address/events", h.Vault.ListEvents)
	api.POST("/vaults/:address/mint-fees", h.Vault.MintManagerFee)
	api.GET("/registry", h.Registry.GetRegistry)
	api.GET("/prices/:asset", h.Price.GetPrice)

	protected := api.Group("", middleware.AuthMiddleware(jwtSecret))
	{
		protected.POST("/vaults", h.Vault.CreateVault)
		v := protected.Group("/vaults/:address")
		v.POST("/deposit", h.Vault.Deposit)
		v.POST("/withdraw", h.Vault.Withdraw)
		v.POST("/transfer", h.Vault.TransferShares)
		v.POST("/execute", h.Vault.Execute)
		v.POST("/fees/announce", h.Vault.AnnounceFeeIncrease)
		v.POST("/fees/commit", h.Vault.CommitFeeIncrease)
		v.DELETE("/fees/pending", h.Vault.RenounceFeeIncrease)
		v.POST("/fees/decrease", h.Vault.DecreaseFees)
		v.POST("/assets", h.Vault.ChangeAssets)
		v.PUT("/trader", h.Vault.SetTrader)
		v.POST("/members", h.Vault.AddMembers)
		v.DELETE("/members", h.Vault.RemoveMembers)
		v.PUT("/paused", h.Vault.SetPaused)
		v.PUT("/trading-paused", h.Vault.SetTradingPaused)

		reg := protected.Group("/registry")
		reg.PUT("/paused", h.Registry.SetPaused)
		reg.PUT("/fee-ceilings", h.Registry.SetFeeCeilings)
		reg.PUT("/treasury", h.Registry.SetTreasury)
		reg.PUT("/addresses/:name", h.Registry.SetAddress)
		reg.PUT("/cooldown-whitelist/:address", h.Registry.SetCooldownWhitelist)
		reg.PUT("/assets/:address", h.Registry.SetAssetType)
		reg.PUT("/guards/:address", h.Registry.SetContractGuard)
		reg.PUT("/owner", h.Registry.TransferOwnership)
	}

	pipeline := api.Group("/pipeline", middleware.APIKeyAuth(ingestKey))
	pipeline.POST("/prices", h.Price.RecordPrices)
}
