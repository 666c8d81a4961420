package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"vaultcore/internal/registry"
	"vaultcore/internal/services"
)

// RegistryHandler handles platform administration requests. Every mutation
// is checked against the registry owner by the service.
type RegistryHandler struct {
	registryService services.RegistryServicer
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registryService services.RegistryServicer) *RegistryHandler {
	return &RegistryHandler{registryService: registryService}
}

// FeeCeilingsRequest sets the platform fee ceilings in basis points.
type FeeCeilingsRequest struct {
	Streaming   uint32 `json:"streaming" binding:"bps"`
	Performance uint32 `json:"performance" binding:"bps"`
	Entry       uint32 `json:"entry" binding:"bps"`
	Exit        uint32 `json:"exit" binding:"bps"`
}

// TreasuryRequest sets the treasury and its share of manager fees.
type TreasuryRequest struct {
	Treasury string `json:"treasury" binding:"required,eth_addr"`
	ShareBps uint32 `json:"share_bps" binding:"bps"`
}

// AddressRequest carries a single address.
type AddressRequest struct {
	Address string `json:"address" binding:"required,eth_addr"`
}

// CooldownWhitelistRequest exempts or re-subjects a depositor.
type CooldownWhitelistRequest struct {
	Exempt *bool `json:"exempt" binding:"required"`
}

// AssetTypeRequest records the guard family of an asset.
type AssetTypeRequest struct {
	Family string `json:"family" binding:"required,asset_family"`
}

// ContractGuardRequest binds a contract guard to a target.
type ContractGuardRequest struct {
	Kind        string `json:"kind" binding:"required,guard_kind"`
	StakeToken  string `json:"stake_token" binding:"omitempty,eth_addr"`
	RewardToken string `json:"reward_token" binding:"omitempty,eth_addr"`
}

// GetRegistry returns the platform configuration
// @Summary     Get the registry
// @Tags        registry
// @Produce     json
// @Success     200 {object} services.RegistryView
// @Router      /registry [get]
func (h *RegistryHandler) GetRegistry(c *gin.Context) {
	view, err := h.registryService.GetRegistry(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registry": view})
}

// SetPaused pauses or resumes the whole platform
// @Summary     Pause the platform
// @Tags        registry
// @Accept      json
// @Security    BearerAuth
// @Param       request body PausedRequest true "Pause flag"
// @Failure     403 {object} ErrorResponse "Not the owner"
// @Router      /registry/paused [put]
func (h *RegistryHandler) SetPaused(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req PausedRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.registryService.SetPaused(c.Request.Context(), caller, *req.Paused); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *req.Paused})
}

// SetFeeCeilings replaces the fee ceilings.
func (h *RegistryHandler) SetFeeCeilings(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req FeeCeilingsRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	ceilings := registry.FeeCeilings{Streaming: req.Streaming, Performance: req.Performance, Entry: req.Entry, Exit: req.Exit}
	if err := h.registryService.SetFeeCeilings(c.Request.Context(), caller, ceilings); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_ceilings": ceilings})
}

// SetTreasury sets the treasury address and fee share.
func (h *RegistryHandler) SetTreasury(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req TreasuryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	treasury := common.HexToAddress(req.Treasury)
	if err := h.registryService.SetTreasury(c.Request.Context(), caller, treasury, req.ShareBps); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"treasury": treasury.Hex(), "share_bps": req.ShareBps})
}

// SetAddress records a named address in the address book.
func (h *RegistryHandler) SetAddress(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req AddressRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	name := c.Param("name")
	if err := h.registryService.SetAddress(c.Request.Context(), caller, name, common.HexToAddress(req.Address)); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "address": common.HexToAddress(req.Address).Hex()})
}

// SetCooldownWhitelist exempts a depositor from cooldowns.
func (h *RegistryHandler) SetCooldownWhitelist(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req CooldownWhitelistRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.registryService.SetCooldownWhitelist(c.Request.Context(), caller, addr, *req.Exempt); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex(), "exempt": *req.Exempt})
}

// SetAssetType records which asset guard values an asset.
func (h *RegistryHandler) SetAssetType(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	asset, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req AssetTypeRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.registryService.SetAssetType(c.Request.Context(), caller, asset, req.Family); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset.Hex(), "family": req.Family})
}

// SetContractGuard binds or removes the contract guard of a target.
func (h *RegistryHandler) SetContractGuard(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	target, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req ContractGuardRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	spec := services.ContractGuardSpec{Kind: req.Kind}
	if req.StakeToken != "" {
		spec.StakeToken = common.HexToAddress(req.StakeToken)
	}
	if req.RewardToken != "" {
		spec.RewardToken = common.HexToAddress(req.RewardToken)
	}
	if err := h.registryService.SetContractGuard(c.Request.Context(), caller, target, spec); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": target.Hex(), "kind": req.Kind})
}

// TransferOwnership hands the registry to a new owner.
func (h *RegistryHandler) TransferOwnership(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req AddressRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	next := common.HexToAddress(req.Address)
	if err := h.registryService.TransferOwnership(c.Request.Context(), caller, next); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": next.Hex()})
}
