package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/services"
	"vaultcore/internal/store"
	"vaultcore/internal/vault"
)

// VaultHandler handles vault-related requests.
type VaultHandler struct {
	vaultService services.VaultServicer
	feeDelay     time.Duration
}

// NewVaultHandler creates a new VaultHandler. feeDelay is the fee increase
// timelock reported alongside pending fee changes.
func NewVaultHandler(vaultService services.VaultServicer, feeDelay time.Duration) *VaultHandler {
	return &VaultHandler{vaultService: vaultService, feeDelay: feeDelay}
}

// AssetRequest is one supported asset in a request.
type AssetRequest struct {
	Asset     string `json:"asset" binding:"required,eth_addr"`
	IsDeposit bool   `json:"is_deposit"`
}

// FeesRequest carries fee numerators in basis points.
type FeesRequest struct {
	Streaming   uint32 `json:"streaming" binding:"bps"`
	Performance uint32 `json:"performance" binding:"bps"`
	Entry       uint32 `json:"entry" binding:"bps"`
	Exit        uint32 `json:"exit" binding:"bps"`
}

func (f FeesRequest) fees() vault.Fees {
	return vault.Fees{Streaming: f.Streaming, Performance: f.Performance, Entry: f.Entry, Exit: f.Exit}
}

// CreateVaultRequest represents the request payload for creating a vault.
// The caller becomes its manager.
type CreateVaultRequest struct {
	Name    string         `json:"name" binding:"required,min=1,max=100"`
	Private bool           `json:"private"`
	Assets  []AssetRequest `json:"assets" binding:"required,min=1,dive"`
	Fees    FeesRequest    `json:"fees"`
	Members []string       `json:"members" binding:"dive,eth_addr"`
}

// DepositRequest represents the request payload for a deposit.
type DepositRequest struct {
	Asset  string `json:"asset" binding:"required,eth_addr"`
	Amount string `json:"amount" binding:"required,uint_string"`
}

// WithdrawRequest represents the request payload for a withdrawal.
type WithdrawRequest struct {
	Shares string `json:"shares" binding:"required,uint_string"`
}

// TransferSharesRequest represents the request payload for a share transfer.
type TransferSharesRequest struct {
	To     string `json:"to" binding:"required,eth_addr"`
	Shares string `json:"shares" binding:"required,uint_string"`
}

// CallRequest is one external call; Data is 0x-prefixed hex call data.
type CallRequest struct {
	Target string `json:"target" binding:"required,eth_addr"`
	Data   string `json:"data" binding:"required"`
}

// ExecuteRequest is an atomic batch of calls.
type ExecuteRequest struct {
	Calls []CallRequest `json:"calls" binding:"required,min=1,dive"`
}

// ChangeAssetsRequest adds and removes supported assets.
type ChangeAssetsRequest struct {
	Add    []AssetRequest `json:"add" binding:"dive"`
	Remove []string       `json:"remove" binding:"dive,eth_addr"`
}

// SetTraderRequest sets the trader; an empty trader clears it.
type SetTraderRequest struct {
	Trader string `json:"trader" binding:"omitempty,eth_addr"`
}

// MembersRequest lists member addresses.
type MembersRequest struct {
	Members []string `json:"members" binding:"required,min=1,dive,eth_addr"`
}

// PausedRequest toggles a pause flag.
type PausedRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

func assetConfigs(in []AssetRequest) []vault.AssetConfig {
	out := make([]vault.AssetConfig, 0, len(in))
	for _, a := range in {
		out = append(out, vault.AssetConfig{Asset: common.HexToAddress(a.Asset), IsDeposit: a.IsDeposit})
	}
	return out
}

// callerAndVault resolves the authenticated caller and the :address param.
func callerAndVault(c *gin.Context) (caller, addr common.Address, err error) {
	if caller, err = getCaller(c); err != nil {
		return
	}
	addr, err = parseAddressParam(c, "address")
	return
}

// CreateVault handles the creation of a new vault
// @Summary     Create a vault
// @Description Deploy a new vault managed by the authenticated address
// @Tags        vaults
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateVaultRequest true "Vault details"
// @Success     201 {object} VaultResponse "Vault created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /vaults [post]
func (h *VaultHandler) CreateVault(c *gin.Context) {
	caller, err := getCaller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateVaultRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	members, err := parseAddresses(req.Members, "member")
	if err != nil {
		respondWithError(c, err)
		return
	}

	v, err := h.vaultService.CreateVault(c.Request.Context(), vault.CreateRequest{
		Manager: caller,
		Name:    req.Name,
		Private: req.Private,
		Assets:  assetConfigs(req.Assets),
		Fees:    req.Fees.fees(),
		Members: members,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vault": newVaultResponse(v, h.feeDelay)})
}

// ListVaults returns every vault
// @Summary     List vaults
// @Tags        vaults
// @Produce     json
// @Success     200 {array} VaultResponse
// @Router      /vaults [get]
func (h *VaultHandler) ListVaults(c *gin.Context) {
	vaults, err := h.vaultService.ListVaults(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	out := make([]VaultResponse, 0, len(vaults))
	for _, v := range vaults {
		out = append(out, newVaultResponse(v, h.feeDelay))
	}
	c.JSON(http.StatusOK, gin.H{"vaults": out})
}

// GetVault returns one vault
// @Summary     Get a vault
// @Tags        vaults
// @Produce     json
// @Param       address path string true "Vault address"
// @Success     200 {object} VaultResponse
// @Failure     404 {object} ErrorResponse "Vault not found"
// @Router      /vaults/{address} [get]
func (h *VaultHandler) GetVault(c *gin.Context) {
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	v, err := h.vaultService.GetVault(c.Request.Context(), addr)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vault": newVaultResponse(v, h.feeDelay)})
}

// GetSummary values a vault at current prices
// @Summary     Get a vault summary
// @Tags        vaults
// @Produce     json
// @Param       address path string true "Vault address"
// @Success     200 {object} SummaryResponse
// @Failure     404 {object} ErrorResponse "Vault not found"
// @Failure     503 {object} ErrorResponse "Price unavailable"
// @Router      /vaults/{address}/summary [get]
func (h *VaultHandler) GetSummary(c *gin.Context) {
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	s, err := h.vaultService.GetSummary(c.Request.Context(), addr)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": newSummaryResponse(s, h.feeDelay)})
}

// GetPosition returns a holder's shares and remaining cooldown
// @Summary     Get a position
// @Tags        vaults
// @Produce     json
// @Param       address path string true "Vault address"
// @Param       holder  path string true "Holder address"
// @Router      /vaults/{address}/positions/{holder} [get]
func (h *VaultHandler) GetPosition(c *gin.Context) {
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	holder, err := parseAddressParam(c, "holder")
	if err != nil {
		respondWithError(c, err)
		return
	}
	p, err := h.vaultService.GetPosition(c.Request.Context(), addr, holder)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": gin.H{
		"vault":                      p.Vault.Hex(),
		"holder":                     p.Holder.Hex(),
		"shares":                     intString(p.Shares),
		"cooldown_remaining_seconds": int64(p.CooldownRemaining / time.Second),
	}})
}

// ListEvents returns the vault's audit trail, newest first
// @Summary     List vault events
// @Tags        vaults
// @Produce     json
// @Param       address   path  string true  "Vault address"
// @Param       kind      query string false "Event kind"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Page size"
// @Router      /vaults/{address}/events [get]
func (h *VaultHandler) ListEvents(c *gin.Context) {
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	var page store.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	events, err := h.vaultService.ListEvents(c.Request.Context(), addr, c.Query("kind"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Deposit handles a deposit into a vault
// @Summary     Deposit
// @Description Deposit a deposit asset and receive vault shares
// @Tags        vaults
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       address path string true "Vault address"
// @Param       request body DepositRequest true "Deposit"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /vaults/{address}/deposit [post]
func (h *VaultHandler) Deposit(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req DepositRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	amt, err := parseAmount(req.Amount, "amount")
	if err != nil {
		respondWithError(c, err)
		return
	}

	res, err := h.vaultService.Deposit(c.Request.Context(), addr, caller, common.HexToAddress(req.Asset), amt)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposit": gin.H{
		"shares":           intString(res.Shares),
		"entry_fee_shares": intString(res.EntryFee),
		"value":            intString(res.ValueUSD),
		"cooldown_seconds": int64(res.Cooldown / time.Second),
	}})
}

// Withdraw handles a withdrawal from a vault
// @Summary     Withdraw
// @Description Burn shares and receive the proportional share of every asset
// @Tags        vaults
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       address path string true "Vault address"
// @Param       request body WithdrawRequest true "Withdrawal"
// @Failure     403 {object} ErrorResponse "Cooldown active"
// @Router      /vaults/{address}/withdraw [post]
func (h *VaultHandler) Withdraw(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req WithdrawRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	shares, err := parseAmount(req.Shares, "shares")
	if err != nil {
		respondWithError(c, err)
		return
	}

	res, err := h.vaultService.Withdraw(c.Request.Context(), addr, caller, shares)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transfers := make([]TransferResponse, 0, len(res.Transfers))
	for _, t := range res.Transfers {
		transfers = append(transfers, TransferResponse{Asset: t.Asset.Hex(), Amount: intString(t.Amount)})
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": gin.H{
		"redeemed":        intString(res.Redeemed),
		"exit_fee_shares": intString(res.ExitFee),
		"transfers":       transfers,
	}})
}

// TransferShares moves shares to another holder.
func (h *VaultHandler) TransferShares(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req TransferSharesRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	shares, err := parseAmount(req.Shares, "shares")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.TransferShares(c.Request.Context(), addr, caller, common.HexToAddress(req.To), shares); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Shares transferred"})
}

// Execute runs an atomic batch of guarded calls from the vault
// @Summary     Execute transactions
// @Description Authorize and perform external calls on behalf of the vault
// @Tags        vaults
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       address path string true "Vault address"
// @Param       request body ExecuteRequest true "Calls"
// @Failure     403 {object} ErrorResponse "Rejected by a guard"
// @Failure     422 {object} ErrorResponse "Call failed"
// @Router      /vaults/{address}/execute [post]
func (h *VaultHandler) Execute(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req ExecuteRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	calls := make([]vault.Call, 0, len(req.Calls))
	for _, call := range req.Calls {
		data, err := hexutil.Decode(call.Data)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid call data"))
			return
		}
		calls = append(calls, vault.Call{Target: common.HexToAddress(call.Target), Data: data})
	}

	if err := h.vaultService.Execute(c.Request.Context(), addr, caller, calls); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transactions executed", "calls": len(calls)})
}

// MintManagerFee accrues and mints streaming and performance fees. Anyone
// may trigger it.
func (h *VaultHandler) MintManagerFee(c *gin.Context) {
	addr, err := parseAddressParam(c, "address")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.MintManagerFee(c.Request.Context(), addr); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Manager fee minted"})
}

// AnnounceFeeIncrease starts the fee increase timelock.
func (h *VaultHandler) AnnounceFeeIncrease(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req FeesRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.AnnounceFeeIncrease(c.Request.Context(), addr, caller, req.fees()); err != nil {
		respondWithError(c, err)
		return
	}
	v, err := h.vaultService.GetVault(c.Request.Context(), addr)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"pending_fees": newVaultResponse(v, h.feeDelay).PendingFees})
}

// CommitFeeIncrease applies an announced fee increase after the timelock.
func (h *VaultHandler) CommitFeeIncrease(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.CommitFeeIncrease(c.Request.Context(), addr, caller); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee increase committed"})
}

// RenounceFeeIncrease cancels an announced fee increase.
func (h *VaultHandler) RenounceFeeIncrease(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.RenounceFeeIncrease(c.Request.Context(), addr, caller); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee increase renounced"})
}

// DecreaseFees lowers fees immediately.
func (h *VaultHandler) DecreaseFees(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req FeesRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.DecreaseFees(c.Request.Context(), addr, caller, req.fees()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fees decreased"})
}

// ChangeAssets edits the vault's supported assets.
func (h *VaultHandler) ChangeAssets(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req ChangeAssetsRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	remove, err := parseAddresses(req.Remove, "asset")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := h.vaultService.ChangeAssets(c.Request.Context(), addr, caller, assetConfigs(req.Add), remove); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assets updated"})
}

// SetTrader designates the vault's trader.
func (h *VaultHandler) SetTrader(c *gin.Context) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req SetTraderRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	var trader common.Address
	if req.Trader != "" {
		trader = common.HexToAddress(req.Trader)
	}
	if err := h.vaultService.SetTrader(c.Request.Context(), addr, caller, trader); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trader updated"})
}

// AddMembers allows addresses to deposit into a private vault.
func (h *VaultHandler) AddMembers(c *gin.Context) {
	h.changeMembers(c, h.vaultService.AddMembers)
}

// RemoveMembers revokes deposit rights. Existing shares are untouched.
func (h *VaultHandler) RemoveMembers(c *gin.Context) {
	h.changeMembers(c, h.vaultService.RemoveMembers)
}

func (h *VaultHandler) changeMembers(c *gin.Context, apply func(ctx context.Context, addr, caller common.Address, members []common.Address) error) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req MembersRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	members, err := parseAddresses(req.Members, "member")
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := apply(c.Request.Context(), addr, caller, members); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Members updated"})
}

// SetPaused pauses or resumes the vault. Registry owner only.
func (h *VaultHandler) SetPaused(c *gin.Context) {
	h.setFlag(c, h.vaultService.SetPaused)
}

// SetTradingPaused pauses or resumes execution. Registry owner only.
func (h *VaultHandler) SetTradingPaused(c *gin.Context) {
	h.setFlag(c, h.vaultService.SetTradingPaused)
}

func (h *VaultHandler) setFlag(c *gin.Context, apply func(ctx context.Context, addr, caller common.Address, paused bool) error) {
	caller, addr, err := callerAndVault(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	var req PausedRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if err := apply(c.Request.Context(), addr, caller, *req.Paused); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *req.Paused})
}
