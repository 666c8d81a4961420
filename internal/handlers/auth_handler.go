package handlers

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/middleware"
	"vaultcore/internal/services"
)

// AuthHandler handles sign-in with an Ethereum key.
type AuthHandler struct {
	authService services.AuthServicer
	secret      string
	accessTTL   time.Duration
}

// NewAuthHandler creates a new AuthHandler issuing tokens signed with secret.
func NewAuthHandler(authService services.AuthServicer, secret string, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, secret: secret, accessTTL: accessTTL}
}

// ChallengeRequest asks for a sign-in challenge.
type ChallengeRequest struct {
	Address string `json:"address" binding:"required,eth_addr"`
}

// VerifyRequest carries the personal_sign signature of a challenge.
type VerifyRequest struct {
	Address   string `json:"address" binding:"required,eth_addr"`
	Signature string `json:"signature" binding:"required"`
}

// RefreshRequest represents the token refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Challenge issues a one-time message to sign
// @Summary     Request a sign-in challenge
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ChallengeRequest true "Address"
// @Success     200 {object} map[string]string "Message to sign"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /auth/challenge [post]
func (h *AuthHandler) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	msg, err := h.authService.Challenge(c.Request.Context(), common.HexToAddress(req.Address))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// Verify checks a signed challenge and issues tokens
// @Summary     Sign in
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body VerifyRequest true "Signed challenge"
// @Success     200 {object} middleware.TokenPair
// @Failure     401 {object} ErrorResponse "Invalid signature"
// @Router      /auth/verify [post]
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid signature encoding"))
		return
	}
	addr := common.HexToAddress(req.Address)
	if err := h.authService.Verify(c.Request.Context(), addr, sig); err != nil {
		respondWithError(c, err)
		return
	}
	h.issue(c, addr)
}

// Refresh exchanges a refresh token for a new token pair
// @Summary     Refresh tokens
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RefreshRequest true "Refresh token"
// @Success     200 {object} middleware.TokenPair
// @Failure     401 {object} ErrorResponse "Invalid refresh token"
// @Router      /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	addr, err := middleware.ValidateRefreshToken(h.secret, req.RefreshToken)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired refresh token"))
		return
	}
	h.issue(c, addr)
}

func (h *AuthHandler) issue(c *gin.Context, addr common.Address) {
	pair, err := middleware.IssueTokens(h.secret, addr, h.accessTTL)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex(), "tokens": pair})
}
