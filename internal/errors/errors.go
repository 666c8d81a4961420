// Package errors provides the enumerable rejection reasons of the vault engine.
// Every rejected operation returns an AppError so callers can tell authorization,
// accounting and lifecycle failures apart without parsing messages, and HTTP
// responses never leak internal details.
package errors

import (
	"errors"
	"net/http"
)

// Kind groups error codes into the engine's taxonomy.
type Kind string

const (
	KindAuthorization Kind = "authorization"
	KindAccounting    Kind = "accounting"
	KindLifecycle     Kind = "lifecycle"
	KindInternal      Kind = "internal"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Kind       Kind   `json:"kind"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError carrying the same code, so wrapped copies of a
// sentinel still satisfy errors.Is(err, sentinel).
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Kind:       sentinel.Kind,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// CodeOf returns the code of the AppError in err's chain, or "" when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func authz(code, msg string, status int) *AppError {
	return &AppError{Code: code, Message: msg, Kind: KindAuthorization, StatusCode: status}
}

func accounting(code, msg string, status int) *AppError {
	return &AppError{Code: code, Message: msg, Kind: KindAccounting, StatusCode: status}
}

func lifecycle(code, msg string, status int) *AppError {
	return &AppError{Code: code, Message: msg, Kind: KindLifecycle, StatusCode: status}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized          = authz("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrOnlyOwner             = authz("ONLY_OWNER", "only the registry owner", http.StatusForbidden)
	ErrOnlyManager           = authz("ONLY_MANAGER", "only the manager", http.StatusForbidden)
	ErrOnlyManagerOrTrader   = authz("ONLY_MANAGER_OR_TRADER", "only manager or trader", http.StatusForbidden)
	ErrInvalidDestination    = authz("INVALID_DESTINATION", "invalid destination", http.StatusForbidden)
	ErrSelfModification      = authz("SELF_MODIFICATION", "cannot call the vault settings", http.StatusForbidden)
	ErrUnsupportedAsset      = authz("UNSUPPORTED_ASSET", "unsupported asset", http.StatusForbidden)
	ErrUnsupportedSource     = authz("UNSUPPORTED_SOURCE_ASSET", "unsupported source asset", http.StatusForbidden)
	ErrUnsupportedDest       = authz("UNSUPPORTED_DESTINATION_ASSET", "unsupported destination asset", http.StatusForbidden)
	ErrRecipientNotPool      = authz("RECIPIENT_NOT_POOL", "recipient is not pool", http.StatusForbidden)
	ErrInvalidTransaction    = authz("INVALID_TRANSACTION", "invalid transaction", http.StatusForbidden)
	ErrUnapprovedSpender     = authz("UNAPPROVED_SPENDER", "unsupported spender approval", http.StatusForbidden)
	ErrCallFailed            = authz("CALL_FAILED", "failed to execute the call", http.StatusUnprocessableEntity)
	ErrReentrantCall         = authz("REENTRANT_CALL", "reentrant call into vault", http.StatusConflict)
	ErrNAVLossExceeded       = authz("NAV_LOSS_EXCEEDED", "transaction lost more value than allowed", http.StatusUnprocessableEntity)
	ErrUnexpectedAssetChange = authz("UNEXPECTED_ASSET_CHANGE", "call changed an unsupported asset balance", http.StatusUnprocessableEntity)
)

// Accounting errors.
var (
	ErrInvalidLiquidityMinted = accounting("INVALID_LIQUIDITY_MINTED", "invalid liquidityMinted", http.StatusBadRequest)
	ErrSupplyBelowFloor       = accounting("SUPPLY_BELOW_FLOOR", "remaining supply below minimum", http.StatusBadRequest)
	ErrInvalidDepositAsset    = accounting("INVALID_DEPOSIT_ASSET", "invalid deposit asset", http.StatusBadRequest)
	ErrAssetNotPriced         = accounting("ASSET_NOT_PRICED", "no asset guard for asset", http.StatusBadRequest)
	ErrPriceFeedMissing       = accounting("PRICE_FEED_MISSING", "price feed not found", http.StatusServiceUnavailable)
	ErrPriceFeedReverted      = accounting("PRICE_FEED_REVERTED", "price feed call failed", http.StatusServiceUnavailable)
	ErrPriceStale             = accounting("PRICE_STALE", "price is stale", http.StatusServiceUnavailable)
	ErrPriceNonPositive       = accounting("PRICE_NON_POSITIVE", "price is not positive", http.StatusServiceUnavailable)
	ErrFeeCeilingExceeded     = accounting("FEE_CEILING_EXCEEDED", "fee exceeds ceiling", http.StatusBadRequest)
	ErrFeeIncreaseNotReady    = accounting("FEE_INCREASE_NOT_READY", "fee increase delay not elapsed", http.StatusConflict)
	ErrNoPendingFeeChange     = accounting("NO_PENDING_FEE_CHANGE", "no fee increase announced", http.StatusConflict)
	ErrNotADecrease           = accounting("NOT_A_DECREASE", "fee change increases a fee", http.StatusBadRequest)
	ErrNotAnIncrease          = accounting("NOT_AN_INCREASE", "fee change raises no fee", http.StatusBadRequest)
	ErrAmountOutOfRange       = accounting("AMOUNT_OUT_OF_RANGE", "amount too large to value", http.StatusBadRequest)
	ErrInsufficientShares     = accounting("INSUFFICIENT_SHARES", "insufficient shares", http.StatusBadRequest)
	ErrInsufficientBalance    = accounting("INSUFFICIENT_BALANCE", "insufficient balance", http.StatusBadRequest)
	ErrAssetNotEmpty          = accounting("ASSET_NOT_EMPTY", "cannot remove non-empty asset", http.StatusConflict)
	ErrInvalidAmount          = accounting("INVALID_AMOUNT", "amount must be positive", http.StatusBadRequest)
	ErrWithdrawMismatch       = accounting("WITHDRAW_MISMATCH", "withdraw processing returned an unexpected amount", http.StatusUnprocessableEntity)
)

// Lifecycle errors.
var (
	ErrPaused         = lifecycle("PAUSED", "contracts paused", http.StatusServiceUnavailable)
	ErrTradingPaused  = lifecycle("TRADING_PAUSED", "trading paused", http.StatusServiceUnavailable)
	ErrCooldownActive = lifecycle("COOLDOWN_ACTIVE", "cooldown active", http.StatusForbidden)
	ErrNotMember      = lifecycle("NOT_A_MEMBER", "only members allowed", http.StatusForbidden)
	ErrVaultNotFound  = lifecycle("VAULT_NOT_FOUND", "vault not found", http.StatusNotFound)
	ErrVaultExists    = lifecycle("VAULT_EXISTS", "vault already exists", http.StatusConflict)
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", Kind: KindInternal, StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", Kind: KindInternal, StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", Kind: KindInternal, StatusCode: http.StatusInternalServerError}
)
