package handlers

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"vaultcore/internal/amount"
	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/middleware"
)

// ErrorResponse documents the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error middleware.ErrorBody `json:"error"`
}

// getCaller extracts the authenticated address from the Gin context.
// Returns ErrUnauthorized if not present.
func getCaller(c *gin.Context) (common.Address, error) {
	caller, ok := middleware.Caller(c)
	if !ok {
		return common.Address{}, apperrors.ErrUnauthorized
	}
	return caller, nil
}

// parseAddressParam parses a hex address path parameter.
func parseAddressParam(c *gin.Context, param string) (common.Address, error) {
	return parseAddress(c.Param(param), param)
}

func parseAddress(s, field string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+field)
	}
	return common.HexToAddress(s), nil
}

func parseAddresses(list []string, field string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(list))
	for _, s := range list {
		addr, err := parseAddress(s, field)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// parseAmount parses a base-units integer string.
func parseAmount(s, field string) (sdkmath.Int, error) {
	v, err := amount.Parse(s)
	if err != nil {
		return sdkmath.Int{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+field)
	}
	return v, nil
}

// bindJSON binds the request body, reporting binding failures as INVALID_INPUT.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

// respondWithError writes a consistent JSON error response.
func respondWithError(c *gin.Context, err error) {
	middleware.WriteError(c, err)
}
