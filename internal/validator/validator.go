// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var uintRegex = regexp.MustCompile(`^[0-9]+$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("eth_addr", validateAddress)
	_ = v.RegisterValidation("uint_string", validateUintString)
	_ = v.RegisterValidation("bps", validateBps)
	_ = v.RegisterValidation("guard_kind", validateGuardKind)
	_ = v.RegisterValidation("asset_family", validateAssetFamily)
}

func validateAddress(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// validateUintString accepts base-units amounts that fit in 256 bits.
func validateUintString(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !uintRegex.MatchString(s) {
		return false
	}
	n, ok := sdkmath.NewIntFromString(s)
	return ok && n.BigInt().BitLen() <= 256
}

func validateBps(fl validator.FieldLevel) bool {
	return fl.Field().Uint() <= 10_000
}

func validateGuardKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "none", "erc20", "swap_router", "staking":
		return true
	}
	return false
}

func validateAssetFamily(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "erc20", "staked_lp", "reward_bearing", "synthetic":
		return true
	}
	return false
}
