package vault

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// CalculateCooldown blends a holder's remaining lockup with the cooldown of a
// new deposit. A deposit small relative to the existing balance extends the
// lockup proportionally instead of resetting it, so splitting one deposit
// into many small ones cannot shorten the lockup, and a large deposit cannot
// be used to game a short remaining lockup.
func CalculateCooldown(currentBalance, liquidityMinted sdkmath.Int, newCooldown, lastCooldown time.Duration, lastDeposit, now time.Time) time.Duration {
	newSecs := int64(newCooldown / time.Second)
	lastSecs := int64(lastCooldown / time.Second)

	elapsed := int64(now.Sub(lastDeposit) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := lastSecs - elapsed
	if remaining < 0 {
		remaining = 0
	}

	var cooldown int64
	if liquidityMinted.GTE(currentBalance) {
		cooldown = max(remaining, newSecs)
	} else {
		additional := sdkmath.NewInt(newSecs).Mul(liquidityMinted).Quo(currentBalance).Int64()
		candidate := remaining + additional
		if candidate <= newSecs {
			cooldown = candidate
		} else {
			cooldown = max(newSecs, remaining)
		}
	}

	if liquidityMinted.IsPositive() && cooldown == 0 {
		cooldown = 1
	}
	return time.Duration(cooldown) * time.Second
}
