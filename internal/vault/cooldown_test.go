package vault

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
)

func TestCalculateCooldown(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name      string
		balance   int64
		minted    int64
		newCD     time.Duration
		lastCD    time.Duration
		lastDepAt time.Time
		want      time.Duration
	}{
		{
			name:    "small_top_up_blends",
			balance: 1000, minted: 10,
			newCD: day, lastCD: day, lastDepAt: now.Add(-time.Hour),
			want: 83664 * time.Second,
		},
		{
			name:    "doubling_takes_max",
			balance: 1000, minted: 1000,
			newCD: day, lastCD: day, lastDepAt: now.Add(-time.Hour),
			want: day,
		},
		{
			name:    "first_deposit",
			balance: 0, minted: 500,
			newCD: day, lastCD: 0, lastDepAt: time.Time{},
			want: day,
		},
		{
			name:    "long_remaining_is_kept",
			balance: 1000, minted: 2000,
			newCD: time.Hour, lastCD: 2 * day, lastDepAt: now.Add(-day),
			want: day,
		},
		{
			name:    "candidate_over_new_falls_back",
			balance: 100, minted: 50,
			newCD: day, lastCD: day, lastDepAt: now.Add(-time.Hour),
			want: day,
		},
		{
			name:    "dust_deposit_gets_one_second",
			balance: 1_000_000_000, minted: 1,
			newCD: time.Hour, lastCD: time.Hour, lastDepAt: now.Add(-2 * time.Hour),
			want: time.Second,
		},
		{
			name:    "zero_minted_zero_cooldown",
			balance: 1000, minted: 0,
			newCD: 0, lastCD: time.Hour, lastDepAt: now.Add(-2 * time.Hour),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCooldown(sdkmath.NewInt(tt.balance), sdkmath.NewInt(tt.minted), tt.newCD, tt.lastCD, tt.lastDepAt, now)
			if got != tt.want {
				t.Errorf("cooldown = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCalculateCooldownNeverShortensRemaining(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lastDep := now.Add(-30 * time.Minute)
	remaining := 2*time.Hour - 30*time.Minute

	for _, minted := range []int64{1, 10, 100, 1_000, 10_000, 100_000} {
		got := CalculateCooldown(sdkmath.NewInt(10_000), sdkmath.NewInt(minted), time.Hour, 2*time.Hour, lastDep, now)
		if got < remaining {
			t.Errorf("minted %d: cooldown %s shorter than remaining %s", minted, got, remaining)
		}
	}
}
