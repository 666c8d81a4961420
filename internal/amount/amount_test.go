package amount

import (
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestMulDivFloors(t *testing.T) {
	got := MulDiv(sdkmath.NewInt(10), sdkmath.NewInt(7), sdkmath.NewInt(3))
	if !got.Equal(sdkmath.NewInt(23)) {
		t.Fatalf("expected 23, got %s", got)
	}
}

func TestBps(t *testing.T) {
	got := Bps(sdkmath.NewInt(1_000_000), 250)
	if !got.Equal(sdkmath.NewInt(25_000)) {
		t.Fatalf("expected 25000, got %s", got)
	}
}

func TestFraction(t *testing.T) {
	t.Run("half", func(t *testing.T) {
		f, err := NewFraction(sdkmath.NewInt(1), sdkmath.NewInt(2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.Of(sdkmath.NewInt(1001)); !got.Equal(sdkmath.NewInt(500)) {
			t.Errorf("expected 500, got %s", got)
		}
		if f.IsWhole() {
			t.Error("1/2 should not be whole")
		}
	})

	t.Run("rejects_zero_denominator", func(t *testing.T) {
		if _, err := NewFraction(sdkmath.NewInt(1), sdkmath.ZeroInt()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("rejects_more_than_whole", func(t *testing.T) {
		if _, err := NewFraction(sdkmath.NewInt(3), sdkmath.NewInt(2)); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestFormat(t *testing.T) {
	if got := Format(sdkmath.NewInt(1_500_000), 6); got != "1.5" {
		t.Errorf("expected 1.5, got %s", got)
	}
	if got := FormatUSD(Unit.MulRaw(3)); got != "3.00" {
		t.Errorf("expected 3.00, got %s", got)
	}
}

func TestWithinBps(t *testing.T) {
	want := sdkmath.NewInt(10_000)
	if !WithinBps(sdkmath.NewInt(9_990), want, 10) {
		t.Error("9990 should be within 10 bps of 10000")
	}
	if WithinBps(sdkmath.NewInt(9_980), want, 10) {
		t.Error("9980 should not be within 10 bps of 10000")
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in      string
		dec     uint8
		want    sdkmath.Int
		wantErr bool
	}{
		{"12.5", 6, sdkmath.NewInt(12_500_000), false},
		{"1", 18, Unit, false},
		{"0.000001", 6, sdkmath.OneInt(), false},
		{"0.0000001", 6, sdkmath.Int{}, true},
		{"abc", 6, sdkmath.Int{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseUnits(tc.in, tc.dec)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
