package calldata

import (
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

func TestDecodeApprove(t *testing.T) {
	spender := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	data := MustEncode(ERC20, "approve", spender, sdkmath.NewInt(500))

	call, err := Decode(ERC20, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call.Name() != "approve" {
		t.Fatalf("expected approve, got %s", call.Name())
	}
	got, err := call.Address(0)
	if err != nil || got != spender {
		t.Errorf("spender = %s, %v", got.Hex(), err)
	}
	amt, err := call.Amount(1)
	if err != nil || !amt.Equal(sdkmath.NewInt(500)) {
		t.Errorf("amount = %s, %v", amt, err)
	}
}

func TestDecodeSwapPath(t *testing.T) {
	path := []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		common.HexToAddress("0x0000000000000000000000000000000000000002"),
	}
	to := common.HexToAddress("0x0000000000000000000000000000000000000003")
	data := MustEncode(Router, "swapExactTokensForTokens",
		sdkmath.NewInt(10), sdkmath.ZeroInt(), path, to, big.NewInt(0))

	call, err := Decode(Router, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := call.Path(2)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if len(got) != 2 || got[1] != path[1] {
		t.Errorf("unexpected path %v", got)
	}
	recipient, _ := call.Address(3)
	if recipient != to {
		t.Errorf("recipient = %s", recipient.Hex())
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		if _, err := Decode(ERC20, []byte{0x01}); err != ErrShortCallData {
			t.Fatalf("expected ErrShortCallData, got %v", err)
		}
	})
	t.Run("unknown_selector", func(t *testing.T) {
		data := MustEncode(Staking, "getReward")
		if _, err := Decode(ERC20, data); err == nil {
			t.Fatal("expected error for foreign selector")
		}
	})
}

func TestUintRoundTrip(t *testing.T) {
	v := sdkmath.NewIntWithDecimal(7, 20)
	got, err := DecodeUint(EncodeUint(v))
	if err != nil || !got.Equal(v) {
		t.Fatalf("got %s, %v", got, err)
	}
}
