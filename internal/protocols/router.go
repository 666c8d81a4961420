package protocols

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"vaultcore/internal/amount"
	"vaultcore/internal/calldata"
	"vaultcore/internal/ledger"
	"vaultcore/internal/oracle"
)

// ErrSlippage is returned when a swap would pay out less than amountOutMin.
var ErrSlippage = errors.New("router: insufficient output amount")

// SwapRouter swaps tokens at oracle prices minus a fee, paying out of its
// own reserves. Inputs are pulled from the caller through an allowance.
type SwapRouter struct {
	Address common.Address
	Prices  oracle.PriceSource
	FeeBps  uint32
}

// Call implements ledger.Target.
func (r *SwapRouter) Call(ctx context.Context, l *ledger.Ledger, from common.Address, data []byte) ([]byte, error) {
	call, err := calldata.Decode(calldata.Router, data)
	if err != nil {
		return nil, err
	}
	if call.Name() != "swapExactTokensForTokens" {
		return nil, fmt.Errorf("router: unsupported method %s", call.Name())
	}

	amountIn, err := call.Amount(0)
	if err != nil {
		return nil, err
	}
	minOut, err := call.Amount(1)
	if err != nil {
		return nil, err
	}
	path, err := call.Path(2)
	if err != nil {
		return nil, err
	}
	to, err := call.Address(3)
	if err != nil {
		return nil, err
	}
	if len(path) < 2 {
		return nil, errors.New("router: path too short")
	}

	if err := l.TransferFrom(path[0], r.Address, from, r.Address, amountIn); err != nil {
		return nil, err
	}

	amounts := []*big.Int{amountIn.BigInt()}
	current := amountIn
	for i := 0; i < len(path)-1; i++ {
		out, err := r.Quote(ctx, l, path[i], path[i+1], current)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, out.BigInt())
		current = out
	}
	if current.LT(minOut) {
		return nil, fmt.Errorf("%w: %s < %s", ErrSlippage, current, minOut)
	}
	if err := l.Transfer(path[len(path)-1], r.Address, to, current); err != nil {
		return nil, err
	}
	return calldata.EncodeReturn(calldata.Router, "swapExactTokensForTokens", amounts)
}

// Quote returns the output of swapping amountIn of tokenIn into tokenOut.
func (r *SwapRouter) Quote(ctx context.Context, l *ledger.Ledger, tokenIn, tokenOut common.Address, amountIn sdkmath.Int) (sdkmath.Int, error) {
	inInfo, ok := l.Token(tokenIn)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ledger.ErrUnknownToken, tokenIn.Hex())
	}
	outInfo, ok := l.Token(tokenOut)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ledger.ErrUnknownToken, tokenOut.Hex())
	}
	inPrice, err := r.Prices.USDPrice(ctx, tokenIn)
	if err != nil {
		return sdkmath.Int{}, err
	}
	outPrice, err := r.Prices.USDPrice(ctx, tokenOut)
	if err != nil {
		return sdkmath.Int{}, err
	}

	value := oracle.USDValue(amountIn, inInfo.Decimals, inPrice)
	value = value.Sub(amount.Bps(value, r.FeeBps))
	// units = value * 10^dec / price, with price normalized to 18 decimals.
	return amount.MulDiv(value, amount.Pow10(outInfo.Decimals), outPrice.Normalized()), nil
}
