// Package calldata holds the ABI definitions of the external targets a vault
// can call and helpers to encode and decode their call data.
package calldata

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrShortCallData is returned when call data is too short to carry a selector.
var ErrShortCallData = errors.New("call data shorter than a selector")

const erc20JSON = `[
 {"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const routerJSON = `[
 {"type":"function","name":"swapExactTokensForTokens","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const stakingJSON = `[
 {"type":"function","name":"stake","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"withdraw","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"getReward","inputs":[],"outputs":[]},
 {"type":"function","name":"exit","inputs":[],"outputs":[]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"earned","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Parsed ABIs of the supported external targets.
var (
	ERC20   = mustParse(erc20JSON)
	Router  = mustParse(routerJSON)
	Staking = mustParse(stakingJSON)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("calldata: parse abi: %v", err))
	}
	return parsed
}

// Call is a decoded method invocation.
type Call struct {
	Method *abi.Method
	Args   []interface{}
}

// Name returns the decoded method name.
func (c Call) Name() string { return c.Method.Name }

// Decode resolves the selector of data against def and unpacks its arguments.
func Decode(def abi.ABI, data []byte) (Call, error) {
	if len(data) < 4 {
		return Call{}, ErrShortCallData
	}
	method, err := def.MethodById(data[:4])
	if err != nil {
		return Call{}, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return Call{}, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	return Call{Method: method, Args: args}, nil
}

// Encode packs a method call, converting sdkmath.Int arguments to *big.Int.
func Encode(def abi.ABI, method string, args ...interface{}) ([]byte, error) {
	conv := make([]interface{}, len(args))
	for i, a := range args {
		if v, ok := a.(sdkmath.Int); ok {
			conv[i] = v.BigInt()
			continue
		}
		conv[i] = a
	}
	return def.Pack(method, conv...)
}

// MustEncode is Encode for statically known calls.
func MustEncode(def abi.ABI, method string, args ...interface{}) []byte {
	data, err := Encode(def, method, args...)
	if err != nil {
		panic(fmt.Sprintf("calldata: encode %s: %v", method, err))
	}
	return data
}

// EncodeUint packs a single uint256 return value.
func EncodeUint(v sdkmath.Int) []byte {
	return common.LeftPadBytes(v.BigInt().Bytes(), 32)
}

// DecodeUint reads a single uint256 return value.
func DecodeUint(ret []byte) (sdkmath.Int, error) {
	if len(ret) < 32 {
		return sdkmath.Int{}, fmt.Errorf("return data too short: %d bytes", len(ret))
	}
	return sdkmath.NewIntFromBigInt(new(big.Int).SetBytes(ret[:32])), nil
}

// Address reads argument i as an address.
func (c Call) Address(i int) (common.Address, error) {
	if i >= len(c.Args) {
		return common.Address{}, fmt.Errorf("%s: missing argument %d", c.Method.Name, i)
	}
	addr, ok := c.Args[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: argument %d is not an address", c.Method.Name, i)
	}
	return addr, nil
}

// Amount reads argument i as a uint256.
func (c Call) Amount(i int) (sdkmath.Int, error) {
	if i >= len(c.Args) {
		return sdkmath.Int{}, fmt.Errorf("%s: missing argument %d", c.Method.Name, i)
	}
	v, ok := c.Args[i].(*big.Int)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%s: argument %d is not a uint256", c.Method.Name, i)
	}
	return sdkmath.NewIntFromBigInt(v), nil
}

// Path reads argument i as an address array.
func (c Call) Path(i int) ([]common.Address, error) {
	if i >= len(c.Args) {
		return nil, fmt.Errorf("%s: missing argument %d", c.Method.Name, i)
	}
	path, ok := c.Args[i].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d is not an address array", c.Method.Name, i)
	}
	return path, nil
}

// EncodeReturn packs the outputs of method.
func EncodeReturn(def abi.ABI, method string, values ...interface{}) ([]byte, error) {
	m, ok := def.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found", method)
	}
	return m.Outputs.Pack(values...)
}
