package eth

import (
	"context"
	"math/big"

	"github.com/tidewallet/tide/internal/chain/eth/rpc"
	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// GasSpeed is the confirmation speed preference.
type GasSpeed string

const (
	// GasSpeedSlow discounts the suggested price for cheaper confirmation.
	GasSpeedSlow GasSpeed = "slow"
	// GasSpeedMedium uses the node-suggested price unchanged.
	GasSpeedMedium GasSpeed = "medium"
	// GasSpeedFast bumps the suggested price for faster confirmation.
	GasSpeedFast GasSpeed = "fast"

	// GasLimitTransfer is the fixed cost of a native ETH transfer.
	GasLimitTransfer uint64 = 21000
	// GasLimitTokenTransfer covers a typical ERC-20 transfer.
	GasLimitTokenTransfer uint64 = 65000

	// Speed adjustments in percent. Integer math keeps fee arithmetic
	// exact; fees never pass through floating point.
	slowPercent = 80
	fastPercent = 120
)

// ParseGasSpeed parses a user-supplied speed string. Empty means medium.
func ParseGasSpeed(s string) (GasSpeed, error) {
	switch s {
	case "slow":
		return GasSpeedSlow, nil
	case "", "medium":
		return GasSpeedMedium, nil
	case "fast":
		return GasSpeedFast, nil
	default:
		return "", walleterr.WithDetails(walleterr.ErrValidation, map[string]string{
			"speed":   s,
			"allowed": "slow, medium, or fast",
		})
	}
}

// GasEstimate is a priced gas budget for one transaction.
type GasEstimate struct {
	GasPrice *big.Int // price per gas unit in wei
	GasLimit uint64   // maximum gas units
	Total    *big.Int // GasPrice * GasLimit, the worst-case fee in wei
}

// SuggestGasPrice fetches the node-suggested price adjusted for speed.
func (c *Client) SuggestGasPrice(ctx context.Context, speed GasSpeed) (*big.Int, error) {
	suggested, err := c.rpc.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	switch speed {
	case GasSpeedSlow:
		return scalePercent(suggested, slowPercent), nil
	case GasSpeedFast:
		return scalePercent(suggested, fastPercent), nil
	default:
		return suggested, nil
	}
}

// EstimateGas prices a transfer described by msg. The node estimate is
// preferred; when the node cannot estimate (some nodes refuse eth_estimateGas
// for plain transfers) the fixed transfer cost is used instead. Transport
// failures still surface, only rejections fall back.
func (c *Client) EstimateGas(ctx context.Context, msg rpc.CallMsg, speed GasSpeed) (*GasEstimate, error) {
	gasPrice, err := c.SuggestGasPrice(ctx, speed)
	if err != nil {
		return nil, err
	}

	gasLimit, err := c.rpc.EstimateGas(ctx, msg)
	if err != nil {
		if !walleterr.Is(err, walleterr.ErrRPC) {
			return nil, err
		}
		gasLimit = fallbackGasLimit(msg)
	}

	return &GasEstimate{
		GasPrice: gasPrice,
		GasLimit: gasLimit,
		Total:    new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit)),
	}, nil
}

// fallbackGasLimit picks the fixed budget for a transfer shape.
func fallbackGasLimit(msg rpc.CallMsg) uint64 {
	if len(msg.Data) > 0 {
		return GasLimitTokenTransfer
	}
	return GasLimitTransfer
}

// scalePercent computes n * percent / 100 in integer arithmetic.
func scalePercent(n *big.Int, percent int64) *big.Int {
	scaled := new(big.Int).Mul(n, big.NewInt(percent))
	return scaled.Div(scaled, big.NewInt(100))
}
