// Package planner decides how to execute a stablecoin transfer whose
// funding is spread across several chains: on the single cheapest chain
// with enough balance when one exists, otherwise split greedily across
// chains ordered by per-leg gas cost.
package planner

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeAsset is the tokenAddress sentinel that asks a BalanceOracle
// for the wallet's native gas-token balance instead of an ERC-20 one.
const NativeAsset = "native"

// BalanceOracle reports the current balance of a token for a wallet on a
// chain, in the token's smallest unit. Implementations must return zero
// rather than an error for unknown chain/wallet combinations; the planner
// treats absence as zero balance.
type BalanceOracle interface {
	GetBalance(ctx context.Context, chainID int64, tokenAddress, wallet string) (*big.Int, error)
}

// GasEstimator quotes the gas for a token transfer on a chain. It may
// fail (RPC error, unfunded sender); the planner treats a failure as a
// recoverable, chain-skipping condition.
type GasEstimator interface {
	EstimateTransferGas(ctx context.Context, chainID int64, from, to string, amount *big.Int) (gasUnits uint64, gasPricePerUnit *big.Int, err error)
}

// RateSource converts a chain's native token into the transfer token:
// the returned rate is transfer-token units per one whole native token.
type RateSource interface {
	NativeToToken(ctx context.Context, chainID int64, tokenSymbol string) (decimal.Decimal, error)
}
