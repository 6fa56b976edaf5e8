package planner

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/eilwallet/omnipay/types"
)

// ErrInsufficientBalance marks a chain whose balance cannot cover the
// probed amount. It is an expected outcome, not a fault: callers skip
// the chain without logging.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrBelowNativeFloor marks a chain where paying the gas would drop the
// sender's native balance under the chain's preserve floor. Like
// ErrInsufficientBalance, callers skip the chain without logging.
var ErrBelowNativeFloor = errors.New("native balance would drop below preserve floor")

// QuoteBuilder produces a comparable "cost to send here" figure for one
// chain by combining a balance check with a gas estimate converted into
// the transfer token's smallest unit.
type QuoteBuilder struct {
	oracle    BalanceOracle
	estimator GasEstimator
	rates     RateSource
}

func NewQuoteBuilder(oracle BalanceOracle, estimator GasEstimator, rates RateSource) *QuoteBuilder {
	return &QuoteBuilder{oracle: oracle, estimator: estimator, rates: rates}
}

// Quote evaluates sending amount of tokenSymbol on chain. The balance is
// checked first; no gas estimate is attempted for a chain that cannot
// cover the amount. Identical oracle/estimator responses always yield an
// identical quote.
func (b *QuoteBuilder) Quote(ctx context.Context, chain *types.Chain, tokenSymbol, from, to string, amount *big.Int) (*types.ChainQuote, error) {
	token, ok := chain.Token(tokenSymbol)
	if !ok {
		return nil, fmt.Errorf("chain %d does not define token %s", chain.ID, tokenSymbol)
	}

	balance, err := b.oracle.GetBalance(ctx, chain.ID, token.Address, from)
	if err != nil {
		return nil, fmt.Errorf("read balance on chain %d: %w", chain.ID, err)
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	gasUnits, gasPrice, err := b.estimator.EstimateTransferGas(ctx, chain.ID, from, to, amount)
	if err != nil {
		return nil, fmt.Errorf("estimate gas on chain %d: %w", chain.ID, err)
	}

	nativeCost := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPrice)
	if err := b.checkNativeFloor(ctx, chain, from, nativeCost); err != nil {
		return nil, err
	}
	gasCost, err := b.nativeToTokenCost(ctx, chain, tokenSymbol, token, nativeCost)
	if err != nil {
		return nil, fmt.Errorf("convert gas cost on chain %d: %w", chain.ID, err)
	}

	return &types.ChainQuote{
		ChainID:   chain.ID,
		ChainName: chain.Name,
		GasCost:   gasCost,
	}, nil
}

// checkNativeFloor enforces the chain's MinNativeBalance: paying
// nativeCost in gas must leave the sender at or above the preserve
// floor. Chains without a floor skip the native balance read entirely.
func (b *QuoteBuilder) checkNativeFloor(ctx context.Context, chain *types.Chain, from string, nativeCost *big.Int) error {
	if chain.MinNativeBalance == nil {
		return nil
	}
	native, err := b.oracle.GetBalance(ctx, chain.ID, NativeAsset, from)
	if err != nil {
		return fmt.Errorf("read native balance on chain %d: %w", chain.ID, err)
	}
	if new(big.Int).Sub(native, nativeCost).Cmp(chain.MinNativeBalance) < 0 {
		return ErrBelowNativeFloor
	}
	return nil
}

// nativeToTokenCost converts a cost in the native token's smallest unit
// into the transfer token's smallest unit, rounding up so the planner
// never understates cost.
func (b *QuoteBuilder) nativeToTokenCost(ctx context.Context, chain *types.Chain, tokenSymbol string, token types.Token, nativeCost *big.Int) (*big.Int, error) {
	rate, err := b.rates.NativeToToken(ctx, chain.ID, tokenSymbol)
	if err != nil {
		return nil, err
	}
	native := decimal.NewFromBigInt(nativeCost, -chain.Native.Decimals)
	cost := native.Mul(rate).Shift(token.Decimals).Ceil()
	return cost.BigInt(), nil
}
