package types

import "math/big"

// Token describes one ERC-20 deployment on a chain.
type Token struct {
	// Contract address of the token.
	Address string `json:"address" yaml:"address"`

	// Number of decimals the token uses (6 for USDC).
	Decimals int32 `json:"decimals" yaml:"decimals"`
}

// NativeToken describes the gas token of a chain.
type NativeToken struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
}

// Chain is the static configuration for a single blockchain. A Chain is
// loaded once at startup and never mutated afterwards, so it is safe to
// share across concurrent planning calls without locking.
type Chain struct {
	// Numeric chain identifier (EIP-155 chain id for EVM chains).
	ID int64 `json:"chainId"`

	// Human readable name ("Base", "Polygon").
	Name string `json:"name"`

	// RPC endpoint used by the on-chain oracle/estimator implementations.
	RPCURL string `json:"rpcUrl"`

	// Native gas token metadata.
	Native NativeToken `json:"native"`

	// Tokens known on this chain, keyed by symbol ("USDC").
	Tokens map[string]Token `json:"tokens"`

	// Minimum native balance to preserve on this chain; planning never
	// spends gas that would dip below it. May be nil (no reserve).
	MinNativeBalance *big.Int `json:"-"`
}

// Token returns the token metadata for symbol, if the chain defines it.
func (c *Chain) Token(symbol string) (Token, bool) {
	t, ok := c.Tokens[symbol]
	return t, ok
}

// HasToken reports whether the chain defines the given token symbol.
func (c *Chain) HasToken(symbol string) bool {
	_, ok := c.Tokens[symbol]
	return ok
}
