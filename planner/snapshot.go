package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

type balanceKey struct {
	chainID int64
	token   string
	wallet  string
}

// SnapshotOracle is a BalanceOracle backed by an in-memory snapshot,
// typically bulk-loaded from a JSON dump of indexed balances. Unknown
// chain/token/wallet combinations read as zero and never error.
type SnapshotOracle struct {
	mu       sync.RWMutex
	balances map[balanceKey]*big.Int
}

func NewSnapshotOracle() *SnapshotOracle {
	return &SnapshotOracle{balances: make(map[balanceKey]*big.Int)}
}

// SetBalance records one balance, replacing any previous value.
func (o *SnapshotOracle) SetBalance(chainID int64, tokenAddress, wallet string, balance *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.balances[snapshotKey(chainID, tokenAddress, wallet)] = new(big.Int).Set(balance)
}

type snapshotEntry struct {
	ChainID int64  `json:"chainId"`
	Token   string `json:"token"`
	Wallet  string `json:"wallet"`
	Balance string `json:"balance"`
}

// LoadJSON replaces the snapshot with the entries in raw, a JSON array
// of {chainId, token, wallet, balance} objects with decimal-string
// balances.
func (o *SnapshotOracle) LoadJSON(raw []byte) error {
	var entries []snapshotEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode balance snapshot: %w", err)
	}
	next := make(map[balanceKey]*big.Int, len(entries))
	for _, e := range entries {
		balance, ok := new(big.Int).SetString(e.Balance, 10)
		if !ok {
			return fmt.Errorf("invalid balance %q for wallet %s on chain %d", e.Balance, e.Wallet, e.ChainID)
		}
		next[snapshotKey(e.ChainID, e.Token, e.Wallet)] = balance
	}
	o.mu.Lock()
	o.balances = next
	o.mu.Unlock()
	return nil
}

// GetBalance implements BalanceOracle.
func (o *SnapshotOracle) GetBalance(_ context.Context, chainID int64, tokenAddress, wallet string) (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if balance, ok := o.balances[snapshotKey(chainID, tokenAddress, wallet)]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

func snapshotKey(chainID int64, token, wallet string) balanceKey {
	return balanceKey{
		chainID: chainID,
		token:   strings.ToLower(token),
		wallet:  strings.ToLower(wallet),
	}
}
