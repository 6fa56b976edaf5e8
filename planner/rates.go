package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// FixedRates is a RateSource over configured per-chain prices. Rates are
// quoted as transfer-token units per whole native token (a 3000 USDC/ETH
// rate is decimal 3000). Suitable when prices come from config or an
// external feed updated out of band.
type FixedRates struct {
	mu    sync.RWMutex
	rates map[int64]decimal.Decimal
}

func NewFixedRates() *FixedRates {
	return &FixedRates{rates: make(map[int64]decimal.Decimal)}
}

// SetRate sets the native-to-token rate for a chain.
func (f *FixedRates) SetRate(chainID int64, rate decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[chainID] = rate
}

// NativeToToken implements RateSource.
func (f *FixedRates) NativeToToken(_ context.Context, chainID int64, _ string) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rate, ok := f.rates[chainID]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no conversion rate configured for chain %d", chainID)
	}
	return rate, nil
}
