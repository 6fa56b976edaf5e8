package planner

import (
	"context"
	"math/big"
	"sort"

	"github.com/eilwallet/omnipay/metrics"
	"github.com/eilwallet/omnipay/types"
)

// chainCapacity is one chain's contribution candidate during allocation.
type chainCapacity struct {
	chain        *types.Chain
	maxSpendable *big.Int
	gasCost      *big.Int
}

// allocateSplit builds a multi-chain plan in two phases. Phase 1 sums
// spendable balances and rejects without a single gas estimate when the
// total cannot cover the amount. Phase 2 quotes each funded chain
// concurrently using its full spendable balance as the probe amount,
// drops chains whose estimation fails, and greedily takes from the
// cheapest surviving chains. Returns nil when no full-amount plan exists;
// a partial plan is never returned.
func (p *Planner) allocateSplit(ctx context.Context, req Request) *types.SplitPlan {
	// Phase 1: fast rejection on balances alone.
	var funded []*chainCapacity
	available := new(big.Int)
	for _, chain := range p.chains {
		token, ok := chain.Token(req.Token)
		if !ok {
			continue
		}
		balance, err := p.oracle.GetBalance(ctx, chain.ID, token.Address, req.From)
		if err != nil {
			p.log.Warn("balance read failed, treating as zero", map[string]any{
				"chain": chain.Name, "error": err.Error(),
			})
			continue
		}
		maxSpendable := new(big.Int).Sub(balance, p.reserve)
		if maxSpendable.Sign() <= 0 {
			continue
		}
		funded = append(funded, &chainCapacity{chain: chain, maxSpendable: maxSpendable})
		available.Add(available, maxSpendable)
	}
	if available.Cmp(req.Amount) < 0 {
		return nil
	}

	// Phase 2: representative per-leg gas cost, probed at each chain's
	// full spendable balance. Quotes run concurrently; the join below
	// restores a deterministic order before sorting.
	type quoteResult struct {
		index   int
		gasCost *big.Int
	}
	results := make(chan quoteResult, len(funded))
	for i, candidate := range funded {
		go func(index int, c *chainCapacity) {
			quote, err := p.quotes.Quote(ctx, c.chain, req.Token, req.From, req.To, c.maxSpendable)
			if err != nil {
				if !expectedSkip(err) {
					p.log.Warn("skipping chain, allocation quote failed", map[string]any{
						"chain": c.chain.Name, "error": err.Error(),
					})
					p.metrics.IncCounter(metrics.EventQuoteSkipped, map[string]string{"chain": c.chain.Name})
				}
				results <- quoteResult{index: index, gasCost: nil}
				return
			}
			results <- quoteResult{index: index, gasCost: quote.GasCost}
		}(i, candidate)
	}
	for range funded {
		res := <-results
		funded[res.index].gasCost = res.gasCost
	}

	var survivors []*chainCapacity
	available.SetInt64(0)
	for _, c := range funded {
		if c.gasCost == nil {
			continue
		}
		survivors = append(survivors, c)
		available.Add(available, c.maxSpendable)
	}
	if available.Cmp(req.Amount) < 0 {
		return nil
	}

	// Cheapest legs first; ties break by ascending chain id.
	sort.Slice(survivors, func(i, j int) bool {
		if c := survivors[i].gasCost.Cmp(survivors[j].gasCost); c != 0 {
			return c < 0
		}
		return survivors[i].chain.ID < survivors[j].chain.ID
	})

	remaining := new(big.Int).Set(req.Amount)
	totalGas := new(big.Int)
	var legs []types.SplitLeg
	for _, c := range survivors {
		take := new(big.Int).Set(c.maxSpendable)
		if take.Cmp(remaining) > 0 {
			take.Set(remaining)
		}
		legs = append(legs, types.SplitLeg{
			ChainID:   c.chain.ID,
			ChainName: c.chain.Name,
			Amount:    take,
			GasCost:   c.gasCost,
		})
		totalGas.Add(totalGas, c.gasCost)
		remaining.Sub(remaining, take)
		if remaining.Sign() == 0 {
			break
		}
	}

	return &types.SplitPlan{
		Legs:         legs,
		TotalAmount:  new(big.Int).Sub(req.Amount, remaining),
		TotalGasCost: totalGas,
	}
}
