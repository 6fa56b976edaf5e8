package planner

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"time"

	"github.com/eilwallet/omnipay/logger"
	"github.com/eilwallet/omnipay/metrics"
	"github.com/eilwallet/omnipay/types"
)

// Request describes one planning call: send Amount (smallest units) of
// Token from From to To, using whatever chains can fund it.
type Request struct {
	From   string
	To     string
	Token  string
	Amount *big.Int
}

// Planner orchestrates send planning over a static chain set. It prefers
// a single-chain transfer whenever one chain can fund the full amount,
// because that means exactly one signature and one transaction; only
// then does it fall back to a multi-chain split.
type Planner struct {
	chains  []*types.Chain
	quotes  *QuoteBuilder
	oracle  BalanceOracle
	reserve *big.Int
	log     logger.Logger
	metrics metrics.Recorder
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the structured logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(p *Planner) { p.metrics = r }
}

// WithReserve keeps a per-chain buffer of the transfer token out of
// multi-chain allocation. Default is zero.
func WithReserve(reserve *big.Int) Option {
	return func(p *Planner) { p.reserve = new(big.Int).Set(reserve) }
}

func New(chains []*types.Chain, oracle BalanceOracle, estimator GasEstimator, rates RateSource, opts ...Option) *Planner {
	p := &Planner{
		chains:  chains,
		quotes:  NewQuoteBuilder(oracle, estimator, rates),
		oracle:  oracle,
		reserve: big.NewInt(0),
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanSend returns a single- or multi-chain plan for the request, or
// (nil, nil) when the spread balances cannot cover the amount. A nil
// plan is a normal outcome, not an error; errors are reserved for
// malformed requests.
func (p *Planner) PlanSend(ctx context.Context, req Request) (*types.SendPlan, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	start := time.Now()
	defer func() {
		p.metrics.ObserveLatency("plan_send", time.Since(start), nil)
	}()

	// Raw balance sum across all chains. Cheaper than any gas estimate,
	// so a doomed request never touches the estimator.
	if total := p.totalBalance(ctx, req); total.Cmp(req.Amount) < 0 {
		p.log.Debug("total balance below requested amount", map[string]any{
			"total": total.String(), "requested": req.Amount.String(),
		})
		p.metrics.IncCounter(metrics.EventPlanNone, nil)
		return nil, nil
	}

	if quote := p.bestSingleChain(ctx, req); quote != nil {
		p.metrics.IncCounter(metrics.EventPlanSingle, map[string]string{"chain": quote.ChainName})
		return types.NewSinglePlan(quote), nil
	}

	if split := p.allocateSplit(ctx, req); split != nil {
		p.metrics.IncCounter(metrics.EventPlanMulti, nil)
		return types.NewMultiPlan(split), nil
	}

	p.metrics.IncCounter(metrics.EventPlanNone, nil)
	return nil, nil
}

// totalBalance sums the sender's raw token balance over every chain that
// defines the token. Oracle errors read as zero; the oracle contract is
// "zero, never fail" for unknown combinations anyway.
func (p *Planner) totalBalance(ctx context.Context, req Request) *big.Int {
	total := new(big.Int)
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
		total.Add(total, balance)
	}
	return total
}

// expectedSkip reports whether a quote failure is a normal planning
// outcome rather than a fault worth logging.
func expectedSkip(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrBelowNativeFloor)
}

// bestSingleChain scans every chain defining the token, quotes the ones
// with sufficient balance, and picks the cheapest. Gas-estimation
// failures skip the chain; they never abort the scan. Ties on gas cost
// break by ascending chain id.
func (p *Planner) bestSingleChain(ctx context.Context, req Request) *types.ChainQuote {
	var candidates []*types.ChainQuote
	for _, chain := range p.chains {
		if !chain.HasToken(req.Token) {
			continue
		}
		quote, err := p.quotes.Quote(ctx, chain, req.Token, req.From, req.To, req.Amount)
		if err != nil {
			if !expectedSkip(err) {
				p.log.Warn("skipping chain, quote failed", map[string]any{
					"chain": chain.Name, "error": err.Error(),
				})
				p.metrics.IncCounter(metrics.EventQuoteSkipped, map[string]string{"chain": chain.Name})
			}
			continue
		}
		candidates = append(candidates, quote)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if c := candidates[i].GasCost.Cmp(candidates[j].GasCost); c != 0 {
			return c < 0
		}
		return candidates[i].ChainID < candidates[j].ChainID
	})
	return candidates[0]
}
