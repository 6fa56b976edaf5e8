// Package omnipay plans multichain stablecoin transfers and facilitates
// pre-signed Safe multisig payments: planning picks the cheapest way to
// fund a transfer across the configured chains, and the verify/settle
// pipeline validates third-party payment payloads before submitting them
// on-chain from the facilitator account.
package omnipay

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/eilwallet/omnipay/logger"
	"github.com/eilwallet/omnipay/metrics"
	"github.com/eilwallet/omnipay/planner"
	"github.com/eilwallet/omnipay/settlement"
	"github.com/eilwallet/omnipay/types"
	"github.com/eilwallet/omnipay/verification"
)

// Dependencies are the external collaborators the facade wires together.
// The clients package provides RPC-backed implementations; tests and
// embedded deployments substitute in-memory ones.
type Dependencies struct {
	Oracle    planner.BalanceOracle
	Estimator planner.GasEstimator
	Rates     planner.RateSource
	Safes     verification.SafeReader
	Tokens    verification.TokenRegistry

	// Settlement backend and the facilitator key paying gas. Both may be
	// nil for a plan/verify-only instance; SettlePayment then reports a
	// not-settled result.
	Backend        settlement.Backend
	FacilitatorKey *ecdsa.PrivateKey

	// NetworkID payments must target.
	NetworkID int64
}

// OmniPay is the top-level entry point bundling the planner, verifier
// and settlement executor over one chain set.
type OmniPay struct {
	planner  *planner.Planner
	verifier *verification.Verifier
	executor *settlement.Executor

	log     logger.Logger
	metrics metrics.Recorder
	timeout time.Duration
}

// New builds an OmniPay instance over the given chain set.
func New(chains []*types.Chain, deps Dependencies, opts ...Option) *OmniPay {
	o := &OmniPay{
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.planner = planner.New(chains, deps.Oracle, deps.Estimator, deps.Rates,
		planner.WithLogger(o.log), planner.WithMetrics(o.metrics))
	o.verifier = verification.New(deps.NetworkID, deps.Safes, deps.Tokens,
		verification.WithLogger(o.log), verification.WithMetrics(o.metrics))
	if deps.Backend != nil && deps.FacilitatorKey != nil {
		o.executor = settlement.New(deps.Backend, o.verifier, deps.FacilitatorKey,
			settlement.WithLogger(o.log), settlement.WithMetrics(o.metrics))
	}
	return o
}

// PlanSend plans a transfer. A nil plan with nil error means the spread
// balances cannot cover the amount.
func (o *OmniPay) PlanSend(ctx context.Context, req planner.Request) (*types.SendPlan, error) {
	planCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.planner.PlanSend(planCtx, req)
}

// PlanSendBatch plans independent requests concurrently. Results align
// with the input order; each entry is the plan (possibly nil) or the
// request's own error.
func (o *OmniPay) PlanSendBatch(ctx context.Context, reqs []planner.Request) ([]*types.SendPlan, []error) {
	plans := make([]*types.SendPlan, len(reqs))
	errs := make([]error, len(reqs))

	type indexed struct {
		index int
		plan  *types.SendPlan
		err   error
	}
	results := make(chan indexed, len(reqs))
	for i, req := range reqs {
		go func(index int, r planner.Request) {
			plan, err := o.PlanSend(ctx, r)
			results <- indexed{index: index, plan: plan, err: err}
		}(i, req)
	}
	for range reqs {
		res := <-results
		plans[res.index] = res.plan
		errs[res.index] = res.err
	}
	return plans, errs
}

// VerifyPayment parses and verifies a raw payment payload. Parse errors
// surface as an invalid result, never as a Go error.
func (o *OmniPay) VerifyPayment(ctx context.Context, raw []byte, expect *verification.Expectation) *types.VerifyResult {
	payload, err := types.ParsePaymentPayload(raw)
	if err != nil {
		return types.Invalid(err.Error())
	}
	verifyCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.verifier.Verify(verifyCtx, payload, expect)
}

// VerifyPayload verifies an already-decoded payload.
func (o *OmniPay) VerifyPayload(ctx context.Context, payload *types.PaymentPayload, expect *verification.Expectation) *types.VerifyResult {
	verifyCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.verifier.Verify(verifyCtx, payload, expect)
}

// SettlePayment settles a verified payload on-chain.
func (o *OmniPay) SettlePayment(ctx context.Context, payload *types.PaymentPayload) *types.SettleResult {
	if o.executor == nil {
		return types.NotSettled("no settlement backend configured")
	}
	return o.executor.Settle(ctx, payload)
}
