package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ChainQuote is the cost of executing the full transfer on one chain.
// GasCost is expressed in the transfer token's smallest unit so quotes
// from different chains are directly comparable.
type ChainQuote struct {
	ChainID   int64
	ChainName string
	GasCost   *big.Int
}

// SplitLeg is one chain's portion of a multi-chain transfer.
// Amount never exceeds the chain's spendable balance at evaluation time.
type SplitLeg struct {
	ChainID   int64
	ChainName string
	Amount    *big.Int
	GasCost   *big.Int
}

// SplitPlan is an ordered list of legs covering the requested amount.
// TotalAmount always equals the sum of leg amounts; legs appear in
// non-decreasing gas-cost order.
type SplitPlan struct {
	Legs         []SplitLeg
	TotalAmount  *big.Int
	TotalGasCost *big.Int
}

// PlanKind tags the two SendPlan variants.
type PlanKind string

const (
	PlanKindSingle PlanKind = "single"
	PlanKindMulti  PlanKind = "multi"
)

// SendPlan is a tagged union: exactly one of Quote or Split is populated,
// selected by Kind. Use NewSinglePlan / NewMultiPlan to construct.
type SendPlan struct {
	Kind  PlanKind
	Quote *ChainQuote
	Split *SplitPlan
}

// NewSinglePlan wraps a single-chain quote as a SendPlan.
func NewSinglePlan(q *ChainQuote) *SendPlan {
	return &SendPlan{Kind: PlanKindSingle, Quote: q}
}

// NewMultiPlan wraps a multi-chain split as a SendPlan.
func NewMultiPlan(p *SplitPlan) *SendPlan {
	return &SendPlan{Kind: PlanKindMulti, Split: p}
}

type quoteWire struct {
	ChainID    int64  `json:"chainId"`
	ChainName  string `json:"chainName"`
	GasCostUSD string `json:"gasCostUsdc"`
}

type legWire struct {
	ChainID    int64  `json:"chainId"`
	ChainName  string `json:"chainName"`
	AmountUSD  string `json:"amountUsdc"`
	GasCostUSD string `json:"gasCostUsdc"`
}

type splitWire struct {
	Legs         []legWire `json:"legs"`
	TotalAmount  string    `json:"totalAmount"`
	TotalGasCost string    `json:"totalGasCostUsdc"`
}

type planWire struct {
	Type  PlanKind   `json:"type"`
	Quote *quoteWire `json:"quote,omitempty"`
	Plan  *splitWire `json:"plan,omitempty"`
}

// MarshalJSON serializes the plan in its wire form. Amounts are emitted
// as decimal strings so consumers never lose precision on uint256 values.
func (p *SendPlan) MarshalJSON() ([]byte, error) {
	w := planWire{Type: p.Kind}
	switch p.Kind {
	case PlanKindSingle:
		if p.Quote == nil {
			return nil, fmt.Errorf("single plan without quote")
		}
		w.Quote = &quoteWire{
			ChainID:    p.Quote.ChainID,
			ChainName:  p.Quote.ChainName,
			GasCostUSD: p.Quote.GasCost.String(),
		}
	case PlanKindMulti:
		if p.Split == nil {
			return nil, fmt.Errorf("multi plan without split")
		}
		legs := make([]legWire, 0, len(p.Split.Legs))
		for _, l := range p.Split.Legs {
			legs = append(legs, legWire{
				ChainID:    l.ChainID,
				ChainName:  l.ChainName,
				AmountUSD:  l.Amount.String(),
				GasCostUSD: l.GasCost.String(),
			})
		}
		w.Plan = &splitWire{
			Legs:         legs,
			TotalAmount:  p.Split.TotalAmount.String(),
			TotalGasCost: p.Split.TotalGasCost.String(),
		}
	default:
		return nil, fmt.Errorf("unknown plan kind %q", p.Kind)
	}
	return json.Marshal(w)
}
