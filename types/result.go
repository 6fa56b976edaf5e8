package types

import (
	"encoding/json"
	"math/big"
)

// TransferMeta is the decoded ERC-20 transfer a verified payment executes.
type TransferMeta struct {
	To     string   `json:"to"`
	Amount *big.Int `json:"-"`
	Token  string   `json:"token"`
}

// VerifyResult is the outcome of payment verification. Reason is set on
// the first failed check and is suitable for direct display to a caller.
type VerifyResult struct {
	Valid  bool          `json:"valid"`
	Reason string        `json:"reason,omitempty"`
	Meta   *TransferMeta `json:"meta,omitempty"`
}

// Invalid builds a failed VerifyResult with the given reason.
func Invalid(reason string) *VerifyResult {
	return &VerifyResult{Valid: false, Reason: reason}
}

// SettleResult is the outcome of on-chain settlement. On success TxHash
// and BlockNumber identify the confirmed transaction; on failure Reason
// explains what went wrong. A failed settlement never advances state.
type SettleResult struct {
	Settled     bool     `json:"settled"`
	TxHash      string   `json:"txHash,omitempty"`
	BlockNumber *big.Int `json:"-"`
	Reason      string   `json:"reason,omitempty"`
}

// NotSettled builds a failed SettleResult with the given reason.
func NotSettled(reason string) *SettleResult {
	return &SettleResult{Settled: false, Reason: reason}
}

type transferMetaWire struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Token  string `json:"token"`
}

// MarshalJSON emits the amount as a decimal string.
func (m *TransferMeta) MarshalJSON() ([]byte, error) {
	return json.Marshal(transferMetaWire{
		To:     m.To,
		Amount: m.Amount.String(),
		Token:  m.Token,
	})
}

type settleResultWire struct {
	Settled     bool   `json:"settled"`
	TxHash      string `json:"txHash,omitempty"`
	BlockNumber string `json:"blockNumber,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// MarshalJSON emits the block number as a decimal string.
func (r *SettleResult) MarshalJSON() ([]byte, error) {
	w := settleResultWire{
		Settled: r.Settled,
		TxHash:  r.TxHash,
		Reason:  r.Reason,
	}
	if r.BlockNumber != nil {
		w.BlockNumber = r.BlockNumber.String()
	}
	return json.Marshal(w)
}
