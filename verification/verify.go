// Package verification validates externally-supplied Safe multisig
// payment payloads: structure, scheme, network, owner signatures against
// the wallet's threshold, and the embedded ERC-20 transfer.
package verification

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eilwallet/omnipay/logger"
	"github.com/eilwallet/omnipay/metrics"
	"github.com/eilwallet/omnipay/safe"
	"github.com/eilwallet/omnipay/types"
)

// Expectation optionally pins the transfer a payment must decode to.
// Nil fields are not checked; decoded values are returned either way.
type Expectation struct {
	Recipient string
	Amount    *big.Int
}

// Verifier runs the verification pipeline for one expected network.
// It is stateless across calls; chain state is touched only through the
// token registry and safe reader.
type Verifier struct {
	networkID int64
	safes     SafeReader
	tokens    TokenRegistry
	log       logger.Logger
	metrics   metrics.Recorder
}

// Option configures a Verifier.
type Option func(*Verifier)

func WithLogger(l logger.Logger) Option {
	return func(v *Verifier) { v.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(v *Verifier) { v.metrics = r }
}

func New(networkID int64, safes SafeReader, tokens TokenRegistry, opts ...Option) *Verifier {
	v := &Verifier{
		networkID: networkID,
		safes:     safes,
		tokens:    tokens,
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks a payment payload and returns a typed result. Every
// failure path produces {Valid: false, Reason: ...}; no error escapes.
// Checks run in a fixed order and short-circuit on the first failure.
func (v *Verifier) Verify(ctx context.Context, payload *types.PaymentPayload, expect *Expectation) *types.VerifyResult {
	start := time.Now()
	result := v.verify(ctx, payload, expect)
	v.metrics.ObserveLatency("verify", time.Since(start), nil)
	if result.Valid {
		v.metrics.IncCounter(metrics.EventVerifyOK, nil)
	} else {
		v.metrics.IncCounter(metrics.EventVerifyFail, nil)
		v.log.Debug("payment verification failed", map[string]any{"reason": result.Reason})
	}
	return result
}

func (v *Verifier) verify(ctx context.Context, payload *types.PaymentPayload, expect *Expectation) *types.VerifyResult {
	// 1. Structure. ParsePaymentPayload runs the same checks at the wire
	// boundary; re-running here keeps Verify safe on directly-built payloads.
	if payload == nil || payload.SafeTx == nil {
		return types.Invalid("Missing payment payload")
	}
	if err := payload.Validate(); err != nil {
		return types.Invalid(fmt.Sprintf("Malformed payment payload: %v", err))
	}
	sigs, err := safe.SplitSignatureBlob(payload.Signatures)
	if err != nil {
		return types.Invalid(fmt.Sprintf("Invalid signature blob: %v", err))
	}

	// 2. Scheme.
	if payload.Scheme != types.SchemeSafeExact {
		return types.Invalid("Unknown scheme")
	}

	// 3. Network.
	if payload.NetworkID != v.networkID {
		return types.Invalid(fmt.Sprintf("Wrong network: expected %d, got %d", v.networkID, payload.NetworkID))
	}

	// 4. Signatures against the wallet's owner set and threshold.
	account, err := v.safes.SafeInfo(ctx, v.networkID, payload.SafeAddress)
	if err != nil {
		return types.Invalid(fmt.Sprintf("Safe lookup failed: %v", err))
	}
	digest, err := safe.TxHash(payload.SafeTx, payload.SafeAddress, v.networkID)
	if err != nil {
		return types.Invalid(fmt.Sprintf("Cannot compute safe transaction hash: %v", err))
	}
	signers := make(map[string]struct{})
	for _, sig := range sigs {
		signer, err := safe.RecoverSigner(digest, sig)
		if err != nil {
			return types.Invalid(fmt.Sprintf("Malformed signature: %v", err))
		}
		if !account.IsOwner(signer.Hex()) {
			return types.Invalid(fmt.Sprintf("Signer %s is not a safe owner", signer.Hex()))
		}
		signers[strings.ToLower(signer.Hex())] = struct{}{}
	}
	if len(signers) < account.Threshold {
		return types.Invalid(fmt.Sprintf("Signatures below threshold: have %d distinct owners, need %d", len(signers), account.Threshold))
	}

	// 5. The target contract must be a recognized settlement asset.
	token, err := v.tokens.ResolveToken(ctx, v.networkID, payload.SafeTx.To)
	if err != nil {
		return types.Invalid(fmt.Sprintf("Unrecognized token contract: %v", err))
	}

	// 6. Decode the ERC-20 transfer and match expectations.
	data, err := hexutil.Decode(payload.SafeTx.Data)
	if err != nil {
		return types.Invalid(fmt.Sprintf("Invalid transaction data: %v", err))
	}
	recipient, amount, err := safe.DecodeTransfer(data)
	if err != nil {
		return types.Invalid(fmt.Sprintf("Transaction is not an ERC-20 transfer: %v", err))
	}
	if expect != nil {
		if expect.Recipient != "" && !strings.EqualFold(expect.Recipient, recipient.Hex()) {
			return types.Invalid(fmt.Sprintf("Transfer recipient mismatch: expected %s, got %s", expect.Recipient, recipient.Hex()))
		}
		if expect.Amount != nil && expect.Amount.Cmp(amount) != 0 {
			return types.Invalid(fmt.Sprintf("Transfer amount mismatch: expected %s, got %s", expect.Amount, amount))
		}
	}

	return &types.VerifyResult{
		Valid: true,
		Meta: &types.TransferMeta{
			To:     recipient.Hex(),
			Amount: amount,
			Token:  token.Address,
		},
	}
}
