// Package settlement submits verified Safe multisig payments on-chain
// from the facilitator's account and reports the confirmed outcome.
package settlement

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eilwallet/omnipay/logger"
	"github.com/eilwallet/omnipay/metrics"
	"github.com/eilwallet/omnipay/safe"
	"github.com/eilwallet/omnipay/types"
	"github.com/eilwallet/omnipay/verification"
)

// Backend is the chain surface the executor needs. *ethclient.Client
// satisfies it; tests substitute a stub.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

const (
	defaultPollInterval   = 2 * time.Second
	defaultConfirmTimeout = 2 * time.Minute
)

// Executor settles verified payments. Submissions from one facilitator
// key are serialized so two in-flight settlements never race on the
// account nonce.
type Executor struct {
	backend  Backend
	verifier *verification.Verifier
	key      *ecdsa.PrivateKey
	from     common.Address

	pollInterval   time.Duration
	confirmTimeout time.Duration
	log            logger.Logger
	metrics        metrics.Recorder

	submitMu sync.Mutex
}

// Option configures an Executor.
type Option func(*Executor)

func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Executor) { e.metrics = r }
}

// WithConfirmTimeout bounds the wait for one confirmation.
func WithConfirmTimeout(d time.Duration) Option {
	return func(e *Executor) { e.confirmTimeout = d }
}

// WithPollInterval sets the receipt polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) { e.pollInterval = d }
}

// New builds an Executor submitting with the given facilitator key. The
// key pays gas and need not be a Safe owner.
func New(backend Backend, verifier *verification.Verifier, key *ecdsa.PrivateKey, opts ...Option) *Executor {
	e := &Executor{
		backend:        backend,
		verifier:       verifier,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		pollInterval:   defaultPollInterval,
		confirmTimeout: defaultConfirmTimeout,
		log:            logger.NoopLogger{},
		metrics:        metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GasWithMargin applies the fixed +20% safety margin to a gas estimate,
// rounding up.
func GasWithMargin(estimated uint64) uint64 {
	return (estimated*12 + 9) / 10
}

// Settle re-verifies the payload, normalizes its signatures, and submits
// the Safe execTransaction call, waiting for one confirmation. Every
// failure path returns a SettleResult with a reason; no error escapes.
func (e *Executor) Settle(ctx context.Context, payload *types.PaymentPayload) *types.SettleResult {
	start := time.Now()
	result := e.settle(ctx, payload)
	e.metrics.ObserveLatency("settle", time.Since(start), nil)
	if result.Settled {
		e.metrics.IncCounter(metrics.EventSettleOK, nil)
	} else {
		e.metrics.IncCounter(metrics.EventSettleFail, nil)
		e.log.Warn("settlement failed", map[string]any{"reason": result.Reason})
	}
	return result
}

func (e *Executor) settle(ctx context.Context, payload *types.PaymentPayload) *types.SettleResult {
	// Final check right before submission; the payload may have been
	// mutated or replayed since the caller verified it.
	verdict := e.verifier.Verify(ctx, payload, nil)
	if !verdict.Valid {
		return types.NotSettled("payment failed re-verification: " + verdict.Reason)
	}

	signatures, err := safe.NormalizeBlob(payload.Signatures)
	if err != nil {
		return types.NotSettled(fmt.Sprintf("signature normalization failed: %v", err))
	}
	calldata, err := e.packExecTransaction(payload, signatures)
	if err != nil {
		return types.NotSettled(fmt.Sprintf("encode execTransaction: %v", err))
	}

	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		return types.NotSettled(fmt.Sprintf("read chain id: %v", err))
	}
	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return types.NotSettled(fmt.Sprintf("read facilitator nonce: %v", err))
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return types.NotSettled(fmt.Sprintf("read gas price: %v", err))
	}

	safeAddr := common.HexToAddress(payload.SafeAddress)
	estimated, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: e.from,
		To:   &safeAddr,
		Data: calldata,
	})
	if err != nil {
		return types.NotSettled(fmt.Sprintf("gas estimation failed: %v", err))
	}
	gasLimit := GasWithMargin(estimated)

	tx := ethtypes.NewTransaction(nonce, safeAddr, new(big.Int), gasLimit, gasPrice, calldata)
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), e.key)
	if err != nil {
		return types.NotSettled(fmt.Sprintf("sign transaction: %v", err))
	}
	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return types.NotSettled(fmt.Sprintf("submission failed: %v", err))
	}
	e.log.Info("settlement submitted", map[string]any{
		"txHash": signed.Hash().Hex(), "safe": payload.SafeAddress, "gasLimit": gasLimit,
	})

	receipt, err := e.waitMined(ctx, signed.Hash())
	if err != nil {
		return types.NotSettled(fmt.Sprintf("transaction not confirmed: %v", err))
	}
	if receipt.Status == ethtypes.ReceiptStatusFailed {
		return types.NotSettled("transaction reverted on-chain")
	}

	return &types.SettleResult{
		Settled:     true,
		TxHash:      signed.Hash().Hex(),
		BlockNumber: receipt.BlockNumber,
	}
}

func (e *Executor) packExecTransaction(payload *types.PaymentPayload, signatures string) ([]byte, error) {
	tx := payload.SafeTx
	value, err := tx.Value.BigInt()
	if err != nil {
		return nil, err
	}
	safeTxGas, err := tx.SafeTxGas.BigInt()
	if err != nil {
		return nil, err
	}
	baseGas, err := tx.BaseGas.BigInt()
	if err != nil {
		return nil, err
	}
	gasPrice, err := tx.GasPrice.BigInt()
	if err != nil {
		return nil, err
	}
	data, err := hexutil.Decode(tx.Data)
	if err != nil {
		return nil, err
	}
	sigBytes, err := hexutil.Decode(signatures)
	if err != nil {
		return nil, err
	}
	return safe.ContractABI.Pack("execTransaction",
		common.HexToAddress(tx.To),
		value,
		data,
		tx.Operation,
		safeTxGas,
		baseGas,
		gasPrice,
		common.HexToAddress(tx.GasToken),
		common.HexToAddress(tx.RefundReceiver),
		sigBytes,
	)
}

// waitMined polls for the receipt until it appears or the confirmation
// timeout elapses. "not found" responses keep polling; other RPC errors
// abort.
func (e *Executor) waitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(waitCtx, txHash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("no receipt after %s", e.confirmTimeout)
		case <-ticker.C:
		}
	}
}
