package verification

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/eilwallet/omnipay/safe"
	"github.com/eilwallet/omnipay/types"
)

const (
	testNetwork   = int64(8453)
	testSafeAddr  = "0x4000000000000000000000000000000000000004"
	testTokenAddr = "0x7000000000000000000000000000000000000007"
	testRecipient = "0x3000000000000000000000000000000000000003"
)

var testAmount = big.NewInt(25_000_000)

// testWallet is a generated Safe deployment for one test: its owner keys
// and the registries a Verifier needs.
type testWallet struct {
	keys    []*ecdsa.PrivateKey
	account *SafeAccount
}

func newTestWallet(t *testing.T, owners, threshold int) *testWallet {
	t.Helper()
	w := &testWallet{
		account: &SafeAccount{Address: testSafeAddr, Threshold: threshold},
	}
	for i := 0; i < owners; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		w.keys = append(w.keys, key)
		w.account.Owners = append(w.account.Owners, crypto.PubkeyToAddress(key.PublicKey).Hex())
	}
	return w
}

func (w *testWallet) verifier(t *testing.T) *Verifier {
	t.Helper()
	safes := NewStaticSafeRegistry()
	safes.Register(testNetwork, w.account)
	tokens := NewStaticTokenRegistry([]*types.Chain{{
		ID: testNetwork,
		Tokens: map[string]types.Token{
			"USDC": {Address: testTokenAddr, Decimals: 6},
		},
	}})
	return New(testNetwork, safes, tokens)
}

// payload builds a payment signed by the given subset of owner keys.
func (w *testWallet) payload(t *testing.T, signWith ...int) *types.PaymentPayload {
	t.Helper()
	data, err := safe.EncodeTransfer(common.HexToAddress(testRecipient), testAmount)
	require.NoError(t, err)

	p := &types.PaymentPayload{
		Scheme:      types.SchemeSafeExact,
		NetworkID:   testNetwork,
		SafeAddress: testSafeAddr,
		SafeTx: &types.SafeTransaction{
			From:      testSafeAddr,
			To:        testTokenAddr,
			Value:     "0",
			Data:      hexutil.Encode(data),
			Operation: 0,
			SafeTxGas: "0",
			BaseGas:   "0",
			GasPrice:  "0",
			Nonce:     "12",
		},
	}

	digest, err := safe.TxHash(p.SafeTx, p.SafeAddress, testNetwork)
	require.NoError(t, err)

	var blob strings.Builder
	blob.WriteString("0x")
	for _, i := range signWith {
		sig, err := crypto.Sign(digest[:], w.keys[i])
		require.NoError(t, err)
		blob.WriteString(hex.EncodeToString(sig))
	}
	p.Signatures = blob.String()
	return p
}

func TestVerifyValidSingleOwnerPayment(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	result := w.verifier(t).Verify(context.Background(), w.payload(t, 0), nil)

	require.True(t, result.Valid, result.Reason)
	require.NotNil(t, result.Meta)
	require.Equal(t, common.HexToAddress(testRecipient).Hex(), result.Meta.To)
	require.Equal(t, testAmount, result.Meta.Amount)
	require.Equal(t, testTokenAddr, result.Meta.Token)
}

func TestVerifyCorruptedSignatureFails(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)

	// Flip the last byte of the signature blob.
	raw := []byte(p.Signatures)
	if raw[len(raw)-1] == 'f' {
		raw[len(raw)-1] = '0'
	} else {
		raw[len(raw)-1] = 'f'
	}
	p.Signatures = string(raw)

	result := w.verifier(t).Verify(context.Background(), p, nil)
	require.False(t, result.Valid)
}

func TestVerifyUnknownScheme(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)
	p.Scheme = "wrong-scheme"

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.False(t, result.Valid)
	require.Equal(t, "Unknown scheme", result.Reason)
}

func TestVerifyWrongNetwork(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)
	p.NetworkID = 1

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "Wrong network")
}

func TestVerifyThresholdMet(t *testing.T) {
	w := newTestWallet(t, 3, 2)
	result := w.verifier(t).Verify(context.Background(), w.payload(t, 0, 2), nil)

	require.True(t, result.Valid, result.Reason)
}

func TestVerifyThresholdNotMet(t *testing.T) {
	w := newTestWallet(t, 3, 2)
	result := w.verifier(t).Verify(context.Background(), w.payload(t, 1), nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "below threshold")
}

func TestVerifyDuplicateSignaturesDoNotCountTwice(t *testing.T) {
	w := newTestWallet(t, 2, 2)
	result := w.verifier(t).Verify(context.Background(), w.payload(t, 0, 0), nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "below threshold")
}

func TestVerifyNonOwnerSignerFails(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	outsider := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)

	// Replace the owner signature with the outsider's over the same digest.
	digest, err := safe.TxHash(p.SafeTx, p.SafeAddress, testNetwork)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest[:], outsider.keys[0])
	require.NoError(t, err)
	p.Signatures = "0x" + hex.EncodeToString(sig)

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "not a safe owner")
}

func TestVerifyUnknownSafeFails(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)
	p.SafeAddress = "0x9999999999999999999999999999999999999999"

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "Safe lookup failed")
}

func TestVerifyUnrecognizedTokenContract(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)
	p.SafeTx.To = "0x8888888888888888888888888888888888888888"

	// Re-sign over the mutated transaction so the failure isolates to
	// the token check rather than signature recovery.
	digest, err := safe.TxHash(p.SafeTx, p.SafeAddress, testNetwork)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest[:], w.keys[0])
	require.NoError(t, err)
	p.Signatures = "0x" + hex.EncodeToString(sig)

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "Unrecognized token contract")
}

func TestVerifyNonTransferCalldataFails(t *testing.T) {
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)
	p.SafeTx.Data = "0xdeadbeef"

	digest, err := safe.TxHash(p.SafeTx, p.SafeAddress, testNetwork)
	require.NoError(t, err)
	sig, err := crypto.Sign(digest[:], w.keys[0])
	require.NoError(t, err)
	p.Signatures = "0x" + hex.EncodeToString(sig)

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "not an ERC-20 transfer")
}

func TestVerifyExpectationMismatch(t *testing.T) {
	w := newTestWallet(t, 1, 1)

	result := w.verifier(t).Verify(context.Background(), w.payload(t, 0), &Expectation{
		Recipient: testRecipient,
		Amount:    big.NewInt(1),
	})

	require.False(t, result.Valid)
	require.Contains(t, result.Reason, "amount mismatch")
}

func TestVerifyExpectationMatch(t *testing.T) {
	w := newTestWallet(t, 1, 1)

	result := w.verifier(t).Verify(context.Background(), w.payload(t, 0), &Expectation{
		Recipient: testRecipient,
		Amount:    testAmount,
	})

	require.True(t, result.Valid, result.Reason)
}

func TestVerifyMissingPayload(t *testing.T) {
	w := newTestWallet(t, 1, 1)

	require.False(t, w.verifier(t).Verify(context.Background(), nil, nil).Valid)
	require.False(t, w.verifier(t).Verify(context.Background(), &types.PaymentPayload{}, nil).Valid)
}

func TestVerifyNormalizedSignaturesAlsoVerify(t *testing.T) {
	// Settlement rewrites v bytes to 27/28 before submission; the
	// re-verification it performs must accept that form too.
	w := newTestWallet(t, 1, 1)
	p := w.payload(t, 0)
	normalized, err := safe.NormalizeBlob(p.Signatures)
	require.NoError(t, err)
	p.Signatures = normalized

	result := w.verifier(t).Verify(context.Background(), p, nil)

	require.True(t, result.Valid, result.Reason)
}
