package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

const samplePayload = `{
	"scheme": "safe-exact",
	"networkId": 8453,
	"safeAddress": "0x4000000000000000000000000000000000000004",
	"safeTx": {
		"from": "0x4000000000000000000000000000000000000004",
		"to": "0x7000000000000000000000000000000000000007",
		"value": "0",
		"data": "0xa9059cbb",
		"operation": 0,
		"safeTxGas": "0",
		"baseGas": "0",
		"gasPrice": "0",
		"nonce": "12"
	},
	"signatures": "0xdeadbeef"
}`

func TestParsePaymentPayload(t *testing.T) {
	p, err := ParsePaymentPayload([]byte(samplePayload))
	require.NoError(t, err)
	require.Equal(t, SchemeSafeExact, p.Scheme)
	require.Equal(t, int64(8453), p.NetworkID)
	require.Equal(t, Uint256String("12"), p.SafeTx.Nonce)
}

func TestParsePaymentPayloadNonceAsNumber(t *testing.T) {
	raw := `{
		"scheme": "safe-exact",
		"networkId": 8453,
		"safeAddress": "0x4000000000000000000000000000000000000004",
		"safeTx": {
			"from": "0x4000000000000000000000000000000000000004",
			"to": "0x7000000000000000000000000000000000000007",
			"value": 0,
			"data": "0xa9059cbb",
			"nonce": 12
		},
		"signatures": "0xdeadbeef"
	}`
	p, err := ParsePaymentPayload([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, Uint256String("12"), p.SafeTx.Nonce)
	require.Equal(t, Uint256String("0"), p.SafeTx.Value)
}

func TestParsePaymentPayloadRejectsGarbage(t *testing.T) {
	_, err := ParsePaymentPayload([]byte("not json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed")
}

func TestParsePaymentPayloadRejectsMissingSafeTx(t *testing.T) {
	raw := `{
		"scheme": "safe-exact",
		"networkId": 8453,
		"safeAddress": "0x4000000000000000000000000000000000000004",
		"signatures": "0xdeadbeef"
	}`
	_, err := ParsePaymentPayload([]byte(raw))
	require.Error(t, err)
}

func TestParsePaymentPayloadRejectsBadAddress(t *testing.T) {
	raw := `{
		"scheme": "safe-exact",
		"networkId": 8453,
		"safeAddress": "not-an-address",
		"safeTx": {
			"from": "0x4000000000000000000000000000000000000004",
			"to": "0x7000000000000000000000000000000000000007",
			"value": "0",
			"data": "0xa9059cbb",
			"nonce": "12"
		},
		"signatures": "0xdeadbeef"
	}`
	_, err := ParsePaymentPayload([]byte(raw))
	require.Error(t, err)
}

func TestParsePaymentPayloadRejectsBadNestedAddress(t *testing.T) {
	// Field errors inside safeTx must surface through the payload-level
	// validation pass.
	raw := `{
		"scheme": "safe-exact",
		"networkId": 8453,
		"safeAddress": "0x4000000000000000000000000000000000000004",
		"safeTx": {
			"from": "0x4000000000000000000000000000000000000004",
			"to": "not-an-address",
			"value": "0",
			"data": "0xa9059cbb",
			"nonce": "12"
		},
		"signatures": "0xdeadbeef"
	}`
	_, err := ParsePaymentPayload([]byte(raw))
	require.Error(t, err)
	require.Contains(t, err.Error(), "To")
}

func TestUint256StringBigInt(t *testing.T) {
	n, err := Uint256String("25000000").BigInt()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(25_000_000), n)

	n, err = Uint256String("").BigInt()
	require.NoError(t, err)
	require.Zero(t, n.Sign())

	_, err = Uint256String("-1").BigInt()
	require.Error(t, err)

	_, err = Uint256String("0x1f").BigInt()
	require.Error(t, err)
}

func TestUint256StringBigIntBounds(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	n, err := Uint256String(maxUint256.String()).BigInt()
	require.NoError(t, err)
	require.Equal(t, maxUint256, n)

	over := new(big.Int).Add(maxUint256, big.NewInt(1))
	_, err = Uint256String(over.String()).BigInt()
	require.Error(t, err)
}
