package safe

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func hexBlob(sigs ...[]byte) string {
	var b strings.Builder
	b.WriteString("0x")
	for _, s := range sigs {
		b.WriteString(hex.EncodeToString(s))
	}
	return b.String()
}

func dummySig(v byte) []byte {
	sig := make([]byte, SignatureLength)
	for i := 0; i < 64; i++ {
		sig[i] = byte(i + 1)
	}
	sig[64] = v
	return sig
}

func TestSplitSignatureBlob(t *testing.T) {
	one := dummySig(27)
	two := dummySig(28)

	sigs, err := SplitSignatureBlob(hexBlob(one, two))

	require.NoError(t, err)
	require.Len(t, sigs, 2)
	require.Equal(t, one, sigs[0])
	require.Equal(t, two, sigs[1])
}

func TestSplitSignatureBlobRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"no prefix":      hex.EncodeToString(dummySig(27)),
		"empty":          "0x",
		"not hex":        "0x" + strings.Repeat("zz", SignatureLength),
		"truncated":      hexBlob(dummySig(27))[:2+128],
		"ragged tail":    hexBlob(dummySig(27)) + "ab",
		"half signature": "0x" + strings.Repeat("ab", 32),
	}
	for name, blob := range cases {
		_, err := SplitSignatureBlob(blob)
		require.Error(t, err, name)
	}
}

func TestNormalizeRecoveryID(t *testing.T) {
	cases := []struct {
		in, want byte
	}{
		{0, 27},
		{1, 28},
		{27, 27},
		{28, 28},
	}
	for _, tc := range cases {
		normalized, err := NormalizeRecoveryID(dummySig(tc.in))
		require.NoError(t, err)
		require.Equal(t, tc.want, normalized[64], "v=%d", tc.in)
		// Only the recovery byte may change.
		require.Equal(t, dummySig(tc.in)[:64], normalized[:64])
	}
}

func TestNormalizeRecoveryIDDoesNotMutateInput(t *testing.T) {
	sig := dummySig(0)
	_, err := NormalizeRecoveryID(sig)
	require.NoError(t, err)
	require.Equal(t, byte(0), sig[64])
}

func TestNormalizeBlobRewritesEverySignature(t *testing.T) {
	blob := hexBlob(dummySig(0), dummySig(28), dummySig(1))

	normalized, err := NormalizeBlob(blob)

	require.NoError(t, err)
	sigs, err := SplitSignatureBlob(normalized)
	require.NoError(t, err)
	require.Equal(t, byte(27), sigs[0][64])
	require.Equal(t, byte(28), sigs[1][64])
	require.Equal(t, byte(28), sigs[2][64])
}

func TestRecoverSignerAcceptsBothRecoveryIDForms(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	var digest [32]byte
	copy(digest[:], crypto.Keccak256([]byte("payload")))

	raw, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	// go-ethereum emits v in 0/1 form.
	got, err := RecoverSigner(digest, raw)
	require.NoError(t, err)
	require.Equal(t, want, got)

	lifted, err := NormalizeRecoveryID(raw)
	require.NoError(t, err)
	got, err = RecoverSigner(digest, lifted)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRecoverSignerRejectsWrongLength(t *testing.T) {
	var digest [32]byte
	_, err := RecoverSigner(digest, make([]byte, 64))
	require.Error(t, err)
}
