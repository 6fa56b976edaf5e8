package safe

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of one encoded ECDSA owner signature.
const SignatureLength = 65

// SplitSignatureBlob decodes a "0x"-prefixed hex blob into its 65-byte
// signature chunks. The blob must contain at least one whole signature
// and nothing else.
func SplitSignatureBlob(blob string) ([][]byte, error) {
	if !strings.HasPrefix(blob, "0x") {
		return nil, fmt.Errorf("signature blob must be 0x-prefixed")
	}
	raw, err := hex.DecodeString(blob[2:])
	if err != nil {
		return nil, fmt.Errorf("signature blob is not valid hex: %w", err)
	}
	if len(raw) == 0 || len(raw)%SignatureLength != 0 {
		return nil, fmt.Errorf("signature blob length %d is not a positive multiple of %d bytes", len(raw), SignatureLength)
	}
	sigs := make([][]byte, 0, len(raw)/SignatureLength)
	for i := 0; i < len(raw); i += SignatureLength {
		chunk := make([]byte, SignatureLength)
		copy(chunk, raw[i:i+SignatureLength])
		sigs = append(sigs, chunk)
	}
	return sigs, nil
}

// NormalizeRecoveryID lifts a signature's v byte from the 0/1 form some
// signing tooling emits to the 27/28 form the on-chain verifier expects.
// The input is returned as a modified copy; 27/28 inputs pass through
// unchanged. Easy to regress silently, hence the dedicated function.
func NormalizeRecoveryID(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	if out[64] < 27 {
		out[64] += 27
	}
	return out, nil
}

// NormalizeBlob applies NormalizeRecoveryID to every signature in a hex
// blob and re-encodes it.
func NormalizeBlob(blob string) (string, error) {
	sigs, err := SplitSignatureBlob(blob)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("0x")
	for _, sig := range sigs {
		norm, err := NormalizeRecoveryID(sig)
		if err != nil {
			return "", err
		}
		b.WriteString(hex.EncodeToString(norm))
	}
	return b.String(), nil
}

// RecoverSigner recovers the address that produced sig over digest.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(digest [32]byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pubKey, err := crypto.SigToPub(digest[:], normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
