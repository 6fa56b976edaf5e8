package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SchemeSafeExact is the only payment scheme this facilitator understands:
// a pre-signed Safe multisig transaction wrapping an exact ERC-20 transfer.
const SchemeSafeExact = "safe-exact"

// Uint256String is a decimal uint256 carried as a JSON number or string.
// Payload producers are inconsistent about which they emit, so both are
// accepted; internally the canonical form is the decimal string.
type Uint256String string

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (u *Uint256String) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*u = Uint256String(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = Uint256String(n.String())
	return nil
}

// BigInt parses the value as a non-negative decimal integer fitting in
// 256 bits. Oversized values fail here instead of being wrapped by ABI
// packing further down.
func (u Uint256String) BigInt() (*big.Int, error) {
	s := string(u)
	if s == "" {
		s = "0"
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return nil, fmt.Errorf("invalid uint256 value %q", string(u))
	}
	return n, nil
}

// SafeTransaction mirrors the parameter set of a Safe wallet's
// execTransaction call. All uint256 fields ride as decimal strings.
type SafeTransaction struct {
	From           string        `json:"from" validate:"required,eth_addr"`
	To             string        `json:"to" validate:"required,eth_addr"`
	Value          Uint256String `json:"value" validate:"required"`
	Data           string        `json:"data" validate:"required,startswith=0x"`
	Operation      uint8         `json:"operation"`
	SafeTxGas      Uint256String `json:"safeTxGas"`
	BaseGas        Uint256String `json:"baseGas"`
	GasPrice       Uint256String `json:"gasPrice"`
	GasToken       string        `json:"gasToken" validate:"omitempty,eth_addr"`
	RefundReceiver string        `json:"refundReceiver" validate:"omitempty,eth_addr"`
	Nonce          Uint256String `json:"nonce" validate:"required"`
}

// PaymentPayload is a third-party submitted Safe payment: the unsigned
// transaction plus a concatenated blob of 65-byte owner signatures.
type PaymentPayload struct {
	Scheme      string           `json:"scheme" validate:"required"`
	NetworkID   int64            `json:"networkId" validate:"required"`
	SafeAddress string           `json:"safeAddress" validate:"required,eth_addr"`
	SafeTx      *SafeTransaction `json:"safeTx" validate:"required"`
	Signatures  string           `json:"signatures" validate:"required,startswith=0x"`
}

var payloadValidate = validator.New(validator.WithRequiredStructEnabled())

// ParsePaymentPayload decodes and schema-validates an inbound payment
// payload. Downstream verification can assume a structurally well-formed
// payload once this returns without error.
func ParsePaymentPayload(raw []byte) (*PaymentPayload, error) {
	var p PaymentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed payment payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate runs the structural schema checks on an already-decoded
// payload. The validator dives into SafeTx, so one Struct call covers
// the nested transaction fields too.
func (p *PaymentPayload) Validate() error {
	if err := payloadValidate.Struct(p); err != nil {
		return fmt.Errorf("invalid payment payload: %w", err)
	}
	return nil
}
