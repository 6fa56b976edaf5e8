package safe

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eilwallet/omnipay/types"
)

// EIP-712 typehashes fixed by the Safe contracts (v1.3.0).
var (
	domainSeparatorTypehash = crypto.Keccak256(
		[]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeTxTypehash = crypto.Keccak256(
		[]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

// TxHash computes the 32-byte digest a Safe wallet at safeAddress on
// chainID requires its owners to sign for tx. The digest must match the
// contract's getTransactionHash bit-exact or recovered signers will be
// garbage addresses.
func TxHash(tx *types.SafeTransaction, safeAddress string, chainID int64) ([32]byte, error) {
	var digest [32]byte

	value, err := tx.Value.BigInt()
	if err != nil {
		return digest, fmt.Errorf("value: %w", err)
	}
	safeTxGas, err := tx.SafeTxGas.BigInt()
	if err != nil {
		return digest, fmt.Errorf("safeTxGas: %w", err)
	}
	baseGas, err := tx.BaseGas.BigInt()
	if err != nil {
		return digest, fmt.Errorf("baseGas: %w", err)
	}
	gasPrice, err := tx.GasPrice.BigInt()
	if err != nil {
		return digest, fmt.Errorf("gasPrice: %w", err)
	}
	nonce, err := tx.Nonce.BigInt()
	if err != nil {
		return digest, fmt.Errorf("nonce: %w", err)
	}
	data, err := hexutil.Decode(tx.Data)
	if err != nil {
		return digest, fmt.Errorf("data: %w", err)
	}

	domainArgs := abi.Arguments{
		{Type: mustType("bytes32")},
		{Type: mustType("uint256")},
		{Type: mustType("address")},
	}
	domainEnc, err := domainArgs.Pack(
		toBytes32(domainSeparatorTypehash),
		big.NewInt(chainID),
		common.HexToAddress(safeAddress),
	)
	if err != nil {
		return digest, fmt.Errorf("pack domain: %w", err)
	}
	domainSeparator := crypto.Keccak256(domainEnc)

	txArgs := abi.Arguments{
		{Type: mustType("bytes32")},
		{Type: mustType("address")},
		{Type: mustType("uint256")},
		{Type: mustType("bytes32")},
		{Type: mustType("uint8")},
		{Type: mustType("uint256")},
		{Type: mustType("uint256")},
		{Type: mustType("uint256")},
		{Type: mustType("address")},
		{Type: mustType("address")},
		{Type: mustType("uint256")},
	}
	txEnc, err := txArgs.Pack(
		toBytes32(safeTxTypehash),
		common.HexToAddress(tx.To),
		value,
		toBytes32(crypto.Keccak256(data)),
		tx.Operation,
		safeTxGas,
		baseGas,
		gasPrice,
		common.HexToAddress(tx.GasToken),
		common.HexToAddress(tx.RefundReceiver),
		nonce,
	)
	if err != nil {
		return digest, fmt.Errorf("pack safe tx: %w", err)
	}
	txHashStruct := crypto.Keccak256(txEnc)

	outer := bytes.Join([][]byte{{0x19}, {0x01}, domainSeparator, txHashStruct}, nil)
	copy(digest[:], crypto.Keccak256(outer))
	return digest, nil
}

func toBytes32(b []byte) [32]byte {
	var arr [32]byte
	copy(arr[:], b)
	return arr
}
