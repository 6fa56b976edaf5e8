package safe

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// transferSelector is the 4-byte method id of transfer(address,uint256).
var transferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

var transferArgs = abi.Arguments{
	{Type: mustType("address")},
	{Type: mustType("uint256")},
}

// DecodeTransfer decodes standard ERC-20 transfer(address,uint256) call
// data into its recipient and amount. Anything that is not exactly a
// transfer call is rejected.
func DecodeTransfer(data []byte) (common.Address, *big.Int, error) {
	if len(data) != 4+2*32 {
		return common.Address{}, nil, fmt.Errorf("call data length %d is not an ERC-20 transfer", len(data))
	}
	if !bytes.Equal(data[:4], transferSelector) {
		return common.Address{}, nil, fmt.Errorf("call data selector %x is not transfer(address,uint256)", data[:4])
	}
	values, err := transferArgs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("unpack transfer arguments: %w", err)
	}
	to, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("transfer recipient is not an address")
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, fmt.Errorf("transfer amount is not a uint256")
	}
	return to, amount, nil
}

// EncodeTransfer builds transfer(address,uint256) call data.
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	packed, err := transferArgs.Pack(to, amount)
	if err != nil {
		return nil, fmt.Errorf("pack transfer arguments: %w", err)
	}
	return append(append([]byte{}, transferSelector...), packed...), nil
}
