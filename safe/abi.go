// Package safe implements the Safe-wallet specific pieces of payment
// verification and settlement: the EIP-712 transaction digest, owner
// signature handling, and the execTransaction/ERC-20 call encodings.
package safe

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const contractABIJSON = `
[
  {
    "name": "execTransaction",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" },
      { "name": "data", "type": "bytes" },
      { "name": "operation", "type": "uint8" },
      { "name": "safeTxGas", "type": "uint256" },
      { "name": "baseGas", "type": "uint256" },
      { "name": "gasPrice", "type": "uint256" },
      { "name": "gasToken", "type": "address" },
      { "name": "refundReceiver", "type": "address" },
      { "name": "signatures", "type": "bytes" }
    ],
    "outputs": [ { "name": "success", "type": "bool" } ]
  },
  {
    "name": "getOwners",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [ { "name": "", "type": "address[]" } ]
  },
  {
    "name": "getThreshold",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [ { "name": "", "type": "uint256" } ]
  },
  {
    "name": "nonce",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [ { "name": "", "type": "uint256" } ]
  }
]
`

// ContractABI is the subset of the Safe wallet ABI the facilitator calls.
var ContractABI = mustParseABI(contractABIJSON)

func mustParseABI(j string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(j))
	if err != nil {
		panic(err)
	}
	return parsed
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
