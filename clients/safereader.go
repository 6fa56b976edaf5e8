package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/eilwallet/omnipay/safe"
	"github.com/eilwallet/omnipay/verification"
)

// SafeInfo implements verification.SafeReader by reading getOwners and
// getThreshold from the Safe contract itself.
func (e *EVM) SafeInfo(ctx context.Context, chainID int64, safeAddress string) (*verification.SafeAccount, error) {
	c, ok := e.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("no client configured for chain %d", chainID)
	}
	addr := common.HexToAddress(safeAddress)

	ownersRaw, err := e.callSafe(ctx, c, addr, "getOwners")
	if err != nil {
		return nil, err
	}
	owners, ok := ownersRaw[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getOwners result is not an address array")
	}

	thresholdRaw, err := e.callSafe(ctx, c, addr, "getThreshold")
	if err != nil {
		return nil, err
	}
	threshold, ok := thresholdRaw[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getThreshold result is not a uint256")
	}

	account := &verification.SafeAccount{
		Address:   safeAddress,
		Threshold: int(threshold.Int64()),
	}
	for _, owner := range owners {
		account.Owners = append(account.Owners, owner.Hex())
	}
	return account, nil
}

func (e *EVM) callSafe(ctx context.Context, c *chainClient, addr common.Address, method string) ([]interface{}, error) {
	input, err := safe.ContractABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	output, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call on safe %s: %w", method, addr.Hex(), err)
	}
	values, err := safe.ContractABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}
