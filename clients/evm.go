// Package clients provides the go-ethereum backed implementations of the
// planner and verification interfaces: RPC balance reads, gas estimation,
// and on-chain Safe state lookups.
package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/eilwallet/omnipay/logger"
	"github.com/eilwallet/omnipay/planner"
	"github.com/eilwallet/omnipay/safe"
	"github.com/eilwallet/omnipay/types"
)

// NativeAsset is the BalanceOracle token-address sentinel for a chain's
// native balance.
const NativeAsset = planner.NativeAsset

var balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	addressArgs = abi.Arguments{{Type: mustType("address")}}
	uint256Args = abi.Arguments{{Type: mustType("uint256")}}
)

type chainClient struct {
	chain *types.Chain
	eth   *ethclient.Client
}

// EVM serves balance reads and transfer gas estimates over the
// configured chains' RPC endpoints. It implements planner.BalanceOracle
// and planner.GasEstimator for one transfer token symbol.
type EVM struct {
	chains      map[int64]*chainClient
	tokenSymbol string
	log         logger.Logger
}

// DialChains connects to every chain's RPC endpoint. tokenSymbol is the
// transfer token quoted by EstimateTransferGas.
func DialChains(chains []*types.Chain, tokenSymbol string, log logger.Logger) (*EVM, error) {
	e := &EVM{
		chains:      make(map[int64]*chainClient, len(chains)),
		tokenSymbol: tokenSymbol,
		log:         log,
	}
	for _, chain := range chains {
		client, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("dial %s rpc: %w", chain.Name, err)
		}
		e.chains[chain.ID] = &chainClient{chain: chain, eth: client}
	}
	return e, nil
}

// Close releases every RPC connection.
func (e *EVM) Close() {
	for _, c := range e.chains {
		c.eth.Close()
	}
}

// Backend returns the raw client for a chain, for settlement submission.
func (e *EVM) Backend(chainID int64) (*ethclient.Client, error) {
	c, ok := e.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("no client configured for chain %d", chainID)
	}
	return c.eth, nil
}

// GetBalance implements planner.BalanceOracle. Unknown chains read as
// zero balance rather than failing, matching the oracle contract the
// planner's fast-rejection paths rely on.
func (e *EVM) GetBalance(ctx context.Context, chainID int64, tokenAddress, wallet string) (*big.Int, error) {
	c, ok := e.chains[chainID]
	if !ok {
		return new(big.Int), nil
	}
	owner := common.HexToAddress(wallet)
	if tokenAddress == NativeAsset {
		return c.eth.BalanceAt(ctx, owner, nil)
	}

	input, err := addressArgs.Pack(owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	token := common.HexToAddress(tokenAddress)
	output, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: append(append([]byte{}, balanceOfSelector...), input...),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call on chain %d: %w", chainID, err)
	}
	values, err := uint256Args.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("decode balanceOf result: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf result is not a uint256")
	}
	return balance, nil
}

// EstimateTransferGas implements planner.GasEstimator by simulating an
// ERC-20 transfer of the configured token and pairing the unit estimate
// with the node's suggested gas price.
func (e *EVM) EstimateTransferGas(ctx context.Context, chainID int64, from, to string, amount *big.Int) (uint64, *big.Int, error) {
	c, ok := e.chains[chainID]
	if !ok {
		return 0, nil, fmt.Errorf("no client configured for chain %d", chainID)
	}
	token, ok := c.chain.Token(e.tokenSymbol)
	if !ok {
		return 0, nil, fmt.Errorf("chain %d does not define token %s", chainID, e.tokenSymbol)
	}

	calldata, err := safe.EncodeTransfer(common.HexToAddress(to), amount)
	if err != nil {
		return 0, nil, err
	}
	tokenAddr := common.HexToAddress(token.Address)
	gasUnits, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: common.HexToAddress(from),
		To:   &tokenAddr,
		Data: calldata,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("estimate transfer gas on chain %d: %w", chainID, err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("suggest gas price on chain %d: %w", chainID, err)
	}
	return gasUnits, gasPrice, nil
}
