package verification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/eilwallet/omnipay/types"
)

// SafeAccount is a multisig wallet's verification-relevant state: its
// owner set and the number of distinct owner signatures required.
type SafeAccount struct {
	Address   string
	Owners    []string
	Threshold int
}

// IsOwner reports whether addr is in the owner set (case-insensitive).
func (a *SafeAccount) IsOwner(addr string) bool {
	for _, owner := range a.Owners {
		if strings.EqualFold(owner, addr) {
			return true
		}
	}
	return false
}

// SafeReader resolves a Safe wallet's owners and threshold. The on-chain
// implementation lives in the clients package; StaticSafeRegistry serves
// configured deployments and tests.
type SafeReader interface {
	SafeInfo(ctx context.Context, chainID int64, safeAddress string) (*SafeAccount, error)
}

// TokenRegistry resolves a contract address to a recognized settlement
// token. A lookup failure means the payment targets a contract the
// facilitator does not settle.
type TokenRegistry interface {
	ResolveToken(ctx context.Context, chainID int64, address string) (types.Token, error)
}

// StaticSafeRegistry is a SafeReader over a fixed set of configured
// Safe deployments.
type StaticSafeRegistry struct {
	mu    sync.RWMutex
	safes map[string]*SafeAccount
}

func NewStaticSafeRegistry() *StaticSafeRegistry {
	return &StaticSafeRegistry{safes: make(map[string]*SafeAccount)}
}

// Register adds or replaces a Safe deployment.
func (r *StaticSafeRegistry) Register(chainID int64, account *SafeAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.safes[safeKey(chainID, account.Address)] = account
}

// SafeInfo implements SafeReader.
func (r *StaticSafeRegistry) SafeInfo(_ context.Context, chainID int64, safeAddress string) (*SafeAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if account, ok := r.safes[safeKey(chainID, safeAddress)]; ok {
		return account, nil
	}
	return nil, fmt.Errorf("unknown safe %s on chain %d", safeAddress, chainID)
}

func safeKey(chainID int64, addr string) string {
	return fmt.Sprintf("%d:%s", chainID, strings.ToLower(addr))
}

// StaticTokenRegistry is a TokenRegistry over the configured chain set:
// a contract address resolves iff some configured chain token matches it.
type StaticTokenRegistry struct {
	tokens map[string]types.Token
}

// NewStaticTokenRegistry indexes every token of every chain by address.
func NewStaticTokenRegistry(chains []*types.Chain) *StaticTokenRegistry {
	tokens := make(map[string]types.Token)
	for _, chain := range chains {
		for _, token := range chain.Tokens {
			tokens[safeKey(chain.ID, token.Address)] = token
		}
	}
	return &StaticTokenRegistry{tokens: tokens}
}

// ResolveToken implements TokenRegistry.
func (r *StaticTokenRegistry) ResolveToken(_ context.Context, chainID int64, address string) (types.Token, error) {
	if token, ok := r.tokens[safeKey(chainID, address)]; ok {
		return token, nil
	}
	return types.Token{}, fmt.Errorf("contract %s is not a recognized settlement asset on chain %d", address, chainID)
}
