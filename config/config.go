// Package config loads the static chain set from a YAML file. The file
// is read once at startup; the resulting chain configuration is immutable
// for the process lifetime. RPC URLs may be overridden through the
// environment (RPC_URL_<chainId>), with a .env file honored when present.
package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/eilwallet/omnipay/types"
)

type tokenYAML struct {
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

type chainYAML struct {
	ChainID int64  `yaml:"chainId"`
	Name    string `yaml:"name"`
	RPCURL  string `yaml:"rpcUrl"`
	Native  struct {
		Symbol   string `yaml:"symbol"`
		Decimals int32  `yaml:"decimals"`
	} `yaml:"native"`
	MinNativeBalance string               `yaml:"minNativeBalance"`
	Tokens           map[string]tokenYAML `yaml:"tokens"`
}

type fileYAML struct {
	Chains []chainYAML `yaml:"chains"`
}

// Config is the loaded chain set.
type Config struct {
	Chains []*types.Chain
}

// Load reads the chain set from path. A .env file in the working
// directory is loaded first if one exists; its absence is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML chain set.
func Parse(raw []byte) (*Config, error) {
	var file fileYAML
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(file.Chains) == 0 {
		return nil, fmt.Errorf("config defines no chains")
	}

	cfg := &Config{}
	seen := make(map[int64]bool)
	for _, c := range file.Chains {
		if c.ChainID == 0 {
			return nil, fmt.Errorf("chain %q has no chainId", c.Name)
		}
		if seen[c.ChainID] {
			return nil, fmt.Errorf("duplicate chainId %d", c.ChainID)
		}
		seen[c.ChainID] = true

		chain := &types.Chain{
			ID:     c.ChainID,
			Name:   c.Name,
			RPCURL: c.RPCURL,
			Native: types.NativeToken{
				Symbol:   c.Native.Symbol,
				Decimals: c.Native.Decimals,
			},
			Tokens: make(map[string]types.Token, len(c.Tokens)),
		}
		if override := os.Getenv(fmt.Sprintf("RPC_URL_%d", c.ChainID)); override != "" {
			chain.RPCURL = override
		}
		if chain.RPCURL == "" {
			return nil, fmt.Errorf("chain %d has no rpcUrl", c.ChainID)
		}
		if c.MinNativeBalance != "" {
			min, ok := new(big.Int).SetString(c.MinNativeBalance, 10)
			if !ok {
				return nil, fmt.Errorf("chain %d: invalid minNativeBalance %q", c.ChainID, c.MinNativeBalance)
			}
			chain.MinNativeBalance = min
		}
		for symbol, t := range c.Tokens {
			if t.Address == "" {
				return nil, fmt.Errorf("chain %d: token %s has no address", c.ChainID, symbol)
			}
			chain.Tokens[symbol] = types.Token{Address: t.Address, Decimals: t.Decimals}
		}
		cfg.Chains = append(cfg.Chains, chain)
	}
	return cfg, nil
}
