// Package genesis maintains access to the genesis parameters that every node
// on the ledger must agree on.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values used when a node is not given a genesis file.
const (
	DefaultDifficulty     = 3
	DefaultMineRate       = 3 * time.Second
	DefaultInitialBalance = 500
	DefaultMiningReward   = 10
	DefaultIssuerAddress  = "blockchain-wallet"
)

// Genesis represents the genesis file.
type Genesis struct {
	Difficulty     uint          `json:"difficulty" yaml:"difficulty"`           // Number of leading zeros required by the genesis block.
	MineRate       time.Duration `json:"mine_rate" yaml:"mine_rate"`             // Target time between blocks used to adjust difficulty.
	InitialBalance uint64        `json:"initial_balance" yaml:"initial_balance"` // Balance of a wallet that has never spent.
	MiningReward   uint64        `json:"mining_reward" yaml:"mining_reward"`     // Reward for mining a block.
	IssuerAddress  string        `json:"issuer_address" yaml:"issuer_address"`   // Reserved address of the reward issuing wallet.
}

// Default returns the genesis parameters used by the reference network.
func Default() Genesis {
	return Genesis{
		Difficulty:     DefaultDifficulty,
		MineRate:       DefaultMineRate,
		InitialBalance: DefaultInitialBalance,
		MiningReward:   DefaultMiningReward,
		IssuerAddress:  DefaultIssuerAddress,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Files with a .yaml or .yml
// extension are read as YAML, anything else as JSON.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &genesis); err != nil {
			return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
		}
	default:
		if err := json.Unmarshal(content, &genesis); err != nil {
			return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
		}
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters can run a chain.
func (g Genesis) Validate() error {
	if g.Difficulty < 1 {
		return errors.New("difficulty must be at least 1")
	}

	if g.MineRate <= 0 {
		return errors.New("mine rate must be positive")
	}

	if g.IssuerAddress == "" {
		return errors.New("issuer address is required")
	}

	return nil
}
