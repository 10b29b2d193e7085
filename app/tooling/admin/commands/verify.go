// Package commands contains the functionality for the admin commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// LoadChain reads a chain dump in the form returned by the node's blocks
// endpoint.
func LoadChain(path string) ([]database.Block, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var blocks []database.Block
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil, fmt.Errorf("decoding chain: %w", err)
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("chain %s is empty", path)
	}

	return blocks, nil
}

// Verify checks the chain would be accepted by a node running with the
// genesis values.
func Verify(w io.Writer, gen genesis.Genesis, blocks []database.Block) error {
	chain := database.NewChain(gen)
	if err := chain.ValidateChain(blocks); err != nil {
		return err
	}

	fmt.Fprintf(w, "Chain is valid: height %d  tip %s\n", len(blocks)-1, blocks[len(blocks)-1].Hash)
	return nil
}
