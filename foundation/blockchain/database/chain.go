// Package database handles the blocks, transactions and chain that make up
// the ledger, all held in memory.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// Set of errors returned when a chain is not accepted.
var (
	ErrChainNotLonger = errors.New("chain is not longer than the current chain")
	ErrInvalidChain   = errors.New("chain is not valid")
	ErrStaleBlock     = errors.New("block does not extend the current tip")
)

// =============================================================================

// Chain is the ordered sequence of blocks owned by a node. The chain is
// never empty and never holds an invalid sequence of blocks.
type Chain struct {
	mu       sync.RWMutex
	blocks   []Block
	genesis  Block
	mineRate time.Duration
}

// NewChain constructs a chain holding only the genesis block.
func NewChain(gen genesis.Genesis) *Chain {
	gb := Genesis(gen.Difficulty)

	return &Chain{
		blocks:   []Block{gb},
		genesis:  gb,
		mineRate: gen.MineRate,
	}
}

// Blocks returns a copy of the blocks in the chain.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]Block, len(c.blocks))
	copy(blocks, c.blocks)
	return blocks
}

// LatestBlock returns the tip of the chain.
func (c *Chain) LatestBlock() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[len(c.blocks)-1]
}

// Length returns the number of blocks including genesis.
func (c *Chain) Length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// BlockByHeight returns the block at the specified height where genesis
// is height 0.
func (c *Chain) BlockByHeight(height uint64) (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if height >= uint64(len(c.blocks)) {
		return Block{}, false
	}
	return c.blocks[height], true
}

// HeightOf returns the height of the block with the specified hash. The
// search starts at the tip since recent blocks are asked for the most.
func (c *Chain) HeightOf(hash string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.blocks) - 1; i >= 0; i-- {
		if c.blocks[i].Hash == hash {
			return uint64(i), true
		}
	}

	return 0, false
}

// HasTransaction reports if a transaction with the specified id is held in
// any block of the chain.
func (c *Chain) HasTransaction(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.blocks) - 1; i >= 0; i-- {
		for _, tx := range c.blocks[i].Transactions {
			if tx.ID == id {
				return true
			}
		}
	}

	return false
}

// AddBlock mines a new block holding the transactions on top of the current
// tip and appends it. The chain is not locked while the proof of work runs,
// so a replacement can happen in the meantime. In that case the mined block
// no longer extends the tip and ErrStaleBlock is returned.
func (c *Chain) AddBlock(ctx context.Context, trans []Transaction, ev EventHandler) (Block, error) {
	block, err := MineBlock(ctx, c.LatestBlock(), trans, c.mineRate, ev)
	if err != nil {
		return Block{}, err
	}

	if err := c.AppendBlock(block); err != nil {
		return Block{}, err
	}

	return block, nil
}

// AppendBlock adds an already mined block to the chain if it extends the
// current tip and its hash checks out.
func (c *Chain) AppendBlock(block Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	if block.LastHash != tip.Hash {
		return fmt.Errorf("%w: lastHash[%s] tip[%s]", ErrStaleBlock, short(block.LastHash), short(tip.Hash))
	}

	if err := validateBlock(tip, block); err != nil {
		return err
	}

	c.blocks = append(c.blocks, block)
	return nil
}

// ValidateChain checks the candidate starts with the genesis block and every
// block links to and was correctly hashed after its parent.
func (c *Chain) ValidateChain(blocks []Block) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrInvalidChain)
	}

	if !sameBlock(blocks[0], c.genesis) {
		return fmt.Errorf("%w: genesis block does not match", ErrInvalidChain)
	}

	for i := 1; i < len(blocks); i++ {
		if err := validateBlock(blocks[i-1], blocks[i]); err != nil {
			return fmt.Errorf("%w: block %d: %w", ErrInvalidChain, i, err)
		}
	}

	return nil
}

// IsValidChain reports if the candidate passes ValidateChain.
func (c *Chain) IsValidChain(blocks []Block) bool {
	return c.ValidateChain(blocks) == nil
}

// ReplaceChain swaps the local chain for the candidate when the candidate is
// strictly longer and valid. On any error the local chain is unchanged.
func (c *Chain) ReplaceChain(blocks []Block) error {
	if length := c.Length(); len(blocks) <= length {
		return fmt.Errorf("%w: got %d, have %d", ErrChainNotLonger, len(blocks), length)
	}

	if err := c.ValidateChain(blocks); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The length is checked under the lock since a block may have been
	// appended while the candidate was being validated.
	if len(blocks) <= len(c.blocks) {
		return fmt.Errorf("%w: got %d, have %d", ErrChainNotLonger, len(blocks), len(c.blocks))
	}

	cpy := make([]Block, len(blocks))
	copy(cpy, blocks)
	c.blocks = cpy

	return nil
}

// =============================================================================

// validateBlock checks the block against its parent.
func validateBlock(parent Block, block Block) error {
	if block.LastHash != parent.Hash {
		return fmt.Errorf("lastHash[%s] does not match parent hash[%s]", short(block.LastHash), short(parent.Hash))
	}

	hash := GenerateHash(block)
	if block.Hash != hash {
		return fmt.Errorf("hash[%s] does not match generated hash[%s]", short(block.Hash), short(hash))
	}

	if block.Difficulty < 1 {
		return fmt.Errorf("difficulty %d is below the minimum", block.Difficulty)
	}

	if !isHashSolved(block.Difficulty, block.Hash) {
		return fmt.Errorf("hash[%s] does not solve difficulty %d", short(block.Hash), block.Difficulty)
	}

	if block.Difficulty+1 < parent.Difficulty || block.Difficulty > parent.Difficulty+1 {
		return fmt.Errorf("difficulty jumped from %d to %d", parent.Difficulty, block.Difficulty)
	}

	return nil
}
