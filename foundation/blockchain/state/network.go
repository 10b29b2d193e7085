package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrUnknownBlock is returned when a pool clear refers to a block this node
// does not hold.
var ErrUnknownBlock = errors.New("block is not in the local chain")

// Network interface represents the behavior required to be implemented by any
// package providing support for sharing state with peers. Delivery is best
// effort, none of these calls report failures.
type Network interface {
	SyncChains(blocks []database.Block)
	BroadcastTx(tx database.Transaction)
	BroadcastClearTxs(height uint64, block database.Block)
}

// noNetwork is used until a real network is registered with the state.
type noNetwork struct{}

func (noNetwork) SyncChains(blocks []database.Block)                    {}
func (noNetwork) BroadcastTx(tx database.Transaction)                   {}
func (noNetwork) BroadcastClearTxs(height uint64, block database.Block) {}

// =============================================================================

// ProcessPeerChain takes a chain received from a peer and replaces the local
// chain with it when it is longer and valid. A mine in flight is cancelled
// since it no longer extends the tip.
func (s *State) ProcessPeerChain(blocks []database.Block) error {
	s.evHandler("state: ProcessPeerChain: started: blocks[%d]", len(blocks))
	defer s.evHandler("state: ProcessPeerChain: completed")

	if err := s.chain.ReplaceChain(blocks); err != nil {
		s.evHandler("state: ProcessPeerChain: declined: %s", err)
		return err
	}

	s.evHandler("state: ProcessPeerChain: replaced: length[%d] tip[%s]", len(blocks), blocks[len(blocks)-1].Hash)

	s.Worker.SignalCancelMining()

	return nil
}

// UpsertPeerTransaction accepts a transaction from a peer for inclusion.
// Validity is checked when the transaction is picked for mining. Versions
// older than the pooled one and transactions already in the chain are
// ignored.
func (s *State) UpsertPeerTransaction(tx database.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, exists := s.mempool.FindByID(tx.ID); exists && tx.Input.TimeStamp < pending.Input.TimeStamp {
		s.evHandler("state: UpsertPeerTransaction: ignored older version: tx[%s]", tx)
		return
	}

	if s.chain.HasTransaction(tx.ID) {
		s.evHandler("state: UpsertPeerTransaction: ignored mined: tx[%s]", tx)
		return
	}

	n := s.mempool.UpdateOrAddTransaction(tx)
	s.evHandler("state: UpsertPeerTransaction: tx[%s]: pool[%d]", tx, n)

	s.Worker.SignalStartMining()
}

// ProcessPeerClear clears the mempool after a peer mined a block. When the
// block is identified, the clear only applies if the local chain holds that
// block at that height, and only the transactions mined in it are removed.
// A clear with no block hash empties the pool.
func (s *State) ProcessPeerClear(height uint64, hash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hash == "" {
		n := s.mempool.Count()
		s.mempool.Clear()
		s.evHandler("state: ProcessPeerClear: cleared: removed[%d]", n)
		return n, nil
	}

	block, exists := s.chain.BlockByHeight(height)
	if !exists || block.Hash != hash {
		s.evHandler("state: ProcessPeerClear: ignored: height[%d] hash[%s]", height, hash)
		return 0, fmt.Errorf("%w: height %d, hash %s", ErrUnknownBlock, height, hash)
	}

	n := s.clearMined(block)
	s.evHandler("state: ProcessPeerClear: cleared: height[%d] removed[%d]", height, n)

	return n, nil
}
