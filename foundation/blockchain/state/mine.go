package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Mine asks the worker to mine a new block and waits for the result.
func (s *State) Mine(ctx context.Context) (database.Block, error) {
	return s.Worker.Mine(ctx)
}

// MineNewBlock seals the valid transactions in the mempool, plus the reward
// for this node, into a new block. The new chain is shared with the peers
// and the mined transactions are cleared from the mempools. Transactions
// submitted while the POW ran stay pooled for the next block.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: pick valid transactions")

	s.mu.Lock()
	trans := s.mempool.ValidTransactions(database.EventHandler(s.evHandler))
	s.mu.Unlock()

	reward, err := s.issuer.Reward(s.wallet.Address(), s.genesis.MiningReward)
	if err != nil {
		return database.Block{}, fmt.Errorf("reward: %w", err)
	}
	trans = append(trans, reward)

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(trans))

	// The chain is not locked while the POW runs. If a peer's chain replaced
	// ours in the meantime the block is stale and is discarded.
	block, err := s.chain.AddBlock(ctx, trans, database.EventHandler(s.evHandler))
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("viewer: block: %s", block)
	s.evHandler("state: MineNewBlock: MINING: sync chains")

	s.Network.SyncChains(s.chain.Blocks())

	s.mu.Lock()
	n := s.clearMined(block)
	s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: cleared mempool: removed[%d]", n)

	if height, exists := s.chain.HeightOf(block.Hash); exists {
		s.Network.BroadcastClearTxs(height, block)
	}

	return block, nil
}

// clearMined removes the block's transactions from the mempool and returns
// how many were removed. A pooled transaction sharing an id with a mined one
// but signed differently was updated after the block was built. When it was
// sent by this node's wallet the sends missing from the block are moved into
// a new transaction that is shared with the peers. Otherwise it is dropped
// and the sender's node shares the new transaction. The caller must hold
// the state lock.
func (s *State) clearMined(block database.Block) int {
	removed := s.mempool.RemoveMined(block.Transactions)

	for _, mined := range block.Transactions {
		pending, exists := s.mempool.FindByID(mined.ID)
		if !exists {
			continue
		}

		s.mempool.Remove(pending.ID)
		removed++

		if pending.Input.Address != s.wallet.Address() {
			s.evHandler("state: clearMined: dropped updated tx[%s]", pending)
			continue
		}

		tx, err := s.wallet.RebaseTransaction(pending, mined, s.chain.Blocks())
		if err != nil {
			s.evHandler("state: clearMined: rebase tx[%s]: ERROR: %s", pending, err)
			continue
		}

		s.mempool.UpdateOrAddTransaction(tx)
		s.evHandler("state: clearMined: rebased tx[%s] into tx[%s]", pending, tx)
		s.evHandler("viewer: tx: %s", tx)

		s.Network.BroadcastTx(tx)
	}

	return removed
}
