// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Mempool represents a cache of transactions that have not been mined yet,
// keyed by transaction id. Insertion order is kept so the same pool always
// produces the same block.
type Mempool struct {
	mu    sync.RWMutex
	pool  map[string]database.Transaction
	order []string
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.Transaction),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// UpdateOrAddTransaction replaces the transaction with the same id or adds
// it to the pool when it does not exist.
func (mp *Mempool) UpdateOrAddTransaction(tx database.Transaction) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID]; !exists {
		mp.order = append(mp.order, tx.ID)
	}
	mp.pool[tx.ID] = tx

	return len(mp.pool)
}

// FindTransaction returns the transaction sent by the specified address. A
// wallet has at most one transaction in the pool at a time.
func (mp *Mempool) FindTransaction(address string) (database.Transaction, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, id := range mp.order {
		if tx := mp.pool[id]; tx.Input.Address == address {
			return tx, true
		}
	}

	return database.Transaction{}, false
}

// ValidTransactions returns the transactions that conserve value and carry
// a good signature. Invalid transactions are reported and left in the pool.
func (mp *Mempool) ValidTransactions(ev database.EventHandler) []database.Transaction {
	trans := mp.Copy()

	valid := make([]database.Transaction, 0, len(trans))
	for _, tx := range trans {
		if err := tx.Valid(); err != nil {
			ev("mempool: ValidTransactions: invalid tx[%s]: balance: %s", tx, err)
			continue
		}

		if !tx.Verify() {
			ev("mempool: ValidTransactions: invalid tx[%s]: signature", tx)
			continue
		}

		valid = append(valid, tx)
	}

	return valid
}

// Copy returns a list of the transactions in insertion order.
func (mp *Mempool) Copy() []database.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]database.Transaction, 0, len(mp.order))
	for _, id := range mp.order {
		trans = append(trans, mp.pool[id])
	}

	return trans
}

// Clear removes all the transactions from the pool.
func (mp *Mempool) Clear() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Transaction)
	mp.order = nil
}

// FindByID returns the pooled transaction with the specified id.
func (mp *Mempool) FindByID(id string) (database.Transaction, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	tx, exists := mp.pool[id]
	return tx, exists
}

// Remove deletes the transaction with the specified id from the pool.
func (mp *Mempool) Remove(id string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.remove(id)
}

// RemoveMined removes the pooled transactions that are identical to one of
// the mined transactions, matched by id and signature, and returns how many
// were removed. A pooled transaction with a mined id but another signature
// was updated after the block was built and is kept.
func (mp *Mempool) RemoveMined(mined []database.Transaction) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, tx := range mined {
		pending, exists := mp.pool[tx.ID]
		if !exists || pending.Input.Signature != tx.Input.Signature {
			continue
		}

		mp.remove(tx.ID)
		removed++
	}

	return removed
}

func (mp *Mempool) remove(id string) bool {
	if _, exists := mp.pool[id]; !exists {
		return false
	}
	delete(mp.pool, id)

	for i, oid := range mp.order {
		if oid == id {
			mp.order = append(mp.order[:i], mp.order[i+1:]...)
			break
		}
	}

	return true
}
