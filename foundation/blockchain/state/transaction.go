package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// SubmitTransaction sends the amount from the node's wallet to the recipient
// and shares the resulting transaction with the peers. The broadcast happens
// under the lock so peers receive the versions of a transaction in the order
// they were created.
func (s *State) SubmitTransaction(recipient string, amount uint64) (database.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.wallet.CreateOrUpdateTransaction(recipient, amount, s.chain.Blocks(), s.mempool)
	if err != nil {
		return database.Transaction{}, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s]", tx)
	s.evHandler("viewer: tx: %s", tx)

	s.Network.BroadcastTx(tx)
	s.Worker.SignalStartMining()

	return tx, nil
}
