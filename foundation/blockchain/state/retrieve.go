package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveChain returns a copy of the blocks in the chain.
func (s *State) RetrieveChain() []database.Block {
	return s.chain.Blocks()
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.chain.LatestBlock()
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.Transaction {
	return s.mempool.Copy()
}

// RetrievePublicKey returns the address of the node's wallet.
func (s *State) RetrievePublicKey() string {
	return s.wallet.Address()
}

// QueryBalance computes the balance of the node's wallet against the
// current chain.
func (s *State) QueryBalance() uint64 {
	return s.wallet.CalculateBalance(s.chain.Blocks())
}

// QueryBalanceFor computes the balance of any address against the current
// chain.
func (s *State) QueryBalanceFor(address string) uint64 {
	if address == s.wallet.Address() {
		return s.QueryBalance()
	}

	return wallet.CalculateBalance(s.chain.Blocks(), address, s.genesis.InitialBalance)
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrievePeers returns the connection status of every known peer.
func (s *State) RetrievePeers() []peer.PeerStatus {
	return s.knownPeers.Statuses()
}

// KnownPeers returns the peer set so the network can track connections.
func (s *State) KnownPeers() *peer.PeerSet {
	return s.knownPeers
}

// QueryMempoolLength returns the number of transactions in the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
