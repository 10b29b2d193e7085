// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis    genesis.Genesis
	Wallet     *wallet.Wallet
	Issuer     wallet.Issuer
	Host       string
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// State manages the chain, the mempool and the wallet of a node.
type State struct {
	host      string
	evHandler EventHandler
	mu        sync.Mutex

	genesis    genesis.Genesis
	wallet     *wallet.Wallet
	issuer     wallet.Issuer
	knownPeers *peer.PeerSet
	chain      *database.Chain
	mempool    *mempool.Mempool

	Worker  Worker
	Network Network
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Wallet == nil {
		return nil, errors.New("a wallet is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	if cfg.Issuer.Address() == "" {
		return nil, errors.New("an issuer is required")
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	state := State{
		host:      cfg.Host,
		evHandler: ev,

		genesis:    cfg.Genesis,
		wallet:     cfg.Wallet,
		issuer:     cfg.Issuer,
		knownPeers: knownPeers,
		chain:      database.NewChain(cfg.Genesis),
		mempool:    mempool.New(),

		Network: noNetwork{},
	}

	// Until worker.Run registers itself, mining runs on the caller's
	// goroutine.
	state.Worker = inlineWorker{state: &state}

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}
