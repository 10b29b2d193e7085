package state

import (
	"context"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	Mine(ctx context.Context) (database.Block, error)
}

// =============================================================================

// inlineWorker mines on the calling goroutine. It is used until a real
// worker is registered with the state.
type inlineWorker struct {
	state *State
}

func (inlineWorker) Shutdown()           {}
func (inlineWorker) SignalStartMining()  {}
func (inlineWorker) SignalCancelMining() {}

func (w inlineWorker) Mine(ctx context.Context) (database.Block, error) {
	return w.state.MineNewBlock(ctx)
}
