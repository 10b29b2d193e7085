package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case req := <-w.mineRequests:
			block, err := w.runMiningOperation(req.ctx)
			req.result <- mineResult{block: block, err: err}

		case <-w.startMining:
			if w.isShutdown() {
				continue
			}

			length := w.state.QueryMempoolLength()
			if length == 0 {
				w.evHandler("worker: miningOperations: MINING: no transactions to mine: Txs[%d]", length)
				continue
			}

			w.runMiningOperation(context.Background())

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// autoMineOperations signals a mining operation on every tick.
func (w *Worker) autoMineOperations() {
	w.evHandler("worker: autoMineOperations: G started")
	defer w.evHandler("worker: autoMineOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.SignalStartMining()
			}
		case <-w.shut:
			w.evHandler("worker: autoMineOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation seals the transactions in the mempool into a new block.
// The operation is cancelled when a peer's chain replaces ours or the worker
// shuts down.
func (w *Worker) runMiningOperation(parent context.Context) (database.Block, error) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Can't return from this function until this G is complete.
	var wg sync.WaitGroup
	wg.Add(1)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	duration := time.Since(t)

	cancel()
	wg.Wait()

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, database.ErrStaleBlock):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)
		case errors.Is(err, context.Canceled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return database.Block{}, err
	}

	return block, nil
}
