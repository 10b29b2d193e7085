// Package worker implements the mining workflow for the blockchain. Every
// mining operation runs on one goroutine so two of them never interleave.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// ErrShutdown is returned when mining is requested after the worker was
// shut down.
var ErrShutdown = errors.New("worker is shut down")

// =============================================================================

// mineRequest asks the mining goroutine for a new block.
type mineRequest struct {
	ctx    context.Context
	result chan mineResult
}

type mineResult struct {
	block database.Block
	err   error
}

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state        *state.State
	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	mineRequests chan mineRequest
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. When mineInterval is set, the
// worker mines on its own whenever the mempool holds transactions.
func Run(st *state.State, mineInterval time.Duration, evHandler state.EventHandler) *Worker {
	w := Worker{
		state:        st,
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		mineRequests: make(chan mineRequest),
		evHandler:    evHandler,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
	}

	if mineInterval > 0 {
		w.ticker = time.NewTicker(mineInterval)
		operations = append(operations, w.autoMineOperations)
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	if w.ticker != nil {
		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()
	}

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation when auto mining is on. If
// there is already a signal pending in the channel, just return since a
// mining operation will start.
func (w *Worker) SignalStartMining() {
	if w.ticker == nil {
		return
	}

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// Mine asks the mining goroutine for a new block and waits for it.
func (w *Worker) Mine(ctx context.Context) (database.Block, error) {
	req := mineRequest{
		ctx:    ctx,
		result: make(chan mineResult, 1),
	}

	select {
	case w.mineRequests <- req:
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	case <-w.shut:
		return database.Block{}, ErrShutdown
	}

	select {
	case res := <-req.result:
		return res.block, res.err
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
