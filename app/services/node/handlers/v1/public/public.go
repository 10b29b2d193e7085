// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Blocks returns the full chain held by the node.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// SubmitTransaction sends value from the node's wallet to a recipient. The
// recipient can be an address or a name known to the name service.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitTx
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	recipient := h.NS.Resolve(req.Recipient)

	h.Log.Infow("submit tran", "traceid", v.TraceID, "to", recipient, "amount", req.Amount)

	tx, err := h.State.SubmitTransaction(recipient, req.Amount)
	if err != nil {
		if errors.Is(err, database.ErrBalanceExceeded) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return fmt.Errorf("submit: %w", err)
	}

	resp := submitted{
		Status:      "transaction added to mempool",
		Transaction: tx,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// Mine mines a new block with the valid transactions in the mempool and
// waits for the result.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.Mine(ctx)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrStaleBlock), errors.Is(err, context.Canceled):
			return errs.NewTrusted(fmt.Errorf("block discarded: %w", err), http.StatusConflict)

		case errors.Is(err, worker.ErrShutdown):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}
		return fmt.Errorf("mine: %w", err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Balance returns the balance of the node's wallet, or of the address or
// name provided in the route.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := h.State.RetrievePublicKey()
	if param := web.Param(r, "address"); param != "" {
		address = h.NS.Resolve(param)
	}

	resp := balance{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: h.State.QueryBalanceFor(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// PublicKey returns the address of the node's wallet.
func (h Handlers) PublicKey(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := h.State.RetrievePublicKey()

	resp := publicKey{
		PublicKey: address,
		Name:      h.NS.Lookup(address),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the connection status of the known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrievePeers(), http.StatusOK)
}
