// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/gossip"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log        *zap.SugaredLogger
	State      *state.State
	GossipSync *gossip.Sync
}

// Sync upgrades a peer's request to the websocket the chain and mempool
// are gossiped over. The call returns when the peer disconnects.
func (h Handlers) Sync(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("peer sync", "traceid", v.TraceID, "remoteaddr", r.RemoteAddr)
	h.GossipSync.ServeHTTP(w, r)

	return nil
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock()

	status := struct {
		Host        string            `json:"host"`
		LatestHash  string            `json:"latest_block_hash"`
		Height      int               `json:"height"`
		Mempool     int               `json:"mempool"`
		Connections int               `json:"connections"`
		KnownPeers  []peer.PeerStatus `json:"known_peers"`
	}{
		Host:        h.State.RetrieveHost(),
		LatestHash:  latest.Hash,
		Height:      len(h.State.RetrieveChain()) - 1,
		Mempool:     h.State.QueryMempoolLength(),
		Connections: h.GossipSync.Connections(),
		KnownPeers:  h.State.RetrievePeers(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
