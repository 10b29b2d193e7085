// Package gossip keeps the chain and the mempool of a node in sync with its
// peers over websocket connections. Delivery is best effort.
package gossip

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/gorilla/websocket"
)

// Set of directions a connection can be established in.
const (
	Inbound  = "inbound"
	Outbound = "outbound"
)

// defaultRetryInterval is how long to wait before dialing a dropped peer
// again when no interval is configured.
const defaultRetryInterval = 5 * time.Second

// defaultPath is the route peers are dialed on when no path is configured.
const defaultPath = "/"

// =============================================================================

// Config represents the configuration required to start syncing.
type Config struct {
	State         *state.State
	RetryInterval time.Duration
	Path          string
	EvHandler     state.EventHandler
}

// Sync manages the connections to the peers of a node.
type Sync struct {
	state         *state.State
	peers         *peer.PeerSet
	retryInterval time.Duration
	path          string
	evHandler     state.EventHandler
	upgrader      websocket.Upgrader
	dialer        websocket.Dialer

	mu    sync.RWMutex
	conns map[string]*conn

	wg       sync.WaitGroup
	shut     chan struct{}
	shutOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

// New constructs a Sync and registers it as the network of the state.
func New(cfg Config) *Sync {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}

	path := cfg.Path
	if path == "" {
		path = defaultPath
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := Sync{
		state:         cfg.State,
		peers:         cfg.State.KnownPeers(),
		retryInterval: retry,
		path:          path,
		evHandler:     ev,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		conns:  make(map[string]*conn),
		shut:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	// Register this network with the state package.
	cfg.State.Network = &s

	return &s
}

// ServeHTTP upgrades an inbound request from a peer to a websocket and
// serves it until the connection drops.
func (s *Sync) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.evHandler("gossip: ServeHTTP: upgrade: peer[%s]: ERROR: %s", r.RemoteAddr, err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	p := peer.New(r.RemoteAddr)
	s.peers.SetStatus(p, Inbound, peer.Connecting)
	defer s.peers.Remove(p)

	s.serve(newConn(ws, p.Host, Inbound, s.evHandler))
}

// Connect starts a goroutine for every known peer that dials the peer and
// dials it again whenever the connection drops.
func (s *Sync) Connect() {
	for _, p := range s.state.RetrieveKnownPeers() {
		s.peers.Add(p, Outbound)

		s.wg.Add(1)
		go func(p peer.Peer) {
			defer s.wg.Done()
			s.dialOperations(p)
		}(p)
	}
}

// Shutdown closes every connection and waits for the goroutines to finish.
func (s *Sync) Shutdown() {
	s.evHandler("gossip: shutdown: started")
	defer s.evHandler("gossip: shutdown: completed")

	s.shutOnce.Do(func() {
		close(s.shut)
		s.cancel()
	})

	s.mu.RLock()
	for _, c := range s.conns {
		c.close()
	}
	s.mu.RUnlock()

	s.wg.Wait()
}

// Connections returns the number of open peer connections.
func (s *Sync) Connections() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conns)
}

// =============================================================================
// These methods implement the state.Network interface.

// SyncChains sends the chain to every connected peer.
func (s *Sync) SyncChains(blocks []database.Block) {
	s.broadcast(NewChainMessage(blocks))
}

// BroadcastTx sends the transaction to every connected peer.
func (s *Sync) BroadcastTx(tx database.Transaction) {
	s.broadcast(NewTransactionMessage(tx))
}

// BroadcastClearTxs asks every connected peer to clear the transactions
// mined in the block.
func (s *Sync) BroadcastClearTxs(height uint64, block database.Block) {
	s.broadcast(NewClearTxsMessage(height, block))
}

// =============================================================================

// dialOperations keeps an outbound connection to the peer open until
// shutdown.
func (s *Sync) dialOperations(p peer.Peer) {
	s.evHandler("gossip: dialOperations: G started: peer[%s]", p.Host)
	defer s.evHandler("gossip: dialOperations: G completed: peer[%s]", p.Host)

	url := p.Host
	if !strings.Contains(url, "://") {
		url = "ws://" + url + s.path
	}

	for {
		s.peers.SetStatus(p, Outbound, peer.Connecting)

		ws, _, err := s.dialer.DialContext(s.ctx, url, nil)
		switch {
		case err != nil:
			s.peers.SetStatus(p, Outbound, peer.Disconnected)
			s.evHandler("gossip: dialOperations: peer[%s]: ERROR: %s", p.Host, err)

		default:
			s.serve(newConn(ws, p.Host, Outbound, s.evHandler))
			s.peers.SetStatus(p, Outbound, peer.Disconnected)
		}

		select {
		case <-s.shut:
			return
		case <-time.After(s.retryInterval):
		}
	}
}

// serve registers the connection, sends the local chain to the peer and
// processes the peer's messages until the connection drops.
func (s *Sync) serve(c *conn) {
	if !s.add(c) {
		c.close()
		return
	}
	defer s.remove(c)

	s.peers.SetStatus(peer.New(c.host), c.direction, peer.Connected)
	s.evHandler("gossip: serve: CONNECTED: peer[%s] direction[%s] id[%s]", c.host, c.direction, c.id)
	defer s.evHandler("gossip: serve: DISCONNECTED: peer[%s] id[%s]", c.host, c.id)

	go c.writeOperations()

	if data, err := json.Marshal(NewChainMessage(s.state.RetrieveChain())); err == nil {
		c.enqueue(data)
	}

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.evHandler("gossip: serve: read: peer[%s]: ERROR: %s", c.host, err)
			}
			c.close()
			return
		}

		if err := s.handle(data); err != nil {
			s.evHandler("gossip: serve: peer[%s]: PROTOCOL ERROR: %s", c.host, err)
			c.closeWithReason(websocket.CloseProtocolError, err.Error())
			return
		}
	}
}

// handle applies a message received from a peer to the local state.
func (s *Sync) handle(data []byte) error {
	msg, err := Decode(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeChain:
		s.state.ProcessPeerChain(msg.Chain)

	case TypeTransaction:
		s.state.UpsertPeerTransaction(*msg.Transaction)

	case TypeClearTxs:
		s.state.ProcessPeerClear(msg.Height, msg.Hash)
	}

	return nil
}

// broadcast encodes the message once and queues it on every connection.
func (s *Sync) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.evHandler("gossip: broadcast: %s: ERROR: %s", msg.Type, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conns {
		if !c.enqueue(data) {
			s.evHandler("gossip: broadcast: %s: peer[%s]: queue full, message dropped", msg.Type, c.host)
		}
	}
}

// add registers the connection unless the node is shutting down.
func (s *Sync) add(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.shut:
		return false
	default:
	}

	s.conns[c.id] = c
	return true
}

func (s *Sync) remove(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, c.id)
}
