// Package peer maintains the peer related information such as the set
// of known peers and their connection status.
package peer

import (
	"sort"
	"sync"
)

// Status represents where a connection to a peer is in its lifecycle.
type Status int

// Set of connection states a peer moves through.
const (
	Disconnected Status = iota
	Connecting
	Connected
)

// String implements the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// MarshalText implements the encoding.TextMarshaler interface so the status
// reads as a word in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================

// Peer represents information about a Node in the network.
type Peer struct {
	Host string
}

// New contructs a new info value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// =============================================================================

// PeerStatus represents information about the status of any given peer.
type PeerStatus struct {
	Host      string `json:"host"`
	Status    Status `json:"status"`
	Direction string `json:"direction"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known
// peers and the state of the connection to each of them.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]PeerStatus
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]PeerStatus),
	}
}

// Add adds a new node to the set in the disconnected state.
func (ps *PeerSet) Add(peer Peer, direction string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = PeerStatus{Host: peer.Host, Status: Disconnected, Direction: direction}
		return true
	}

	return false
}

// SetStatus records the connection state of the peer, adding it to the set
// when it is not known yet.
func (ps *PeerSet) SetStatus(peer Peer, direction string, status Status) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.set[peer] = PeerStatus{Host: peer.Host, Status: status, Direction: direction}
}

// Status returns the connection state of the peer.
func (ps *PeerSet) Status(peer Peer) (Status, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	st, exists := ps.set[peer]
	return st.Status, exists
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Copy returns a list of the known peers, excluding the specified host.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].Host < peers[j].Host })

	return peers
}

// Statuses returns the status of every known peer sorted by host.
func (ps *PeerSet) Statuses() []PeerStatus {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	statuses := make([]PeerStatus, 0, len(ps.set))
	for _, st := range ps.set {
		statuses = append(statuses, st)
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Host < statuses[j].Host })

	return statuses
}

// Connected returns the number of peers currently connected.
func (ps *PeerSet) Connected() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var n int
	for _, st := range ps.set {
		if st.Status == Connected {
			n++
		}
	}

	return n
}
