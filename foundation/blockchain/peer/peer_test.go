package peer_test

import (
	"encoding/json"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host2"}, {Host: "host3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer, "outbound")
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("host2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			if ps.Add(tst.peers[0], "outbound") {
				t.Fatalf("Test %s:\tShould not add a known peer twice.", tst.name)
			}

			ps.Remove(tst.peers[0])
			if len(ps.Copy("")) != len(tst.peers)-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Status(t *testing.T) {
	ps := peer.NewPeerSet()
	p := peer.New("host1")

	ps.Add(p, "outbound")
	if st, ok := ps.Status(p); !ok || st != peer.Disconnected {
		t.Fatalf("Should start out disconnected, got %s.", st)
	}

	ps.SetStatus(p, "outbound", peer.Connecting)
	ps.SetStatus(p, "outbound", peer.Connected)
	ps.SetStatus(peer.New("host2"), "inbound", peer.Connected)

	if n := ps.Connected(); n != 2 {
		t.Fatalf("Should count the connected peers, got %d.", n)
	}

	data, err := json.Marshal(ps.Statuses())
	if err != nil {
		t.Fatalf("Should be able to marshal the statuses: %v", err)
	}

	exp := `[{"host":"host1","status":"CONNECTED","direction":"outbound"},{"host":"host2","status":"CONNECTED","direction":"inbound"}]`
	if string(data) != exp {
		t.Logf("got: %s", data)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should encode the statuses sorted by host.")
	}
}
