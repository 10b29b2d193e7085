package state_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	minerECDSA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	recipient  = "0x02random-address"
	other      = "0x02other-address"
	performPOW = "state: MineNewBlock: MINING: perform POW"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MineRate = time.Millisecond
	return gen
}

func newState(t *testing.T) *state.State {
	t.Helper()

	return newStateWithHook(t, nil)
}

// newStateWithHook constructs a state whose event handler also passes every
// event to the hook.
func newStateWithHook(t *testing.T, hook func(v string)) *state.State {
	t.Helper()

	log, err := logger.New("TEST")
	ifErrFailNow(t, err)
	t.Cleanup(func() { log.Sync() })

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "traceid", "00000000-0000-0000-0000-000000000000")
		if hook != nil {
			hook(v)
		}
	}

	gen := testGenesis()

	issuer, err := wallet.NewIssuer(gen.IssuerAddress)
	ifErrFailNow(t, err)

	key, err := signature.GenerateKey()
	ifErrFailNow(t, err)

	st, err := state.New(state.Config{
		Genesis:   gen,
		Wallet:    wallet.New(key, gen.InitialBalance),
		Issuer:    issuer,
		Host:      "localhost:5001",
		EvHandler: ev,
	})
	ifErrFailNow(t, err)

	return st
}

// =============================================================================

func Test_MineNewBlock(t *testing.T) {
	t.Log("Given the need to mine the transactions in the mempool.")
	{
		t.Logf("\tTest 0:\tWhen the pool holds one valid transaction.")
		{
			st := newState(t)

			tx, err := st.SubmitTransaction(recipient, 50)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit a transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to submit a transaction.", success)

			// The reward must be signed after the spend to be counted in
			// the balance.
			time.Sleep(2 * time.Millisecond)

			length := len(st.RetrieveChain())

			block, err := st.Mine(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine a block.", success)

			if got := len(st.RetrieveChain()); got != length+1 {
				t.Fatalf("\t%s\tTest 0:\tShould grow the chain by one block, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould grow the chain by one block.", success)

			if len(block.Transactions) != 2 || block.Transactions[0].ID != tx.ID {
				t.Fatalf("\t%s\tTest 0:\tShould hold the transaction plus the reward.", failed)
			}

			reward := block.Transactions[1]
			amount, ok := reward.OutputFor(st.RetrievePublicKey())
			if !reward.IsReward(genesis.DefaultIssuerAddress) || !ok || amount != genesis.DefaultMiningReward {
				t.Fatalf("\t%s\tTest 0:\tShould credit the miner with the reward.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould hold the transaction plus the reward.", success)

			if n := len(st.RetrieveMempool()); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the pool empty, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the pool empty.", success)

			if balance := st.QueryBalance(); balance != 460 {
				t.Fatalf("\t%s\tTest 0:\tShould have the change plus the reward, got %d.", failed, balance)
			}
			t.Logf("\t%s\tTest 0:\tShould have the change plus the reward.", success)

			if balance := st.QueryBalanceFor(recipient); balance != 550 {
				t.Fatalf("\t%s\tTest 0:\tShould credit the recipient, got %d.", failed, balance)
			}
			t.Logf("\t%s\tTest 0:\tShould credit the recipient.", success)
		}
	}
}

func Test_SubmitExceeds(t *testing.T) {
	t.Log("Given the need to reject a send the wallet cannot cover.")
	{
		t.Logf("\tTest 0:\tWhen sending more than the balance.")
		{
			st := newState(t)

			if _, err := st.SubmitTransaction(recipient, 1000); !errors.Is(err, database.ErrBalanceExceeded) {
				t.Fatalf("\t%s\tTest 0:\tShould fail with balance exceeded: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould fail with balance exceeded.", success)

			if n := len(st.RetrieveMempool()); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the pool unchanged, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the pool unchanged.", success)
		}
	}
}

func Test_SubmitDuringMining(t *testing.T) {
	t.Log("Given the need to keep transactions submitted while the POW runs.")
	{
		t.Logf("\tTest 0:\tWhen a new transaction is submitted during the POW.")
		{
			var st *state.State
			var submitted database.Transaction
			var submitErr error
			var once sync.Once

			st = newStateWithHook(t, func(v string) {
				if strings.HasPrefix(v, performPOW) {
					once.Do(func() { submitted, submitErr = st.SubmitTransaction(recipient, 10) })
				}
			})

			block, err := st.Mine(context.Background())
			if err != nil || submitErr != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine and submit: %v %v", failed, err, submitErr)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine and submit.", success)

			if len(block.Transactions) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould mine only the reward, got %d.", failed, len(block.Transactions))
			}
			t.Logf("\t%s\tTest 0:\tShould mine only the reward.", success)

			pool := st.RetrieveMempool()
			if len(pool) != 1 || pool[0].ID != submitted.ID {
				t.Fatalf("\t%s\tTest 0:\tShould keep the transaction pooled for the next block, got %d.", failed, len(pool))
			}
			t.Logf("\t%s\tTest 0:\tShould keep the transaction pooled for the next block.", success)
		}

		t.Logf("\tTest 1:\tWhen the pooled transaction is updated during the POW.")
		{
			var st *state.State
			var submitErr error
			var once sync.Once

			st = newStateWithHook(t, func(v string) {
				if strings.HasPrefix(v, performPOW) {
					once.Do(func() { _, submitErr = st.SubmitTransaction(other, 10) })
				}
			})

			first, err := st.SubmitTransaction(recipient, 50)
			ifErrFailNow(t, err)

			// The reward must be signed after the spend to be counted in
			// the balance.
			time.Sleep(2 * time.Millisecond)

			block, err := st.Mine(context.Background())
			if err != nil || submitErr != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine and update: %v %v", failed, err, submitErr)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to mine and update.", success)

			if len(block.Transactions) != 2 || block.Transactions[0].ID != first.ID || len(block.Transactions[0].Outputs) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould mine the version built before the POW.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould mine the version built before the POW.", success)

			pool := st.RetrieveMempool()
			if len(pool) != 1 || pool[0].ID == first.ID {
				t.Fatalf("\t%s\tTest 1:\tShould pool a new transaction for the added send, got %d.", failed, len(pool))
			}
			if amount, ok := pool[0].OutputFor(other); !ok || amount != 10 || len(pool[0].Outputs) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould carry only the added send: %v", failed, pool[0].Outputs)
			}
			t.Logf("\t%s\tTest 1:\tShould pool a new transaction for the added send.", success)

			time.Sleep(2 * time.Millisecond)

			if _, err := st.Mine(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine the added send: %v", failed, err)
			}

			if balance := st.QueryBalanceFor(other); balance != 510 {
				t.Fatalf("\t%s\tTest 1:\tShould credit the added send once, got %d.", failed, balance)
			}
			if balance := st.QueryBalanceFor(recipient); balance != 550 {
				t.Fatalf("\t%s\tTest 1:\tShould credit the first send once, got %d.", failed, balance)
			}
			if balance := st.QueryBalance(); balance != 460 {
				t.Fatalf("\t%s\tTest 1:\tShould debit both sends and credit both rewards, got %d.", failed, balance)
			}
			t.Logf("\t%s\tTest 1:\tShould settle both sends once.", success)
		}
	}
}

func Test_ProcessPeerChain(t *testing.T) {
	t.Log("Given the need to adopt a longer chain from a peer.")
	{
		local := newState(t)
		remote := newState(t)

		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if _, err := remote.Mine(ctx); err != nil {
				t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
			}
		}

		t.Logf("\tTest 0:\tWhen the peer chain is longer and valid.")
		{
			if err := local.ProcessPeerChain(remote.RetrieveChain()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould adopt the longer chain: %v", failed, err)
			}

			if local.RetrieveLatestBlock().Hash != remote.RetrieveLatestBlock().Hash {
				t.Fatalf("\t%s\tTest 0:\tShould have the same tip as the remote.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould adopt the longer chain.", success)
		}

		t.Logf("\tTest 1:\tWhen the peer chain is not longer.")
		{
			if err := local.ProcessPeerChain(remote.RetrieveChain()); !errors.Is(err, database.ErrChainNotLonger) {
				t.Fatalf("\t%s\tTest 1:\tShould decline a chain of the same length: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould decline a chain of the same length.", success)
		}

		t.Logf("\tTest 2:\tWhen the peer chain is invalid.")
		{
			tampered := remote.RetrieveChain()
			tampered = append(tampered, tampered[len(tampered)-1])
			if err := local.ProcessPeerChain(tampered); !errors.Is(err, database.ErrInvalidChain) {
				t.Fatalf("\t%s\tTest 2:\tShould decline an invalid chain: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould decline an invalid chain.", success)
		}
	}
}

func Test_ProcessPeerClear(t *testing.T) {
	t.Log("Given the need to clear the mempool after a peer mined a block.")
	{
		miner := newState(t)
		node := newState(t)

		before, err := node.SubmitTransaction(recipient, 10)
		ifErrFailNow(t, err)
		miner.UpsertPeerTransaction(before)

		block, err := miner.Mine(context.Background())
		ifErrFailNow(t, err)

		t.Logf("\tTest 0:\tWhen the clear refers to a block that is not held.")
		{
			if _, err := node.ProcessPeerClear(1, block.Hash); !errors.Is(err, state.ErrUnknownBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould ignore the clear: %v", failed, err)
			}
			if n := len(node.RetrieveMempool()); n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the pool, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould ignore the clear and keep the pool.", success)
		}

		t.Logf("\tTest 1:\tWhen the clear refers to a block that is held.")
		{
			ifErrFailNow(t, node.ProcessPeerChain(miner.RetrieveChain()))

			key, err := signature.GenerateKey()
			ifErrFailNow(t, err)

			after, err := database.NewTransaction(wallet.New(key, 500), recipient, 5)
			ifErrFailNow(t, err)
			node.UpsertPeerTransaction(after)

			n, err := node.ProcessPeerClear(1, block.Hash)
			if err != nil || n != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould remove one transaction, got %d: %v", failed, n, err)
			}

			pool := node.RetrieveMempool()
			if len(pool) != 1 || pool[0].ID != after.ID || pool[0].ID == before.ID {
				t.Fatalf("\t%s\tTest 1:\tShould keep the transaction that was not mined.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould only remove the mined transactions.", success)
		}

		t.Logf("\tTest 2:\tWhen the clear carries no block.")
		{
			if _, err := node.ProcessPeerClear(0, ""); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould clear unconditionally: %v", failed, err)
			}
			if n := len(node.RetrieveMempool()); n != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould empty the pool, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 2:\tShould empty the pool.", success)
		}
	}
}

func Test_UpsertPeerTransaction(t *testing.T) {
	t.Log("Given the need to accept transactions from peers.")
	{
		key, err := signature.GenerateKey()
		ifErrFailNow(t, err)
		sender := wallet.New(key, 500)

		v1, err := database.NewTransaction(sender, recipient, 10)
		ifErrFailNow(t, err)

		// The update must be signed after the first version.
		time.Sleep(2 * time.Millisecond)

		v2, err := v1.Update(sender, other, 5)
		ifErrFailNow(t, err)

		t.Logf("\tTest 0:\tWhen an older version arrives after a newer one.")
		{
			node := newState(t)
			node.UpsertPeerTransaction(v2)
			node.UpsertPeerTransaction(v1)

			pool := node.RetrieveMempool()
			if len(pool) != 1 || len(pool[0].Outputs) != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the newer version.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the newer version.", success)
		}

		t.Logf("\tTest 1:\tWhen a peer mined the version built before an update.")
		{
			miner := newState(t)
			node := newState(t)

			miner.UpsertPeerTransaction(v1)
			block, err := miner.Mine(context.Background())
			ifErrFailNow(t, err)

			node.UpsertPeerTransaction(v2)
			ifErrFailNow(t, node.ProcessPeerChain(miner.RetrieveChain()))

			n, err := node.ProcessPeerClear(1, block.Hash)
			if err != nil || n != 1 || len(node.RetrieveMempool()) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould drop the updated version for its sender to resubmit, got %d: %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 1:\tShould drop the updated version for its sender to resubmit.", success)

			node.UpsertPeerTransaction(v2)
			if n := len(node.RetrieveMempool()); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould ignore a version of a mined transaction, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould ignore a version of a mined transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen a peer mined this node's transaction before an update.")
		{
			miner := newState(t)
			node := newState(t)

			first, err := node.SubmitTransaction(recipient, 50)
			ifErrFailNow(t, err)
			miner.UpsertPeerTransaction(first)

			block, err := miner.Mine(context.Background())
			ifErrFailNow(t, err)

			_, err = node.SubmitTransaction(other, 20)
			ifErrFailNow(t, err)

			ifErrFailNow(t, node.ProcessPeerChain(miner.RetrieveChain()))
			if _, err := node.ProcessPeerClear(1, block.Hash); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould apply the clear: %v", failed, err)
			}

			pool := node.RetrieveMempool()
			if len(pool) != 1 || pool[0].ID == first.ID {
				t.Fatalf("\t%s\tTest 2:\tShould pool a new transaction for the added send.", failed)
			}
			if amount, ok := pool[0].OutputFor(other); !ok || amount != 20 {
				t.Fatalf("\t%s\tTest 2:\tShould carry the added send: %v", failed, pool[0].Outputs)
			}
			if change, _ := pool[0].OutputFor(node.RetrievePublicKey()); change != 430 {
				t.Fatalf("\t%s\tTest 2:\tShould be funded from the balance after the block, got %d.", failed, change)
			}
			t.Logf("\t%s\tTest 2:\tShould pool a new transaction for the added send.", success)
		}
	}
}

func Test_MinerKey(t *testing.T) {
	key, err := crypto.HexToECDSA(minerECDSA)
	ifErrFailNow(t, err)

	w := wallet.New(key, genesis.DefaultInitialBalance)
	if w.Address() != signature.Address(key.PublicKey) {
		t.Fatalf("Should derive the wallet address from the key.")
	}
}
