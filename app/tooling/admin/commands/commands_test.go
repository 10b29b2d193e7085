package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/stretchr/testify/require"
)

const recipient = "0x02random-address"

func noEvents(v string, args ...any) {}

func writeChain(t *testing.T) (genesis.Genesis, string, string) {
	t.Helper()

	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MineRate = time.Millisecond

	key, err := signature.GenerateKey()
	require.NoError(t, err)
	w := wallet.New(key, gen.InitialBalance)

	tx, err := database.NewTransaction(w, recipient, 50)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	issuer, err := wallet.NewIssuer(gen.IssuerAddress)
	require.NoError(t, err)
	reward, err := issuer.Reward(w.Address(), gen.MiningReward)
	require.NoError(t, err)

	chain := database.NewChain(gen)
	_, err = chain.AddBlock(context.Background(), []database.Transaction{tx, reward}, noEvents)
	require.NoError(t, err)

	data, err := json.Marshal(chain.Blocks())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chain.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	return gen, path, w.Address()
}

func Test_Verify(t *testing.T) {
	gen, path, _ := writeChain(t)

	blocks, err := commands.LoadChain(path)
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	var out bytes.Buffer
	require.NoError(t, commands.Verify(&out, gen, blocks))
	require.Contains(t, out.String(), "height 1")

	blocks[1].Nonce++
	require.ErrorIs(t, commands.Verify(&out, gen, blocks), database.ErrInvalidChain)
}

func Test_Balances(t *testing.T) {
	gen, path, sender := writeChain(t)

	blocks, err := commands.LoadChain(path)
	require.NoError(t, err)

	require.ElementsMatch(t, []string{sender, recipient}, commands.Addresses(gen, blocks))

	var out bytes.Buffer
	require.NoError(t, commands.Balances(&out, gen, blocks, ""))
	require.Contains(t, out.String(), "Address: "+sender+"  Balance: 460")
	require.Contains(t, out.String(), "Address: "+recipient+"  Balance: 550")
}

func Test_Transactions(t *testing.T) {
	gen, path, _ := writeChain(t)

	blocks, err := commands.LoadChain(path)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, commands.Transactions(&out, blocks, recipient))
	require.Contains(t, out.String(), "To: "+recipient+"  Amount: 50")
	require.NotContains(t, out.String(), "From: "+gen.IssuerAddress)
}
