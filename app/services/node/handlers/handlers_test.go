package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ardanlabs/ledger/foundation/nameservice"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const recipient = "0x02random-address"

// apiTest holds the mux under test.
type apiTest struct {
	app http.Handler
	st  *state.State
}

func newAPITest(t *testing.T) apiTest {
	t.Helper()

	log, err := logger.New("TEST")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a logger : %s", failed, err)
	}
	t.Cleanup(func() { log.Sync() })

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "traceid", "00000000-0000-0000-0000-000000000000")
	}

	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MineRate = time.Millisecond

	issuer, err := wallet.NewIssuer(gen.IssuerAddress)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the issuer : %s", failed, err)
	}

	key, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key : %s", failed, err)
	}

	st, err := state.New(state.Config{
		Genesis:   gen,
		Wallet:    wallet.New(key, gen.InitialBalance),
		Issuer:    issuer,
		Host:      "localhost:9080",
		EvHandler: ev,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state : %s", failed, err)
	}

	ns, err := nameservice.New(t.TempDir())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the name service : %s", failed, err)
	}

	app := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     events.New("viewer:"),
	})

	return apiTest{app: app, st: st}
}

func (at apiTest) call(method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	at.app.ServeHTTP(w, r)
	return w
}

// =============================================================================

func Test_API(t *testing.T) {
	at := newAPITest(t)

	t.Log("Given the need to drive a node through its public api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen submitting a valid transaction.", testID)
		{
			w := at.call(http.MethodPost, "/v1/tx/submit", `{"recipient":"`+recipient+`","amount":50}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 : %d : %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 200.", success, testID)

			w = at.call(http.MethodGet, "/v1/tx/list", "")
			var trans []database.Transaction
			if err := json.NewDecoder(w.Body).Decode(&trans); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the mempool : %s", failed, testID, err)
			}
			if len(trans) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have one transaction in the mempool : %d", failed, testID, len(trans))
			}
			t.Logf("\t%s\tTest %d:\tShould have one transaction in the mempool.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting more than the balance.", testID)
		{
			w := at.call(http.MethodPost, "/v1/tx/submit", `{"recipient":"`+recipient+`","amount":1000}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 : %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting an invalid request.", testID)
		{
			w := at.call(http.MethodPost, "/v1/tx/submit", `{"recipient":"`+recipient+`","amount":0}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 400 : %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 400.", success, testID)

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the error : %s", failed, testID, err)
			}
			if _, exists := resp.Fields["amount"]; !exists {
				t.Fatalf("\t%s\tTest %d:\tShould report the amount field : %v", failed, testID, resp.Fields)
			}
			t.Logf("\t%s\tTest %d:\tShould report the amount field.", success, testID)
		}

		// The reward must be signed after the spend to be counted.
		time.Sleep(2 * time.Millisecond)

		testID++
		t.Logf("\tTest %d:\tWhen mining a block.", testID)
		{
			w := at.call(http.MethodPost, "/v1/mine", "")
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a status code of 200 : %d : %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould receive a status code of 200.", success, testID)

			w = at.call(http.MethodGet, "/v1/blocks", "")
			var blocks []database.Block
			if err := json.NewDecoder(w.Body).Decode(&blocks); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the chain : %s", failed, testID, err)
			}
			if len(blocks) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have a chain of two blocks : %d", failed, testID, len(blocks))
			}
			t.Logf("\t%s\tTest %d:\tShould have a chain of two blocks.", success, testID)

			if len(blocks[1].Transactions) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould have the transaction and the reward : %d", failed, testID, len(blocks[1].Transactions))
			}
			t.Logf("\t%s\tTest %d:\tShould have the transaction and the reward.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen asking for balances.", testID)
		{
			tt := []struct {
				path    string
				balance uint64
			}{
				{"/v1/balance", 460},
				{"/v1/balance/" + recipient, 550},
			}

			for _, tst := range tt {
				w := at.call(http.MethodGet, tst.path, "")

				var resp struct {
					Balance uint64 `json:"balance"`
				}
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode the balance : %s", failed, testID, err)
				}

				if resp.Balance != tst.balance {
					t.Fatalf("\t%s\tTest %d:\tShould have a balance of %d for %s : %d", failed, testID, tst.balance, tst.path, resp.Balance)
				}
				t.Logf("\t%s\tTest %d:\tShould have a balance of %d for %s.", success, testID, tst.balance, tst.path)
			}
		}

		testID++
		t.Logf("\tTest %d:\tWhen asking for the public key.", testID)
		{
			w := at.call(http.MethodGet, "/v1/public-key", "")

			var resp struct {
				PublicKey string `json:"publicKey"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the key : %s", failed, testID, err)
			}

			if resp.PublicKey != at.st.RetrievePublicKey() {
				t.Fatalf("\t%s\tTest %d:\tShould get the wallet address : %s", failed, testID, resp.PublicKey)
			}
			t.Logf("\t%s\tTest %d:\tShould get the wallet address.", success, testID)
		}
	}
}
