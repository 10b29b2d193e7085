// Package wallet provides support for signing transactions and computing the
// balance of an address from the blocks in a chain.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Wallet holds the key for a node's account and a cached view of its balance.
type Wallet struct {
	privateKey     *ecdsa.PrivateKey
	address        string
	initialBalance uint64

	mu      sync.RWMutex
	balance uint64
}

// New constructs a wallet for the private key. Until the balance is
// calculated against a chain it holds the initial balance.
func New(privateKey *ecdsa.PrivateKey, initialBalance uint64) *Wallet {
	return &Wallet{
		privateKey:     privateKey,
		address:        signature.Address(privateKey.PublicKey),
		initialBalance: initialBalance,
		balance:        initialBalance,
	}
}

// Address returns the compressed public key of the wallet.
func (w *Wallet) Address() string {
	return w.address
}

// Balance returns the cached balance.
func (w *Wallet) Balance() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.balance
}

// Sign signs the digest with the wallet's private key.
func (w *Wallet) Sign(digest string) (string, error) {
	return signature.Sign(w.privateKey, digest)
}

// CalculateBalance computes the balance from the blocks and refreshes the
// cached balance.
func (w *Wallet) CalculateBalance(blocks []database.Block) uint64 {
	balance := CalculateBalance(blocks, w.address, w.initialBalance)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.balance = balance
	return balance
}

// CreateOrUpdateTransaction sends the amount to the recipient. When the wallet
// already has a transaction waiting in the pool the send is folded into it,
// otherwise a new transaction is created. The resulting transaction is stored
// in the pool and returned.
func (w *Wallet) CreateOrUpdateTransaction(recipient string, amount uint64, blocks []database.Block, mp *mempool.Mempool) (database.Transaction, error) {
	balance := w.CalculateBalance(blocks)
	if amount > balance {
		return database.Transaction{}, fmt.Errorf("%w: amount %d, balance %d", database.ErrBalanceExceeded, amount, balance)
	}

	var tx database.Transaction
	var err error

	switch pending, exists := mp.FindTransaction(w.address); {
	case exists:
		tx, err = pending.Update(w, recipient, amount)
	default:
		tx, err = database.NewTransaction(w, recipient, amount)
	}
	if err != nil {
		return database.Transaction{}, err
	}

	mp.UpdateOrAddTransaction(tx)

	return tx, nil
}

// RebaseTransaction moves the sends that were folded into pending after its
// mined version was built into a new transaction, funded from the balance
// the chain now holds.
func (w *Wallet) RebaseTransaction(pending database.Transaction, mined database.Transaction, blocks []database.Block) (database.Transaction, error) {
	if pending.ID != mined.ID || len(pending.Outputs) <= len(mined.Outputs) {
		return database.Transaction{}, fmt.Errorf("transaction %s adds no sends to the mined version", pending.ID)
	}

	w.CalculateBalance(blocks)

	var tx database.Transaction
	for i, out := range pending.Outputs[len(mined.Outputs):] {
		var err error
		switch i {
		case 0:
			tx, err = database.NewTransaction(w, out.Address, out.Amount)
		default:
			tx, err = tx.Update(w, out.Address, out.Amount)
		}
		if err != nil {
			return database.Transaction{}, err
		}
	}

	return tx, nil
}

// =============================================================================

// CalculateBalance computes the balance of the address. The baseline is the
// address's own output in the last transaction it sent, or the initial
// balance when it never sent one. Every output crediting the address in a
// transaction signed after that point is added on top.
func CalculateBalance(blocks []database.Block, address string, initialBalance uint64) uint64 {
	balance := initialBalance

	var since int64
	var spent bool
	for _, block := range blocks {
		for _, tx := range block.Transactions {
			if tx.Input.Address != address {
				continue
			}

			if spent && tx.Input.TimeStamp <= since {
				continue
			}

			spent = true
			since = tx.Input.TimeStamp
			balance, _ = tx.OutputFor(address)
		}
	}

	for _, block := range blocks {
		for _, tx := range block.Transactions {
			if spent && tx.Input.TimeStamp <= since {
				continue
			}

			if tx.Input.Address == address {
				continue
			}

			for _, out := range tx.Outputs {
				if out.Address == address {
					balance += out.Amount
				}
			}
		}
	}

	return balance
}

// =============================================================================

// Issuer is the reserved identity that signs mining rewards. Its address is a
// well known string rather than a public key and it is never subject to
// balance checks.
type Issuer struct {
	address    string
	privateKey *ecdsa.PrivateKey
}

// NewIssuer constructs the issuer for the reserved address with its own
// signing key.
func NewIssuer(address string) (Issuer, error) {
	privateKey, err := signature.GenerateKey()
	if err != nil {
		return Issuer{}, fmt.Errorf("generating issuer key: %w", err)
	}

	return Issuer{
		address:    address,
		privateKey: privateKey,
	}, nil
}

// Address returns the reserved issuer address.
func (is Issuer) Address() string {
	return is.address
}

// Balance reports an unlimited balance.
func (is Issuer) Balance() uint64 {
	return math.MaxUint64
}

// Sign signs the digest with the issuer's key.
func (is Issuer) Sign(digest string) (string, error) {
	return signature.Sign(is.privateKey, digest)
}

// Reward constructs the reward transaction crediting the miner.
func (is Issuer) Reward(minerAddress string, reward uint64) (database.Transaction, error) {
	return database.NewRewardTransaction(minerAddress, is, reward)
}
