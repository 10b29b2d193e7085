package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// ErrBalanceExceeded is returned when an amount to send is more than the
// sender has available.
var ErrBalanceExceeded = errors.New("amount exceeds balance")

// Signer represents the behavior required of a wallet to produce a
// signed transaction.
type Signer interface {
	Address() string
	Balance() uint64
	Sign(digest string) (string, error)
}

// =============================================================================

// Output represents the resulting balance of one address after the
// transaction is applied.
type Output struct {
	Amount  uint64 `json:"amount"`
	Address string `json:"address"`
}

// Input records who is spending and what they had when they signed. Only the
// signature is protected, the other fields are informational.
type Input struct {
	TimeStamp int64  `json:"timestamp"` // Time the transaction was signed in milliseconds.
	Amount    uint64 `json:"amount"`    // Balance of the sender at signing time.
	Address   string `json:"address"`   // Public key of the sender.
	Signature string `json:"signature"` // Signature over the hash of the outputs.
}

// Transaction is a transfer of value from one sender to one or more
// recipients.
type Transaction struct {
	ID      string   `json:"id"`
	Input   Input    `json:"input"`
	Outputs []Output `json:"outputs"`
}

// NewTransaction constructs a signed transaction sending the amount from the
// sender to the recipient.
func NewTransaction(sender Signer, recipient string, amount uint64) (Transaction, error) {
	balance := sender.Balance()
	if amount > balance {
		return Transaction{}, fmt.Errorf("%w: amount %d, balance %d", ErrBalanceExceeded, amount, balance)
	}

	outputs := []Output{
		{Amount: balance - amount, Address: sender.Address()},
		{Amount: amount, Address: recipient},
	}

	return newSignedTransaction(signature.NewID(), sender, balance, outputs)
}

// NewRewardTransaction constructs the transaction the issuer uses to credit
// a miner. The issuer is not subject to balance checks.
func NewRewardTransaction(minerAddress string, issuer Signer, reward uint64) (Transaction, error) {
	outputs := []Output{
		{Amount: reward, Address: minerAddress},
	}

	return newSignedTransaction(signature.NewID(), issuer, reward, outputs)
}

// Update returns a new version of the transaction with an additional output
// for the recipient, taken from the sender's own output. The returned value
// shares the id but is signed again, the receiver is left untouched.
func (tx Transaction) Update(sender Signer, recipient string, amount uint64) (Transaction, error) {
	idx := tx.outputIndex(sender.Address())
	if idx == -1 {
		return Transaction{}, fmt.Errorf("sender %s has no output in transaction %s", sender.Address(), tx.ID)
	}

	remaining := tx.Outputs[idx].Amount
	if amount > remaining {
		return Transaction{}, fmt.Errorf("%w: amount %d, remaining %d", ErrBalanceExceeded, amount, remaining)
	}

	outputs := make([]Output, len(tx.Outputs), len(tx.Outputs)+1)
	copy(outputs, tx.Outputs)
	outputs[idx].Amount -= amount
	outputs = append(outputs, Output{Amount: amount, Address: recipient})

	// The input amount is carried over so the outputs still add up to it.
	return newSignedTransaction(tx.ID, sender, tx.Input.Amount, outputs)
}

// Verify checks the signature over the outputs against the sender address.
func (tx Transaction) Verify() bool {
	return signature.VerifySignature(tx.Input.Address, tx.Input.Signature, signature.Hash(tx.Outputs))
}

// Valid checks the outputs add up to the input amount.
func (tx Transaction) Valid() error {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Amount
	}

	if total != tx.Input.Amount {
		return fmt.Errorf("outputs total %d, input amount %d", total, tx.Input.Amount)
	}

	return nil
}

// IsReward reports if the transaction was issued by the specified issuer.
func (tx Transaction) IsReward(issuerAddress string) bool {
	return tx.Input.Address == issuerAddress
}

// OutputFor returns the amount credited to the address by this transaction.
func (tx Transaction) OutputFor(address string) (uint64, bool) {
	idx := tx.outputIndex(address)
	if idx == -1 {
		return 0, false
	}
	return tx.Outputs[idx].Amount, true
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%s:%d", tx.ID, short(tx.Input.Address), len(tx.Outputs))
}

// =============================================================================

// newSignedTransaction signs the outputs with the signer and builds the
// transaction input.
func newSignedTransaction(id string, signer Signer, amount uint64, outputs []Output) (Transaction, error) {
	sig, err := signer.Sign(signature.Hash(outputs))
	if err != nil {
		return Transaction{}, fmt.Errorf("signing transaction: %w", err)
	}

	tx := Transaction{
		ID: id,
		Input: Input{
			TimeStamp: time.Now().UnixMilli(),
			Amount:    amount,
			Address:   signer.Address(),
			Signature: sig,
		},
		Outputs: outputs,
	}

	return tx, nil
}

// outputIndex returns the index of the first output for the address.
func (tx Transaction) outputIndex(address string) int {
	for i, out := range tx.Outputs {
		if out.Address == address {
			return i
		}
	}
	return -1
}

// short trims long addresses and hashes for log output.
func short(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
