package gossip

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrUnknownMessageType is returned when a peer sends a message this node
// does not understand. The connection to that peer is closed.
var ErrUnknownMessageType = errors.New("unknown message type")

// Set of message types exchanged between peers.
const (
	TypeChain       = "CHAIN"
	TypeTransaction = "TRANSACTION"
	TypeClearTxs    = "CLEAR_TRANSACTIONS"
)

// Message is the envelope of every frame sent between peers.
type Message struct {
	Type        string                `json:"type"`
	Chain       []database.Block      `json:"chain,omitempty"`
	Transaction *database.Transaction `json:"transaction,omitempty"`
	Height      uint64                `json:"height,omitempty"`
	Hash        string                `json:"hash,omitempty"`
}

// NewChainMessage constructs the message carrying a full chain.
func NewChainMessage(blocks []database.Block) Message {
	return Message{Type: TypeChain, Chain: blocks}
}

// NewTransactionMessage constructs the message carrying one transaction.
func NewTransactionMessage(tx database.Transaction) Message {
	return Message{Type: TypeTransaction, Transaction: &tx}
}

// NewClearTxsMessage constructs the message asking peers to clear the
// transactions mined in the block at the specified height.
func NewClearTxsMessage(height uint64, block database.Block) Message {
	return Message{Type: TypeClearTxs, Height: height, Hash: block.Hash}
}

// Decode parses a frame and checks it is a message this node understands.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}

	switch msg.Type {
	case TypeChain:
		if len(msg.Chain) == 0 {
			return Message{}, fmt.Errorf("%s message without a chain", msg.Type)
		}

	case TypeTransaction:
		if msg.Transaction == nil {
			return Message{}, fmt.Errorf("%s message without a transaction", msg.Type)
		}

	case TypeClearTxs:

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}

	return msg, nil
}
