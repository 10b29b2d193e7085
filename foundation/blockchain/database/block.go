package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// Values that make up the well known genesis block.
const (
	genesisLastHash = "-----"
	genesisHash     = "f1r5t-ha4h"
	genesisTxID     = "genesis"
)

// EventHandler defines a function that is called when events occur in
// the processing of blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Block represents a group of transactions sealed by proof of work.
type Block struct {
	TimeStamp    int64         `json:"timestamp"`    // Time the block was mined in milliseconds.
	LastHash     string        `json:"lastHash"`     // Hash of the previous block in the chain.
	Hash         string        `json:"hash"`         // Hash of this block's fields.
	Transactions []Transaction `json:"transactions"` // Transactions sealed in this block.
	Nonce        uint64        `json:"nonce"`        // Value identified to solve the hash solution.
	Difficulty   uint          `json:"difficulty"`   // Number of 0's needed to solve the hash solution.
}

// Genesis returns the first block of every chain. Only the difficulty comes
// from configuration, everything else is constant.
func Genesis(difficulty uint) Block {
	return Block{
		TimeStamp: 0,
		LastHash:  genesisLastHash,
		Hash:      genesisHash,
		Transactions: []Transaction{
			{
				ID:      genesisTxID,
				Input:   Input{Address: genesisLastHash},
				Outputs: []Output{},
			},
		},
		Nonce:      0,
		Difficulty: difficulty,
	}
}

// MineBlock constructs a new block on top of the last block and performs the
// work to find a nonce that solves the proof of work puzzle. The work stops
// when the context is cancelled.
func MineBlock(ctx context.Context, lastBlock Block, trans []Transaction, mineRate time.Duration, ev EventHandler) (Block, error) {
	ev("database: MineBlock: MINING: started: lastBlk[%s]: numTrans[%d]", short(lastBlock.Hash), len(trans))
	defer ev("database: MineBlock: MINING: completed")

	// The transactions don't change between attempts so they are encoded once.
	transData, err := json.Marshal(trans)
	if err != nil {
		return Block{}, fmt.Errorf("encoding transactions: %w", err)
	}

	var nonce uint64
	for {
		if ctx.Err() != nil {
			ev("database: MineBlock: MINING: CANCELLED: attempts[%d]", nonce)
			return Block{}, ctx.Err()
		}

		nonce++
		if nonce%1_000_000 == 0 {
			ev("database: MineBlock: MINING: attempts[%d]", nonce)
		}

		timeStamp := time.Now().UnixMilli()
		difficulty := AdjustDifficulty(lastBlock, timeStamp, mineRate)

		hash := hashBlock(timeStamp, lastBlock.Hash, transData, nonce, difficulty)
		if !isHashSolved(difficulty, hash) {
			continue
		}

		nb := Block{
			TimeStamp:    timeStamp,
			LastHash:     lastBlock.Hash,
			Hash:         hash,
			Transactions: trans,
			Nonce:        nonce,
			Difficulty:   difficulty,
		}

		ev("database: MineBlock: MINING: SOLVED: lastBlk[%s]: newBlk[%s]: attempts[%d]", short(lastBlock.Hash), short(hash), nonce)

		return nb, nil
	}
}

// AdjustDifficulty raises the difficulty by one when the block came in faster
// than the mine rate and lowers it by one otherwise. It never drops below 1.
func AdjustDifficulty(lastBlock Block, timeStamp int64, mineRate time.Duration) uint {
	difficulty := int64(lastBlock.Difficulty)

	switch {
	case lastBlock.TimeStamp+mineRate.Milliseconds() > timeStamp:
		difficulty++
	default:
		difficulty--
	}

	if difficulty < 1 {
		return 1
	}

	return uint(difficulty)
}

// GenerateHash recomputes the hash of the block from its fields so an
// existing block can be validated without mining it again.
func GenerateHash(b Block) string {
	transData, err := json.Marshal(b.Transactions)
	if err != nil {
		return signature.ZeroHash
	}

	return hashBlock(b.TimeStamp, b.LastHash, transData, b.Nonce, b.Difficulty)
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("Block: timestamp[%d] lastHash[%s] hash[%s] nonce[%d] difficulty[%d] trans[%d]",
		b.TimeStamp, short(b.LastHash), short(b.Hash), b.Nonce, b.Difficulty, len(b.Transactions))
}

// =============================================================================

// blockData is the set of block fields that are hashed.
type blockData struct {
	TimeStamp    int64           `json:"timestamp"`
	LastHash     string          `json:"lastHash"`
	Transactions json.RawMessage `json:"transactions"`
	Nonce        uint64          `json:"nonce"`
	Difficulty   uint            `json:"difficulty"`
}

// hashBlock produces the hash for the specified block fields.
func hashBlock(timeStamp int64, lastHash string, transData []byte, nonce uint64, difficulty uint) string {
	return signature.Hash(blockData{
		TimeStamp:    timeStamp,
		LastHash:     lastHash,
		Transactions: transData,
		Nonce:        nonce,
		Difficulty:   difficulty,
	})
}

// isHashSolved checks the hash to make sure it complies with the POW
// rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if uint(len(hash)) < difficulty {
		return false
	}

	for i := uint(0); i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// sameBlock reports if the two blocks encode to the same bytes.
func sameBlock(a, b Block) bool {
	aData, err := json.Marshal(a)
	if err != nil {
		return false
	}

	bData, err := json.Marshal(b)
	if err != nil {
		return false
	}

	return bytes.Equal(aData, bData)
}
