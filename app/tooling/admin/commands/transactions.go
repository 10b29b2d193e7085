package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Transactions writes the transactions in the chain, optionally limited to
// the ones the address sends or receives.
func Transactions(w io.Writer, blocks []database.Block, address string) error {
	for height, block := range blocks {
		if height == 0 {
			continue
		}

		for _, tx := range block.Transactions {
			if address != "" && !involves(tx, address) {
				continue
			}

			fmt.Fprintf(w, "Block: %d  ID: %s  From: %s  Amount: %d\n", height, tx.ID, tx.Input.Address, tx.Input.Amount)
			for _, out := range tx.Outputs {
				fmt.Fprintf(w, "    To: %s  Amount: %d\n", out.Address, out.Amount)
			}
		}
	}

	return nil
}

func involves(tx database.Transaction, address string) bool {
	if tx.Input.Address == address {
		return true
	}

	for _, out := range tx.Outputs {
		if out.Address == address {
			return true
		}
	}

	return false
}
