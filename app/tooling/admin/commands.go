package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, gen genesis.Genesis, blocks []database.Block) error {
	var address string
	if len(args) > 3 {
		address = args[3]
	}

	switch args[1] {
	case "verify":
		if err := commands.Verify(os.Stdout, gen, blocks); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	case "bals":
		if err := commands.Balances(os.Stdout, gen, blocks, address); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(os.Stdout, blocks, address); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}
