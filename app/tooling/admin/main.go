// This program performs administrative tasks against a chain dump taken
// from a node with the wallet's chain command.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 3 {
		return errors.New("usage: admin <verify|bals|trans> <chain.json> [address]")
	}

	log.Infow("startup", "version", build, "command", os.Args[1], "chain", os.Args[2])

	blocks, err := commands.LoadChain(os.Args[2])
	if err != nil {
		return err
	}

	gen := genesis.Default()
	if path := os.Getenv("ADMIN_GENESIS_FILE"); path != "" {
		if gen, err = genesis.Load(path); err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}
	}

	return processCommands(os.Args, gen, blocks)
}
