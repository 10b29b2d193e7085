package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
)

// Balances writes the balance of every address seen in the chain, or of the
// one address provided.
func Balances(w io.Writer, gen genesis.Genesis, blocks []database.Block, onlyAddress string) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", blocks[len(blocks)-1].Hash)

	addresses := []string{onlyAddress}
	if onlyAddress == "" {
		addresses = Addresses(gen, blocks)
	}

	for _, address := range addresses {
		bal := wallet.CalculateBalance(blocks, address, gen.InitialBalance)
		fmt.Fprintf(w, "Address: %s  Balance: %d\n", address, bal)
	}

	return nil
}

// Addresses returns the sorted set of wallet addresses that appear in the
// chain. The issuer is left out since it has no balance.
func Addresses(gen genesis.Genesis, blocks []database.Block) []string {
	set := make(map[string]struct{})
	for _, block := range blocks[1:] {
		for _, tx := range block.Transactions {
			if tx.Input.Address != gen.IssuerAddress {
				set[tx.Input.Address] = struct{}{}
			}
			for _, out := range tx.Outputs {
				set[out.Address] = struct{}{}
			}
		}
	}

	addresses := make([]string, 0, len(set))
	for address := range set {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	return addresses
}
