package cmd

import (
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine the transactions in its mempool",
	RunE:  mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) error {
	var block database.Block
	if err := call(http.MethodPost, "/v1/mine", nil, &block); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), block)
}
