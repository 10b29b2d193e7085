package cmd

import (
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain held by the node",
	RunE:  chainRun,
}

var mempoolCmd = &cobra.Command{
	Use:   "mempool",
	Short: "Print the transactions waiting to be mined",
	RunE:  mempoolRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(mempoolCmd)
}

func chainRun(cmd *cobra.Command, args []string) error {
	var blocks []database.Block
	if err := call(http.MethodGet, "/v1/blocks", nil, &blocks); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), blocks)
}

func mempoolRun(cmd *cobra.Command, args []string) error {
	var trans []database.Transaction
	if err := call(http.MethodGet, "/v1/tx/list", nil, &trans); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), trans)
}
