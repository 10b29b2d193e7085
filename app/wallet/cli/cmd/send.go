package cmd

import (
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value from the node's wallet",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address or account name of the recipient.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	req := struct {
		Recipient string `json:"recipient"`
		Amount    uint64 `json:"amount"`
	}{
		Recipient: to,
		Amount:    amount,
	}

	var resp struct {
		Status      string               `json:"status"`
		Transaction database.Transaction `json:"transaction"`
	}
	if err := call(http.MethodPost, "/v1/tx/submit", req, &resp); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), resp)
}
