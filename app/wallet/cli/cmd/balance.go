package cmd

import (
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	address  string
	nodeOnly bool
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of an address",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVar(&address, "address", "", "Address or account name, defaults to the wallet's key.")
	balanceCmd.Flags().BoolVar(&nodeOnly, "node", false, "Print the balance of the node's wallet.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	path := "/v1/balance"

	switch {
	case nodeOnly:

	case address != "":
		path += "/" + address

	default:
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			return err
		}
		path += "/" + signature.Address(privateKey.PublicKey)
	}

	var resp struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Balance uint64 `json:"balance"`
	}
	if err := call(http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), resp)
}
