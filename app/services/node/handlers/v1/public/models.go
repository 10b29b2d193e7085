package public

import "github.com/ardanlabs/ledger/foundation/blockchain/database"

type submitTx struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    uint64 `json:"amount" validate:"gt=0"`
}

type submitted struct {
	Status      string               `json:"status"`
	Transaction database.Transaction `json:"transaction"`
}

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

type publicKey struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
}
