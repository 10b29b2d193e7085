package validate_test

import (
	"testing"

	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/stretchr/testify/require"
)

type submit struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    uint64 `json:"amount" validate:"gt=0"`
}

func Test_Check(t *testing.T) {
	err := validate.Check(submit{})
	require.Error(t, err)
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(err).Fields()
	require.Contains(t, fields, "recipient")
	require.Contains(t, fields, "amount")

	require.NoError(t, validate.Check(submit{Recipient: "0x02abc", Amount: 5}))
}
