package wallet

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestWallet_CreditDebit(t *testing.T) {
	now := time.Now()
	w := NewWallet(1, now)

	require.NoError(t, w.Credit(dec("100"), now))
	require.NoError(t, w.Debit(dec("60"), now))
	assert.True(t, w.Balance.Equal(dec("40")))

	err := w.Debit(dec("40.01"), now)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.True(t, w.Balance.Equal(dec("40")), "failed debit must not change balance")
}

func TestWallet_RejectsNonPositive(t *testing.T) {
	w := NewWallet(1, time.Now())

	assert.True(t, errors.Is(w.Credit(decimal.Zero, time.Now()), ErrInvalidAmount))
	assert.True(t, errors.Is(w.Debit(dec("-5"), time.Now()), ErrInvalidAmount))
}

func TestNewTransaction_Sign(t *testing.T) {
	orderID := uint(3)
	cases := map[TxType]string{
		TxDeposit:  "25",
		TxRefund:   "25",
		TxWithdraw: "-25",
		TxPayment:  "-25",
	}
	for typ, want := range cases {
		tx := NewTransaction(1, typ, dec("25"), "", &orderID, time.Now())
		assert.True(t, tx.Amount.Equal(dec(want)), "%s: got %s", typ, tx.Amount)
		assert.Equal(t, TxSuccess, tx.Status)
		assert.Len(t, tx.RefNo, 36)
	}
}
