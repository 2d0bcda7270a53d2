package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierboard/internal/common/clientprotocol"
	"courierboard/internal/courier/data"
)

type walletAPIStub struct {
	transactions []data.WalletTransaction
	entries      []clientprotocol.LedgerEntry
}

func (a *walletAPIStub) WalletTransactions(_ context.Context, _ string, _ int) ([]data.WalletTransaction, error) {
	return a.transactions, nil
}

func (a *walletAPIStub) Ledger(_ context.Context, _ string) ([]clientprotocol.LedgerEntry, error) {
	return a.entries, nil
}

func TestApplyTransaction(t *testing.T) {
	tests := []struct {
		name            string
		tx              data.WalletTransaction
		expectedBalance string
		expectedTitle   string
	}{
		{
			name:            "credit",
			tx:              data.WalletTransaction{ID: "t1", Amount: decimal.RequireFromString("25.50"), Type: data.CreditTransaction},
			expectedBalance: "125.50",
			expectedTitle:   "Wallet credited",
		},
		{
			name:            "debit with positive amount",
			tx:              data.WalletTransaction{ID: "t1", Amount: decimal.RequireFromString("30"), Type: data.DebitTransaction},
			expectedBalance: "70",
			expectedTitle:   "Wallet debited",
		},
		{
			name:            "debit already signed",
			tx:              data.WalletTransaction{ID: "t1", Amount: decimal.RequireFromString("-30"), Type: data.DebitTransaction},
			expectedBalance: "70",
			expectedTitle:   "Wallet debited",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			feed := &feedStub{}
			wallet := NewWallet("d1", decimal.RequireFromString("100"), &walletAPIStub{}, feed)

			assert.True(t, wallet.ApplyTransaction(test.tx))
			assert.True(t, wallet.Balance().Equal(decimal.RequireFromString(test.expectedBalance)),
				"balance = %s", wallet.Balance())
			require.Len(t, feed.items, 1)
			assert.Equal(t, test.expectedTitle, feed.items[0].Title)
		})
	}
}

func TestDuplicateTransactionIgnored(t *testing.T) {
	feed := &feedStub{}
	wallet := NewWallet("d1", decimal.Zero, &walletAPIStub{}, feed)
	tx := data.WalletTransaction{ID: "t1", Amount: decimal.RequireFromString("10"), Type: data.CreditTransaction}

	assert.True(t, wallet.ApplyTransaction(tx))
	assert.False(t, wallet.ApplyTransaction(tx))

	assert.True(t, wallet.Balance().Equal(decimal.RequireFromString("10")))
	assert.Len(t, feed.items, 1)
	assert.Len(t, wallet.Recent(), 1)
}

func TestRecentWindowBounded(t *testing.T) {
	wallet := NewWallet("d1", decimal.Zero, &walletAPIStub{}, &feedStub{})
	for i := 0; i < recentTransactionsWindow+10; i++ {
		wallet.ApplyTransaction(data.WalletTransaction{
			ID:     fmt.Sprintf("t%d", i),
			Amount: decimal.New(1, 0),
			Type:   data.CreditTransaction,
		})
	}

	recent := wallet.Recent()
	require.Len(t, recent, recentTransactionsWindow)
	assert.Equal(t, fmt.Sprintf("t%d", recentTransactionsWindow+9), recent[0].ID)
}

func TestSetBalanceOverridesLocalValue(t *testing.T) {
	wallet := NewWallet("d1", decimal.Zero, &walletAPIStub{}, &feedStub{})
	wallet.ApplyTransaction(data.WalletTransaction{ID: "t1", Amount: decimal.New(5, 0), Type: data.CreditTransaction})

	wallet.SetBalance(decimal.RequireFromString("42"))
	assert.True(t, wallet.Balance().Equal(decimal.RequireFromString("42")))
}
