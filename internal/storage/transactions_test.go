package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karanved/smsledger/internal/common"
	"github.com/karanved/smsledger/internal/model"
	"github.com/karanved/smsledger/internal/testutil"
)

func testTransaction(day int, amount string, merchant string) model.Transaction {
	date := time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC)
	amt := decimal.RequireFromString(amount)
	return model.Transaction{
		ID:           model.TransactionID(date, amt, merchant, "VM-HDFCBK", merchant+" body"),
		Date:         date,
		Amount:       amt,
		MerchantName: merchant,
		Bank:         "HDFC",
		Currency:     "INR",
		Sender:       "VM-HDFCBK",
		Source:       model.SourceSMS,
		Type:         model.TypeExpense,
	}
}

func TestInsertAndGetTransaction(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	txn := testTransaction(15, "250.00", "COFFEE SHOP")
	require.NoError(t, store.InsertTransaction(ctx, txn))

	got, err := store.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)

	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, "COFFEE SHOP", got.MerchantName)
	assert.Equal(t, "HDFC", got.Bank)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, model.SourceSMS, got.Source)
	assert.Equal(t, model.TypeExpense, got.Type)
	assert.True(t, got.Amount.Equal(txn.Amount), "amount should round-trip exactly")
	assert.False(t, got.CreatedAt.IsZero())
}

func TestInsertTransactionDuplicate(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	txn := testTransaction(15, "250.00", "COFFEE SHOP")
	require.NoError(t, store.InsertTransaction(ctx, txn))

	err := store.InsertTransaction(ctx, txn)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestInsertTransactionValidation(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		mutate func(*model.Transaction)
		name   string
	}{
		{name: "missing id", mutate: func(txn *model.Transaction) { txn.ID = "" }},
		{name: "zero date", mutate: func(txn *model.Transaction) { txn.Date = time.Time{} }},
		{name: "unknown type", mutate: func(txn *model.Transaction) { txn.Type = "transfer" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := testTransaction(1, "10.00", "X")
			tt.mutate(&txn)
			assert.Error(t, store.InsertTransaction(ctx, txn))
		})
	}
}

func TestExistsTransaction(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	txn := testTransaction(15, "250.00", "COFFEE SHOP")

	exists, err := store.ExistsTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.InsertTransaction(ctx, txn))

	exists, err = store.ExistsTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetTransactionNotFound(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.GetTransaction(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListTransactionsOrderedByDate(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	// Insert out of date order.
	for _, txn := range []model.Transaction{
		testTransaction(20, "99.00", "NETFLIX"),
		testTransaction(5, "250.00", "COFFEE SHOP"),
		testTransaction(12, "1200.50", "GROCER"),
	} {
		require.NoError(t, store.InsertTransaction(ctx, txn))
	}

	txns, err := store.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, "COFFEE SHOP", txns[0].MerchantName)
	assert.Equal(t, "GROCER", txns[1].MerchantName)
	assert.Equal(t, "NETFLIX", txns[2].MerchantName)
}

func TestListTransactionsByRange(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	for day := 1; day <= 28; day += 9 {
		txn := testTransaction(day, "10.00", "SHOP")
		require.NoError(t, store.InsertTransaction(ctx, txn))
	}

	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	txns, err := store.ListTransactionsByRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, 10, txns[0].Date.Day())
	assert.Equal(t, 19, txns[1].Date.Day())
}

func TestListTransactionsByRangeInvalid(t *testing.T) {
	store := testutil.SetupTestDB(t)

	from := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	_, err := store.ListTransactionsByRange(context.Background(), from, to)
	assert.Error(t, err)
}
