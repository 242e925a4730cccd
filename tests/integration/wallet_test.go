package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/store"
	"github.com/shopspring/decimal"
)

func TestWalletCreditDebitBalance(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "Wallet User")

	if _, err := store.CreditWallet(ctx, db, user.ID, decimal.NewFromInt(100), "listing bonus"); err != nil {
		t.Fatalf("Credit wallet: %v", err)
	}
	if _, err := store.DebitWallet(ctx, db, user.ID, decimal.NewFromInt(30), "redeemed"); err != nil {
		t.Fatalf("Debit wallet: %v", err)
	}

	balance, err := store.WalletBalance(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Wallet balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected balance 70, got %s", balance)
	}

	txns, err := store.ListWalletTransactions(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("List wallet transactions: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("Expected 2 ledger entries, got %d", len(txns))
	}
}

func TestWalletDebitRefusesOverdraw(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "Poor User")

	if _, err := store.CreditWallet(ctx, db, user.ID, decimal.NewFromInt(10), "bonus"); err != nil {
		t.Fatalf("Credit wallet: %v", err)
	}

	_, err := store.DebitWallet(ctx, db, user.ID, decimal.NewFromInt(50), "too much")
	if err != database.ErrInsufficientFunds {
		t.Errorf("Expected ErrInsufficientFunds, got: %v", err)
	}

	balance, err := store.WalletBalance(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Wallet balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected balance unchanged at 10, got %s", balance)
	}
}

func TestWalletConcurrentDebits(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, db, "Contended User")

	if _, err := store.CreditWallet(ctx, db, user.ID, decimal.NewFromInt(50), "bonus"); err != nil {
		t.Fatalf("Credit wallet: %v", err)
	}

	// 10 concurrent debits of 10 against a balance of 50: exactly 5 may win.
	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.DebitWallet(ctx, db, user.ID, decimal.NewFromInt(10), "race")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	refused := 0
	for err := range results {
		switch err {
		case nil:
			succeeded++
		case database.ErrInsufficientFunds:
			refused++
		default:
			t.Errorf("Unexpected debit error: %v", err)
		}
	}

	if succeeded != 5 || refused != 5 {
		t.Errorf("Expected 5 successes and 5 refusals, got %d/%d", succeeded, refused)
	}

	balance, err := store.WalletBalance(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Wallet balance: %v", err)
	}
	if !balance.Equal(decimal.Zero) {
		t.Errorf("Expected balance 0, got %s", balance)
	}
}

func TestTransferPoints(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	from := createTestUser(t, db, "Sender")
	to := createTestUser(t, db, "Receiver")

	if _, err := store.CreditWallet(ctx, db, from.ID, decimal.NewFromInt(40), "bonus"); err != nil {
		t.Fatalf("Credit wallet: %v", err)
	}

	if err := store.TransferPoints(ctx, db, from.ID, to.ID, decimal.NewFromInt(15), "gift"); err != nil {
		t.Fatalf("Transfer points: %v", err)
	}

	fromBalance, err := store.WalletBalance(ctx, db, from.ID)
	if err != nil {
		t.Fatalf("Sender balance: %v", err)
	}
	toBalance, err := store.WalletBalance(ctx, db, to.ID)
	if err != nil {
		t.Fatalf("Receiver balance: %v", err)
	}

	if !fromBalance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected sender balance 25, got %s", fromBalance)
	}
	if !toBalance.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected receiver balance 15, got %s", toBalance)
	}
}

func TestTransferPointsInsufficientFunds(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	from := createTestUser(t, db, "Broke Sender")
	to := createTestUser(t, db, "Receiver")

	err := store.TransferPoints(ctx, db, from.ID, to.ID, decimal.NewFromInt(5), "gift")
	if err != database.ErrInsufficientFunds {
		t.Errorf("Expected ErrInsufficientFunds, got: %v", err)
	}

	toBalance, err := store.WalletBalance(ctx, db, to.ID)
	if err != nil {
		t.Fatalf("Receiver balance: %v", err)
	}
	if !toBalance.Equal(decimal.Zero) {
		t.Errorf("Expected no credit on failed transfer, got %s", toBalance)
	}
}
