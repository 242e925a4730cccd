package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/shopspring/decimal"
)

// The wallet is an append-only ledger; the balance is the signed sum of a
// user's rows. Debits lock the user row so concurrent debits cannot overdraw.

func CreditWallet(ctx context.Context, db *sql.DB, userID int64, amount decimal.Decimal, reason string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	txn := &models.WalletTransaction{UserID: userID, Amount: amount, Kind: models.WalletKindCredit, Reason: reason}
	err := db.QueryRowContext(ctx,
		`INSERT INTO wallet_transactions (user_id, amount, kind, reason, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, created_at`,
		userID, amount, models.WalletKindCredit, reason).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	return txn, nil
}

func DebitWallet(ctx context.Context, db *sql.DB, userID int64, amount decimal.Decimal, reason string) (*models.WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	txn := &models.WalletTransaction{UserID: userID, Amount: amount, Kind: models.WalletKindDebit, Reason: reason}
	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return debitTx(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// TransferPoints moves points between two users in one transaction. Rows are
// locked in ascending user id order so crossing transfers cannot deadlock.
func TransferPoints(ctx context.Context, db *sql.DB, fromUserID, toUserID int64, amount decimal.Decimal, reason string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s", amount)
	}
	if fromUserID == toUserID {
		return fmt.Errorf("cannot transfer to the same user")
	}

	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		first, second := fromUserID, toUserID
		if second < first {
			first, second = second, first
		}
		for _, id := range []int64{first, second} {
			if err := lockUser(ctx, tx, id); err != nil {
				return err
			}
		}

		debit := &models.WalletTransaction{UserID: fromUserID, Amount: amount, Kind: models.WalletKindDebit, Reason: reason}
		if err := debitLockedTx(ctx, tx, debit); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO wallet_transactions (user_id, amount, kind, reason, created_at)
			 VALUES ($1, $2, $3, $4, NOW())`,
			toUserID, amount, models.WalletKindCredit, reason)
		if err != nil {
			return fmt.Errorf("credit transfer target: %w", err)
		}

		return nil
	})
}

func WalletBalance(ctx context.Context, db *sql.DB, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE -amount END), 0)
		 FROM wallet_transactions
		 WHERE user_id = $1`,
		userID).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet balance: %w", err)
	}
	return balance, nil
}

func ListWalletTransactions(ctx context.Context, db *sql.DB, userID int64) ([]models.WalletTransaction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, amount, kind, COALESCE(reason, ''), created_at
		 FROM wallet_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.WalletTransaction
	for rows.Next() {
		var txn models.WalletTransaction
		if err := rows.Scan(&txn.ID, &txn.UserID, &txn.Amount, &txn.Kind, &txn.Reason, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return txns, nil
}

func debitTx(ctx context.Context, tx *sql.Tx, txn *models.WalletTransaction) error {
	if err := lockUser(ctx, tx, txn.UserID); err != nil {
		return err
	}
	return debitLockedTx(ctx, tx, txn)
}

// debitLockedTx assumes the caller already holds the user row lock.
func debitLockedTx(ctx context.Context, tx *sql.Tx, txn *models.WalletTransaction) error {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE -amount END), 0)
		 FROM wallet_transactions
		 WHERE user_id = $1`,
		txn.UserID).Scan(&balance)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}

	if balance.LessThan(txn.Amount) {
		return database.ErrInsufficientFunds
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO wallet_transactions (user_id, amount, kind, reason, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, created_at`,
		txn.UserID, txn.Amount, models.WalletKindDebit, txn.Reason).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}

	return nil
}

func lockUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return database.ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}
