package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/shopspring/decimal"
)

type CheckoutOptions struct {
	LockTimeout time.Duration
	MaxRetries  int
}

func DefaultCheckoutOptions() CheckoutOptions {
	return CheckoutOptions{
		LockTimeout: 5 * time.Second,
		MaxRetries:  3,
	}
}

type cartLine struct {
	productID int64
	quantity  int
	title     string
	price     decimal.Decimal
	status    string
}

// PlaceOrder converts the user's cart into a committed order. The whole
// sequence runs in one transaction: every cart line's product row is locked
// with FOR UPDATE before validation, so two concurrent checkouts sharing a
// one-of-a-kind product serialize on the row lock. The loser re-reads the
// winner's committed status and fails with ProductUnavailableError having
// written nothing. On any failure no order, no order items, no product status
// change and no cart deletion survive.
func PlaceOrder(ctx context.Context, db *sql.DB, userID int64, shippingAddress string, opts CheckoutOptions) (*models.Order, error) {
	if shippingAddress == "" {
		return nil, database.ErrAddressRequired
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     opts.MaxRetries,
		LockTimeout:    opts.LockTimeout,
	}, func(tx *sql.Tx) error {
		lines, err := lockCartLines(ctx, tx, userID)
		if err != nil {
			return err
		}

		if len(lines) == 0 {
			return database.ErrEmptyCart
		}

		totalAmount := decimal.Zero
		productIDs := make([]int64, 0, len(lines))
		for _, line := range lines {
			if line.status != models.ProductStatusActive {
				return &database.ProductUnavailableError{ProductID: line.productID, Title: line.title}
			}
			totalAmount = totalAmount.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
			productIDs = append(productIDs, line.productID)
		}

		order = &models.Order{
			UserID:          userID,
			Status:          models.OrderStatusPlaced,
			PaymentStatus:   models.PaymentStatusPending,
			ShippingAddress: shippingAddress,
			TotalAmount:     totalAmount,
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, total_amount, status, payment_status, shipping_address, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			 RETURNING id, created_at, updated_at`,
			userID, totalAmount, order.Status, order.PaymentStatus, shippingAddress).Scan(
			&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range lines {
			// price_at_purchase comes from the locked read above, never from a
			// re-fetch, so later repricing cannot leak into this order.
			item := models.OrderItem{
				OrderID:         order.ID,
				ProductID:       line.productID,
				Quantity:        line.quantity,
				PriceAtPurchase: line.price,
				ProductTitle:    line.title,
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase, created_at)
				 VALUES ($1, $2, $3, $4, NOW())
				 RETURNING id, created_at`,
				order.ID, line.productID, line.quantity, line.price).Scan(&item.ID, &item.CreatedAt)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE products
			 SET status = $1, updated_at = NOW()
			 WHERE id = ANY($2) AND status = $3`,
			models.ProductStatusSold, pq.Array(productIDs), models.ProductStatusActive)
		if err != nil {
			return fmt.Errorf("mark products sold: %w", err)
		}

		flipped, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if flipped != int64(len(productIDs)) {
			// The rows are locked, so a mismatch means the validation above is
			// out of sync with the flip condition. Abort rather than half-sell.
			return fmt.Errorf("marked %d of %d products sold: %w",
				flipped, len(productIDs), database.ErrProductSold)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, fmt.Errorf("checkout lock wait exceeded: %w", database.ErrLockTimeout)
		}
		return nil, err
	}

	return order, nil
}

// lockCartLines reads the user's cart joined with each product's current
// price, status and title, taking a FOR UPDATE lock on the product rows. The
// deterministic product_id ordering keeps overlapping carts from deadlocking.
func lockCartLines(ctx context.Context, tx *sql.Tx, userID int64) ([]cartLine, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT ci.product_id, ci.quantity, p.title, p.price, p.status
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.user_id = $1
		 ORDER BY ci.product_id
		 FOR UPDATE OF p`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart lines: %w", err)
	}
	defer rows.Close()

	var lines []cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(&line.productID, &line.quantity, &line.title, &line.price, &line.status); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}
