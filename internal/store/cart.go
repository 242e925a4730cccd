package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
)

// AddCartItem adds a product to the user's cart, accumulating quantity if the
// line already exists. Only active products can be added; stale lines created
// before a product sold are rejected again at checkout.
func AddCartItem(ctx context.Context, db *sql.DB, userID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	var title, status string
	err := db.QueryRowContext(ctx,
		`SELECT title, status FROM products WHERE id = $1`,
		productID).Scan(&title, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("check product: %w", err)
	}
	if status != models.ProductStatusActive {
		return nil, &database.ProductUnavailableError{ProductID: productID, Title: title}
	}

	item := &models.CartItem{UserID: userID, ProductID: productID}
	err = db.QueryRowContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		 RETURNING id, quantity, created_at, updated_at`,
		userID, productID, quantity).Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return item, nil
}

// ListCartItems returns the user's cart with a product summary per line so
// the client can render price, availability and a thumbnail.
func ListCartItems(ctx context.Context, db *sql.DB, userID int64) ([]models.CartItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		        p.title, p.price, p.status, COALESCE((`+representativeImage+`), '')
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.user_id = $1
		 ORDER BY ci.created_at DESC, ci.id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.ProductTitle,
			&item.ProductPrice,
			&item.ProductStatus,
			&item.ProductImage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func RemoveCartItem(ctx context.Context, db *sql.DB, userID, productID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCartItemNotFound
	}

	return nil
}

func ClearCart(ctx context.Context, db *sql.DB, userID int64) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
