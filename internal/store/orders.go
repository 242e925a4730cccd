package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
)

// representativeImage picks one image per product for order views, preferring
// the primary one.
const representativeImage = `
	SELECT pi.image_url FROM product_images pi
	WHERE pi.product_id = p.id
	ORDER BY pi.is_primary DESC, pi.id
	LIMIT 1`

// GetUserOrders returns the user's orders newest-first, each with its items
// and a product summary (title plus one representative image) per item.
func GetUserOrders(ctx context.Context, db *sql.DB, userID int64) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, total_amount, status, payment_status, shipping_address, created_at, updated_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := attachOrderItems(ctx, db, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetAllOrdersAdmin returns every order with purchaser identity for the admin
// dashboard.
func GetAllOrdersAdmin(ctx context.Context, db *sql.DB) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT o.id, o.user_id, o.total_amount, o.status, o.payment_status, o.shipping_address,
		        o.created_at, o.updated_at,
		        u.name, u.mobile, u.email
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC, o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		var name, mobile, email sql.NullString
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.TotalAmount,
			&order.Status,
			&order.PaymentStatus,
			&order.ShippingAddress,
			&order.CreatedAt,
			&order.UpdatedAt,
			&name,
			&mobile,
			&email,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Purchaser = &models.UserSummary{
			ID:     order.UserID,
			Name:   name.String,
			Mobile: mobile.String,
			Email:  email.String,
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachOrderItems(ctx, db, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, total_amount, status, payment_status, shipping_address, created_at, updated_at
		 FROM orders
		 WHERE id = $1`,
		id).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentStatus,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := orderItems(ctx, db, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// UpdateOrderStatus performs a single-row status transition. Any known status
// may follow any other; only unknown values are rejected.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, orderID int64, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, database.ErrInvalidOrderStatus
	}

	order := &models.Order{}
	err := db.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING id, user_id, total_amount, status, payment_status, shipping_address, created_at, updated_at`,
		status, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentStatus,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.TotalAmount,
			&order.Status,
			&order.PaymentStatus,
			&order.ShippingAddress,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func orderItems(ctx context.Context, db *sql.DB, orderID int64) ([]models.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_purchase, oi.created_at,
		        p.title, COALESCE((`+representativeImage+`), '')
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.PriceAtPurchase,
			&item.CreatedAt,
			&item.ProductTitle,
			&item.ProductImage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func attachOrderItems(ctx context.Context, db *sql.DB, orders []models.Order) error {
	for i := range orders {
		items, err := orderItems(ctx, db, orders[i].ID)
		if err != nil {
			return err
		}
		orders[i].Items = items
	}
	return nil
}
