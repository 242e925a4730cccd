package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalUsers     int64           `json:"total_users"`
	ActiveProducts int64           `json:"active_products"`
	SoldProducts   int64           `json:"sold_products"`
	TotalOrders    int64           `json:"total_orders"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// GetDashboardStats aggregates the admin dashboard counters. Revenue excludes
// cancelled orders.
func GetDashboardStats(ctx context.Context, db *sql.DB) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM users WHERE role <> $1),
		    (SELECT COUNT(*) FROM products WHERE status = $2),
		    (SELECT COUNT(*) FROM products WHERE status = $3),
		    (SELECT COUNT(*) FROM orders),
		    (SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status <> $4)`,
		models.RoleAdmin,
		models.ProductStatusActive,
		models.ProductStatusSold,
		models.OrderStatusCancelled).Scan(
		&stats.TotalUsers,
		&stats.ActiveProducts,
		&stats.SoldProducts,
		&stats.TotalOrders,
		&stats.Revenue,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return stats, nil
}
