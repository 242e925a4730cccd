package integration

import (
	"context"
	"testing"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/prelovedtoys/marketplace-api/internal/store"
	"github.com/shopspring/decimal"
)

func TestGetUserOrders(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tax := seedTaxonomy(t, db)

	seller := createTestUser(t, db, "Seller")
	buyer := createTestUser(t, db, "Buyer")
	other := createTestUser(t, db, "Other Buyer")

	first := createTestProduct(t, db, tax, seller.ID, "Teddy Bear", decimal.NewFromInt(25))
	second := createTestProduct(t, db, tax, seller.ID, "Toy Car", decimal.NewFromInt(15))
	othersProduct := createTestProduct(t, db, tax, seller.ID, "Doll House", decimal.NewFromInt(90))

	addToCart(t, db, buyer.ID, first.ID, 1)
	if _, err := store.PlaceOrder(ctx, db, buyer.ID, "Addr 1", store.DefaultCheckoutOptions()); err != nil {
		t.Fatalf("Place first order: %v", err)
	}

	addToCart(t, db, buyer.ID, second.ID, 1)
	secondOrder, err := store.PlaceOrder(ctx, db, buyer.ID, "Addr 2", store.DefaultCheckoutOptions())
	if err != nil {
		t.Fatalf("Place second order: %v", err)
	}

	addToCart(t, db, other.ID, othersProduct.ID, 1)
	if _, err := store.PlaceOrder(ctx, db, other.ID, "Addr 3", store.DefaultCheckoutOptions()); err != nil {
		t.Fatalf("Place other user's order: %v", err)
	}

	orders, err := store.GetUserOrders(ctx, db, buyer.ID)
	if err != nil {
		t.Fatalf("Get user orders: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders for buyer, got %d", len(orders))
	}
	if orders[0].ID != secondOrder.ID {
		t.Errorf("Expected newest order first, got order %d", orders[0].ID)
	}
	if len(orders[0].Items) != 1 {
		t.Fatalf("Expected nested items, got %d", len(orders[0].Items))
	}
	if orders[0].Items[0].ProductTitle != "Toy Car" {
		t.Errorf("Expected product summary title, got %q", orders[0].Items[0].ProductTitle)
	}
	if orders[0].Items[0].ProductImage == "" {
		t.Error("Expected a representative product image on the order item")
	}
}

func TestGetAllOrdersAdmin(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tax := seedTaxonomy(t, db)

	seller := createTestUser(t, db, "Seller")
	buyer := createTestUser(t, db, "Admin View Buyer")

	product := createTestProduct(t, db, tax, seller.ID, "Rocking Horse", decimal.NewFromInt(60))
	addToCart(t, db, buyer.ID, product.ID, 1)
	if _, err := store.PlaceOrder(ctx, db, buyer.ID, "Addr", store.DefaultCheckoutOptions()); err != nil {
		t.Fatalf("Place order: %v", err)
	}

	orders, err := store.GetAllOrdersAdmin(ctx, db)
	if err != nil {
		t.Fatalf("Get all orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(orders))
	}

	purchaser := orders[0].Purchaser
	if purchaser == nil {
		t.Fatal("Expected purchaser identity on admin view")
	}
	if purchaser.Name != "Admin View Buyer" {
		t.Errorf("Expected purchaser name, got %q", purchaser.Name)
	}
	if purchaser.Mobile == "" || purchaser.Email == "" {
		t.Errorf("Expected purchaser mobile and email, got %q / %q", purchaser.Mobile, purchaser.Email)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tax := seedTaxonomy(t, db)

	seller := createTestUser(t, db, "Seller")
	buyer := createTestUser(t, db, "Buyer")

	product := createTestProduct(t, db, tax, seller.ID, "Kite", decimal.NewFromInt(10))
	addToCart(t, db, buyer.ID, product.ID, 1)
	placed, err := store.PlaceOrder(ctx, db, buyer.ID, "Addr", store.DefaultCheckoutOptions())
	if err != nil {
		t.Fatalf("Place order: %v", err)
	}

	updated, err := store.UpdateOrderStatus(ctx, db, placed.ID, models.OrderStatusShipped)
	if err != nil {
		t.Fatalf("Update order status: %v", err)
	}
	if updated.Status != models.OrderStatusShipped {
		t.Errorf("Expected shipped, got %s", updated.Status)
	}

	// Any known status may follow any other.
	updated, err = store.UpdateOrderStatus(ctx, db, placed.ID, models.OrderStatusPlaced)
	if err != nil {
		t.Fatalf("Update order status back: %v", err)
	}
	if updated.Status != models.OrderStatusPlaced {
		t.Errorf("Expected placed, got %s", updated.Status)
	}
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.UpdateOrderStatus(context.Background(), db, 99999, models.OrderStatusPacked)
	if err != database.ErrOrderNotFound {
		t.Errorf("Expected ErrOrderNotFound, got: %v", err)
	}
}

func TestUpdateOrderStatusRejectsUnknownValue(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := store.UpdateOrderStatus(context.Background(), db, 1, "teleported")
	if err != database.ErrInvalidOrderStatus {
		t.Errorf("Expected ErrInvalidOrderStatus, got: %v", err)
	}
}
