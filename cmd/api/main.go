package main

import (
	"log"
	"net/http"

	"github.com/prelovedtoys/marketplace-api/internal/auth"
	"github.com/prelovedtoys/marketplace-api/internal/config"
	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/metrics"
	"github.com/prelovedtoys/marketplace-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	srv := &apiServer{
		db:      db,
		signer:  auth.NewSigner(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		metrics: metrics.NewServerMetrics(),
		checkout: store.CheckoutOptions{
			LockTimeout: cfg.Checkout.LockTimeout,
			MaxRetries:  cfg.Checkout.MaxRetries,
		},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", srv.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/users", srv.handleCreateUser)
	mux.Handle("GET /api/users", srv.requireAdmin(srv.handleListUsers))
	mux.Handle("GET /api/users/me", srv.requireAuth(srv.handleGetMe))
	mux.Handle("PUT /api/users/{id}/status", srv.requireAdmin(srv.handleSetUserActive))

	mux.HandleFunc("GET /api/master/categories", srv.handleListCategories)
	mux.HandleFunc("GET /api/master/subcategories", srv.handleListSubCategories)
	mux.HandleFunc("GET /api/master/age-groups", srv.handleListAgeGroups)
	mux.HandleFunc("GET /api/master/genders", srv.handleListGenders)
	mux.HandleFunc("GET /api/master/colors", srv.handleListColors)
	mux.HandleFunc("GET /api/master/materials", srv.handleListMaterials)

	mux.Handle("POST /api/products", srv.requireAuth(srv.handleCreateProduct))
	mux.HandleFunc("GET /api/products", srv.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", srv.handleGetProduct)
	mux.Handle("PUT /api/products/admin/{id}/status", srv.requireAdmin(srv.handleSetProductStatus))
	mux.Handle("PUT /api/products/{id}/price", srv.requireAuth(srv.handleUpdateProductPrice))
	mux.Handle("DELETE /api/products/{id}", srv.requireAuth(srv.handleDeleteProduct))

	mux.Handle("POST /api/cart", srv.requireAuth(srv.handleAddCartItem))
	mux.Handle("GET /api/cart", srv.requireAuth(srv.handleListCart))
	mux.Handle("DELETE /api/cart", srv.requireAuth(srv.handleClearCart))
	mux.Handle("DELETE /api/cart/{productId}", srv.requireAuth(srv.handleRemoveCartItem))

	mux.Handle("POST /api/orders", srv.requireAuth(srv.handlePlaceOrder))
	mux.Handle("GET /api/orders", srv.requireAuth(srv.handleMyOrders))
	mux.Handle("GET /api/orders/admin/all", srv.requireAdmin(srv.handleAllOrders))
	mux.Handle("PUT /api/orders/admin/{id}/status", srv.requireAdmin(srv.handleUpdateOrderStatus))

	mux.Handle("GET /api/wallet", srv.requireAuth(srv.handleWallet))
	mux.Handle("POST /api/wallet/credit", srv.requireAdmin(srv.handleWalletCredit))
	mux.Handle("POST /api/wallet/debit", srv.requireAdmin(srv.handleWalletDebit))
	mux.Handle("POST /api/wallet/transfer", srv.requireAuth(srv.handleWalletTransfer))

	mux.Handle("GET /api/stats", srv.requireAdmin(srv.handleStats))

	handler := withRequestID(withLogging(srv.withMetrics(mux)))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "PreLovedToys API is running!"})
}
