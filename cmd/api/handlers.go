package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/prelovedtoys/marketplace-api/internal/store"
	"github.com/shopspring/decimal"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondStoreError maps store errors onto the HTTP taxonomy: user errors 400,
// availability conflicts 409, missing rows 404, ownership 403, the rest 500.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, database.ErrAddressRequired),
		errors.Is(err, database.ErrInvalidOrderStatus),
		errors.Is(err, database.ErrInvalidProductStatus),
		errors.Is(err, database.ErrInvalidCondition),
		errors.Is(err, database.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, err.Error())
	case database.IsProductUnavailable(err), errors.Is(err, database.ErrProductSold):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrCartItemNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrNotProductOwner):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// --- orders ---

func (s *apiServer) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "Address is required")
		return
	}

	userID := identityFromContext(r.Context()).UserID
	order, err := store.PlaceOrder(r.Context(), s.db, userID, req.Address, s.checkout)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrEmptyCart):
			s.metrics.Checkouts.WithLabelValues("empty_cart").Inc()
		case database.IsProductUnavailable(err):
			s.metrics.Checkouts.WithLabelValues("unavailable").Inc()
		default:
			s.metrics.Checkouts.WithLabelValues("error").Inc()
		}
		respondStoreError(w, err)
		return
	}

	s.metrics.Checkouts.WithLabelValues("placed").Inc()
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order placed successfully!",
		"orderId": order.ID,
	})
}

func (s *apiServer) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID
	orders, err := store.GetUserOrders(r.Context(), s.db, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *apiServer) handleAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := store.GetAllOrdersAdmin(r.Context(), s.db)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *apiServer) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := store.UpdateOrderStatus(r.Context(), s.db, id, req.Status)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// --- cart ---

func (s *apiServer) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	userID := identityFromContext(r.Context()).UserID
	item, err := store.AddCartItem(r.Context(), s.db, userID, req.ProductID, req.Quantity)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (s *apiServer) handleListCart(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID
	items, err := store.ListCartItems(r.Context(), s.db, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *apiServer) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID
	if err := store.ClearCart(r.Context(), s.db, userID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func (s *apiServer) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productId")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	userID := identityFromContext(r.Context()).UserID
	if err := store.RemoveCartItem(r.Context(), s.db, userID, productID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

// --- products ---

func (s *apiServer) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		Price         float64  `json:"price"`
		Condition     string   `json:"condition"`
		CategoryID    int64    `json:"categoryId"`
		SubCategoryID *int64   `json:"subCategoryId"`
		AgeGroupID    int64    `json:"ageGroupId"`
		GenderID      int64    `json:"genderId"`
		ColorID       int64    `json:"colorId"`
		MaterialID    *int64   `json:"materialId"`
		Images        []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	price := decimal.NewFromFloat(req.Price)
	if price.IsNegative() {
		respondError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	product, err := store.CreateProduct(r.Context(), s.db, store.CreateProductRequest{
		SellerID:      identityFromContext(r.Context()).UserID,
		Title:         req.Title,
		Description:   req.Description,
		Price:         price,
		Condition:     req.Condition,
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
		AgeGroupID:    req.AgeGroupID,
		GenderID:      req.GenderID,
		ColorID:       req.ColorID,
		MaterialID:    req.MaterialID,
		ImageURLs:     req.Images,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Product listed successfully",
		"product": product,
	})
}

func (s *apiServer) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := store.ListActiveProducts(r.Context(), s.db, page, pageSize)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := store.GetProduct(r.Context(), s.db, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (s *apiServer) handleSetProductStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := store.SetProductStatus(r.Context(), s.db, id, req.Status); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product status updated"})
}

func (s *apiServer) handleUpdateProductPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	price := decimal.NewFromFloat(req.Price)
	if price.IsNegative() {
		respondError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	sellerID := identityFromContext(r.Context()).UserID
	if err := store.UpdateProductPrice(r.Context(), s.db, id, sellerID, price); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Price updated"})
}

func (s *apiServer) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	sellerID := identityFromContext(r.Context()).UserID
	if err := store.DeleteProduct(r.Context(), s.db, id, sellerID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// --- users ---

func (s *apiServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile string `json:"mobile"`
		Name   string `json:"name"`
		Email  string `json:"email"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mobile == "" {
		respondError(w, http.StatusBadRequest, "Mobile number is required")
		return
	}
	if req.Role == models.RoleAdmin {
		respondError(w, http.StatusForbidden, "Cannot self-register as admin")
		return
	}

	user, err := store.CreateUser(r.Context(), s.db, req.Mobile, req.Name, req.Email, req.Role)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (s *apiServer) handleGetMe(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID
	user, err := store.GetUser(r.Context(), s.db, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (s *apiServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	result, err := store.ListUsers(r.Context(), s.db, page, pageSize)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := store.SetUserActive(r.Context(), s.db, id, req.IsActive); err != nil {
		respondStoreError(w, err)
		return
	}

	message := "User Banned successfully"
	if req.IsActive {
		message = "User Activated successfully"
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// --- wallet ---

func (s *apiServer) handleWallet(w http.ResponseWriter, r *http.Request) {
	userID := identityFromContext(r.Context()).UserID

	balance, err := store.WalletBalance(r.Context(), s.db, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	txns, err := store.ListWalletTransactions(r.Context(), s.db, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":      balance,
		"transactions": txns,
	})
}

type walletChangeRequest struct {
	UserID int64   `json:"userId"`
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

func (s *apiServer) handleWalletCredit(w http.ResponseWriter, r *http.Request) {
	var req walletChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	txn, err := store.CreditWallet(r.Context(), s.db, req.UserID, amount, req.Reason)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

func (s *apiServer) handleWalletDebit(w http.ResponseWriter, r *http.Request) {
	var req walletChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	txn, err := store.DebitWallet(r.Context(), s.db, req.UserID, amount, req.Reason)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, txn)
}

func (s *apiServer) handleWalletTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ToUserID int64   `json:"toUserId"`
		Amount   float64 `json:"amount"`
		Reason   string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount := decimal.NewFromFloat(req.Amount)
	if !amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	fromUserID := identityFromContext(r.Context()).UserID
	if err := store.TransferPoints(r.Context(), s.db, fromUserID, req.ToUserID, amount, req.Reason); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Transfer completed"})
}

// --- master data / stats ---

func (s *apiServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.respondTaxons(w, r, store.ListCategories)
}

func (s *apiServer) handleListAgeGroups(w http.ResponseWriter, r *http.Request) {
	s.respondTaxons(w, r, store.ListAgeGroups)
}

func (s *apiServer) handleListGenders(w http.ResponseWriter, r *http.Request) {
	s.respondTaxons(w, r, store.ListGenders)
}

func (s *apiServer) handleListColors(w http.ResponseWriter, r *http.Request) {
	s.respondTaxons(w, r, store.ListColors)
}

func (s *apiServer) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	s.respondTaxons(w, r, store.ListMaterials)
}

func (s *apiServer) respondTaxons(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, db *sql.DB) ([]models.Taxon, error)) {
	taxons, err := list(r.Context(), s.db)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, taxons)
}

func (s *apiServer) handleListSubCategories(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if v := r.URL.Query().Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid category ID")
			return
		}
		categoryID = id
	}

	subs, err := store.ListSubCategories(r.Context(), s.db, categoryID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetDashboardStats(r.Context(), s.db)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
