package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Mobile    string    `json:"mobile"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleSeller = "seller"
)

type Product struct {
	ID            int64           `json:"id"`
	SellerID      int64           `json:"seller_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Condition     string          `json:"condition"`
	Status        string          `json:"status"`
	CategoryID    int64           `json:"category_id"`
	SubCategoryID *int64          `json:"sub_category_id,omitempty"`
	AgeGroupID    int64           `json:"age_group_id"`
	GenderID      int64           `json:"gender_id"`
	ColorID       int64           `json:"color_id"`
	MaterialID    *int64          `json:"material_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Images        []ProductImage  `json:"images,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	Seller        *UserSummary    `json:"seller,omitempty"`
}

type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	ImageURL  string `json:"image_url"`
	IsPrimary bool   `json:"is_primary"`
}

// UserSummary is the identity slice exposed on products and admin order views.
type UserSummary struct {
	ID     int64  `json:"id"`
	Name   string `json:"name,omitempty"`
	Mobile string `json:"mobile,omitempty"`
	Email  string `json:"email,omitempty"`
}

const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
)

// Product lifecycle: sellers create pending/active listings, admins approve or
// reject, and only the checkout transaction moves a product to sold.
const (
	ProductStatusPending  = "pending"
	ProductStatusActive   = "active"
	ProductStatusSold     = "sold"
	ProductStatusRejected = "rejected"
)

func ValidProductStatus(s string) bool {
	switch s {
	case ProductStatusPending, ProductStatusActive, ProductStatusSold, ProductStatusRejected:
		return true
	}
	return false
}

func ValidCondition(s string) bool {
	switch s {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return true
	}
	return false
}

type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Product summary for cart rendering; populated by ListCartItems.
	ProductTitle  string          `json:"product_title,omitempty"`
	ProductPrice  decimal.Decimal `json:"product_price"`
	ProductStatus string          `json:"product_status,omitempty"`
	ProductImage  string          `json:"product_image,omitempty"`
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	ShippingAddress string          `json:"shipping_address"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty"`
	Purchaser       *UserSummary    `json:"purchaser,omitempty"`
}

type OrderItem struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	CreatedAt       time.Time       `json:"created_at"`

	ProductTitle string `json:"product_title,omitempty"`
	ProductImage string `json:"product_image,omitempty"`
}

// Placed is the only initial status. Delivered and cancelled are terminal in
// intent; any known status may still follow any other, matching the original
// admin workflow. Unknown values are rejected.
const (
	OrderStatusPlaced    = "placed"
	OrderStatusPacked    = "packed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPacked, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

type Taxon struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SubCategory struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
}

type WalletTransaction struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      string          `json:"kind"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	WalletKindCredit = "credit"
	WalletKindDebit  = "debit"
)
