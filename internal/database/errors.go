package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrAddressRequired      = errors.New("shipping address is required")
	ErrProductSold          = errors.New("product already sold")
	ErrNotProductOwner      = errors.New("product belongs to another seller")
	ErrInvalidOrderStatus   = errors.New("invalid order status")
	ErrInvalidProductStatus = errors.New("invalid product status")
	ErrInvalidCondition     = errors.New("invalid product condition")
	ErrInsufficientFunds    = errors.New("insufficient wallet balance")
	ErrLockTimeout          = errors.New("lock timeout")
)

// ProductUnavailableError is returned by checkout when a cart line references
// a product that is no longer purchasable. It names the product so clients can
// flag the offending cart line.
type ProductUnavailableError struct {
	ProductID int64
	Title     string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("%q has just been sold or withdrawn and is no longer available", e.Title)
}

func IsProductUnavailable(err error) bool {
	var pu *ProductUnavailableError
	return errors.As(err, &pu)
}
