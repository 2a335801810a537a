package services

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Error kinds. Callers classify failures with errors.Is against these.
// Anything else is a store failure.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrEmptyCart       = errors.New("cart is empty")
)

// Error is a classified failure with a message safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrLoginRequired        = &Error{Kind: ErrUnauthenticated, Message: "Please login first"}
	ErrInvalidCredentials   = &Error{Kind: ErrUnauthenticated, Message: "Invalid credentials"}
	ErrProductNotFound      = &Error{Kind: ErrNotFound, Message: "Product not found"}
	ErrCartItemNotFound     = &Error{Kind: ErrNotFound, Message: "Item not found in cart"}
	ErrWishlistItemNotFound = &Error{Kind: ErrNotFound, Message: "Item not found in wishlist"}
	ErrOrderNotFound        = &Error{Kind: ErrNotFound, Message: "Order not found"}
	ErrUserNotFound         = &Error{Kind: ErrNotFound, Message: "User not found"}
	ErrAlreadyInWishlist    = &Error{Kind: ErrConflict, Message: "Already in wishlist"}
	ErrAlreadyRegistered    = &Error{Kind: ErrConflict, Message: "Email or phone already registered"}
	ErrCartIsEmpty          = &Error{Kind: ErrEmptyCart, Message: "Cart is empty"}
)

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
