package orders

import "errors"

var (
	ErrEmptyOrder        = errors.New("order must have at least one order line")
	ErrProductNotFound   = errors.New("product does not exist")
	ErrInsufficientStock = errors.New("product does not have enough stock")
	ErrPriceMismatch     = errors.New("product price has changed")
	ErrInvalidQuantity   = errors.New("order line quantity must be positive")
	ErrOrderNotFound     = errors.New("order not found")
	ErrClientNotFound    = errors.New("client does not exist")
)

// IsValidation reports whether err is a rejection the caller can fix by changing the input.
func IsValidation(err error) bool {
	switch {
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrPriceMismatch),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrClientNotFound):
		return true
	}
	return false
}

// Reason is the short code used for metrics labels and rejection payloads.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyOrder):
		return "EMPTY_ORDER"
	case errors.Is(err, ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, ErrInsufficientStock):
		return "OUT_OF_STOCK"
	case errors.Is(err, ErrPriceMismatch):
		return "PRICE_MISMATCH"
	case errors.Is(err, ErrInvalidQuantity):
		return "INVALID_QUANTITY"
	case errors.Is(err, ErrOrderNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, ErrClientNotFound):
		return "CLIENT_NOT_FOUND"
	case err == nil:
		return ""
	}
	return "INTERNAL"
}
