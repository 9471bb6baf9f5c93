package paypal

import "errors"

var (
	// ErrInvalidRequest is returned when the request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPaymentFailed is returned when the gateway rejects the operation
	ErrPaymentFailed = errors.New("payment failed")

	// ErrOrderNotFound is returned when the gateway does not know the order
	ErrOrderNotFound = errors.New("gateway order not found")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")

	// ErrUnauthorized is returned when the credentials are invalid
	ErrUnauthorized = errors.New("unauthorized: invalid credentials")

	// ErrAlreadyCaptured is returned when the order was already captured
	ErrAlreadyCaptured = errors.New("order already captured")
)
