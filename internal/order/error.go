package order

import "errors"

var (
	// -- Decoding --
	ErrMalformedRow = errors.New("malformed order row")

	// -- Validation & Input --
	ErrEmptyUserID = errors.New("user id is required")
	ErrEmptyOrder  = errors.New("order has no items")

	// -- Resource State --
	ErrOrderNotFound = errors.New("order not found")

	// -- Data platform failures --
	ErrFailedFetchOrders  = errors.New("failed to fetch orders")
	ErrFailedFetchHistory = errors.New("failed to fetch order status history")
	ErrFailedPlaceOrder   = errors.New("failed to place order")
)
