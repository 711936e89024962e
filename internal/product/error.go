package product

import "errors"

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrUnknownVariation      = errors.New("product has no such variation")
	ErrUnknownVariationValue = errors.New("variation value not offered for product")
	ErrFailedGetProduct      = errors.New("failed to get product")
)
