package cart

import "errors"

var (
	// -- Validation & Input --
	ErrUserRequired    = errors.New("user id is required")
	ErrProductRequired = errors.New("product id is required")
	ErrLineRequired    = errors.New("cart line id is required")

	// -- Resource State --
	ErrStockExceeded    = errors.New("quantity exceeds available stock")
	ErrCartItemNotFound = errors.New("cart item not found")

	// -- Data platform failures --
	ErrFailedGetCartItem    = errors.New("failed to get cart item")
	ErrFailedGetCartRows    = errors.New("failed to get cart rows")
	ErrFailedCreateCartItem = errors.New("failed to create cart item")
	ErrFailedUpdateCart     = errors.New("failed to update cart item")
	ErrFailedRemoveCart     = errors.New("failed to remove cart item")
	ErrFailedClearCart      = errors.New("failed to clear cart")
)
