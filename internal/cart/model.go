package cart

import (
	"encoding/json"
	"sort"
	"time"

	"comprafacil/internal/product"
)

// CartLine is one row of cart_items. A user has at most one line per
// product and variation signature.
type CartLine struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	ProductID          string            `json:"product_id"`
	Quantity           int               `json:"quantity"`
	SelectedVariations map[string]string `json:"selected_variations"`
	CreatedAt          time.Time         `json:"created_at"`

	Product *product.Product `json:"product,omitempty"`
}

func (l *CartLine) Signature() string {
	return Signature(l.SelectedVariations)
}

// Signature canonicalizes a variation selection: the pairs sorted by key
// and encoded as a JSON array of [key, value]. The encoding is injective,
// so names or values containing separators cannot collide. An empty
// selection yields "".
func Signature(sel map[string]string) string {
	if len(sel) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, len(keys))
	for i, k := range keys {
		pairs[i] = [2]string{k, sel[k]}
	}
	b, _ := json.Marshal(pairs)
	return string(b)
}

type AddToCartParams struct {
	UserID     string
	ProductID  string
	Variations map[string]string
	Quantity   int
}

type SetQuantityParams struct {
	UserID   string
	LineID   string
	Quantity int
}

type NewLineParams struct {
	UserID     string
	ProductID  string
	Variations map[string]string
	Quantity   int
}
