package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Variation struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	SoldBy        *string         `json:"sold_by,omitempty"`
	StockQuantity *int            `json:"stock_quantity,omitempty"`
	CategoryID    *string         `json:"category_id,omitempty"`
	Variations    []Variation     `json:"variations,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
}

// HasStockFor reports whether qty units fit in the known stock. A product
// without a stock figure is unbounded.
func (p *Product) HasStockFor(qty int) bool {
	if p.StockQuantity == nil {
		return true
	}
	return qty <= *p.StockQuantity
}

// ValidateSelection checks that every chosen variation exists on the
// product. Products that declare no variations accept any selection.
func (p *Product) ValidateSelection(sel map[string]string) error {
	if len(p.Variations) == 0 {
		return nil
	}

	for name, value := range sel {
		v, ok := p.variation(name)
		if !ok {
			return ErrUnknownVariation
		}
		if !contains(v.Values, value) {
			return ErrUnknownVariationValue
		}
	}
	return nil
}

func (p *Product) variation(name string) (Variation, bool) {
	for _, v := range p.Variations {
		if v.Name == name {
			return v, true
		}
	}
	return Variation{}, false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
