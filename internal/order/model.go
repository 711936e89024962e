package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Status        Status          `json:"status"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Location      string          `json:"location,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	WhatsApp      string          `json:"whatsapp,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	Items         []OrderItem     `json:"order_items,omitempty"`
}

type OrderItem struct {
	ID                 string            `json:"id,omitempty"`
	OrderID            string            `json:"order_id"`
	ProductID          string            `json:"product_id"`
	Quantity           int               `json:"quantity"`
	PriceAtTime        decimal.Decimal   `json:"price_at_time"`
	SelectedVariations map[string]string `json:"selected_variations,omitempty"`
}

// StatusHistoryEntry is one row of order_status_history, written by the
// admin side on every status change.
type StatusHistoryEntry struct {
	ID        string    `json:"id,omitempty"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusRow is the part of an orders row the reconcilers care about.
type StatusRow struct {
	ID     string
	UserID string
	Status Status
}

// Record is a raw orders row as delivered by a query or a change feed.
type Record map[string]any
