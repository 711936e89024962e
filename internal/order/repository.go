package order

import (
	"context"
	"encoding/json"
	"fmt"

	"comprafacil/internal/logger"
	"comprafacil/internal/supabase"

	"go.uber.org/zap"
)

const (
	tableOrders        = "orders"
	tableOrderItems    = "order_items"
	tableStatusHistory = "order_status_history"
)

type Repository interface {
	// ActiveOrders returns the raw rows of every non-terminal order of the
	// user. Rows are not decoded so callers can skip malformed ones.
	ActiveOrders(ctx context.Context, userID string) ([]Record, error)
	ListOrders(ctx context.Context, userID string) ([]*Order, error)
	StatusHistory(ctx context.Context, orderID string) ([]*StatusHistoryEntry, error)
	PlaceOrder(ctx context.Context, o *Order, items []OrderItem) (*Order, error)
}

type repository struct {
	client *supabase.Client
}

func NewRepository(client *supabase.Client) Repository {
	return &repository{client: client}
}

func terminalValues() []string {
	ts := TerminalStatuses()
	out := make([]string, len(ts))
	for i, s := range ts {
		out[i] = string(s)
	}
	return out
}

func (r *repository) ActiveOrders(ctx context.Context, userID string) ([]Record, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ActiveOrders"),
		zap.String("user_id", userID),
	)

	if userID == "" {
		return nil, ErrEmptyUserID
	}

	resp, err := r.client.From(tableOrders).
		Select("id,status,user_id").
		Eq("user_id", userID).
		NotIn("status", terminalValues()).
		Execute(ctx)
	if err != nil {
		log.Warn("query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchOrders, err)
	}

	raws, err := resp.Rows()
	if err != nil {
		log.Error("decode response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchOrders, err)
	}

	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			// kept as nil so the caller counts it as malformed
			records = append(records, nil)
			continue
		}
		records = append(records, rec)
	}

	log.Debug("query success", zap.Int("count", len(records)))
	return records, nil
}

func (r *repository) ListOrders(ctx context.Context, userID string) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
		zap.String("user_id", userID),
	)

	if userID == "" {
		return nil, ErrEmptyUserID
	}

	resp, err := r.client.From(tableOrders).
		Select("*,order_items(*)").
		Eq("user_id", userID).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchOrders, err)
	}

	var orders []*Order
	if err := resp.JSON(&orders); err != nil {
		log.Error("decode response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchOrders, err)
	}
	for _, o := range orders {
		o.Status = Normalize(string(o.Status))
	}

	log.Info("query success", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) StatusHistory(ctx context.Context, orderID string) ([]*StatusHistoryEntry, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "StatusHistory"),
		zap.String("order_id", orderID),
	)

	resp, err := r.client.From(tableStatusHistory).
		Select("*").
		Eq("order_id", orderID).
		Order("created_at", true).
		Execute(ctx)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchHistory, err)
	}

	var entries []*StatusHistoryEntry
	if err := resp.JSON(&entries); err != nil {
		log.Error("decode response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedFetchHistory, err)
	}
	for _, e := range entries {
		e.Status = Normalize(string(e.Status))
	}

	return entries, nil
}

// PlaceOrder inserts the order and then its items. The platform has no
// multi-table transaction over REST; an items failure leaves the order row
// in pendente for the admin side to cancel.
func (r *repository) PlaceOrder(ctx context.Context, o *Order, items []OrderItem) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "PlaceOrder"),
		zap.String("user_id", o.UserID),
	)

	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	if o.Status == "" {
		o.Status = StatusPending
	}
	payload := map[string]any{
		"user_id":        o.UserID,
		"status":         o.Status,
		"total_price":    o.TotalPrice,
		"location":       o.Location,
		"payment_method": o.PaymentMethod,
		"whatsapp":       o.WhatsApp,
		"customer_name":  o.CustomerName,
	}

	resp, err := r.client.From(tableOrders).ExecuteInsert(ctx, payload)
	if err != nil {
		log.Error("insert order failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedPlaceOrder, err)
	}

	var created []*Order
	if err := resp.JSON(&created); err != nil || len(created) == 0 {
		log.Error("decode inserted order failed", zap.Error(err))
		return nil, fmt.Errorf("%w: empty insert response", ErrFailedPlaceOrder)
	}
	placed := created[0]

	rows := make([]map[string]any, len(items))
	for i, it := range items {
		rows[i] = map[string]any{
			"order_id":            placed.ID,
			"product_id":          it.ProductID,
			"quantity":            it.Quantity,
			"price_at_time":       it.PriceAtTime,
			"selected_variations": it.SelectedVariations,
		}
		items[i].OrderID = placed.ID
	}

	if _, err := r.client.From(tableOrderItems).ExecuteInsert(ctx, rows); err != nil {
		log.Error("insert order items failed", zap.String("order_id", placed.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: items: %w", ErrFailedPlaceOrder, err)
	}

	placed.Items = items
	log.Info("order placed", zap.String("order_id", placed.ID), zap.Int("items", len(items)))
	return placed, nil
}
