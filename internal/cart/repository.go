package cart

import (
	"context"
	"fmt"

	"comprafacil/internal/logger"
	"comprafacil/internal/supabase"

	"go.uber.org/zap"
)

const tableCartItems = "cart_items"

type Repository interface {
	GetCartRows(ctx context.Context, userID string) ([]*CartLine, error)
	// LinesForProduct returns the user's lines of one product, oldest first.
	LinesForProduct(ctx context.Context, userID, productID string) ([]*CartLine, error)
	GetLine(ctx context.Context, userID, lineID string) (*CartLine, error)
	CreateCartItem(ctx context.Context, params NewLineParams) (*CartLine, error)
	UpdateCartItemQuantity(ctx context.Context, lineID string, quantity int) (*CartLine, error)
	RemoveLines(ctx context.Context, userID string, lineIDs ...string) error
	ClearCart(ctx context.Context, userID string) error
}

type repository struct {
	client *supabase.Client
}

func NewRepository(client *supabase.Client) Repository {
	return &repository{client: client}
}

func (r *repository) GetCartRows(ctx context.Context, userID string) ([]*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetCartRows"),
		zap.String("user_id", userID),
	)

	resp, err := r.client.From(tableCartItems).
		Select("*,product:products(*)").
		Eq("user_id", userID).
		Order("created_at", true).
		Execute(ctx)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCartRows, err)
	}

	var lines []*CartLine
	if err := resp.JSON(&lines); err != nil {
		log.Error("decode response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCartRows, err)
	}

	log.Debug("query success", zap.Int("count", len(lines)))
	return lines, nil
}

func (r *repository) LinesForProduct(ctx context.Context, userID, productID string) ([]*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "LinesForProduct"),
		zap.String("user_id", userID),
		zap.String("product_id", productID),
	)

	resp, err := r.client.From(tableCartItems).
		Select("*").
		Eq("user_id", userID).
		Eq("product_id", productID).
		Order("created_at", true).
		Execute(ctx)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCartItem, err)
	}

	var lines []*CartLine
	if err := resp.JSON(&lines); err != nil {
		log.Error("decode response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCartItem, err)
	}
	return lines, nil
}

func (r *repository) GetLine(ctx context.Context, userID, lineID string) (*CartLine, error) {
	resp, err := r.client.From(tableCartItems).
		Select("*").
		Eq("id", lineID).
		Eq("user_id", userID).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCartItem, err)
	}

	var lines []*CartLine
	if err := resp.JSON(&lines); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCartItem, err)
	}
	if len(lines) == 0 {
		return nil, ErrCartItemNotFound
	}
	return lines[0], nil
}

func (r *repository) CreateCartItem(ctx context.Context, params NewLineParams) (*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateCartItem"),
		zap.String("user_id", params.UserID),
		zap.String("product_id", params.ProductID),
	)

	log.Debug("start create cart item")

	payload := map[string]any{
		"user_id":    params.UserID,
		"product_id": params.ProductID,
		"quantity":   params.Quantity,
	}
	if len(params.Variations) > 0 {
		payload["selected_variations"] = params.Variations
	}

	resp, err := r.client.From(tableCartItems).ExecuteInsert(ctx, payload)
	if err != nil {
		log.Error("failed to create cart item", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedCreateCartItem, err)
	}

	line, err := single(resp)
	if err != nil {
		log.Error("failed to decode created cart item", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedCreateCartItem, err)
	}

	log.Info("success create cart item", zap.String("cart_item_id", line.ID))
	return line, nil
}

func (r *repository) UpdateCartItemQuantity(ctx context.Context, lineID string, quantity int) (*CartLine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateCartItemQuantity"),
		zap.String("cart_item_id", lineID),
	)

	resp, err := r.client.From(tableCartItems).
		Eq("id", lineID).
		ExecuteUpdate(ctx, map[string]any{"quantity": quantity})
	if err != nil {
		log.Error("failed to update cart item", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedUpdateCart, err)
	}

	line, err := single(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedUpdateCart, err)
	}
	return line, nil
}

func (r *repository) RemoveLines(ctx context.Context, userID string, lineIDs ...string) error {
	if len(lineIDs) == 0 {
		return nil
	}

	_, err := r.client.From(tableCartItems).
		Eq("user_id", userID).
		In("id", lineIDs).
		ExecuteDelete(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to remove cart items",
			zap.String("layer", "repository"),
			zap.Strings("cart_item_ids", lineIDs),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrFailedRemoveCart, err)
	}
	return nil
}

func (r *repository) ClearCart(ctx context.Context, userID string) error {
	_, err := r.client.From(tableCartItems).
		Eq("user_id", userID).
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedClearCart, err)
	}
	return nil
}

func single(resp *supabase.Response) (*CartLine, error) {
	var lines []*CartLine
	if err := resp.JSON(&lines); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartItemNotFound
	}
	return lines[0], nil
}
