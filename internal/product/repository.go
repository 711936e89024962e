package product

import (
	"context"
	"fmt"

	"comprafacil/internal/logger"
	"comprafacil/internal/supabase"

	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, productID string) (*Product, error)
}

type repository struct {
	client *supabase.Client
}

func NewRepository(client *supabase.Client) Repository {
	return &repository{client: client}
}

func (r *repository) GetByID(ctx context.Context, productID string) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByID"),
		zap.String("product_id", productID),
	)

	resp, err := r.client.From("products").
		Select("*").
		Eq("id", productID).
		Limit(1).
		Execute(ctx)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetProduct, err)
	}

	var products []*Product
	if err := resp.JSON(&products); err != nil {
		log.Error("decode response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetProduct, err)
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}

	return products[0], nil
}
