package cart

import (
	"context"
	"errors"

	"comprafacil/internal/lock"
	"comprafacil/internal/logger"
	"comprafacil/internal/metrics"
	"comprafacil/internal/product"

	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	// AddToCart adds delta units to the user's line for the product and
	// selection. It returns nil when the line ends up removed or was never
	// created.
	AddToCart(ctx context.Context, params AddToCartParams) (*CartLine, error)
	// SetQuantity sets a line's quantity; zero or less removes it.
	SetQuantity(ctx context.Context, params SetQuantityParams) (*CartLine, error)
	GetCart(ctx context.Context, userID string) ([]*CartLine, error)
	RemoveLine(ctx context.Context, userID, lineID string) error
	ClearCart(ctx context.Context, userID string) error
}

type service struct {
	repo        Repository
	productRepo product.Repository
	locks       lock.KeyedMutex
}

func NewService(repo Repository, productRepo product.Repository) Service {
	return &service{repo: repo, productRepo: productRepo}
}

func (s *service) AddToCart(ctx context.Context, params AddToCartParams) (line *CartLine, err error) {
	defer func() { metrics.RecordCartOp("add", err) }()

	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if params.ProductID == "" {
		return nil, ErrProductRequired
	}

	sig := Signature(params.Variations)
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddToCart"),
		zap.String("product_id", params.ProductID),
		zap.String("signature", sig),
	)

	unlock := s.locks.Lock(params.UserID)
	defer unlock()

	lines, err := s.repo.LinesForProduct(ctx, params.UserID, params.ProductID)
	if err != nil {
		return nil, err
	}

	var matches []*CartLine
	for _, l := range lines {
		if l.Signature() == sig {
			matches = append(matches, l)
		}
	}

	if len(matches) == 0 {
		if params.Quantity <= 0 {
			return nil, nil
		}

		p, err := s.productRepo.GetByID(ctx, params.ProductID)
		if err != nil {
			return nil, err
		}
		if err := p.ValidateSelection(params.Variations); err != nil {
			return nil, err
		}
		if !p.HasStockFor(params.Quantity) {
			return nil, ErrStockExceeded
		}

		return s.repo.CreateCartItem(ctx, NewLineParams{
			UserID:     params.UserID,
			ProductID:  params.ProductID,
			Variations: params.Variations,
			Quantity:   params.Quantity,
		})
	}

	keep := matches[0]
	total := params.Quantity
	dupIDs := make([]string, 0, len(matches)-1)
	for i, m := range matches {
		total += m.Quantity
		if i > 0 {
			dupIDs = append(dupIDs, m.ID)
		}
	}
	if len(dupIDs) > 0 {
		log.Warn("merging duplicate cart lines", zap.Int("duplicates", len(dupIDs)))
	}

	if total <= 0 {
		return nil, s.repo.RemoveLines(ctx, params.UserID, append([]string{keep.ID}, dupIDs...)...)
	}

	if params.Quantity > 0 {
		p, err := s.productRepo.GetByID(ctx, params.ProductID)
		if err != nil {
			return nil, err
		}
		if !p.HasStockFor(total) {
			log.Info("stock exceeded", zap.Int("requested", total))
			return nil, ErrStockExceeded
		}
	}

	updated, err := s.repo.UpdateCartItemQuantity(ctx, keep.ID, total)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveLines(ctx, params.UserID, dupIDs...); err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *service) SetQuantity(ctx context.Context, params SetQuantityParams) (line *CartLine, err error) {
	defer func() { metrics.RecordCartOp("set_quantity", err) }()

	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if params.LineID == "" {
		return nil, ErrLineRequired
	}

	unlock := s.locks.Lock(params.UserID)
	defer unlock()

	current, err := s.repo.GetLine(ctx, params.UserID, params.LineID)
	if err != nil {
		return nil, err
	}

	if params.Quantity <= 0 {
		return nil, s.repo.RemoveLines(ctx, params.UserID, current.ID)
	}

	p, err := s.productRepo.GetByID(ctx, current.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.HasStockFor(params.Quantity) {
		return nil, ErrStockExceeded
	}

	return s.repo.UpdateCartItemQuantity(ctx, current.ID, params.Quantity)
}

func (s *service) GetCart(ctx context.Context, userID string) ([]*CartLine, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	return s.repo.GetCartRows(ctx, userID)
}

// RemoveLine deletes a line. Removing a line that is already gone succeeds.
func (s *service) RemoveLine(ctx context.Context, userID, lineID string) (err error) {
	defer func() { metrics.RecordCartOp("remove", err) }()

	if userID == "" {
		return ErrUserRequired
	}
	if lineID == "" {
		return ErrLineRequired
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	err = s.repo.RemoveLines(ctx, userID, lineID)
	if errors.Is(err, ErrCartItemNotFound) {
		return nil
	}
	return err
}

func (s *service) ClearCart(ctx context.Context, userID string) (err error) {
	defer func() { metrics.RecordCartOp("clear", err) }()

	if userID == "" {
		return ErrUserRequired
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.repo.ClearCart(ctx, userID)
}
