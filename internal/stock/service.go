package stock

import (
	"context"
	"errors"

	mdshared "github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Quantity returns the on-hand quantity for a product in a warehouse.
// A product with no level row has never been counted and is reported as zero.
func (s *Service) Quantity(ctx context.Context, warehouseID, productID int64) (int64, error) {
	level, err := s.repo.Get(ctx, warehouseID, productID)
	if errors.Is(err, ErrLevelNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return level.Quantity, nil
}

func (s *Service) Get(ctx context.Context, warehouseID, productID int64) (Level, error) {
	return s.repo.Get(ctx, warehouseID, productID)
}

func (s *Service) ListByWarehouse(ctx context.Context, warehouseID int64, filters mdshared.ListFilters) ([]Level, int, error) {
	if filters.Page < 1 {
		filters.Page = mdshared.DefaultPage
	}
	if filters.Limit < 1 {
		filters.Limit = mdshared.DefaultLimit
	}
	return s.repo.ListByWarehouse(ctx, warehouseID, filters)
}

func (s *Service) Movements(ctx context.Context, warehouseID, productID int64, limit int) ([]Movement, error) {
	return s.repo.Movements(ctx, warehouseID, productID, limit)
}
