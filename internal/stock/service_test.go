package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	mdshared "github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

type key struct {
	warehouseID int64
	productID   int64
}

type memoryLevels struct {
	levels map[key]Level
}

func (m *memoryLevels) Get(ctx context.Context, warehouseID, productID int64) (Level, error) {
	level, ok := m.levels[key{warehouseID, productID}]
	if !ok {
		return Level{}, ErrLevelNotFound
	}
	return level, nil
}

func (m *memoryLevels) ListByWarehouse(ctx context.Context, warehouseID int64, filters mdshared.ListFilters) ([]Level, int, error) {
	var out []Level
	for k, level := range m.levels {
		if k.warehouseID == warehouseID {
			out = append(out, level)
		}
	}
	return out, len(out), nil
}

func (m *memoryLevels) Movements(ctx context.Context, warehouseID, productID int64, limit int) ([]Movement, error) {
	return nil, nil
}

func TestQuantityDefaultsToZero(t *testing.T) {
	repo := &memoryLevels{levels: map[key]Level{
		{1, 10}: {WarehouseID: 1, ProductID: 10, Quantity: 42},
	}}
	svc := NewService(repo)

	qty, err := svc.Quantity(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(42), qty)

	// Never-counted products read as zero, not as an error.
	qty, err = svc.Quantity(context.Background(), 1, 11)
	require.NoError(t, err)
	require.Zero(t, qty)
}

func TestGetMissingLevel(t *testing.T) {
	svc := NewService(&memoryLevels{levels: map[key]Level{}})

	_, err := svc.Get(context.Background(), 1, 10)
	require.ErrorIs(t, err, ErrLevelNotFound)
}
