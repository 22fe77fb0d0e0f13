package warehouses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

type memoryRepo struct {
	warehouses map[int64]Warehouse
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{warehouses: make(map[int64]Warehouse)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	var out []Warehouse
	for _, w := range r.warehouses {
		out = append(out, w)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Warehouse, error) {
	w, ok := r.warehouses[id]
	if !ok {
		return Warehouse{}, shared.ErrNotFound
	}
	return w, nil
}

func (r *memoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.warehouses[id]
	return ok, nil
}

func (r *memoryRepo) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	for _, w := range r.warehouses {
		if w.Code == warehouse.Code {
			return Warehouse{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	warehouse.ID = r.nextID
	r.warehouses[warehouse.ID] = warehouse
	return warehouse, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, warehouse Warehouse) error {
	if _, ok := r.warehouses[id]; !ok {
		return shared.ErrNotFound
	}
	warehouse.ID = id
	r.warehouses[id] = warehouse
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.warehouses[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.warehouses, id)
	return nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Warehouse{Name: "Main"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Warehouse{Code: "WH-01"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	created, err := svc.Create(context.Background(), Warehouse{Code: "WH-01", Name: "Main"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestCreateDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Warehouse{Code: "WH-01", Name: "Main"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Warehouse{Code: "WH-01", Name: "Other"})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestExists(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Warehouse{Code: "WH-01", Name: "Main"})
	require.NoError(t, err)

	ok, err := svc.Exists(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.Exists(context.Background(), created.ID+1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetInvalidID(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}
