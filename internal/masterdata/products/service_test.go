package products

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) ExistIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		p, ok := r.products[id]
		out[id] = ok && p.IsActive
	}
	return out, nil
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, p := range r.products {
		if p.SKU == product.SKU {
			return Product{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	r.products[id] = product
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Product{Name: "Rice 5kg"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Product{SKU: "RICE-5"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Product{SKU: "RICE-5", Name: "Rice 5kg", Price: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestExistIDsSkipsInactive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	active, err := svc.Create(context.Background(), Product{SKU: "RICE-5", Name: "Rice 5kg", IsActive: true})
	require.NoError(t, err)
	inactive, err := svc.Create(context.Background(), Product{SKU: "OIL-1", Name: "Oil 1L", IsActive: false})
	require.NoError(t, err)

	existing, err := svc.ExistIDs(context.Background(), []int64{active.ID, inactive.ID, 999})
	require.NoError(t, err)
	require.True(t, existing[active.ID])
	require.False(t, existing[inactive.ID])
	require.False(t, existing[999])
}
