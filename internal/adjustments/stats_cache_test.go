package adjustments

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ekomart/ekomart-admin/internal/shared"
)

func TestStatsCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryAdjRepo()
	warehouses := fakeWarehouses{ids: map[int64]bool{1: true}}
	products := fakeProducts{ids: map[int64]bool{10: true, 11: true}}
	svc := NewService(repo, warehouses, products, nil, nil, client, time.Minute)

	_, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 1, Pending: 1}, stats)

	// Mutating storage behind the cache's back keeps serving the old counts.
	for id := range repo.adjustments {
		adj := repo.adjustments[id]
		adj.Status = StatusApproved
		repo.adjustments[id] = adj
	}
	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 1, Pending: 1}, stats)

	// Writes through the service invalidate the cached entry.
	_, err = svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)
	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 2, Pending: 1, Approved: 1}, stats)
}

func TestStatsCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryAdjRepo()
	warehouses := fakeWarehouses{ids: map[int64]bool{1: true}}
	products := fakeProducts{ids: map[int64]bool{10: true}}
	svc := NewService(repo, warehouses, products, nil, nil, client, time.Second)

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)

	for id := range repo.adjustments {
		delete(repo.adjustments, id)
	}
	_, err = svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Total)
}
