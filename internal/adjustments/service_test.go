package adjustments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekomart/ekomart-admin/internal/shared"
	"github.com/ekomart/ekomart-admin/internal/stock"
)

type memoryAdjRepo struct {
	adjustments map[uuid.UUID]Adjustment
	lines       map[uuid.UUID][]Line
	seq         int64
	applied     []stock.Set
	stockErr    error

	// concurrentWin, when set, commits a rival decision on every pending
	// record just before the next transaction starts. Models a second
	// decider winning between the caller's read and its own update.
	concurrentWin Status
}

func newMemoryAdjRepo() *memoryAdjRepo {
	return &memoryAdjRepo{
		adjustments: make(map[uuid.UUID]Adjustment),
		lines:       make(map[uuid.UUID][]Line),
	}
}

type memoryAdjTx struct {
	repo *memoryAdjRepo
}

// WithTx snapshots state before running fn and restores it on error so the
// fake honours transactional rollback.
func (r *memoryAdjRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.concurrentWin != "" {
		rival := int64(99)
		now := time.Now().UTC()
		for id, adj := range r.adjustments {
			if adj.Status == StatusPending {
				adj.Status = r.concurrentWin
				adj.DecidedBy = &rival
				adj.DecidedAt = &now
				r.adjustments[id] = adj
			}
		}
		r.concurrentWin = ""
	}

	adjSnapshot := make(map[uuid.UUID]Adjustment, len(r.adjustments))
	for k, v := range r.adjustments {
		adjSnapshot[k] = v
	}
	lineSnapshot := make(map[uuid.UUID][]Line, len(r.lines))
	for k, v := range r.lines {
		lineSnapshot[k] = append([]Line(nil), v...)
	}
	appliedSnapshot := append([]stock.Set(nil), r.applied...)
	seqSnapshot := r.seq

	if err := fn(ctx, &memoryAdjTx{repo: r}); err != nil {
		r.adjustments = adjSnapshot
		r.lines = lineSnapshot
		r.applied = appliedSnapshot
		r.seq = seqSnapshot
		return err
	}
	return nil
}

func (r *memoryAdjRepo) Get(ctx context.Context, id uuid.UUID) (Adjustment, error) {
	adj, ok := r.adjustments[id]
	if !ok {
		return Adjustment{}, ErrNotFound
	}
	adj.Lines = append([]Line(nil), r.lines[id]...)
	return adj, nil
}

func (r *memoryAdjRepo) List(ctx context.Context, filters ListFilters) ([]Adjustment, int, error) {
	var out []Adjustment
	for id, adj := range r.adjustments {
		if filters.Status != "" && adj.Status != filters.Status {
			continue
		}
		if filters.WarehouseID > 0 && adj.WarehouseID != filters.WarehouseID {
			continue
		}
		adj.Lines = append([]Line(nil), r.lines[id]...)
		out = append(out, adj)
	}
	return out, len(out), nil
}

func (r *memoryAdjRepo) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	for _, adj := range r.adjustments {
		stats.Total++
		switch adj.Status {
		case StatusPending:
			stats.Pending++
		case StatusApproved:
			stats.Approved++
		case StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

func (tx *memoryAdjTx) NextNumber(ctx context.Context) (string, error) {
	tx.repo.seq++
	return fmt.Sprintf("ADJ-%06d", tx.repo.seq), nil
}

func (tx *memoryAdjTx) Create(ctx context.Context, adj Adjustment) error {
	tx.repo.adjustments[adj.ID] = adj
	return nil
}

func (tx *memoryAdjTx) InsertLine(ctx context.Context, adjustmentID uuid.UUID, line Line) error {
	line.ID = int64(len(tx.repo.lines[adjustmentID]) + 1)
	tx.repo.lines[adjustmentID] = append(tx.repo.lines[adjustmentID], line)
	return nil
}

func (tx *memoryAdjTx) Decide(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, decidedAt time.Time, note string) (bool, error) {
	adj, ok := tx.repo.adjustments[id]
	if !ok || adj.Status != StatusPending {
		return false, nil
	}
	adj.Status = status
	adj.DecidedBy = &decidedBy
	adj.DecidedAt = &decidedAt
	adj.DecisionNote = note
	tx.repo.adjustments[id] = adj
	return true, nil
}

func (tx *memoryAdjTx) Lines(ctx context.Context, adjustmentID uuid.UUID) ([]Line, error) {
	return append([]Line(nil), tx.repo.lines[adjustmentID]...), nil
}

func (tx *memoryAdjTx) ApplyStock(ctx context.Context, set stock.Set) error {
	if tx.repo.stockErr != nil {
		return tx.repo.stockErr
	}
	tx.repo.applied = append(tx.repo.applied, set)
	return nil
}

type fakeWarehouses struct {
	ids map[int64]bool
}

func (f fakeWarehouses) Exists(ctx context.Context, id int64) (bool, error) {
	return f.ids[id], nil
}

type fakeProducts struct {
	ids map[int64]bool
}

func (f fakeProducts) ExistIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = f.ids[id]
	}
	return out, nil
}

func newTestService(repo *memoryAdjRepo) *Service {
	warehouses := fakeWarehouses{ids: map[int64]bool{1: true}}
	products := fakeProducts{ids: map[int64]bool{10: true, 11: true}}
	return NewService(repo, warehouses, products, nil, nil, nil, time.Second)
}

func validInput() CreateInput {
	return CreateInput{
		WarehouseID: 1,
		Type:        TypeDamaged,
		Reason:      "Water damage in storage",
		Items: []LineInput{
			{ProductID: 10, PreviousQty: 20, NewQty: 15},
		},
	}
}

func TestCreateComputesDifference(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)
	require.Equal(t, StatusPending, created.Status)
	require.Equal(t, "ADJ-000001", created.Number)
	require.Equal(t, int64(7), created.CreatedBy)
	require.Len(t, created.Lines, 1)
	require.Equal(t, int64(-5), created.Lines[0].Difference)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Number, stored.Number)
	require.Len(t, stored.Lines, 1)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"unknown type", func(in *CreateInput) { in.Type = "shrinkage" }},
		{"empty reason", func(in *CreateInput) { in.Reason = "   " }},
		{"no items", func(in *CreateInput) { in.Items = nil }},
		{"negative quantity", func(in *CreateInput) { in.Items[0].NewQty = -1 }},
		{"duplicate product", func(in *CreateInput) {
			in.Items = append(in.Items, LineInput{ProductID: 10, PreviousQty: 5, NewQty: 5})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryAdjRepo()
			svc := newTestService(repo)
			input := validInput()
			tc.mutate(&input)

			_, err := svc.Create(context.Background(), shared.Actor{ID: 7}, input)
			require.ErrorIs(t, err, ErrValidation)
			require.Empty(t, repo.adjustments, "nothing should persist on validation failure")
		})
	}
}

func TestCreateUnknownReferences(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"unknown warehouse", func(in *CreateInput) { in.WarehouseID = 99 }},
		{"unknown product", func(in *CreateInput) { in.Items[0].ProductID = 999 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemoryAdjRepo()
			svc := newTestService(repo)
			input := validInput()
			tc.mutate(&input)

			_, err := svc.Create(context.Background(), shared.Actor{ID: 7}, input)
			require.ErrorIs(t, err, ErrNotFound)
			require.NotErrorIs(t, err, ErrValidation)
			require.Empty(t, repo.adjustments)
		})
	}
}

func TestCreateAllOrNothing(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	input := validInput()
	input.Items = append(input.Items, LineInput{ProductID: 999, PreviousQty: 1, NewQty: 2})

	_, err := svc.Create(context.Background(), shared.Actor{ID: 7}, input)
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, repo.adjustments)
	require.Empty(t, repo.lines)
}

func TestApproveAppliesStock(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), shared.Actor{ID: 8}, created.ID, "counted twice")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.DecidedBy)
	require.Equal(t, int64(8), *approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)

	require.Len(t, repo.applied, 1)
	require.Equal(t, stock.Set{WarehouseID: 1, ProductID: 10, Quantity: 15, Reference: created.Number}, repo.applied[0])
}

func TestRejectLeavesStockAlone(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), shared.Actor{ID: 8}, created.ID, "recount requested")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "recount requested", rejected.DecisionNote)
	require.Empty(t, repo.applied)
}

func TestDecideIsTerminal(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), shared.Actor{ID: 8}, created.ID, "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), shared.Actor{ID: 9}, created.ID, "")
	require.ErrorIs(t, err, ErrAlreadyDecided)
	_, err = svc.Reject(context.Background(), shared.Actor{ID: 9}, created.ID, "")
	require.ErrorIs(t, err, ErrAlreadyDecided)

	// Stock applied exactly once.
	require.Len(t, repo.applied, 1)
}

func TestDecideRaceLoserGetsConflict(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	// A rival rejects the adjustment after this caller's read but before
	// its own update commits. The conditional update finds zero pending
	// rows and the loser gets a conflict, not a second decision.
	repo.concurrentWin = StatusRejected
	_, err = svc.Approve(context.Background(), shared.Actor{ID: 8}, created.ID, "")
	require.ErrorIs(t, err, ErrAlreadyDecided)
	require.Empty(t, repo.applied)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, stored.Status)
	require.NotNil(t, stored.DecidedBy)
	require.Equal(t, int64(99), *stored.DecidedBy)
}

func TestDecideMissingAdjustment(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)

	_, err := svc.Approve(context.Background(), shared.Actor{ID: 8}, uuid.New(), "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApproveStockFailureRollsBack(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)
	created, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	repo.stockErr = fmt.Errorf("stock store unavailable")
	_, err = svc.Approve(context.Background(), shared.Actor{ID: 8}, created.ID, "")
	require.ErrorIs(t, err, ErrStockApply)

	// The decision was rolled back with the stock write.
	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
	require.Nil(t, stored.DecidedBy)

	// A retry after the dependency recovers succeeds.
	repo.stockErr = nil
	approved, err := svc.Approve(context.Background(), shared.Actor{ID: 8}, created.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
}

func TestStatsIgnoreFilters(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)

	first, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), shared.Actor{ID: 7}, validInput())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), shared.Actor{ID: 8}, first.ID, "")
	require.NoError(t, err)
	_, err = svc.Reject(context.Background(), shared.Actor{ID: 8}, second.ID, "")
	require.NoError(t, err)

	list, total, stats, err := svc.List(context.Background(), ListFilters{Status: StatusPending})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)

	// Stats cover the whole table, not the filtered page.
	require.Equal(t, Stats{Total: 3, Pending: 1, Approved: 1, Rejected: 1}, stats)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	repo := newMemoryAdjRepo()
	svc := newTestService(repo)

	_, _, _, err := svc.List(context.Background(), ListFilters{Status: "archived"})
	require.ErrorIs(t, err, ErrValidation)
}
