package adjustments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ekomart/ekomart-admin/internal/shared"
	"github.com/ekomart/ekomart-admin/internal/stock"
)

const statsCacheKey = "ekomart:adjustments:stats"

// WarehousePort resolves warehouse references.
type WarehousePort interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ProductPort resolves product references in bulk.
type ProductPort interface {
	ExistIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the adjustment approval workflow.
type Service struct {
	repo       RepositoryPort
	warehouses WarehousePort
	products   ProductPort
	approvals  *shared.ApprovalRecorder
	audit      AuditPort
	cache      *redis.Client
	statsTTL   time.Duration
	statsGroup singleflight.Group
}

// NewService constructs the adjustment service. approvals, audit and cache
// may be nil; the workflow degrades to uncached, unrecorded operation.
func NewService(repo RepositoryPort, warehouses WarehousePort, products ProductPort, approvals *shared.ApprovalRecorder, audit AuditPort, cache *redis.Client, statsTTL time.Duration) *Service {
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}
	return &Service{
		repo:       repo,
		warehouses: warehouses,
		products:   products,
		approvals:  approvals,
		audit:      audit,
		cache:      cache,
		statsTTL:   statsTTL,
	}
}

// LineInput describes a single product count supplied by the caller.
// Difference is never accepted from callers.
type LineInput struct {
	ProductID   int64
	PreviousQty int64
	NewQty      int64
}

// CreateInput describes an adjustment proposal.
type CreateInput struct {
	WarehouseID int64
	Type        Type
	Reason      string
	Notes       string
	Items       []LineInput
}

// Create validates and persists a pending adjustment with all lines in a
// single transaction. Nothing is written when any line is invalid.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Adjustment, error) {
	if err := s.validateCreate(ctx, input); err != nil {
		return Adjustment{}, err
	}

	adj := Adjustment{
		ID:          uuid.New(),
		WarehouseID: input.WarehouseID,
		Type:        input.Type,
		Status:      StatusPending,
		Reason:      strings.TrimSpace(input.Reason),
		Notes:       strings.TrimSpace(input.Notes),
		CreatedBy:   actor.ID,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		adj.Number = number
		if err := tx.Create(ctx, adj); err != nil {
			return err
		}
		for _, item := range input.Items {
			line := Line{
				ProductID:   item.ProductID,
				PreviousQty: item.PreviousQty,
				NewQty:      item.NewQty,
				Difference:  item.NewQty - item.PreviousQty,
			}
			if err := tx.InsertLine(ctx, adj.ID, line); err != nil {
				return err
			}
			adj.Lines = append(adj.Lines, line)
		}
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}

	if s.approvals != nil {
		_ = s.approvals.EnsureSubmit(ctx, "ADJ", adj.ID, actor.ID, fmt.Sprintf("Adjustment %s submitted", adj.Number))
	}
	s.recordAudit(ctx, actor, "ADJ_CREATE", adj.ID, map[string]any{"number": adj.Number, "warehouse_id": adj.WarehouseID, "lines": len(adj.Lines)})
	s.invalidateStats(ctx)
	return adj, nil
}

func (s *Service) validateCreate(ctx context.Context, input CreateInput) error {
	if !input.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrValidation, input.Type)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	if input.WarehouseID <= 0 {
		return fmt.Errorf("%w: warehouse is required", ErrValidation)
	}

	seen := make(map[int64]bool, len(input.Items))
	ids := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: product is required on every item", ErrValidation)
		}
		if item.PreviousQty < 0 || item.NewQty < 0 {
			return fmt.Errorf("%w: quantities must not be negative", ErrValidation)
		}
		if seen[item.ProductID] {
			return fmt.Errorf("%w: duplicate product %d", ErrValidation, item.ProductID)
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}

	ok, err := s.warehouses.Exists(ctx, input.WarehouseID)
	if err != nil {
		return fmt.Errorf("resolve warehouse: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: warehouse %d does not exist", ErrNotFound, input.WarehouseID)
	}

	existing, err := s.products.ExistIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve products: %w", err)
	}
	for _, id := range ids {
		if !existing[id] {
			return fmt.Errorf("%w: product %d does not exist", ErrNotFound, id)
		}
	}
	return nil
}

// Get returns an adjustment with lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Adjustment, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of adjustments plus status stats. The stats always
// cover the whole table regardless of the active filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Adjustment, int, Stats, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 20
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, Stats{}, fmt.Errorf("%w: unknown status %q", ErrValidation, filters.Status)
	}
	if filters.Type != "" && !filters.Type.Valid() {
		return nil, 0, Stats{}, fmt.Errorf("%w: unknown type %q", ErrValidation, filters.Type)
	}

	adjustments, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, Stats{}, err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, 0, Stats{}, err
	}
	return adjustments, total, stats, nil
}

// Stats returns status counts, served from Redis when fresh. Concurrent
// cache misses collapse into one database query.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.cache == nil {
		return s.repo.Stats(ctx)
	}
	if raw, err := s.cache.Get(ctx, statsCacheKey).Bytes(); err == nil {
		var stats Stats
		if json.Unmarshal(raw, &stats) == nil {
			return stats, nil
		}
	}
	v, err, _ := s.statsGroup.Do(statsCacheKey, func() (any, error) {
		stats, err := s.repo.Stats(ctx)
		if err != nil {
			return Stats{}, err
		}
		if raw, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, statsCacheKey, raw, s.statsTTL).Err()
		}
		return stats, nil
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

// Approve flips a pending adjustment to approved and applies every line's
// new quantity to stock inside the same transaction. If any stock write
// fails the decision is rolled back and the adjustment stays pending.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, id uuid.UUID, note string) (Adjustment, error) {
	return s.decide(ctx, actor, id, StatusApproved, note)
}

// Reject flips a pending adjustment to rejected. Stock is never touched.
func (s *Service) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, note string) (Adjustment, error) {
	return s.decide(ctx, actor, id, StatusRejected, note)
}

func (s *Service) decide(ctx context.Context, actor shared.Actor, id uuid.UUID, status Status, note string) (Adjustment, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Adjustment{}, err
	}
	if current.Status.Terminal() {
		return Adjustment{}, fmt.Errorf("%w: adjustment is %s", ErrAlreadyDecided, current.Status)
	}

	decidedAt := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.Decide(ctx, id, status, actor.ID, decidedAt, note)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race against a concurrent decider.
			return ErrAlreadyDecided
		}
		if status != StatusApproved {
			return nil
		}
		lines, err := tx.Lines(ctx, id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			set := stock.Set{
				WarehouseID: current.WarehouseID,
				ProductID:   line.ProductID,
				Quantity:    line.NewQty,
				Reference:   current.Number,
			}
			if err := tx.ApplyStock(ctx, set); err != nil {
				return fmt.Errorf("%w: product %d: %v", ErrStockApply, line.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Adjustment{}, err
	}

	if s.approvals != nil {
		action := shared.ApprovalApprove
		if status == StatusRejected {
			action = shared.ApprovalReject
		}
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "ADJ",
			RefID:   id,
			ActorID: actor.ID,
			Action:  action,
			Note:    note,
		})
	}
	s.recordAudit(ctx, actor, "ADJ_"+strings.ToUpper(string(status)), id, map[string]any{"number": current.Number, "note": note})
	s.invalidateStats(ctx)
	return s.repo.Get(ctx, id)
}

// History returns the approval trail for an adjustment.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]shared.ApprovalLog, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.approvals == nil {
		return nil, nil
	}
	return s.approvals.List(ctx, "ADJ", id)
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "inventory_adjustment", EntityID: id.String(), Meta: meta})
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, statsCacheKey).Err()
}
