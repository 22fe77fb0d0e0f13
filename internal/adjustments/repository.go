package adjustments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekomart/ekomart-admin/internal/stock"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (Adjustment, error)
	List(ctx context.Context, filters ListFilters) ([]Adjustment, int, error)
	Stats(ctx context.Context) (Stats, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, adj Adjustment) error
	InsertLine(ctx context.Context, adjustmentID uuid.UUID, line Line) error
	// Decide flips a pending adjustment into a terminal status. It reports
	// false when no pending row matched, so concurrent deciders serialize on
	// the status column instead of double-applying.
	Decide(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, decidedAt time.Time, note string) (bool, error)
	Lines(ctx context.Context, adjustmentID uuid.UUID) ([]Line, error)
	ApplyStock(ctx context.Context, set stock.Set) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const adjustmentColumns = `id, number, warehouse_id, type, status, reason, notes, created_by, decided_by, decided_at, decision_note, created_at`

func scanAdjustment(row pgx.Row) (Adjustment, error) {
	var adj Adjustment
	var typ, status string
	err := row.Scan(&adj.ID, &adj.Number, &adj.WarehouseID, &typ, &status, &adj.Reason, &adj.Notes,
		&adj.CreatedBy, &adj.DecidedBy, &adj.DecidedAt, &adj.DecisionNote, &adj.CreatedAt)
	if err != nil {
		return Adjustment{}, err
	}
	adj.Type = Type(typ)
	adj.Status = Status(status)
	return adj, nil
}

// Get returns the adjustment header with its lines.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Adjustment, error) {
	adj, err := scanAdjustment(r.pool.QueryRow(ctx,
		`SELECT `+adjustmentColumns+` FROM inventory_adjustments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, ErrNotFound
	}
	if err != nil {
		return Adjustment{}, fmt.Errorf("get adjustment: %w", err)
	}
	lines, err := r.lines(ctx, r.pool, id)
	if err != nil {
		return Adjustment{}, err
	}
	adj.Lines = lines
	return adj, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) lines(ctx context.Context, q querier, adjustmentID uuid.UUID) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, previous_quantity, new_quantity, difference
		FROM inventory_adjustment_lines
		WHERE adjustment_id = $1
		ORDER BY id`, adjustmentID)
	if err != nil {
		return nil, fmt.Errorf("list adjustment lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.ProductID, &line.PreviousQty, &line.NewQty, &line.Difference); err != nil {
			return nil, fmt.Errorf("scan adjustment line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// List returns headers (without lines) ordered newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Adjustment, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(filters.Status))
		idx++
	}
	if filters.Type != "" {
		where = append(where, fmt.Sprintf("type = $%d", idx))
		args = append(args, string(filters.Type))
		idx++
	}
	if filters.WarehouseID > 0 {
		where = append(where, fmt.Sprintf("warehouse_id = $%d", idx))
		args = append(args, filters.WarehouseID)
		idx++
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(number ILIKE $%d OR reason ILIKE $%d)", idx, idx))
		args = append(args, "%"+filters.Search+"%")
		idx++
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM inventory_adjustments WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count adjustments: %w", err)
	}

	offset := (filters.Page - 1) * filters.Limit
	query := fmt.Sprintf("SELECT %s FROM inventory_adjustments WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		adjustmentColumns, clause, idx, idx+1)
	args = append(args, filters.Limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []Adjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan adjustment: %w", err)
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, total, rows.Err()
}

// Stats counts adjustments by status over the whole table.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'approved'),
		       COUNT(*) FILTER (WHERE status = 'rejected')
		FROM inventory_adjustments`).
		Scan(&stats.Total, &stats.Pending, &stats.Approved, &stats.Rejected)
	if err != nil {
		return Stats{}, fmt.Errorf("adjustment stats: %w", err)
	}
	return stats, nil
}

func (t *txRepo) NextNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('inventory_adjustment_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("next adjustment number: %w", err)
	}
	return fmt.Sprintf("ADJ-%06d", seq), nil
}

func (t *txRepo) Create(ctx context.Context, adj Adjustment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_adjustments (id, number, warehouse_id, type, status, reason, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		adj.ID, adj.Number, adj.WarehouseID, string(adj.Type), string(adj.Status), adj.Reason, adj.Notes, adj.CreatedBy, adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

func (t *txRepo) InsertLine(ctx context.Context, adjustmentID uuid.UUID, line Line) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_adjustment_lines (adjustment_id, product_id, previous_quantity, new_quantity, difference)
		VALUES ($1, $2, $3, $4, $5)`,
		adjustmentID, line.ProductID, line.PreviousQty, line.NewQty, line.Difference)
	if err != nil {
		return fmt.Errorf("insert adjustment line: %w", err)
	}
	return nil
}

func (t *txRepo) Decide(ctx context.Context, id uuid.UUID, status Status, decidedBy int64, decidedAt time.Time, note string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory_adjustments
		SET status = $2, decided_by = $3, decided_at = $4, decision_note = $5
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), decidedBy, decidedAt, note)
	if err != nil {
		return false, fmt.Errorf("decide adjustment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) Lines(ctx context.Context, adjustmentID uuid.UUID) ([]Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, product_id, previous_quantity, new_quantity, difference
		FROM inventory_adjustment_lines
		WHERE adjustment_id = $1
		ORDER BY id`, adjustmentID)
	if err != nil {
		return nil, fmt.Errorf("list adjustment lines: %w", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.ProductID, &line.PreviousQty, &line.NewQty, &line.Difference); err != nil {
			return nil, fmt.Errorf("scan adjustment line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (t *txRepo) ApplyStock(ctx context.Context, set stock.Set) error {
	return stock.ApplyTx(ctx, t.tx, set)
}
