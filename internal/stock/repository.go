package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/ekomart/ekomart-admin/internal/masterdata/shared"
)

type Repository interface {
	Get(ctx context.Context, warehouseID, productID int64) (Level, error)
	ListByWarehouse(ctx context.Context, warehouseID int64, filters mdshared.ListFilters) ([]Level, int, error)
	Movements(ctx context.Context, warehouseID, productID int64, limit int) ([]Movement, error)
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, warehouseID, productID int64) (Level, error) {
	var level Level
	err := r.pool.QueryRow(ctx, `
		SELECT warehouse_id, product_id, quantity, updated_at
		FROM stock_levels
		WHERE warehouse_id = $1 AND product_id = $2`, warehouseID, productID).
		Scan(&level.WarehouseID, &level.ProductID, &level.Quantity, &level.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Level{}, ErrLevelNotFound
	}
	if err != nil {
		return Level{}, fmt.Errorf("get stock level: %w", err)
	}
	return level, nil
}

func (r *PostgresRepository) ListByWarehouse(ctx context.Context, warehouseID int64, filters mdshared.ListFilters) ([]Level, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_levels WHERE warehouse_id = $1`, warehouseID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock levels: %w", err)
	}

	offset := (filters.Page - 1) * filters.Limit
	rows, err := r.pool.Query(ctx, `
		SELECT warehouse_id, product_id, quantity, updated_at
		FROM stock_levels
		WHERE warehouse_id = $1
		ORDER BY product_id
		LIMIT $2 OFFSET $3`, warehouseID, filters.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []Level
	for rows.Next() {
		var level Level
		if err := rows.Scan(&level.WarehouseID, &level.ProductID, &level.Quantity, &level.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan stock level: %w", err)
		}
		levels = append(levels, level)
	}
	return levels, total, rows.Err()
}

func (r *PostgresRepository) Movements(ctx context.Context, warehouseID, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, warehouse_id, product_id, delta, reference, created_at
		FROM stock_movements
		WHERE warehouse_id = $1 AND product_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, warehouseID, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.WarehouseID, &m.ProductID, &m.Delta, &m.Reference, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ApplyTx forces a stock level to an absolute quantity inside the caller's
// transaction. The current row is locked so concurrent writers serialize on
// the (warehouse, product) pair, the level is upserted, and the resulting
// delta is appended to the movement history.
func ApplyTx(ctx context.Context, tx pgx.Tx, set Set) error {
	var current int64
	err := tx.QueryRow(ctx, `
		SELECT quantity FROM stock_levels
		WHERE warehouse_id = $1 AND product_id = $2
		FOR UPDATE`, set.WarehouseID, set.ProductID).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lock stock level: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_levels (warehouse_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (warehouse_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		set.WarehouseID, set.ProductID, set.Quantity); err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}

	delta := set.Quantity - current
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (warehouse_id, product_id, delta, reference, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		set.WarehouseID, set.ProductID, delta, set.Reference); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}
