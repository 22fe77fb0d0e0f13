package stock

import (
	"errors"
	"time"
)

var ErrLevelNotFound = errors.New("stock: level not found")

// Level is the on-hand quantity of a product in a warehouse.
type Level struct {
	WarehouseID int64     `json:"warehouse_id"`
	ProductID   int64     `json:"product_id"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Movement records a single change applied to a stock level. Rows are
// append-only; the level itself is the running total.
type Movement struct {
	ID          int64     `json:"id"`
	WarehouseID int64     `json:"warehouse_id"`
	ProductID   int64     `json:"product_id"`
	Delta       int64     `json:"delta"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}

// Set is an instruction to force a level to an absolute quantity,
// recording the resulting delta as a movement.
type Set struct {
	WarehouseID int64
	ProductID   int64
	Quantity    int64
	Reference   string
}
