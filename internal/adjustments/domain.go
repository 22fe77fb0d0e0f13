package adjustments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the approval state of an adjustment. Transitions are one-way:
// pending to approved or pending to rejected, never back.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Type classifies why the adjustment was raised.
type Type string

const (
	TypeStockCount Type = "stock_count"
	TypeDamaged    Type = "damaged"
	TypeLost       Type = "lost"
	TypeFound      Type = "found"
	TypeCorrection Type = "correction"
	TypeOther      Type = "other"
)

// Valid reports whether t is a known adjustment type.
func (t Type) Valid() bool {
	switch t {
	case TypeStockCount, TypeDamaged, TypeLost, TypeFound, TypeCorrection, TypeOther:
		return true
	}
	return false
}

var (
	ErrNotFound       = errors.New("adjustments: not found")
	ErrValidation     = errors.New("adjustments: validation failed")
	ErrAlreadyDecided = errors.New("adjustments: already decided")
	ErrStockApply     = errors.New("adjustments: stock apply failed")
)

// Adjustment is an inventory adjustment header.
type Adjustment struct {
	ID           uuid.UUID  `json:"id"`
	Number       string     `json:"number"`
	WarehouseID  int64      `json:"warehouse_id"`
	Type         Type       `json:"type"`
	Status       Status     `json:"status"`
	Reason       string     `json:"reason"`
	Notes        string     `json:"notes,omitempty"`
	CreatedBy    int64      `json:"created_by"`
	DecidedBy    *int64     `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	DecisionNote string     `json:"decision_note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Lines        []Line     `json:"lines,omitempty"`
}

// Line is a single product count within an adjustment. Difference is
// derived as NewQty - PreviousQty and stored, never supplied by callers.
type Line struct {
	ID          int64 `json:"id"`
	ProductID   int64 `json:"product_id"`
	PreviousQty int64 `json:"previous_quantity"`
	NewQty      int64 `json:"new_quantity"`
	Difference  int64 `json:"difference"`
}

// Stats summarises adjustment counts by status across the whole table,
// independent of any list filter.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// ListFilters narrows the adjustment list.
type ListFilters struct {
	Page        int
	Limit       int
	Status      Status
	Type        Type
	WarehouseID int64
	Search      string
}
