package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("users: not found")
	ErrDuplicate    = errors.New("users: email already in use")
	ErrWeakPassword = errors.New("users: password too short")
)

// User is a staff account in the admin back office.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
