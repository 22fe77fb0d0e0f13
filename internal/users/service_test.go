package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (r *memoryRepo) List(ctx context.Context, page, limit int, search string) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) Create(ctx context.Context, user User, passwordHash string) (User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return User{}, ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	r.hashes[user.ID] = passwordHash
	return user, nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	r.users[id] = u
	return nil
}

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), " Staff@EkoMart.Local ", "Staff", "long enough password")
	require.NoError(t, err)
	require.Equal(t, "staff@ekomart.local", created.Email)
	require.True(t, created.IsActive)

	hash := repo.hashes[created.ID]
	require.NotEqual(t, "long enough password", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("long enough password")))
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), "staff@ekomart.local", "Staff", "short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), "staff@ekomart.local", "Staff", "long enough password")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "staff@ekomart.local", "Other", "long enough password")
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestDeactivate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), "staff@ekomart.local", "Staff", "long enough password")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID))
	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	require.ErrorIs(t, svc.Deactivate(context.Background(), created.ID+1), ErrNotFound)
}
