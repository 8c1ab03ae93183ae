package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"movierental/model"
	"movierental/repository"
	"movierental/repository/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "rentals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return openTemp(t) })
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentals.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	g := model.Genre{ID: uuid.New(), Name: "Western"}
	require.NoError(t, s.CreateGenre(ctx, &g))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.FindGenre(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, "Western", got.Name)
}

func TestUserEmailCaseInsensitive(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: uuid.New(), Name: "a", Email: "a@b.io", PasswordHash: "h", CreatedAt: storetest.Now()}))

	err := s.CreateUser(ctx, &model.User{ID: uuid.New(), Name: "b", Email: "A@B.io", PasswordHash: "h", CreatedAt: storetest.Now()})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	u, err := s.UserByEmail(ctx, "A@B.IO")
	require.NoError(t, err)
	require.Equal(t, "a@b.io", u.Email)
}
