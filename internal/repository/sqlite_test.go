package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func newSqliteRepo(t *testing.T) Repository {
	t.Helper()

	lc := fxtest.NewLifecycle(t)
	r, err := NewSQLite(Params{
		LC:  lc,
		Log: zap.NewNop(),
		Config: &config.Config{
			Repository: config.Repository{
				Backend: "sqlite",
				Path:    filepath.Join(t.TempDir(), "users.db"),
			},
		},
	})
	require.NoError(t, err)

	lc.RequireStart()
	t.Cleanup(lc.RequireStop)
	return r
}

func Test_SqliteAddAndGet(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := newSqliteRepo(t)
	ctx := context.Background()

	user := &model.User{
		Name:         "alice",
		PasswordHash: "$2a$10$notarealhash",
		Email:        "alice@example.com",
	}
	require.NoError(r.AddUser(ctx, user))
	assert.NotZero(user.ID)
	assert.NotEmpty(user.PublicID)
	assert.False(user.CreatedAt.IsZero())

	got, err := r.GetUserByName(ctx, "alice")
	require.NoError(err)
	assert.Equal(user.ID, got.ID)
	assert.Equal(user.PublicID, got.PublicID)
	assert.Equal("alice@example.com", got.Email)

	byID, err := r.GetUserByID(ctx, user.ID)
	require.NoError(err)
	assert.Equal("alice", byID.Name)
}

func Test_SqliteDuplicate(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := newSqliteRepo(t)
	ctx := context.Background()

	require.NoError(r.AddUser(ctx, &model.User{Name: "alice", PasswordHash: "x"}))

	err := r.AddUser(ctx, &model.User{Name: "alice", PasswordHash: "y"})
	assert.ErrorIs(err, ErrDuplicate)
}

func Test_SqliteNotFound(t *testing.T) {
	assert := assert.New(t)

	r := newSqliteRepo(t)
	ctx := context.Background()

	_, err := r.GetUserByName(ctx, "nobody")
	assert.ErrorIs(err, ErrNotFound)

	_, err = r.GetUserByID(ctx, 42)
	assert.ErrorIs(err, ErrNotFound)
}

func Test_SqliteGetUsers(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := newSqliteRepo(t)
	ctx := context.Background()

	require.NoError(r.AddUser(ctx, &model.User{Name: "alice", PasswordHash: "x"}))
	require.NoError(r.AddUser(ctx, &model.User{Name: "bob", PasswordHash: "y"}))

	users, err := r.GetUsers(ctx)
	require.NoError(err)
	require.Len(users, 2)
	assert.Equal("alice", users[0].Name)
	assert.Equal("bob", users[1].Name)
}
