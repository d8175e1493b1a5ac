package auth

import (
	"context"
	"testing"
	"time"

	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/model"
	"github.com/ghaggin/webauth/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRepo struct {
	users []model.User
}

func (r *fakeRepo) GetUserByName(_ context.Context, name string) (*model.User, error) {
	for _, u := range r.users {
		if u.Name == name {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) AddUser(_ context.Context, user *model.User) error {
	for _, u := range r.users {
		if u.Name == user.Name {
			return repository.ErrDuplicate
		}
	}
	user.ID = int64(len(r.users) + 1)
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeRepo) GetUsers(_ context.Context) ([]model.User, error) {
	return r.users, nil
}

func newTestController(t *testing.T) (*Controller, *fakeRepo) {
	t.Helper()

	repo := &fakeRepo{}
	c, err := New(Params{
		Log:  zap.NewNop(),
		Repo: repo,
		Config: &config.Config{
			Login: config.Login{
				BcryptCost:    4,
				MaxAttempts:   3,
				WindowMinutes: 15,
				LockMinutes:   10,
			},
		},
	})
	require.NoError(t, err)
	return c, repo
}

func Test_RegisterAndValidateLogin(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c, repo := newTestController(t)
	ctx := context.Background()

	user, err := c.RegisterUser(ctx, "alice", "alice@example.com", "correct horse", "correct horse")
	require.NoError(err)
	assert.Equal("alice", user.Name)
	assert.NotEmpty(user.PasswordHash)
	assert.NotEqual("correct horse", user.PasswordHash)
	assert.Len(repo.users, 1)

	got, err := c.ValidateLogin(ctx, "127.0.0.1", "alice", "correct horse")
	require.NoError(err)
	assert.Equal(user.ID, got.ID)

	_, err = c.ValidateLogin(ctx, "127.0.0.1", "alice", "wrong password")
	assert.ErrorIs(err, ErrInvalidCredentials)
}

func Test_ValidateLogin_unknownUser(t *testing.T) {
	assert := assert.New(t)

	c, _ := newTestController(t)

	_, err := c.ValidateLogin(context.Background(), "127.0.0.1", "nobody", "anything")
	assert.ErrorIs(err, ErrInvalidCredentials)
}

func Test_RegisterUser_validation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c, _ := newTestController(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
		confirm  string
	}{
		{"missing username", "", "password123", "password123"},
		{"missing password", "bob", "", ""},
		{"short password", "bob", "short", "short"},
		{"mismatched confirm", "bob", "password123", "password456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.RegisterUser(ctx, tc.username, "", tc.password, tc.confirm)
			var invalid *ValidationError
			assert.ErrorAs(err, &invalid)
		})
	}

	_, err := c.RegisterUser(ctx, "bob", "", "password123", "password123")
	require.NoError(err)

	_, err = c.RegisterUser(ctx, "bob", "", "password123", "password123")
	var invalid *ValidationError
	require.ErrorAs(err, &invalid)
	assert.Equal("username is already taken", invalid.Msg)
}

func Test_ValidateLogin_lockout(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c, _ := newTestController(t)
	ctx := context.Background()

	_, err := c.RegisterUser(ctx, "alice", "", "correct horse", "correct horse")
	require.NoError(err)

	for i := 0; i < 3; i++ {
		_, err = c.ValidateLogin(ctx, "10.0.0.1", "alice", "wrong")
		require.ErrorIs(err, ErrInvalidCredentials)
	}

	// locked out now, even with the right password
	_, err = c.ValidateLogin(ctx, "10.0.0.1", "alice", "correct horse")
	var locked *LockedOutError
	require.ErrorAs(err, &locked)
	assert.Greater(locked.RetryAfter, time.Duration(0))

	// other clients are unaffected
	_, err = c.ValidateLogin(ctx, "10.0.0.2", "alice", "correct horse")
	assert.NoError(err)
}

func Test_ValidateLogin_lockoutExpires(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	c, _ := newTestController(t)
	ctx := context.Background()

	_, err := c.RegisterUser(ctx, "alice", "", "correct horse", "correct horse")
	require.NoError(err)

	for i := 0; i < 3; i++ {
		_, err = c.ValidateLogin(ctx, "10.0.0.1", "alice", "wrong")
		require.ErrorIs(err, ErrInvalidCredentials)
	}

	// wind the lock back instead of sleeping
	c.mu.Lock()
	c.attempts["10.0.0.1"].lockedUntil = time.Now().Add(-time.Second)
	c.mu.Unlock()

	_, err = c.ValidateLogin(ctx, "10.0.0.1", "alice", "correct horse")
	assert.NoError(err)
}
