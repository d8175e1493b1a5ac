package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/model"
	"github.com/ghaggin/webauth/internal/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so the login page can't be used to enumerate users.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// LockedOutError is returned when a client has exceeded the allowed
// number of failed login attempts.
type LockedOutError struct {
	RetryAfter time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// ValidationError reports a problem with submitted registration fields
// that the user can correct.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

type Controller struct {
	repo repository.Repository
	log  *zap.Logger

	bcryptCost   int
	maxAttempts  int
	window       time.Duration
	lockDuration time.Duration

	mu       sync.Mutex
	attempts map[string]*attemptState
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Repo   repository.Repository
	Config *config.Config
}

func New(p Params) (*Controller, error) {
	return &Controller{
		log:          p.Log,
		repo:         p.Repo,
		bcryptCost:   p.Config.Login.BcryptCost,
		maxAttempts:  p.Config.Login.MaxAttempts,
		window:       p.Config.Login.Window(),
		lockDuration: p.Config.Login.LockDuration(),
		attempts:     make(map[string]*attemptState),
	}, nil
}

// ValidateLogin checks the submitted credentials. The client address is
// used only for failed-attempt accounting.
func (c *Controller) ValidateLogin(ctx context.Context, addr, username, password string) (*model.User, error) {
	if retryAfter := c.checkLock(addr); retryAfter > 0 {
		return nil, &LockedOutError{RetryAfter: retryAfter}
	}

	u, err := c.repo.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.recordFailure(addr)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		c.recordFailure(addr)
		return nil, ErrInvalidCredentials
	}

	c.resetAttempts(addr)
	return u, nil
}

// RegisterUser validates the registration form fields and creates the
// user with a hashed password.
func (c *Controller) RegisterUser(ctx context.Context, username, email, password, confirm string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, &ValidationError{Msg: "username is required"}
	}
	if password == "" {
		return nil, &ValidationError{Msg: "password is required"}
	}
	if len(password) < 8 {
		return nil, &ValidationError{Msg: "password must be at least 8 characters"}
	}
	if password != confirm {
		return nil, &ValidationError{Msg: "passwords do not match"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := c.repo.AddUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ValidationError{Msg: "username is already taken"}
		}
		return nil, err
	}

	c.log.Info("registered user", zap.String("username", user.Name))
	return user, nil
}

func (c *Controller) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return c.repo.GetUserByID(ctx, id)
}

func (c *Controller) GetUsers(ctx context.Context) ([]model.User, error) {
	return c.repo.GetUsers(ctx)
}

func (c *Controller) checkLock(addr string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.attempts[addr]
	if !ok {
		return 0
	}

	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return time.Until(state.lockedUntil)
}

func (c *Controller) recordFailure(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	state, ok := c.attempts[addr]
	if !ok || now.Sub(state.firstAttempt) > c.window {
		state = &attemptState{firstAttempt: now}
		c.attempts[addr] = state
	}

	state.count++
	if state.count >= c.maxAttempts {
		state.lockedUntil = now.Add(c.lockDuration)
		state.count = c.maxAttempts
		c.log.Warn("login lockout", zap.String("addr", addr))
	}
}

func (c *Controller) resetAttempts(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, addr)
}
