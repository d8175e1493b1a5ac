package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("user already exists")
)

type Repository interface {
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	AddUser(ctx context.Context, user *model.User) error
	GetUsers(ctx context.Context) ([]model.User, error)
}

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

// New selects the backend named in the config.
func New(p Params) (Repository, error) {
	switch p.Config.Repository.Backend {
	case "json":
		return NewJSON(p)
	case "sqlite":
		return NewSQLite(p)
	default:
		return nil, fmt.Errorf("unrecognized repository backend: %q", p.Config.Repository.Backend)
	}
}
