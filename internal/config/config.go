package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Path is the location of the yaml config file, provided by main from
// the -config flag. Empty means run on defaults.
type Path string

type Config struct {
	Server     Server     `yaml:"server"`
	Session    Session    `yaml:"session"`
	Repository Repository `yaml:"repository"`
	Login      Login      `yaml:"login"`
}

type Server struct {
	Port        int    `yaml:"port"`
	TemplateDir string `yaml:"template_dir"`
	StaticDir   string `yaml:"static_dir"`
}

type Session struct {
	LifetimeMinutes int `yaml:"lifetime_minutes"`
	IdleMinutes     int `yaml:"idle_minutes"`
}

func (s Session) Lifetime() time.Duration {
	return time.Duration(s.LifetimeMinutes) * time.Minute
}

func (s Session) IdleTimeout() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

type Repository struct {
	// Backend is either "sqlite" or "json"
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type Login struct {
	BcryptCost    int `yaml:"bcrypt_cost"`
	MaxAttempts   int `yaml:"max_attempts"`
	WindowMinutes int `yaml:"window_minutes"`
	LockMinutes   int `yaml:"lock_minutes"`
}

func (l Login) Window() time.Duration {
	return time.Duration(l.WindowMinutes) * time.Minute
}

func (l Login) LockDuration() time.Duration {
	return time.Duration(l.LockMinutes) * time.Minute
}

func New(path Path) (*Config, error) {
	c := defaults()

	if path != "" {
		b, err := os.ReadFile(string(path))
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// .env is optional, used for local development overrides
	_ = godotenv.Load()
	applyEnv(c)

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func defaults() *Config {
	return &Config{
		Server: Server{
			Port:        8123,
			TemplateDir: "web/tmpl",
			StaticDir:   "web/static",
		},
		Session: Session{
			LifetimeMinutes: 12 * 60,
			IdleMinutes:     30,
		},
		Repository: Repository{
			Backend: "sqlite",
			Path:    "data/users.db",
		},
		Login: Login{
			BcryptCost:    10,
			MaxAttempts:   5,
			WindowMinutes: 15,
			LockMinutes:   10,
		},
	}
}

func applyEnv(c *Config) {
	if v := os.Getenv("WEBAUTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("WEBAUTH_REPO_BACKEND"); v != "" {
		c.Repository.Backend = v
	}
	if v := os.Getenv("WEBAUTH_REPO_PATH"); v != "" {
		c.Repository.Path = v
	}
}

func (c *Config) validate() error {
	switch c.Repository.Backend {
	case "sqlite", "json":
	default:
		return fmt.Errorf("unrecognized repository backend: %q", c.Repository.Backend)
	}

	if c.Repository.Path == "" {
		return fmt.Errorf("repository path is required")
	}

	if c.Session.LifetimeMinutes <= 0 {
		return fmt.Errorf("session lifetime must be positive")
	}

	return nil
}
