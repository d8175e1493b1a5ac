package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghaggin/webauth/internal/model"
	"github.com/google/uuid"
	"go.uber.org/fx"

	_ "modernc.org/sqlite"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	public_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

type sqliteRepo struct {
	db *sql.DB
}

func NewSQLite(p Params) (Repository, error) {
	db, err := openSqlite(p.Config.Repository.Path)
	if err != nil {
		return nil, err
	}

	r := &sqliteRepo{db: db}
	if err := r.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	p.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return db.Close()
		},
	})

	return r, nil
}

func openSqlite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// single writer, sqlite handles the rest
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

func (r *sqliteRepo) init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *sqliteRepo) AddUser(ctx context.Context, user *model.User) error {
	if user.PublicID == "" {
		user.PublicID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (public_id, name, password_hash, email, created_at)
VALUES (?, ?, ?, ?, ?)`,
		user.PublicID,
		user.Name,
		user.PasswordHash,
		user.Email,
		user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id

	return nil
}

func (r *sqliteRepo) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, public_id, name, password_hash, email, created_at
FROM users
WHERE name = ?`,
		name,
	)
	return scanUser(row)
}

func (r *sqliteRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, public_id, name, password_hash, email, created_at
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *sqliteRepo) GetUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, public_id, name, password_hash, email, created_at
FROM users
ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.PublicID, &u.Name, &u.PasswordHash, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.PublicID, &u.Name, &u.PasswordHash, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
