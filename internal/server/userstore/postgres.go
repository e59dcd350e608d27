package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               BIGSERIAL PRIMARY KEY,
	username         TEXT NOT NULL UNIQUE,
	password_hash    TEXT NOT NULL,
	password_expired BOOLEAN NOT NULL DEFAULT FALSE
)`

// Postgres is the durable user store.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to dsn and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure users schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection; used by tests.
func NewPostgresFromDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) GetByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := p.db.GetContext(ctx, &u,
		`SELECT id, username, password_hash, password_expired FROM users WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *Postgres) Create(ctx context.Context, username, password string, expired bool) (User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	var id int64
	err = p.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, password_expired) VALUES ($1, $2, $3) RETURNING id`,
		username, hash, expired).Scan(&id)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return User{ID: id, Username: username, PasswordHash: hash, PasswordExpired: expired}, nil
}

func (p *Postgres) SetPassword(ctx context.Context, username, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	res, err := p.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, password_expired = FALSE WHERE username = $2`, hash, username)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
