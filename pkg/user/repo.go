package user

import (
	"context"
	"database/sql"
	"errors"
)

type SQLRepo struct {
	DB *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{DB: db}
}

func (r *SQLRepo) Create(ctx context.Context, user *User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password) VALUES (?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.Password,
	)
	return err
}

func (r *SQLRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "SELECT id, name, email, password FROM users WHERE email = ?", email)
}

func (r *SQLRepo) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "SELECT id, name, email, password FROM users WHERE id = ?", id)
}

func (r *SQLRepo) UpdateProfile(ctx context.Context, id, name, email string) error {
	var owner string
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ? AND id <> ?", email, id).Scan(&owner)
	switch {
	case err == nil:
		return ErrExists
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}
	return r.update(ctx, "UPDATE users SET name = ?, email = ? WHERE id = ?", name, email, id)
}

func (r *SQLRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, "UPDATE users SET password = ? WHERE id = ?", hash, id)
}

func (r *SQLRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
