package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type SQLSessions struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewSQLSessions(db *sql.DB) *SQLSessions {
	return &SQLSessions{DB: db, Now: time.Now}
}

func (r *SQLSessions) Create(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	now := r.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, userID, now, now.Add(ttl))
	return err
}

func (r *SQLSessions) IsValid(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE id = ? AND expires_at > ?
		)
	`, sessionID, r.Now().UTC()).Scan(&exists)
	return exists, err
}

// Invalidate is idempotent: an unknown or already revoked session is fine.
func (r *SQLSessions) Invalidate(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

// RedisSessions keeps one key per live session and lets Redis expire it.
type RedisSessions struct {
	Client *redis.Client
	Prefix string
}

func NewRedisSessions(url string) (*RedisSessions, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisSessions{Client: redis.NewClient(opts), Prefix: "pixshare:session:"}, nil
}

func (r *RedisSessions) Create(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	return r.Client.Set(ctx, r.Prefix+sessionID, userID, ttl).Err()
}

func (r *RedisSessions) IsValid(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.Prefix+sessionID).Result()
	return n == 1, err
}

func (r *RedisSessions) Invalidate(ctx context.Context, sessionID string) error {
	return r.Client.Del(ctx, r.Prefix+sessionID).Err()
}
