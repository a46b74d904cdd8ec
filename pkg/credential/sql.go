package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultPollInterval = time.Second

	schemaKV = `
	CREATE TABLE IF NOT EXISTS kv (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
)

// SQLBackend stores values in the profile database. Other processes using the
// same database are picked up by polling; writes made through this backend
// notify watchers immediately.
type SQLBackend struct {
	DB       *sql.DB
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	watchers map[int]func(string)
	next     int
	snapshot map[string]string
	stop     chan struct{}
	done     chan struct{}
}

var _ Backend = (*SQLBackend)(nil)

// NewSQLBackend creates the kv table when missing. interval <= 0 selects
// DefaultPollInterval.
func NewSQLBackend(db *sql.DB, interval time.Duration, logger *slog.Logger) (*SQLBackend, error) {
	if _, err := db.Exec(schemaKV); err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLBackend{
		DB:       db,
		interval: interval,
		logger:   logger,
		watchers: make(map[int]func(string)),
	}, nil
}

func (b *SQLBackend) Load(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := b.DB.QueryRowContext(ctx, "SELECT value FROM kv WHERE name = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (b *SQLBackend) Save(ctx context.Context, key, value string) error {
	_, err := b.DB.ExecContext(ctx, `
		INSERT INTO kv (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return err
	}
	b.record(key, value, true)
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.DB.ExecContext(ctx, "DELETE FROM kv WHERE name = ?", key); err != nil {
		return err
	}
	b.record(key, "", false)
	return nil
}

func (b *SQLBackend) Watch(fn func(key string)) (stop func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.watchers[id] = fn
	if b.stop == nil {
		b.startPolling()
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers, id)
			last := len(b.watchers) == 0
			b.mu.Unlock()
			if last {
				b.Close()
			}
		})
	}
}

// Close stops polling. Watchers registered later restart it.
func (b *SQLBackend) Close() {
	b.mu.Lock()
	stop, done := b.stop, b.done
	b.stop, b.done = nil, nil
	b.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// startPolling must be called with b.mu held.
func (b *SQLBackend) startPolling() {
	snap, err := b.readAll(context.Background())
	if err != nil {
		b.logger.Warn("kv snapshot", "error", err)
		snap = make(map[string]string)
	}
	b.snapshot = snap
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.poll(b.stop, b.done)
}

func (b *SQLBackend) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.refresh()
		}
	}
}

func (b *SQLBackend) refresh() {
	current, err := b.readAll(context.Background())
	if err != nil {
		b.logger.Warn("kv poll", "error", err)
		return
	}

	b.mu.Lock()
	var changed []string
	for k, v := range current {
		if old, ok := b.snapshot[k]; !ok || old != v {
			changed = append(changed, k)
		}
	}
	for k := range b.snapshot {
		if _, ok := current[k]; !ok {
			changed = append(changed, k)
		}
	}
	b.snapshot = current
	b.mu.Unlock()

	for _, k := range changed {
		b.notify(k)
	}
}

func (b *SQLBackend) readAll(ctx context.Context) (map[string]string, error) {
	rows, err := b.DB.QueryContext(ctx, "SELECT name, value FROM kv")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (b *SQLBackend) record(key, value string, present bool) {
	b.mu.Lock()
	if b.snapshot != nil {
		if present {
			b.snapshot[key] = value
		} else {
			delete(b.snapshot, key)
		}
	}
	b.mu.Unlock()
	b.notify(key)
}

func (b *SQLBackend) notify(key string) {
	b.mu.Lock()
	fns := make([]func(string), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}
