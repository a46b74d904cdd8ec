package user_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pixshare/pkg/user"
)

func exerciseSessions(t *testing.T, s user.Sessions) {
	ctx := context.Background()

	ok, err := s.IsValid(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Create(ctx, "u1", "sess1", time.Hour))
	ok, err = s.IsValid(ctx, "sess1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Invalidate(ctx, "sess1"))
	require.NoError(t, s.Invalidate(ctx, "sess1"))
	ok, err = s.IsValid(ctx, "sess1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLSessions(t *testing.T) {
	s := user.NewSQLSessions(setupTestDB(t))
	exerciseSessions(t, s)

	t.Run("expiry", func(t *testing.T) {
		now := time.Now()
		s.Now = func() time.Time { return now }
		require.NoError(t, s.Create(context.Background(), "u1", "short", time.Minute))

		s.Now = func() time.Time { return now.Add(2 * time.Minute) }
		ok, err := s.IsValid(context.Background(), "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRedisSessions(t *testing.T) {
	url := os.Getenv("PIXSHARE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PIXSHARE_TEST_REDIS_URL not set")
	}
	s, err := user.NewRedisSessions(url)
	require.NoError(t, err)
	s.Prefix = "pixshare:test:" + t.Name() + ":"
	t.Cleanup(func() { s.Client.Close() })

	exerciseSessions(t, s)
}

func TestNewRedisSessions_BadURL(t *testing.T) {
	_, err := user.NewRedisSessions("://nope")
	assert.Error(t, err)
}
