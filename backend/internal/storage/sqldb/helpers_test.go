package sqldb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/domain"
)

// testClock hands out strictly increasing timestamps so ordering by created_at is stable.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newSqliteStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{Private: config.Private{Database: config.Database{
		Driver:     config.DriverSqlite,
		SqlitePath: ":memory:",
	}}}
	s, err := New(ctx, cfg, WithClock(newTestClock().Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Cleanup() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(sqlx.NewDb(db, "postgres")), mock
}

func mustUser(t *testing.T, s *Storage, username string) domain.User {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), domain.UserProfileData{
		Id:       "user-" + username,
		Username: username,
		Name:     username,
	})
	require.NoError(t, err)
	return u
}

func mustCommunity(t *testing.T, s *Storage, slug string) domain.Community {
	t.Helper()
	c, err := s.CreateCommunity(context.Background(), domain.CommunityCreationData{
		Slug:      slug,
		Name:      slug,
		CreatedBy: "creator",
	})
	require.NoError(t, err)
	return c
}

func mustConvo(t *testing.T, s *Storage, data domain.ConvoCreationData) domain.Convo {
	t.Helper()
	c, err := s.CreateConvo(context.Background(), data)
	require.NoError(t, err)
	return c
}
