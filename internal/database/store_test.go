package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/database/databasetest"
)

func TestDocumentLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := databasetest.NewStore(t)

	var g database.Group
	found, err := s.Get(ctx, database.GroupPath("g1"), &g)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, database.GroupPath("g1"), database.Group{Option: database.GroupOption{AntiLink: true}}))
	require.NoError(t, s.Update(ctx, database.GroupPath("g1"), map[string]any{
		"option": map[string]any{"autokick": true},
		"mute":   "all",
	}))

	g, err = s.Group(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, g.Option.AntiLink, "merge keeps untouched keys")
	assert.True(t, g.Option.AutoKick)
	assert.Equal(t, "all", g.Mute)

	require.NoError(t, s.Update(ctx, database.GroupPath("g1"), map[string]any{"mute": nil}))
	g, err = s.Group(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, g.Mute, "nil removes the key")

	require.NoError(t, s.Update(ctx, database.GroupPath("g2"), map[string]any{"mute": "owner"}))
	paths, err := s.List(ctx, database.GroupPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"group.g1", "group.g2"}, paths)

	require.NoError(t, s.Delete(ctx, database.GroupPath("g1")))
	paths, err = s.List(ctx, database.GroupPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"group.g2"}, paths)
}

func TestEnsureUserAndCoin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := databasetest.NewStore(t)

	u, err := s.EnsureUser(ctx, "u1", database.User{Coin: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(500), u.Coin)

	u, err = s.EnsureUser(ctx, "u1", database.User{Coin: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(500), u.Coin, "existing user keeps its balance")

	bal, err := s.ChargeCoin(ctx, "u1", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal)

	_, err = s.ChargeCoin(ctx, "u1", 301)
	require.ErrorIs(t, err, database.ErrInsufficientCoin)

	bal, err = s.AddCoin(ctx, "u1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(350), bal)
}

func TestChargeCoinConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := databasetest.NewStore(t)

	_, err := s.EnsureUser(ctx, "u1", database.User{Coin: 10})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	charged := 0
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ChargeCoin(ctx, "u1", 1); err == nil {
				mu.Lock()
				charged++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, charged)
}

func TestWarnings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := databasetest.NewStore(t)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementWarning(ctx, "g1", "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Warnings(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	require.NoError(t, s.ResetWarnings(ctx, "g1", "u1"))
	n, err = s.Warnings(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExpirePremium(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := databasetest.NewStore(t)
	now := time.Now()

	require.NoError(t, s.Set(ctx, database.UserPath("expired"), database.User{Premium: true, PremiumExpiration: now.Add(-time.Hour).UnixMilli()}))
	require.NoError(t, s.Set(ctx, database.UserPath("active"), database.User{Premium: true, PremiumExpiration: now.Add(time.Hour).UnixMilli()}))
	require.NoError(t, s.Set(ctx, database.UserPath("forever"), database.User{Premium: true}))

	n, err := s.ExpirePremium(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for id, want := range map[string]bool{"expired": false, "active": true, "forever": true} {
		var u database.User
		_, err := s.Get(ctx, database.UserPath(id), &u)
		require.NoError(t, err)
		assert.Equal(t, want, u.Premium, id)
	}
}

func TestAuditLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := databasetest.NewStore(t)

	for _, cmd := range []string{"uptime", "db"} {
		require.NoError(t, s.SaveAudit(ctx, &database.AuditEntry{ActorID: "owner", ChatID: "c", Command: "diag", Args: cmd, Outcome: "ok"}))
	}
	entries, err := s.RecentAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "db", entries[0].Args)
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()
	s := databasetest.NewStore(t)
	require.NoError(t, s.RunSQLMaintenance(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}
