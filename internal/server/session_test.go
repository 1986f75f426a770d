package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/cache"
	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/snapshot"
	"github.com/annel0/savestate/internal/storage"
	"github.com/annel0/savestate/internal/world/entity"
	"github.com/annel0/savestate/internal/world/worldtest"
)

type fixture struct {
	session *Session
	store   *storage.SaveStore
	joins   *cache.MemoryCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSaveStore(t.TempDir(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	joins := cache.NewMemoryCache(0)
	t.Cleanup(func() { joins.Close() })

	st := game.NewState(worldtest.Resource(), script.NewDetachedContext())
	return &fixture{
		session: NewSession(st, snapshot.New(), store, joins),
		store:   store,
		joins:   joins,
	}
}

func TestSaveAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.session.Tick()
	}
	info, err := f.session.Save(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, "TEST01", info.MapName)
	assert.Equal(t, snapshot.ModeSave, info.Mode)

	var sessionID [16]byte
	var mobjs int
	f.session.With(func(st *game.State) {
		sessionID = st.SessionID
		mobjs = len(st.Thinkers.Mobjs())
		st.SpawnMobj(entity.MTThok, 0, 0, 0)
	})
	for i := 0; i < 3; i++ {
		f.session.Tick()
	}

	report, err := f.session.Restore(ctx, "slot1")
	require.NoError(t, err)
	assert.Zero(t, report.Unresolved)

	f.session.With(func(st *game.State) {
		assert.Equal(t, uint32(5), st.Level.Time)
		assert.Equal(t, sessionID, [16]byte(st.SessionID))
		assert.Len(t, st.Thinkers.Mobjs(), mobjs)
	})
}

func TestRestoreFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := worldtest.Resource()
	other.Name = "OTHER"
	data, err := snapshot.New().Save(game.NewState(other, script.NewDetachedContext()), snapshot.ModeSave)
	require.NoError(t, err)
	_, err = f.store.Save(ctx, "foreign", data)
	require.NoError(t, err)

	f.session.Tick()
	_, err = f.session.Restore(ctx, "foreign")
	assert.ErrorIs(t, err, snapshot.ErrMapMismatch)

	_, err = f.session.Restore(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrSlotNotFound)

	f.session.With(func(st *game.State) {
		assert.Equal(t, uint32(1), st.Level.Time)
		assert.Equal(t, "TEST01", st.Map.Name())
	})
}

func TestJoinSnapshotIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.session.JoinSnapshot(ctx, "TEST01")
	require.NoError(t, err)
	h, err := snapshot.ReadHeader(first)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ModeNetJoin, h.Mode)

	second, err := f.session.JoinSnapshot(ctx, "TEST01")
	require.NoError(t, err)
	assert.Equal(t, first, second, "второй запрос обслуживается из кеша")

	m := f.joins.GetMetrics()
	assert.Equal(t, int64(1), m.CacheHits)
	assert.Equal(t, int64(1), m.CacheMisses)

	_, err = f.session.Save(ctx, "slot1")
	require.NoError(t, err)
	_, err = f.session.Restore(ctx, "slot1")
	require.NoError(t, err)

	_, err = f.joins.Get(ctx, "TEST01")
	assert.True(t, cache.IsCacheMiss(err), "восстановление сбрасывает кеш")
}

func TestJoinSnapshotFollowsTicks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.session.JoinSnapshot(ctx, "TEST01")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		f.session.Tick()
	}
	second, err := f.session.JoinSnapshot(ctx, "TEST01")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "после тиков снимок строится заново")

	client := game.NewEmptyState(worldtest.Resource(), script.NewDetachedContext())
	_, err = snapshot.New().Load(second, client)
	require.NoError(t, err)
	f.session.With(func(st *game.State) {
		assert.Equal(t, st.Level.Time, client.Level.Time)
	})

	m := f.joins.GetMetrics()
	assert.Equal(t, int64(1), m.CacheMisses, "устаревшая запись перезаписывается, а не отдаётся")
}

func TestJoinSnapshotWrongMap(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.JoinSnapshot(context.Background(), "MAP99")
	assert.ErrorIs(t, err, ErrWrongMap)
}

func TestSessionWithoutStore(t *testing.T) {
	st := game.NewState(worldtest.Resource(), script.NewDetachedContext())
	s := NewSession(st, snapshot.New(), nil, nil)

	_, err := s.Save(context.Background(), "slot1")
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = s.Restore(context.Background(), "slot1")
	assert.ErrorIs(t, err, ErrNoStore)

	data, err := s.JoinSnapshot(context.Background(), "TEST01")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRunTicksAndAutosaves(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := f.session.Run(ctx, 100, 50*time.Millisecond, "autosave")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.session.With(func(st *game.State) {
		assert.Greater(t, st.Level.Time, uint32(0))
	})
	_, info, err := f.store.Load(context.Background(), "autosave")
	require.NoError(t, err)
	assert.Equal(t, snapshot.ModeSave, info.Mode)
}
