package storage

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/snapshot"
	"github.com/annel0/savestate/internal/world/worldtest"
)

func setupTestStore(t *testing.T) *SaveStore {
	t.Helper()
	store, err := NewSaveStore(t.TempDir(), 3)
	require.NoError(t, err, "не удалось создать хранилище")
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot(t *testing.T, mode snapshot.Mode) (*game.State, []byte) {
	t.Helper()
	st := game.NewState(worldtest.Resource(), script.NewDetachedContext())
	st.Map.Sectors[2].LightLevel = 17
	data, err := snapshot.New().Save(st, mode)
	require.NoError(t, err)
	return st, data
}

func TestSaveAndLoadSlot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	st, data := testSnapshot(t, snapshot.ModeSave)

	info, err := store.Save(ctx, "slot1", data)
	require.NoError(t, err)
	assert.Equal(t, "TEST01", info.MapName)
	assert.Equal(t, snapshot.ModeSave, info.Mode)
	assert.Equal(t, st.SessionID, info.SessionID)
	assert.Equal(t, len(data), info.Size)

	loaded, got, err := store.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
	assert.Equal(t, info.SaveID, got.SaveID)
	assert.Equal(t, info.Checksum, got.Checksum)
	assert.True(t, info.SavedAt.Equal(got.SavedAt))

	dst := game.NewEmptyState(worldtest.Resource(), nil)
	_, err = snapshot.New().Load(loaded, dst)
	require.NoError(t, err)
	assert.Equal(t, int16(17), dst.Map.Sectors[2].LightLevel)
}

func TestSaveOverwritesSlot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_, first := testSnapshot(t, snapshot.ModeSave)
	_, second := testSnapshot(t, snapshot.ModeNetJoin)

	a, err := store.Save(ctx, "slot1", first)
	require.NoError(t, err)
	b, err := store.Save(ctx, "slot1", second)
	require.NoError(t, err)
	assert.NotEqual(t, a.SaveID, b.SaveID)

	loaded, info, err := store.Load(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
	assert.Equal(t, snapshot.ModeNetJoin, info.Mode)
}

func TestListAndDeleteSlots(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_, data := testSnapshot(t, snapshot.ModeSave)

	for _, name := range []string{"zeta", "alpha", "autosave"} {
		_, err := store.Save(ctx, name, data)
		require.NoError(t, err)
	}

	slots, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "alpha", slots[0].Name)
	assert.Equal(t, "autosave", slots[1].Name)
	assert.Equal(t, "zeta", slots[2].Name)
	assert.Equal(t, len(data), slots[0].Size)
	assert.Positive(t, slots[0].Stored)

	require.NoError(t, store.Delete(ctx, "autosave"))
	slots, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 2)

	assert.ErrorIs(t, store.Delete(ctx, "autosave"), ErrSlotNotFound)
	_, _, err = store.Load(ctx, "autosave")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestChecksumMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_, data := testSnapshot(t, snapshot.ModeSave)
	_, err := store.Save(ctx, "slot1", data)
	require.NoError(t, err)

	// подменяем сжатый снимок, оставляя заголовок слота
	_, other := testSnapshot(t, snapshot.ModeNetJoin)
	err = store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(slotPrefix + "slot1"))
		if err != nil {
			return err
		}
		record, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		headerLen := len(record) - len(store.encoder.EncodeAll(data, nil))
		record = append(record[:headerLen:headerLen], store.encoder.EncodeAll(other, nil)...)
		return txn.Set([]byte(slotPrefix+"slot1"), record)
	})
	require.NoError(t, err)

	_, _, err = store.Load(ctx, "slot1")
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestRejectsBadInput(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	_, data := testSnapshot(t, snapshot.ModeSave)

	_, err := store.Save(ctx, "", data)
	assert.ErrorIs(t, err, ErrBadSlotName)

	_, err = store.Save(ctx, "slot1", []byte("not a snapshot"))
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Save(cancelled, "slot1", data)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClosedStore(t *testing.T) {
	store, err := NewSaveStore(t.TempDir(), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.List(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}
