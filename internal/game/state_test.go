package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world/entity"
	"github.com/annel0/savestate/internal/world/worldtest"
)

func TestNewStateSpawnsMapThings(t *testing.T) {
	st := NewState(worldtest.Resource(), script.NewDetachedContext())

	// бочка, кольцо и обруч из центра и восьми сегментов; стартовая точка игрока пропускается
	mobjs := st.Thinkers.Mobjs()
	require.Len(t, mobjs, 2+1+entity.HoopSegments)
	assert.Equal(t, entity.MTBarrel, mobjs[0].Type)
	assert.Equal(t, entity.MTRing, mobjs[1].Type)
	assert.Equal(t, entity.MTHoopCenter, mobjs[2].Type)

	seen := map[uint32]bool{}
	for _, mo := range mobjs {
		assert.NotZero(t, mo.Serial)
		assert.False(t, seen[mo.Serial], "серийные номера уникальны")
		seen[mo.Serial] = true
	}
	assert.NotEqual(t, [16]byte{}, [16]byte(st.SessionID))
}

func TestTickAdvancesAndReaps(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := NewState(worldtest.Resource(), ctx)

	mo := st.SpawnMobj(entity.MTThok, 0, 0, 0)
	mo.MomX = vec.FromInt(2)
	ctx.Vars.Ensure(mo).SetField("hp", script.Int(3))

	st.Tick()
	assert.Equal(t, uint32(1), st.Level.Time)
	assert.Equal(t, vec.FromInt(2), mo.X)
	assert.Equal(t, int32(7), mo.Tics)

	st.RemoveMobj(mo)
	st.Tick()
	assert.Nil(t, st.FindMobj(mo.Serial))
	assert.Nil(t, ctx.Vars.Get(mo), "атрибуты удалённого объекта должны исчезнуть")
}

func TestFuseRemovesMobj(t *testing.T) {
	st := NewState(worldtest.Resource(), nil)
	mo := st.SpawnMobj(entity.MTRing, 0, 0, 0)
	mo.Fuse = 2

	st.Tick()
	require.NotNil(t, st.FindMobj(mo.Serial))
	st.Tick()
	assert.Nil(t, st.FindMobj(mo.Serial))
}

func TestJoinPlayer(t *testing.T) {
	st := NewState(worldtest.Resource(), nil)
	p := st.JoinPlayer(2)
	require.NotNil(t, p)
	assert.True(t, p.InGame)
	require.NotNil(t, p.Mo)
	assert.Same(t, p, p.Mo.Player)
	assert.Equal(t, uint32(1<<2), st.Players.InGameMask())
	assert.Nil(t, st.JoinPlayer(entity.MaxPlayers))
}

func TestRunScriptRoundTripsVars(t *testing.T) {
	ctx := script.NewContext()
	defer ctx.Close()
	st := NewState(worldtest.Resource(), ctx)

	p := st.JoinPlayer(0)
	ctx.Vars.Ensure(p).SetField("coins", script.Int(5))
	barrel := st.Thinkers.Mobjs()[0]

	src := fmt.Sprintf(`
extvars.players[0].coins = extvars.players[0].coins + 1
extvars.mobjs[%d] = { owner = extvars.players[0] }
extvars.mobjs[999999] = { ghost = true }
`, barrel.Serial)
	require.NoError(t, st.RunScript(src))

	pv := ctx.Vars.Get(p)
	require.NotNil(t, pv)
	assert.Equal(t, script.Int(6), pv.Field("coins"))

	bv := ctx.Vars.Get(barrel)
	require.NotNil(t, bv)
	assert.Same(t, pv, bv.Field("owner"), "алиас на таблицу игрока сохраняется")
	assert.Equal(t, 2, ctx.Vars.Len(), "запись несуществующего объекта отброшена")
}

func TestRunScriptWithoutVM(t *testing.T) {
	st := NewState(worldtest.Resource(), script.NewDetachedContext())
	assert.ErrorIs(t, st.RunScript("x = 1"), ErrNoScriptVM)
}
