package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
)

func TestListAssignsSerials(t *testing.T) {
	l := NewList()
	a := NewMobj(MTRing, 0, 0, 0)
	b := NewMobj(MTRing, 0, 0, 0)
	l.Add(a)
	l.Add(&Glow{})
	l.Add(b)

	assert.Equal(t, uint32(1), a.Serial)
	assert.Equal(t, uint32(2), b.Serial)
	assert.Equal(t, 3, l.Len())
	assert.Len(t, l.Mobjs(), 2)

	assert.True(t, l.Remove(a))
	assert.False(t, l.Remove(a))
	assert.Equal(t, 2, l.Len())
}

func TestAssignMissingSerialsSkipsTaken(t *testing.T) {
	l := NewList()
	loaded := NewMobj(MTBarrel, 0, 0, 0)
	loaded.Serial = 40
	spawned := NewMobj(MTHoop, 0, 0, 0)

	l.AddLoaded(loaded)
	l.AddLoaded(spawned)
	l.SetNextSerial(10)
	l.AssignMissingSerials()

	assert.Equal(t, uint32(41), spawned.Serial, "номер выдаётся выше занятых")
	assert.Equal(t, uint32(42), l.NextSerial())
}

func TestNewMobjUsesTemplate(t *testing.T) {
	mo := NewMobj(MTBlueCrawla, vec.FromInt(1), vec.FromInt(2), vec.FromInt(3))
	info := MobjInfos[MTBlueCrawla]

	assert.Equal(t, info.Radius, mo.Radius)
	assert.Equal(t, info.SpawnHealth, mo.Health)
	assert.Equal(t, info.SpawnState, mo.State)
	assert.Equal(t, States[info.SpawnState].Tics, mo.Tics)
	assert.Equal(t, DefaultLastLook, mo.LastLook)
	assert.Equal(t, OrigFriction, mo.Friction)
	assert.Equal(t, DefaultScale, mo.DestScale)
}

func TestSpawnFromThing(t *testing.T) {
	mt := &world.MapThing{X: 10, Y: -20, Angle: 90, Type: 300}
	mo, ok := SpawnFromThing(mt)
	require.True(t, ok)
	assert.Equal(t, MTRing, mo.Type)
	assert.Equal(t, vec.FromInt(-20), mo.Y)
	assert.Equal(t, vec.Ang90, mo.Angle)
	assert.Same(t, mt, mo.SpawnPoint)

	_, ok = SpawnFromThing(&world.MapThing{Type: 1})
	assert.False(t, ok, "стартовая точка игрока не порождает объект")
}

func TestSpawnHoopChain(t *testing.T) {
	mt := &world.MapThing{Type: HoopDoomedNum}
	mobjs := SpawnHoop(mt)
	require.Len(t, mobjs, HoopSegments+1)

	center := mobjs[0]
	assert.Equal(t, MTHoopCenter, center.Type)
	n := 0
	for seg := center.HNext; seg != nil; seg = seg.HNext {
		assert.Same(t, center, seg.Target)
		assert.NotNil(t, seg.HPrev)
		n++
	}
	assert.Equal(t, HoopSegments, n)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "mobj", KindMobj.String())
	assert.Equal(t, "polyfade", KindPolyFade.String())
	assert.Equal(t, "end", KindEnd.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.Equal(t, KindCrushCeiling, (&Ceiling{Crushing: true}).ThinkerKind())
}

func TestPlayersMask(t *testing.T) {
	ps := NewPlayers()
	ps[0].InGame = true
	ps[5].InGame = true
	assert.Equal(t, uint32(0x21), ps.InGameMask())
	assert.Nil(t, ps.Get(MaxPlayers))
}
