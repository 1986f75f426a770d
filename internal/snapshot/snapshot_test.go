package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
	"github.com/annel0/savestate/internal/world/entity"
	"github.com/annel0/savestate/internal/world/worldtest"
)

func newState() *game.State {
	return game.NewState(worldtest.Resource(), script.NewDetachedContext())
}

func save(t *testing.T, st *game.State, mode Mode) []byte {
	t.Helper()
	data, err := New().Save(st, mode)
	require.NoError(t, err)
	return data
}

// roundTrip сохраняет st и загружает снимок в пустое состояние той же карты
func roundTrip(t *testing.T, st *game.State, mode Mode) (*game.State, *Report) {
	t.Helper()
	data := save(t, st, mode)
	dst := game.NewEmptyState(st.Map.Baseline, script.NewDetachedContext())
	rep, err := New().Load(data, dst)
	require.NoError(t, err)
	return dst, rep
}

// encodeThinker кодирует одного мыслителя отдельно от снимка
func encodeThinker(st *game.State, th entity.Thinker) []byte {
	w := archive.NewWriter(0, 0)
	s := &saver{w: w, st: st, mode: ModeSave, enc: script.NewEncoder(w, objects{st: st}), report: &Report{}}
	thinkerCodecs[th.ThinkerKind()].encode(s, th)
	return w.Bytes()
}

func TestMobjFromPlacementWritesOnlyIndex(t *testing.T) {
	st := newState()
	barrel := st.Thinkers.Mobjs()[0]
	require.Equal(t, entity.MTBarrel, barrel.Type)

	data := encodeThinker(st, barrel)
	// diff + z/floorz/ceilingz + индекс расстановки + serial
	require.Len(t, data, 4+12+2+4)
	assert.Equal(t, MDSpawnPoint, binary.LittleEndian.Uint32(data))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[16:]))
	assert.Equal(t, barrel.Serial, binary.LittleEndian.Uint32(data[18:]))
}

func TestMobjWithoutPlacementWritesPositionAndType(t *testing.T) {
	st := newState()
	mo := st.SpawnMobj(entity.MTThok, 5, 6, 7)

	s := &saver{st: st}
	diff, diff2 := s.mobjDiff(mo)
	assert.Equal(t, MDPos|MDType, diff)
	assert.Zero(t, diff2)

	mo.Skin = 2
	diff, diff2 = s.mobjDiff(mo)
	assert.Equal(t, MDPos|MDType|MDMore, diff)
	assert.Equal(t, MD2Skin, diff2)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newState()
	p := st.JoinPlayer(0)
	p.Score = 1200
	p.Rings = 57
	p.Powers[3] = 99
	p.Aiming = vec.Ang45

	mobjs := st.Thinkers.Mobjs()
	barrel, ring := mobjs[0], mobjs[1]
	barrel.X += vec.FromInt(10)
	barrel.MomZ = vec.FromInt(-3)
	barrel.Health = 5
	barrel.Flags2 = 0x40
	barrel.SetState(entity.SNull)
	barrel.Tics = 3
	barrel.Color = 7
	barrel.Fuse = 30
	barrel.Scale = vec.FracUnit * 2
	barrel.Target = ring

	thok := st.SpawnMobj(entity.MTThok, 1, 2, 3)
	thok.Tracer = barrel
	thok.HNext = ring
	thok.ExtValue2 = -4

	st.Map.Sectors[5].LightLevel = 40
	st.Map.Lines[2].Args[4] = 11
	st.Level.Time = 777
	st.Level.Weather = 2
	st.Level.SkyboxView = ring
	st.Level.ItemRespawn = []game.ItemRespawn{{Thing: st.Map.Things[2], Time: 100}}

	dst, rep := roundTrip(t, st, ModeSave)
	assert.Zero(t, rep.Unresolved)
	assert.Equal(t, 1, rep.Players)

	lb := dst.FindMobj(barrel.Serial)
	lr := dst.FindMobj(ring.Serial)
	lt := dst.FindMobj(thok.Serial)
	require.NotNil(t, lb)
	require.NotNil(t, lr)
	require.NotNil(t, lt)

	assert.Equal(t, barrel.X, lb.X)
	assert.Equal(t, barrel.MomZ, lb.MomZ)
	assert.Equal(t, int32(5), lb.Health)
	assert.Equal(t, uint32(0x40), lb.Flags2)
	assert.Equal(t, entity.SNull, lb.State)
	assert.Equal(t, int32(3), lb.Tics)
	assert.Equal(t, uint16(7), lb.Color)
	assert.Equal(t, int32(30), lb.Fuse)
	assert.Equal(t, vec.FracUnit*2, lb.Scale)
	assert.Equal(t, lb.Scale, lb.DestScale)
	assert.Same(t, lr, lb.Target)
	assert.Same(t, dst.Map.Things[1], lb.SpawnPoint)

	assert.Equal(t, entity.MTThok, lt.Type)
	assert.Equal(t, thok.X, lt.X)
	assert.Same(t, lb, lt.Tracer)
	assert.Same(t, lr, lt.HNext)
	assert.Equal(t, int32(-4), lt.ExtValue2)
	assert.Equal(t, entity.DefaultLastLook, lt.LastLook)

	lp := dst.Players.Get(0)
	assert.True(t, lp.InGame)
	assert.Equal(t, uint32(1200), lp.Score)
	assert.Equal(t, int16(57), lp.Rings)
	assert.Equal(t, uint16(99), lp.Powers[3])
	assert.Equal(t, vec.Ang45, lp.Aiming)
	require.NotNil(t, lp.Mo)
	assert.Equal(t, p.Mo.Serial, lp.Mo.Serial)
	assert.Same(t, lp, lp.Mo.Player)

	assert.Equal(t, int16(40), dst.Map.Sectors[5].LightLevel)
	assert.Equal(t, int32(11), dst.Map.Lines[2].Args[4])
	assert.Equal(t, uint32(777), dst.Level.Time)
	assert.Equal(t, uint8(2), dst.Level.Weather)
	assert.Same(t, lr, dst.Level.SkyboxView)
	require.Len(t, dst.Level.ItemRespawn, 1)
	assert.Same(t, dst.Map.Things[2], dst.Level.ItemRespawn[0].Thing)
	assert.Equal(t, st.SessionID, dst.SessionID)

	// сегменты обруча получают номера после загрузки, поэтому счётчик не меньше сохранённого
	assert.GreaterOrEqual(t, dst.Thinkers.NextSerial(), st.Thinkers.NextSerial())
}

func TestEveryThinkerKindRoundTrips(t *testing.T) {
	st := newState()
	p := st.JoinPlayer(1)
	src := st.SpawnMobj(entity.MTPushPoint, 10, 20, 30)
	way := st.SpawnMobj(entity.MTWaypoint, 40, 50, 60)
	f := vec.FromInt
	m := st.Map

	specials := []entity.Thinker{
		&entity.Ceiling{Type: 3, Sector: m.Sectors[1], BottomHeight: f(1), TopHeight: f(2), Speed: f(3), OldSpeed: f(4), Delay: f(5), DelayTimer: f(6), Crush: true, Texture: 7, Direction: -1, Tag: 8, OldDirection: 1, OrigSpeed: f(9), SourceLine: m.Lines[0]},
		&entity.Ceiling{Crushing: true, Type: 1, Sector: m.Sectors[2], Speed: f(2)},
		&entity.Floor{Type: 2, Crush: true, Sector: m.Sectors[4], Direction: 1, Texture: 3, FloorDestHeight: f(64), Speed: f(1), OrigSpeed: f(1), Delay: f(2), DelayTimer: f(1), Tag: 9, SourceLine: m.Lines[3]},
		&entity.Door{Type: 1, Sector: m.Sectors[6], TopHeight: f(100), Speed: f(2), Direction: 1, TopWait: 150, TopCountdown: 35, Line: m.Lines[1]},
		&entity.LightFlash{Sector: m.Sectors[7], MaxLight: 255, MinLight: 10},
		&entity.Strobe{Sector: m.Sectors[8], Count: 4, MinLight: 20, MaxLight: 200, DarkTime: 35, BrightTime: 5},
		&entity.Glow{Sector: m.Sectors[9], MinLight: 10, MaxLight: 250, Direction: -1, Speed: 8},
		&entity.FireFlicker{Sector: m.Sectors[10], Count: 3, ResetCount: 4, MaxLight: 220, MinLight: 100},
		&entity.LightFade{Sector: m.Sectors[11], SourceLevel: 100, DestLevel: 200, FixedCurLevel: f(150), FixedPerSecond: f(5), TicBased: true, Timer: 12},
		&entity.Elevator{Type: 2, Sector: m.Sectors[12], ActionSector: m.Sectors[13], Direction: 1, FloorDestHeight: f(10), CeilingDestHeight: f(20), Speed: f(1), OrigSpeed: f(2), Low: f(3), High: f(4), Distance: f(5), Delay: f(6), DelayTimer: f(7), FloorWasHeight: f(8), CeilingWasHeight: f(9), Player: p, SourceLine: m.Lines[2]},
		&entity.ContinuousFalling{Sector: m.Sectors[14], Speed: f(4), Direction: -1, FloorStartHeight: f(1), CeilingStartHeight: f(2), DestHeight: f(-64)},
		&entity.StartCrumble{SourceLine: m.Lines[1], Sector: m.Sectors[15], ActionSector: m.Sectors[0], Player: p, Direction: -1, OrigSpeed: f(1), Timer: 20, Speed: f(2), FloorWasHeight: f(3), CeilingWasHeight: f(4), Flags: 5},
		&entity.Scroll{DX: f(1), DY: f(-1), Affectee: 6, Control: m.Sectors[3], LastHeight: f(8), VDX: f(2), VDY: f(3), Accel: true, Exclusive: true, Type: 4},
		&entity.Friction{Friction: 0xF000, MoveFactor: 0x8000, Affectee: m.Sectors[2], Referrer: m.Sectors[3], RoverFriction: true},
		&entity.Pusher{Type: 1, XMag: f(1), YMag: f(2), Magnitude: f(3), Radius: f(4), X: f(5), Y: f(6), Z: f(7), Affectee: m.Sectors[1], Referrer: m.Sectors[0], Source: src, RoverPusher: true, Slider: true},
		&entity.Executor{Line: m.Lines[0], Caller: src, Sector: m.Sectors[5], Timer: 70},
		&entity.Disappear{AppearTime: 10, DisappearTime: 20, Offset: 5, Timer: 3, Affectee: m.Lines[2], SourceLine: m.Lines[3], Exists: true},
		&entity.Fade{FFloor: m.Sectors[3].FFloors[1], SourceValue: 255, DestValue: 0, DestLightLevel: 128, Speed: 4, TicBased: true, Timer: 30, DoExists: true, DoTranslucent: true, DoCollision: true, ExactAlpha: true},
		&entity.PlaneDisplace{Affectee: m.Sectors[4], Control: m.Sectors[5], LastHeight: f(16), Speed: f(2), Type: 1},
		&entity.PolyRotate{PolyObjNum: 7, Speed: 3, Distance: 90, TurnObjs: 1},
		&entity.PolyMove{PolyObjNum: 7, Speed: 2, MomX: f(1), MomY: f(-1), Distance: 256, Angle: vec.Ang270},
		&entity.PolyWaypoint{PolyObjNum: 7, Speed: 4, Sequence: 2, PointNum: 3, Direction: 1, ReturnBehavior: 2, Continuous: true, StopSound: true, Target: way},
		&entity.PolySlideDoor{PolyObjNum: 7, Delay: 10, DelayCount: 5, InitSpeed: 2, Speed: 2, InitDistance: 64, Distance: 32, InitAngle: vec.Ang90, Angle: vec.Ang90, RevAngle: vec.Ang270, MomX: f(2), Closing: true},
		&entity.PolySwingDoor{PolyObjNum: 7, Delay: 10, DelayCount: 1, InitSpeed: 3, Speed: 3, InitDistance: 90, Distance: 45, Closing: true},
		&entity.PolyDisplace{PolyObjNum: 7, Control: m.Sectors[6], DX: f(1), DY: f(2), OldHeights: f(3)},
		&entity.PolyFade{PolyObjNum: 7, SourceValue: 10, DestValue: 0, DoCollision: true, DoGhostFade: true, TicBased: true, Duration: 35, Timer: 7},
	}
	kinds := map[entity.Kind]bool{entity.KindMobj: true}
	for _, th := range specials {
		st.AddThinker(th)
		kinds[th.ThinkerKind()] = true
	}
	require.Len(t, kinds, len(thinkerCodecs), "каждый вид мыслителя должен быть покрыт")

	dst, rep := roundTrip(t, st, ModeSave)
	assert.Zero(t, rep.Unresolved)

	var loaded []entity.Thinker
	for _, th := range dst.Thinkers.All() {
		if th.ThinkerKind() != entity.KindMobj {
			loaded = append(loaded, th)
		}
	}
	require.Len(t, loaded, len(specials))
	for i, th := range specials {
		require.Equal(t, th.ThinkerKind(), loaded[i].ThinkerKind())
		assert.Equal(t, encodeThinker(st, th), encodeThinker(dst, loaded[i]), "вид %s", th.ThinkerKind())
	}

	ceiling := loaded[0].(*entity.Ceiling)
	assert.Same(t, dst.Map.Sectors[1], ceiling.Sector)
	assert.Same(t, ceiling, dst.Map.Sectors[1].CeilingData)
	assert.True(t, loaded[1].(*entity.Ceiling).Crushing)
	assert.Same(t, dst.Players.Get(1), loaded[9].(*entity.Elevator).Player)
	assert.Same(t, dst.Map.Sectors[3].FFloors[1], loaded[17].(*entity.Fade).FFloor)
	assert.Equal(t, src.Serial, loaded[14].(*entity.Pusher).Source.Serial)
	assert.Same(t, dst.FindMobj(way.Serial), loaded[21].(*entity.PolyWaypoint).Target)
}

func TestForwardReferenceResolves(t *testing.T) {
	st := newState()
	a := st.SpawnMobj(entity.MTBlueCrawla, 0, 0, 0)
	b := st.SpawnMobj(entity.MTBlueCrawla, 64, 0, 0)
	a.Target = b
	b.Tracer = a

	dst, rep := roundTrip(t, st, ModeSave)
	assert.Zero(t, rep.Unresolved)
	la, lb := dst.FindMobj(a.Serial), dst.FindMobj(b.Serial)
	require.NotNil(t, la)
	require.NotNil(t, lb)
	assert.Same(t, lb, la.Target)
	assert.Same(t, la, lb.Tracer)
}

func TestUnresolvedReferenceIsNulled(t *testing.T) {
	st := newState()
	ghost := entity.NewMobj(entity.MTPushPoint, 0, 0, 0)
	ghost.Serial = 9999
	st.AddThinker(&entity.Pusher{Source: ghost})

	dst, rep := roundTrip(t, st, ModeSave)
	assert.Equal(t, 1, rep.Unresolved)
	var pusher *entity.Pusher
	for _, th := range dst.Thinkers.All() {
		if p, ok := th.(*entity.Pusher); ok {
			pusher = p
		}
	}
	require.NotNil(t, pusher)
	assert.Nil(t, pusher.Source)
}

func TestSkipListAndHoops(t *testing.T) {
	st := newState()
	var center *entity.Mobj
	for _, mo := range st.Thinkers.Mobjs() {
		if mo.Type == entity.MTHoopCenter {
			center = mo
		}
	}
	require.NotNil(t, center)
	dying := st.SpawnMobj(entity.MTRing, 0, 0, 0)
	dying.Removing = true

	dst, _ := roundTrip(t, st, ModeSave)
	assert.Nil(t, dst.FindMobj(dying.Serial), "удаляемый объект не пишется")

	lc := dst.FindMobj(center.Serial)
	require.NotNil(t, lc)
	assert.Equal(t, entity.MTHoopCenter, lc.Type)
	segments := 0
	for mo := lc.HNext; mo != nil; mo = mo.HNext {
		segments++
		assert.NotZero(t, mo.Serial, "сегменты получают номера после загрузки")
	}
	assert.Equal(t, entity.HoopSegments, segments)
	assert.Len(t, dst.Thinkers.Mobjs(), len(st.Thinkers.Mobjs())-1)

	center.Threshold = entity.HoopCollectedThreshold
	dst, _ = roundTrip(t, st, ModeSave)
	for _, mo := range dst.Thinkers.Mobjs() {
		assert.NotEqual(t, entity.MTHoopCenter, mo.Type, "собранный обруч не восстанавливается")
		assert.NotEqual(t, entity.MTHoop, mo.Type)
	}
}

func TestTableInterningAcrossSnapshot(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	mobjs := st.Thinkers.Mobjs()
	a, b := mobjs[0], mobjs[1]

	shared := script.NewTable()
	shared.SetField("hp", script.Int(10))
	shared.SetField("self", shared)
	ctx.Vars.Ensure(a).SetField("inv", shared)
	ctx.Vars.Ensure(b).SetField("inv", shared)
	ctx.Vars.Ensure(b).SetField("friend", script.Ref{Of: script.KindMobj, Obj: a})
	ctx.Vars.Ensure(b).SetField("home", script.Ref{Of: script.KindSector, Obj: st.Map.Sectors[3]})

	dst, rep := roundTrip(t, st, ModeSave)
	assert.Equal(t, 1, rep.Tables, "общая таблица пишется один раз")
	assert.Equal(t, 2, rep.MobjVars)

	la, lb := dst.FindMobj(a.Serial), dst.FindMobj(b.Serial)
	va, vb := dst.Script.Vars.Get(la), dst.Script.Vars.Get(lb)
	require.NotNil(t, va)
	require.NotNil(t, vb)

	invA, ok := va.Field("inv").(*script.Table)
	require.True(t, ok)
	assert.Same(t, invA, vb.Field("inv"))
	assert.Same(t, invA, invA.Field("self"))

	invA.SetField("hp", script.Int(3))
	assert.Equal(t, script.Int(3), vb.Field("inv").(*script.Table).Field("hp"), "мутация видна через второй алиас")

	assert.Equal(t, script.Ref{Of: script.KindMobj, Obj: la}, vb.Field("friend"))
	assert.Equal(t, script.Ref{Of: script.KindSector, Obj: dst.Map.Sectors[3]}, vb.Field("home"))
}

func TestEmbeddedZeroStringVar(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	raw := "a\x00b\x00\x00c"
	ctx.Vars.Ensure(st.Players.Get(0)).SetField("blob", script.String(raw))

	dst, _ := roundTrip(t, st, ModeSave)
	v := dst.Script.Vars.Get(dst.Players.Get(0))
	require.NotNil(t, v)
	assert.Equal(t, script.String(raw), v.Field("blob"))
	assert.Len(t, string(v.Field("blob").(script.String)), len(raw))
}

func TestDemoLeniencySkipsActorRefs(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	vars := ctx.Vars.Ensure(st.Players.Get(0))
	vars.SetField("buddy", script.Ref{Of: script.KindMobj, Obj: st.Thinkers.Mobjs()[0]})
	vars.SetField("coins", script.Int(5))
	vars.SetField("name", script.String("sonic"))
	st.Map.Sectors[12].LightLevel = 255

	data := save(t, st, ModeDemo)
	dst := game.NewState(worldtest.Resource(), script.NewDetachedContext())
	rep, err := New().Load(data, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Skipped)

	v := dst.Script.Vars.Get(dst.Players.Get(0))
	require.NotNil(t, v)
	assert.Nil(t, v.Field("buddy"), "небезопасная ссылка остаётся незаданной")
	assert.Equal(t, script.Int(5), v.Field("coins"))
	assert.Equal(t, script.String("sonic"), v.Field("name"))
	assert.Equal(t, int16(255), dst.Map.Sectors[12].LightLevel)
	assert.Len(t, dst.Thinkers.Mobjs(), len(st.Thinkers.Mobjs()), "мыслители остаются порождёнными картой")
}

func TestStrictRejectsEndMarkerInValue(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	ctx.Vars.Ensure(st.Players.Get(0)).SetField("a", script.Int(1))

	data := save(t, st, ModeSave)
	// count=1, name "a", тег Int
	at := bytes.Index(data, []byte{1, 0, 1, 0, 'a', byte(script.KindInt)})
	require.Positive(t, at)
	data[at+5] = byte(script.KindEnd)

	_, err := New().Load(data, game.NewEmptyState(st.Map.Baseline, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, script.ErrUnexpectedEnd)
}

func TestCorruptMagicIsFatal(t *testing.T) {
	st := newState()
	st.Script.Vars.Ensure(st.Thinkers.Mobjs()[0]).SetField("x", script.Int(1))
	data := save(t, st, ModeSave)

	magics := map[string]uint32{
		sectionMisc:     MagicMisc,
		sectionPlayers:  MagicPlayers,
		sectionMobjVars: MagicMobjVars,
		sectionTables:   MagicTables,
		sectionWorld:    MagicWorld,
		sectionThinkers: MagicThinkers,
		sectionSpecials: MagicSpecials,
	}
	for section, magic := range magics {
		t.Run(section, func(t *testing.T) {
			var le [4]byte
			binary.LittleEndian.PutUint32(le[:], magic)
			at := bytes.Index(data, le[:])
			require.GreaterOrEqual(t, at, 0)

			bad := append([]byte(nil), data...)
			bad[at] ^= 0xFF
			_, err := New().Load(bad, game.NewEmptyState(st.Map.Baseline, nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.ErrorIs(t, err, ErrBadMagic)

			var ce *CorruptError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, section, ce.Section)
		})
	}
}

func TestTruncatedSnapshotIsCorrupt(t *testing.T) {
	data := save(t, newState(), ModeSave)
	_, err := New().Load(data[:len(data)-3], game.NewEmptyState(worldtest.Resource(), nil))
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, archive.ErrTruncated)
}

func TestUnknownThinkerKindIsCorrupt(t *testing.T) {
	st := newState()
	data := save(t, st, ModeSave)
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], MagicThinkers)
	at := bytes.Index(data, le[:])
	require.Positive(t, at)
	data[at+4] = 0x7E

	_, err := New().Load(data, game.NewEmptyState(st.Map.Baseline, nil))
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, ErrUnknownThinker)
}

func TestHeaderChecks(t *testing.T) {
	st := newState()
	data := save(t, st, ModeNetJoin)

	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, h.Version)
	assert.Equal(t, ModeNetJoin, h.Mode)
	assert.Equal(t, "TEST01", h.MapName)
	assert.Equal(t, st.SessionID, h.SessionID)
	assert.Equal(t, st.Thinkers.NextSerial(), h.NextSerial)

	old := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(old[4:], FormatVersion-1)
	_, err = New().Load(old, game.NewEmptyState(st.Map.Baseline, nil))
	assert.ErrorIs(t, err, ErrVersion)
	assert.ErrorIs(t, err, ErrCorrupt)

	other := worldtest.Resource()
	other.Name = "OTHER"
	_, err = New().Load(data, game.NewEmptyState(other, nil))
	assert.ErrorIs(t, err, ErrMapMismatch)
}

func TestNetFieldsOnlyInJoinMode(t *testing.T) {
	st := newState()
	p := st.JoinPlayer(4)
	p.JoinTime = 120
	p.Cmd = entity.TicCmd{ForwardMove: 50, SideMove: -20, AngleTurn: 300, Buttons: 0x3}

	dst, _ := roundTrip(t, st, ModeNetJoin)
	lp := dst.Players.Get(4)
	assert.Equal(t, uint32(120), lp.JoinTime)
	assert.Equal(t, p.Cmd, lp.Cmd)

	dst, _ = roundTrip(t, st, ModeSave)
	lp = dst.Players.Get(4)
	assert.True(t, lp.InGame)
	assert.Zero(t, lp.JoinTime)
	assert.Equal(t, entity.TicCmd{}, lp.Cmd)
}

func TestCapacityExceeded(t *testing.T) {
	st := newState()
	_, err := New(WithBufferSize(16, 64)).Save(st, ModeSave)
	require.Error(t, err)
	assert.ErrorIs(t, err, archive.ErrCapacityExceeded)
}

type recordingObserver struct {
	saves, loads int
	lastSave     *Report
	lastErr      error
}

func (o *recordingObserver) ObserveSave(rep *Report, _ error) {
	o.saves++
	o.lastSave = rep
}

func (o *recordingObserver) ObserveLoad(_ *Report, err error) {
	o.loads++
	o.lastErr = err
}

func TestObserverSeesOperations(t *testing.T) {
	obs := &recordingObserver{}
	a := New(WithObserver(obs))
	st := newState()
	data, err := a.Save(st, ModeSave)
	require.NoError(t, err)
	_, err = a.Load(data[:10], game.NewEmptyState(st.Map.Baseline, nil))
	require.Error(t, err)

	assert.Equal(t, 1, obs.saves)
	assert.Equal(t, 1, obs.loads)
	assert.ErrorIs(t, obs.lastErr, ErrCorrupt)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "save", ModeSave.String())
	assert.Equal(t, "netjoin", ModeNetJoin.String())
	assert.Equal(t, "demo", ModeDemo.String())
	assert.Equal(t, "thinkers|netfields", (Thinkers | NetFields).String())
	m, ok := ParseMode("join")
	assert.True(t, ok)
	assert.Equal(t, ModeNetJoin, m)
}

func TestTableKeyOnVanishedMobjIsDropped(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	var segment *entity.Mobj
	for _, mo := range st.Thinkers.Mobjs() {
		if mo.Type == entity.MTHoop {
			segment = mo
		}
	}
	require.NotNil(t, segment)
	dying := st.SpawnMobj(entity.MTRing, 0, 0, 0)
	dying.Removing = true
	barrel := st.Thinkers.Mobjs()[0]

	seen := script.NewTable()
	seen.Set(script.Ref{Of: script.KindMobj, Obj: dying}, script.Int(1))
	seen.Set(script.Ref{Of: script.KindMobj, Obj: barrel}, script.Int(2))
	seen.Set(script.String("hoop"), script.Ref{Of: script.KindMobj, Obj: segment})
	ctx.Vars.Ensure(st.Players.Get(0)).SetField("seen", seen)

	data, err := New().Save(st, ModeSave)
	require.NoError(t, err)

	dst := game.NewEmptyState(st.Map.Baseline, script.NewDetachedContext())
	rep, err := New().Load(data, dst)
	require.NoError(t, err, "ключ на удаляемый объект не ломает загрузку")

	v := dst.Script.Vars.Get(dst.Players.Get(0))
	require.NotNil(t, v)
	tbl, ok := v.Field("seen").(*script.Table)
	require.True(t, ok)
	assert.Equal(t, 1, tbl.Len())
	got, ok := tbl.Get(script.Ref{Of: script.KindMobj, Obj: dst.FindMobj(barrel.Serial)})
	require.True(t, ok)
	assert.Equal(t, script.Int(2), got)
	assert.Nil(t, tbl.Field("hoop"), "сегмент обруча пишется как null")
	assert.Zero(t, rep.DroppedKeys)
}

func TestSaveReportsDroppedKeys(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	dying := st.SpawnMobj(entity.MTRing, 0, 0, 0)
	dying.Removing = true
	seen := script.NewTable()
	seen.Set(script.Ref{Of: script.KindMobj, Obj: dying}, script.Int(1))
	ctx.Vars.Ensure(st.Players.Get(0)).SetField("seen", seen)

	obs := &recordingObserver{}
	_, err := New(WithObserver(obs)).Save(st, ModeSave)
	require.NoError(t, err)
	require.NotNil(t, obs.lastSave)
	assert.Equal(t, 1, obs.lastSave.DroppedKeys)
}

func TestTypedNilSectorRefIsWrittenAsNull(t *testing.T) {
	ctx := script.NewDetachedContext()
	st := game.NewState(worldtest.Resource(), ctx)
	vars := ctx.Vars.Ensure(st.Players.Get(0))
	vars.SetField("home", script.Ref{Of: script.KindSector, Obj: (*world.Sector)(nil)})
	vars.SetField("owner", script.Ref{Of: script.KindPlayer, Obj: (*entity.Player)(nil)})
	vars.SetField("coins", script.Int(3))

	var data []byte
	require.NotPanics(t, func() { data = save(t, st, ModeSave) })

	dst := game.NewEmptyState(st.Map.Baseline, script.NewDetachedContext())
	_, err := New().Load(data, dst)
	require.NoError(t, err)
	v := dst.Script.Vars.Get(dst.Players.Get(0))
	require.NotNil(t, v)
	assert.Nil(t, v.Field("home"))
	assert.Nil(t, v.Field("owner"))
	assert.Equal(t, script.Int(3), v.Field("coins"))
}

func TestDemoLoadKeepsLiveMoverLinks(t *testing.T) {
	st := newState()
	sec := st.Map.Sectors[4]
	floor := &entity.Floor{Sector: sec, Direction: 1, Speed: vec.FracUnit}
	sec.FloorData = floor
	st.AddThinker(floor)
	data := save(t, st, ModeDemo)

	_, err := New().Load(data, st)
	require.NoError(t, err)
	assert.Same(t, floor, st.Map.Sectors[4].FloorData, "без мыслителей связь сектора с живым движителем сохраняется")
}
