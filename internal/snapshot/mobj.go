package snapshot

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world/entity"
)

// Биты основной маски отличий mobj от шаблона
const (
	MDSpawnPoint  uint32 = 1 << 0
	MDPos         uint32 = 1 << 1
	MDType        uint32 = 1 << 2
	MDMom         uint32 = 1 << 3
	MDMomZ        uint32 = 1 << 4
	MDRadius      uint32 = 1 << 5
	MDHeight      uint32 = 1 << 6
	MDFlags       uint32 = 1 << 7
	MDFlags2      uint32 = 1 << 8
	MDHealth      uint32 = 1 << 9
	MDRTime       uint32 = 1 << 10
	MDState       uint32 = 1 << 11
	MDTics        uint32 = 1 << 12
	MDSprite      uint32 = 1 << 13
	MDFrame       uint32 = 1 << 14
	MDEFlags      uint32 = 1 << 15
	MDPlayer      uint32 = 1 << 16
	MDMoveDir     uint32 = 1 << 17
	MDMoveCount   uint32 = 1 << 18
	MDThreshold   uint32 = 1 << 19
	MDLastLook    uint32 = 1 << 20
	MDTarget      uint32 = 1 << 21
	MDTracer      uint32 = 1 << 22
	MDFriction    uint32 = 1 << 23
	MDMoveFactor  uint32 = 1 << 24
	MDFuse        uint32 = 1 << 25
	MDWaterTop    uint32 = 1 << 26
	MDWaterBottom uint32 = 1 << 27
	MDScale       uint32 = 1 << 28
	MDDestScale   uint32 = 1 << 29
	MDMore        uint32 = 1 << 31
)

// Биты дополнительной маски
const (
	MD2CusVal     uint32 = 1 << 0
	MD2CVMem      uint32 = 1 << 1
	MD2Skin       uint32 = 1 << 2
	MD2Color      uint32 = 1 << 3
	MD2ScaleSpeed uint32 = 1 << 4
	MD2ExtVal1    uint32 = 1 << 5
	MD2ExtVal2    uint32 = 1 << 6
	MD2HNext      uint32 = 1 << 7
	MD2HPrev      uint32 = 1 << 8
)

// mobjRule особое правило архивации типа mobj
type mobjRule uint8

const (
	ruleDefault mobjRule = iota
	// ruleSkip объект целиком восстанавливается из записи расстановки
	ruleSkip
	// ruleHoopMarker пишется только маркер: индекс расстановки и серийный номер
	ruleHoopMarker
)

// mobjSkipList явный список типов, которые общий кодировщик mobj не пишет.
// Сегменты обруча порождаются заново вместе с центром; собранный обруч
// (порог HoopCollectedThreshold) не пишется вовсе.
var mobjSkipList = map[entity.MobjType]mobjRule{
	entity.MTHoop:        ruleSkip,
	entity.MTHoopCollide: ruleSkip,
	entity.MTHoopCenter:  ruleHoopMarker,
}

// archivable сообщает, попадёт ли объект в список мыслителей снимка
func archivable(mo *entity.Mobj) bool {
	if mo == nil || mo.Removing {
		return false
	}
	switch mobjSkipList[mo.Type] {
	case ruleSkip:
		return false
	case ruleHoopMarker:
		return mo.Threshold != entity.HoopCollectedThreshold
	}
	return true
}

// hoopMarker сообщает, пишется ли объект минимальным маркером
func (s *saver) hoopMarker(mo *entity.Mobj) bool {
	return mobjSkipList[mo.Type] == ruleHoopMarker && s.thingIndex(mo) >= 0
}

// thingIndex возвращает индекс записи расстановки объекта или -1
func (s *saver) thingIndex(mo *entity.Mobj) int {
	mt := mo.SpawnPoint
	if mt == nil || s.st.Map.Thing(mt.Index) != mt {
		return -1
	}
	return mt.Index
}

// mobjDiff вычисляет маски отличий от шаблона типа и записи расстановки
func (s *saver) mobjDiff(mo *entity.Mobj) (diff, diff2 uint32) {
	info := mo.Info()

	if s.thingIndex(mo) >= 0 {
		diff |= MDSpawnPoint
		x, y, _, angle := entity.ThingPosition(mo.SpawnPoint)
		if mo.X != x || mo.Y != y || mo.Angle != angle {
			diff |= MDPos
		}
		if t, ok := entity.TypeForDoomedNum(mo.SpawnPoint.Type); !ok || t != mo.Type {
			diff |= MDType
		}
	} else {
		diff |= MDPos | MDType
	}

	if mo.MomX != 0 || mo.MomY != 0 {
		diff |= MDMom
	}
	if mo.MomZ != 0 {
		diff |= MDMomZ
	}
	if mo.Radius != info.Radius {
		diff |= MDRadius
	}
	if mo.Height != info.Height {
		diff |= MDHeight
	}
	if mo.Flags != info.Flags {
		diff |= MDFlags
	}
	if mo.Flags2 != 0 {
		diff |= MDFlags2
	}
	if mo.Health != info.SpawnHealth {
		diff |= MDHealth
	}
	if mo.ReactionTime != info.ReactionTime {
		diff |= MDRTime
	}
	if mo.State != info.SpawnState {
		diff |= MDState
	}
	st := entity.States[entity.SNull]
	if mo.State.Valid() {
		st = entity.States[mo.State]
	}
	if mo.Tics != st.Tics {
		diff |= MDTics
	}
	if mo.Sprite != st.Sprite {
		diff |= MDSprite
	}
	if mo.Frame != st.Frame {
		diff |= MDFrame
	}
	if mo.EFlags != 0 {
		diff |= MDEFlags
	}
	if mo.Player != nil {
		diff |= MDPlayer
	}
	if mo.MoveDir != 0 {
		diff |= MDMoveDir
	}
	if mo.MoveCount != 0 {
		diff |= MDMoveCount
	}
	if mo.Threshold != 0 {
		diff |= MDThreshold
	}
	if mo.LastLook != entity.DefaultLastLook {
		diff |= MDLastLook
	}
	if archivable(mo.Target) {
		diff |= MDTarget
	}
	if archivable(mo.Tracer) {
		diff |= MDTracer
	}
	if mo.Friction != entity.OrigFriction {
		diff |= MDFriction
	}
	if mo.MoveFactor != vec.FracUnit {
		diff |= MDMoveFactor
	}
	if mo.Fuse != 0 {
		diff |= MDFuse
	}
	if mo.WaterTop != 0 {
		diff |= MDWaterTop
	}
	if mo.WaterBottom != 0 {
		diff |= MDWaterBottom
	}
	if mo.Scale != entity.DefaultScale {
		diff |= MDScale
	}
	if mo.DestScale != mo.Scale {
		diff |= MDDestScale
	}

	if mo.CusVal != 0 {
		diff2 |= MD2CusVal
	}
	if mo.CVMem != 0 {
		diff2 |= MD2CVMem
	}
	if mo.Skin != 0 {
		diff2 |= MD2Skin
	}
	if mo.Color != 0 {
		diff2 |= MD2Color
	}
	if mo.ScaleSpeed != entity.DefaultScaleSpeed {
		diff2 |= MD2ScaleSpeed
	}
	if mo.ExtValue1 != 0 {
		diff2 |= MD2ExtVal1
	}
	if mo.ExtValue2 != 0 {
		diff2 |= MD2ExtVal2
	}
	if archivable(mo.HNext) {
		diff2 |= MD2HNext
	}
	if archivable(mo.HPrev) {
		diff2 |= MD2HPrev
	}
	if diff2 != 0 {
		diff |= MDMore
	}
	return diff, diff2
}

func encodeMobj(s *saver, t entity.Thinker) {
	mo := t.(*entity.Mobj)
	w := s.w

	if s.hoopMarker(mo) {
		w.U32(MDSpawnPoint)
		w.Fixed(mo.Z)
		w.Fixed(mo.FloorZ)
		w.Fixed(mo.CeilingZ)
		w.U16(uint16(s.thingIndex(mo)))
		w.U32(mo.Serial)
		return
	}

	diff, diff2 := s.mobjDiff(mo)
	w.U32(diff)
	if diff&MDMore != 0 {
		w.U32(diff2)
	}
	w.Fixed(mo.Z)
	w.Fixed(mo.FloorZ)
	w.Fixed(mo.CeilingZ)

	if diff&MDSpawnPoint != 0 {
		w.U16(uint16(s.thingIndex(mo)))
	}
	if diff&MDPos != 0 {
		w.Fixed(mo.X)
		w.Fixed(mo.Y)
		w.Angle(mo.Angle)
	}
	if diff&MDType != 0 {
		w.U32(uint32(mo.Type))
	}
	if diff&MDMom != 0 {
		w.Fixed(mo.MomX)
		w.Fixed(mo.MomY)
	}
	if diff&MDMomZ != 0 {
		w.Fixed(mo.MomZ)
	}
	if diff&MDRadius != 0 {
		w.Fixed(mo.Radius)
	}
	if diff&MDHeight != 0 {
		w.Fixed(mo.Height)
	}
	if diff&MDFlags != 0 {
		w.U32(mo.Flags)
	}
	if diff&MDFlags2 != 0 {
		w.U32(mo.Flags2)
	}
	if diff&MDHealth != 0 {
		w.I32(mo.Health)
	}
	if diff&MDRTime != 0 {
		w.I32(mo.ReactionTime)
	}
	if diff&MDState != 0 {
		w.U16(uint16(mo.State))
	}
	if diff&MDTics != 0 {
		w.I32(mo.Tics)
	}
	if diff&MDSprite != 0 {
		w.U16(mo.Sprite)
	}
	if diff&MDFrame != 0 {
		w.U32(mo.Frame)
	}
	if diff&MDEFlags != 0 {
		w.U16(mo.EFlags)
	}
	if diff&MDPlayer != 0 {
		w.U8(uint8(mo.Player.Slot))
	}
	if diff&MDMoveDir != 0 {
		w.Angle(mo.MoveDir)
	}
	if diff&MDMoveCount != 0 {
		w.I32(mo.MoveCount)
	}
	if diff&MDThreshold != 0 {
		w.I32(mo.Threshold)
	}
	if diff&MDLastLook != 0 {
		w.I32(mo.LastLook)
	}
	if diff&MDTarget != 0 {
		w.U32(mo.Target.Serial)
	}
	if diff&MDTracer != 0 {
		w.U32(mo.Tracer.Serial)
	}
	if diff&MDFriction != 0 {
		w.Fixed(mo.Friction)
	}
	if diff&MDMoveFactor != 0 {
		w.Fixed(mo.MoveFactor)
	}
	if diff&MDFuse != 0 {
		w.I32(mo.Fuse)
	}
	if diff&MDWaterTop != 0 {
		w.Fixed(mo.WaterTop)
	}
	if diff&MDWaterBottom != 0 {
		w.Fixed(mo.WaterBottom)
	}
	if diff&MDScale != 0 {
		w.Fixed(mo.Scale)
	}
	if diff&MDDestScale != 0 {
		w.Fixed(mo.DestScale)
	}

	if diff2&MD2CusVal != 0 {
		w.I32(mo.CusVal)
	}
	if diff2&MD2CVMem != 0 {
		w.I32(mo.CVMem)
	}
	if diff2&MD2Skin != 0 {
		w.U8(mo.Skin)
	}
	if diff2&MD2Color != 0 {
		w.U16(mo.Color)
	}
	if diff2&MD2ScaleSpeed != 0 {
		w.Fixed(mo.ScaleSpeed)
	}
	if diff2&MD2ExtVal1 != 0 {
		w.I32(mo.ExtValue1)
	}
	if diff2&MD2ExtVal2 != 0 {
		w.I32(mo.ExtValue2)
	}
	if diff2&MD2HNext != 0 {
		w.U32(mo.HNext.Serial)
	}
	if diff2&MD2HPrev != 0 {
		w.U32(mo.HPrev.Serial)
	}

	w.U32(mo.Serial)
}

// decodeMobj восстанавливает mobj. Маркер обруча порождает центр вместе с сегментами,
// поэтому функция может вернуть несколько объектов.
func decodeMobj(l *loader) []entity.Thinker {
	r := l.r
	start := r.Offset()

	diff := r.U32()
	var diff2 uint32
	if diff&MDMore != 0 {
		diff2 = r.U32()
	}
	z, floorZ, ceilingZ := r.Fixed(), r.Fixed(), r.Fixed()

	thing := l.thing(diff&MDSpawnPoint != 0)
	if r.Err() != nil {
		return nil
	}
	if thing == nil && diff&(MDPos|MDType) != MDPos|MDType {
		r.Fail(eris.Wrapf(ErrCorrupt, "mobj at offset %d has neither spawn point nor position and type", start))
		return nil
	}

	if diff == MDSpawnPoint && thing.Type == entity.HoopDoomedNum {
		serial := r.U32()
		hoop := entity.SpawnHoop(thing)
		center := hoop[0]
		center.Serial = serial
		center.Z, center.FloorZ, center.CeilingZ = z, floorZ, ceilingZ
		out := make([]entity.Thinker, len(hoop))
		for i, mo := range hoop {
			out[i] = mo
		}
		return out
	}

	var (
		x, y  vec.Fixed
		angle vec.Angle
		typ   entity.MobjType
	)
	if thing != nil {
		x, y, _, angle = entity.ThingPosition(thing)
		typ, _ = entity.TypeForDoomedNum(thing.Type)
	}
	if diff&MDPos != 0 {
		x, y, angle = r.Fixed(), r.Fixed(), r.Angle()
	}
	if diff&MDType != 0 {
		typ = entity.MobjType(r.U32())
	}
	if r.Err() == nil && !typ.Valid() {
		r.Fail(eris.Wrapf(ErrBadIndex, "mobj type %d at offset %d", typ, start))
	}
	if r.Err() != nil {
		return nil
	}

	mo := entity.NewMobj(typ, x, y, z)
	mo.Angle = angle
	mo.FloorZ, mo.CeilingZ = floorZ, ceilingZ
	mo.SpawnPoint = thing

	if diff&MDMom != 0 {
		mo.MomX, mo.MomY = r.Fixed(), r.Fixed()
	}
	if diff&MDMomZ != 0 {
		mo.MomZ = r.Fixed()
	}
	if diff&MDRadius != 0 {
		mo.Radius = r.Fixed()
	}
	if diff&MDHeight != 0 {
		mo.Height = r.Fixed()
	}
	if diff&MDFlags != 0 {
		mo.Flags = r.U32()
	}
	if diff&MDFlags2 != 0 {
		mo.Flags2 = r.U32()
	}
	if diff&MDHealth != 0 {
		mo.Health = r.I32()
	}
	if diff&MDRTime != 0 {
		mo.ReactionTime = r.I32()
	}
	if diff&MDState != 0 {
		st := entity.StateNum(r.U16())
		if r.Err() == nil && !st.Valid() {
			r.Fail(eris.Wrapf(ErrBadIndex, "mobj state %d at offset %d", st, start))
			return nil
		}
		mo.SetState(st)
	}
	if diff&MDTics != 0 {
		mo.Tics = r.I32()
	}
	if diff&MDSprite != 0 {
		mo.Sprite = r.U16()
	}
	if diff&MDFrame != 0 {
		mo.Frame = r.U32()
	}
	if diff&MDEFlags != 0 {
		mo.EFlags = r.U16()
	}
	if diff&MDPlayer != 0 {
		if p := l.player(); p != nil {
			mo.Player = p
			p.Mo = mo
		}
	}
	if diff&MDMoveDir != 0 {
		mo.MoveDir = r.Angle()
	}
	if diff&MDMoveCount != 0 {
		mo.MoveCount = r.I32()
	}
	if diff&MDThreshold != 0 {
		mo.Threshold = r.I32()
	}
	if diff&MDLastLook != 0 {
		mo.LastLook = r.I32()
	}
	if diff&MDTarget != 0 {
		l.mobjRef("mobj target", func(t *entity.Mobj) { mo.Target = t })
	}
	if diff&MDTracer != 0 {
		l.mobjRef("mobj tracer", func(t *entity.Mobj) { mo.Tracer = t })
	}
	if diff&MDFriction != 0 {
		mo.Friction = r.Fixed()
	}
	if diff&MDMoveFactor != 0 {
		mo.MoveFactor = r.Fixed()
	}
	if diff&MDFuse != 0 {
		mo.Fuse = r.I32()
	}
	if diff&MDWaterTop != 0 {
		mo.WaterTop = r.Fixed()
	}
	if diff&MDWaterBottom != 0 {
		mo.WaterBottom = r.Fixed()
	}
	if diff&MDScale != 0 {
		mo.Scale = r.Fixed()
	}
	mo.DestScale = mo.Scale
	if diff&MDDestScale != 0 {
		mo.DestScale = r.Fixed()
	}

	if diff2&MD2CusVal != 0 {
		mo.CusVal = r.I32()
	}
	if diff2&MD2CVMem != 0 {
		mo.CVMem = r.I32()
	}
	if diff2&MD2Skin != 0 {
		mo.Skin = r.U8()
	}
	if diff2&MD2Color != 0 {
		mo.Color = r.U16()
	}
	if diff2&MD2ScaleSpeed != 0 {
		mo.ScaleSpeed = r.Fixed()
	}
	if diff2&MD2ExtVal1 != 0 {
		mo.ExtValue1 = r.I32()
	}
	if diff2&MD2ExtVal2 != 0 {
		mo.ExtValue2 = r.I32()
	}
	if diff2&MD2HNext != 0 {
		l.mobjRef("mobj hnext", func(t *entity.Mobj) { mo.HNext = t })
	}
	if diff2&MD2HPrev != 0 {
		l.mobjRef("mobj hprev", func(t *entity.Mobj) { mo.HPrev = t })
	}

	mo.Serial = r.U32()
	if r.Err() != nil {
		return nil
	}
	return []entity.Thinker{mo}
}
