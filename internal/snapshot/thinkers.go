package snapshot

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/world"
	"github.com/annel0/savestate/internal/world/entity"
)

// Нулевые значения статических ссылок на проводе
const (
	noIndex  uint16 = 0xFFFF
	noPlayer uint8  = 0xFF
)

// thinkerCodec пара функций архивации одного вида мыслителя.
// decode может вернуть несколько мыслителей (маркер обруча).
type thinkerCodec struct {
	encode func(s *saver, t entity.Thinker)
	decode func(l *loader, k entity.Kind) []entity.Thinker
}

func single(fn func(l *loader, k entity.Kind) entity.Thinker) func(*loader, entity.Kind) []entity.Thinker {
	return func(l *loader, k entity.Kind) []entity.Thinker {
		t := fn(l, k)
		if t == nil || l.r.Err() != nil {
			return nil
		}
		return []entity.Thinker{t}
	}
}

var thinkerCodecs map[entity.Kind]thinkerCodec

func init() {
	thinkerCodecs = map[entity.Kind]thinkerCodec{
		entity.KindMobj:              {encodeMobj, func(l *loader, _ entity.Kind) []entity.Thinker { return decodeMobj(l) }},
		entity.KindCeiling:           {encodeCeiling, single(decodeCeiling)},
		entity.KindCrushCeiling:      {encodeCeiling, single(decodeCeiling)},
		entity.KindFloor:             {encodeFloor, single(decodeFloor)},
		entity.KindDoor:              {encodeDoor, single(decodeDoor)},
		entity.KindLightFlash:        {encodeLightFlash, single(decodeLightFlash)},
		entity.KindStrobe:            {encodeStrobe, single(decodeStrobe)},
		entity.KindGlow:              {encodeGlow, single(decodeGlow)},
		entity.KindFireFlicker:       {encodeFireFlicker, single(decodeFireFlicker)},
		entity.KindLightFade:         {encodeLightFade, single(decodeLightFade)},
		entity.KindElevator:          {encodeElevator, single(decodeElevator)},
		entity.KindContinuousFalling: {encodeContinuousFalling, single(decodeContinuousFalling)},
		entity.KindStartCrumble:      {encodeStartCrumble, single(decodeStartCrumble)},
		entity.KindScroll:            {encodeScroll, single(decodeScroll)},
		entity.KindFriction:          {encodeFriction, single(decodeFriction)},
		entity.KindPusher:            {encodePusher, single(decodePusher)},
		entity.KindExecutor:          {encodeExecutor, single(decodeExecutor)},
		entity.KindDisappear:         {encodeDisappear, single(decodeDisappear)},
		entity.KindFade:              {encodeFade, single(decodeFade)},
		entity.KindPlaneDisplace:     {encodePlaneDisplace, single(decodePlaneDisplace)},
		entity.KindPolyRotate:        {encodePolyRotate, single(decodePolyRotate)},
		entity.KindPolyMove:          {encodePolyMove, single(decodePolyMove)},
		entity.KindPolyWaypoint:      {encodePolyWaypoint, single(decodePolyWaypoint)},
		entity.KindPolySlideDoor:     {encodePolySlideDoor, single(decodePolySlideDoor)},
		entity.KindPolySwingDoor:     {encodePolySwingDoor, single(decodePolySwingDoor)},
		entity.KindPolyDisplace:      {encodePolyDisplace, single(decodePolyDisplace)},
		entity.KindPolyFade:          {encodePolyFade, single(decodePolyFade)},
	}
}

// Ссылки на статические объекты и mobj со стороны записи

func (s *saver) sector(sec *world.Sector) {
	if sec == nil {
		s.w.U16(noIndex)
		return
	}
	s.w.U16(uint16(sec.Index))
}

func (s *saver) line(ln *world.Line) {
	if ln == nil {
		s.w.U16(noIndex)
		return
	}
	s.w.U16(uint16(ln.Index))
}

func (s *saver) ffloor(ff *world.FFloor) {
	if ff == nil || ff.Sector == nil {
		s.w.U16(noIndex)
		s.w.U16(0)
		return
	}
	s.w.U16(uint16(ff.Sector.Index))
	s.w.U16(uint16(ff.Ordinal))
}

func (s *saver) player(p *entity.Player) {
	if p == nil {
		s.w.U8(noPlayer)
		return
	}
	s.w.U8(uint8(p.Slot))
}

// mobj пишет серийный номер; объекты, не попадающие в снимок, пишутся как 0
func (s *saver) mobj(mo *entity.Mobj) {
	if !archivable(mo) {
		s.w.U32(0)
		return
	}
	s.w.U32(mo.Serial)
}

// Ссылки со стороны чтения. Ошибки индексов «залипают» в Reader.

func (l *loader) sector() *world.Sector {
	idx := l.r.U16()
	if l.r.Err() != nil || idx == noIndex {
		return nil
	}
	sec := l.st.Map.Sector(int(idx))
	if sec == nil {
		l.r.Fail(eris.Wrapf(ErrBadIndex, "sector %d at offset %d", idx, l.r.Offset()-2))
	}
	return sec
}

func (l *loader) line() *world.Line {
	idx := l.r.U16()
	if l.r.Err() != nil || idx == noIndex {
		return nil
	}
	ln := l.st.Map.Line(int(idx))
	if ln == nil {
		l.r.Fail(eris.Wrapf(ErrBadIndex, "line %d at offset %d", idx, l.r.Offset()-2))
	}
	return ln
}

func (l *loader) ffloor() *world.FFloor {
	idx, ord := l.r.U16(), l.r.U16()
	if l.r.Err() != nil || idx == noIndex {
		return nil
	}
	sec := l.st.Map.Sector(int(idx))
	if sec == nil || int(ord) >= len(sec.FFloors) {
		l.r.Fail(eris.Wrapf(ErrBadIndex, "ffloor %d/%d at offset %d", idx, ord, l.r.Offset()-4))
		return nil
	}
	return sec.FFloors[ord]
}

func (l *loader) player() *entity.Player {
	slot := l.r.U8()
	if l.r.Err() != nil || slot == noPlayer {
		return nil
	}
	p := l.st.Players.Get(int(slot))
	if p == nil {
		l.r.Fail(eris.Wrapf(ErrBadIndex, "player %d at offset %d", slot, l.r.Offset()-1))
	}
	return p
}

// thing читает индекс записи расстановки, если он присутствует
func (l *loader) thing(present bool) *world.MapThing {
	if !present {
		return nil
	}
	idx := l.r.U16()
	if l.r.Err() != nil {
		return nil
	}
	mt := l.st.Map.Thing(int(idx))
	if mt == nil {
		l.r.Fail(eris.Wrapf(ErrBadIndex, "mapthing %d at offset %d", idx, l.r.Offset()-2))
	}
	return mt
}

// mobjRef читает серийный номер и откладывает привязку до второго прохода
func (l *loader) mobjRef(what string, bind func(*entity.Mobj)) {
	serial := l.r.U32()
	if l.r.Err() != nil {
		return
	}
	l.rs.mobj(serial, what, bind)
}

// Движители плоскостей

func encodeCeiling(s *saver, t entity.Thinker) {
	c := t.(*entity.Ceiling)
	w := s.w
	w.U8(c.Type)
	s.sector(c.Sector)
	w.Fixed(c.BottomHeight)
	w.Fixed(c.TopHeight)
	w.Fixed(c.Speed)
	w.Fixed(c.OldSpeed)
	w.Fixed(c.Delay)
	w.Fixed(c.DelayTimer)
	w.Bool(c.Crush)
	w.I32(c.Texture)
	w.I32(c.Direction)
	w.I32(c.Tag)
	w.I32(c.OldDirection)
	w.Fixed(c.OrigSpeed)
	s.line(c.SourceLine)
}

func decodeCeiling(l *loader, k entity.Kind) entity.Thinker {
	r := l.r
	c := &entity.Ceiling{Crushing: k == entity.KindCrushCeiling}
	c.Type = r.U8()
	c.Sector = l.sector()
	c.BottomHeight = r.Fixed()
	c.TopHeight = r.Fixed()
	c.Speed = r.Fixed()
	c.OldSpeed = r.Fixed()
	c.Delay = r.Fixed()
	c.DelayTimer = r.Fixed()
	c.Crush = r.Bool()
	c.Texture = r.I32()
	c.Direction = r.I32()
	c.Tag = r.I32()
	c.OldDirection = r.I32()
	c.OrigSpeed = r.Fixed()
	c.SourceLine = l.line()
	if c.Sector != nil {
		c.Sector.CeilingData = c
	}
	return c
}

func encodeFloor(s *saver, t entity.Thinker) {
	f := t.(*entity.Floor)
	w := s.w
	w.U8(f.Type)
	w.Bool(f.Crush)
	s.sector(f.Sector)
	w.I32(f.Direction)
	w.I32(f.Texture)
	w.Fixed(f.FloorDestHeight)
	w.Fixed(f.Speed)
	w.Fixed(f.OrigSpeed)
	w.Fixed(f.Delay)
	w.Fixed(f.DelayTimer)
	w.I16(f.Tag)
	s.line(f.SourceLine)
}

func decodeFloor(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	f := &entity.Floor{}
	f.Type = r.U8()
	f.Crush = r.Bool()
	f.Sector = l.sector()
	f.Direction = r.I32()
	f.Texture = r.I32()
	f.FloorDestHeight = r.Fixed()
	f.Speed = r.Fixed()
	f.OrigSpeed = r.Fixed()
	f.Delay = r.Fixed()
	f.DelayTimer = r.Fixed()
	f.Tag = r.I16()
	f.SourceLine = l.line()
	if f.Sector != nil {
		f.Sector.FloorData = f
	}
	return f
}

func encodeDoor(s *saver, t entity.Thinker) {
	d := t.(*entity.Door)
	w := s.w
	w.U8(d.Type)
	s.sector(d.Sector)
	w.Fixed(d.TopHeight)
	w.Fixed(d.Speed)
	w.I32(d.Direction)
	w.I32(d.TopWait)
	w.I32(d.TopCountdown)
	s.line(d.Line)
}

func decodeDoor(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	d := &entity.Door{}
	d.Type = r.U8()
	d.Sector = l.sector()
	d.TopHeight = r.Fixed()
	d.Speed = r.Fixed()
	d.Direction = r.I32()
	d.TopWait = r.I32()
	d.TopCountdown = r.I32()
	d.Line = l.line()
	if d.Sector != nil {
		d.Sector.CeilingData = d
	}
	return d
}

// Световые эффекты

func encodeLightFlash(s *saver, t entity.Thinker) {
	f := t.(*entity.LightFlash)
	s.sector(f.Sector)
	s.w.I32(f.MaxLight)
	s.w.I32(f.MinLight)
}

func decodeLightFlash(l *loader, _ entity.Kind) entity.Thinker {
	f := &entity.LightFlash{}
	f.Sector = l.sector()
	f.MaxLight = l.r.I32()
	f.MinLight = l.r.I32()
	if f.Sector != nil {
		f.Sector.LightingData = f
	}
	return f
}

func encodeStrobe(s *saver, t entity.Thinker) {
	st := t.(*entity.Strobe)
	w := s.w
	s.sector(st.Sector)
	w.I32(st.Count)
	w.I16(st.MinLight)
	w.I16(st.MaxLight)
	w.I32(st.DarkTime)
	w.I32(st.BrightTime)
}

func decodeStrobe(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	st := &entity.Strobe{}
	st.Sector = l.sector()
	st.Count = r.I32()
	st.MinLight = r.I16()
	st.MaxLight = r.I16()
	st.DarkTime = r.I32()
	st.BrightTime = r.I32()
	if st.Sector != nil {
		st.Sector.LightingData = st
	}
	return st
}

func encodeGlow(s *saver, t entity.Thinker) {
	g := t.(*entity.Glow)
	w := s.w
	s.sector(g.Sector)
	w.I16(g.MinLight)
	w.I16(g.MaxLight)
	w.I16(g.Direction)
	w.I16(g.Speed)
}

func decodeGlow(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	g := &entity.Glow{}
	g.Sector = l.sector()
	g.MinLight = r.I16()
	g.MaxLight = r.I16()
	g.Direction = r.I16()
	g.Speed = r.I16()
	if g.Sector != nil {
		g.Sector.LightingData = g
	}
	return g
}

func encodeFireFlicker(s *saver, t entity.Thinker) {
	f := t.(*entity.FireFlicker)
	w := s.w
	s.sector(f.Sector)
	w.I32(f.Count)
	w.I32(f.ResetCount)
	w.I16(f.MaxLight)
	w.I16(f.MinLight)
}

func decodeFireFlicker(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	f := &entity.FireFlicker{}
	f.Sector = l.sector()
	f.Count = r.I32()
	f.ResetCount = r.I32()
	f.MaxLight = r.I16()
	f.MinLight = r.I16()
	if f.Sector != nil {
		f.Sector.LightingData = f
	}
	return f
}

func encodeLightFade(s *saver, t entity.Thinker) {
	f := t.(*entity.LightFade)
	w := s.w
	s.sector(f.Sector)
	w.I16(f.SourceLevel)
	w.I16(f.DestLevel)
	w.Fixed(f.FixedCurLevel)
	w.Fixed(f.FixedPerSecond)
	w.Bool(f.TicBased)
	w.I32(f.Timer)
}

func decodeLightFade(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	f := &entity.LightFade{}
	f.Sector = l.sector()
	f.SourceLevel = r.I16()
	f.DestLevel = r.I16()
	f.FixedCurLevel = r.Fixed()
	f.FixedPerSecond = r.Fixed()
	f.TicBased = r.Bool()
	f.Timer = r.I32()
	if f.Sector != nil {
		f.Sector.LightingData = f
	}
	return f
}

// Составные движители

func encodeElevator(s *saver, t entity.Thinker) {
	e := t.(*entity.Elevator)
	w := s.w
	w.U8(e.Type)
	s.sector(e.Sector)
	s.sector(e.ActionSector)
	w.I32(e.Direction)
	w.Fixed(e.FloorDestHeight)
	w.Fixed(e.CeilingDestHeight)
	w.Fixed(e.Speed)
	w.Fixed(e.OrigSpeed)
	w.Fixed(e.Low)
	w.Fixed(e.High)
	w.Fixed(e.Distance)
	w.Fixed(e.Delay)
	w.Fixed(e.DelayTimer)
	w.Fixed(e.FloorWasHeight)
	w.Fixed(e.CeilingWasHeight)
	s.player(e.Player)
	s.line(e.SourceLine)
}

func decodeElevator(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	e := &entity.Elevator{}
	e.Type = r.U8()
	e.Sector = l.sector()
	e.ActionSector = l.sector()
	e.Direction = r.I32()
	e.FloorDestHeight = r.Fixed()
	e.CeilingDestHeight = r.Fixed()
	e.Speed = r.Fixed()
	e.OrigSpeed = r.Fixed()
	e.Low = r.Fixed()
	e.High = r.Fixed()
	e.Distance = r.Fixed()
	e.Delay = r.Fixed()
	e.DelayTimer = r.Fixed()
	e.FloorWasHeight = r.Fixed()
	e.CeilingWasHeight = r.Fixed()
	e.Player = l.player()
	e.SourceLine = l.line()
	if e.Sector != nil {
		e.Sector.FloorData = e
		e.Sector.CeilingData = e
	}
	return e
}

func encodeContinuousFalling(s *saver, t entity.Thinker) {
	f := t.(*entity.ContinuousFalling)
	w := s.w
	s.sector(f.Sector)
	w.Fixed(f.Speed)
	w.I32(f.Direction)
	w.Fixed(f.FloorStartHeight)
	w.Fixed(f.CeilingStartHeight)
	w.Fixed(f.DestHeight)
}

func decodeContinuousFalling(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	f := &entity.ContinuousFalling{}
	f.Sector = l.sector()
	f.Speed = r.Fixed()
	f.Direction = r.I32()
	f.FloorStartHeight = r.Fixed()
	f.CeilingStartHeight = r.Fixed()
	f.DestHeight = r.Fixed()
	if f.Sector != nil {
		f.Sector.FloorData = f
		f.Sector.CeilingData = f
	}
	return f
}

func encodeStartCrumble(s *saver, t entity.Thinker) {
	c := t.(*entity.StartCrumble)
	w := s.w
	s.line(c.SourceLine)
	s.sector(c.Sector)
	s.sector(c.ActionSector)
	s.player(c.Player)
	w.I32(c.Direction)
	w.Fixed(c.OrigSpeed)
	w.I32(c.Timer)
	w.Fixed(c.Speed)
	w.Fixed(c.FloorWasHeight)
	w.Fixed(c.CeilingWasHeight)
	w.U8(c.Flags)
}

func decodeStartCrumble(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	c := &entity.StartCrumble{}
	c.SourceLine = l.line()
	c.Sector = l.sector()
	c.ActionSector = l.sector()
	c.Player = l.player()
	c.Direction = r.I32()
	c.OrigSpeed = r.Fixed()
	c.Timer = r.I32()
	c.Speed = r.Fixed()
	c.FloorWasHeight = r.Fixed()
	c.CeilingWasHeight = r.Fixed()
	c.Flags = r.U8()
	if c.Sector != nil {
		c.Sector.FloorData = c
	}
	return c
}

// Зоны воздействия

func encodeScroll(s *saver, t entity.Thinker) {
	sc := t.(*entity.Scroll)
	w := s.w
	w.Fixed(sc.DX)
	w.Fixed(sc.DY)
	w.I32(sc.Affectee)
	s.sector(sc.Control)
	w.Fixed(sc.LastHeight)
	w.Fixed(sc.VDX)
	w.Fixed(sc.VDY)
	w.Bool(sc.Accel)
	w.Bool(sc.Exclusive)
	w.U8(sc.Type)
}

func decodeScroll(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	sc := &entity.Scroll{}
	sc.DX = r.Fixed()
	sc.DY = r.Fixed()
	sc.Affectee = r.I32()
	sc.Control = l.sector()
	sc.LastHeight = r.Fixed()
	sc.VDX = r.Fixed()
	sc.VDY = r.Fixed()
	sc.Accel = r.Bool()
	sc.Exclusive = r.Bool()
	sc.Type = r.U8()
	return sc
}

func encodeFriction(s *saver, t entity.Thinker) {
	f := t.(*entity.Friction)
	w := s.w
	w.Fixed(f.Friction)
	w.Fixed(f.MoveFactor)
	s.sector(f.Affectee)
	s.sector(f.Referrer)
	w.Bool(f.RoverFriction)
}

func decodeFriction(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	f := &entity.Friction{}
	f.Friction = r.Fixed()
	f.MoveFactor = r.Fixed()
	f.Affectee = l.sector()
	f.Referrer = l.sector()
	f.RoverFriction = r.Bool()
	return f
}

func encodePusher(s *saver, t entity.Thinker) {
	p := t.(*entity.Pusher)
	w := s.w
	w.U8(p.Type)
	w.Fixed(p.XMag)
	w.Fixed(p.YMag)
	w.Fixed(p.Magnitude)
	w.Fixed(p.Radius)
	w.Fixed(p.X)
	w.Fixed(p.Y)
	w.Fixed(p.Z)
	s.sector(p.Affectee)
	s.sector(p.Referrer)
	s.mobj(p.Source)
	w.Bool(p.RoverPusher)
	w.Bool(p.Exclusive)
	w.Bool(p.Slider)
}

func decodePusher(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	p := &entity.Pusher{}
	p.Type = r.U8()
	p.XMag = r.Fixed()
	p.YMag = r.Fixed()
	p.Magnitude = r.Fixed()
	p.Radius = r.Fixed()
	p.X = r.Fixed()
	p.Y = r.Fixed()
	p.Z = r.Fixed()
	p.Affectee = l.sector()
	p.Referrer = l.sector()
	l.mobjRef("pusher source", func(mo *entity.Mobj) { p.Source = mo })
	p.RoverPusher = r.Bool()
	p.Exclusive = r.Bool()
	p.Slider = r.Bool()
	return p
}

func encodeExecutor(s *saver, t entity.Thinker) {
	e := t.(*entity.Executor)
	s.line(e.Line)
	s.mobj(e.Caller)
	s.sector(e.Sector)
	s.w.I32(e.Timer)
}

func decodeExecutor(l *loader, _ entity.Kind) entity.Thinker {
	e := &entity.Executor{}
	e.Line = l.line()
	l.mobjRef("executor caller", func(mo *entity.Mobj) { e.Caller = mo })
	e.Sector = l.sector()
	e.Timer = l.r.I32()
	return e
}

func encodeDisappear(s *saver, t entity.Thinker) {
	d := t.(*entity.Disappear)
	w := s.w
	w.I32(d.AppearTime)
	w.I32(d.DisappearTime)
	w.I32(d.Offset)
	w.I32(d.Timer)
	s.line(d.Affectee)
	s.line(d.SourceLine)
	w.Bool(d.Exists)
}

func decodeDisappear(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	d := &entity.Disappear{}
	d.AppearTime = r.I32()
	d.DisappearTime = r.I32()
	d.Offset = r.I32()
	d.Timer = r.I32()
	d.Affectee = l.line()
	d.SourceLine = l.line()
	d.Exists = r.Bool()
	return d
}

func encodeFade(s *saver, t entity.Thinker) {
	f := t.(*entity.Fade)
	w := s.w
	s.ffloor(f.FFloor)
	w.I32(f.SourceValue)
	w.I32(f.DestValue)
	w.I16(f.DestLightLevel)
	w.I16(f.Speed)
	w.Bool(f.TicBased)
	w.I32(f.Timer)
	w.Bool(f.DoExists)
	w.Bool(f.DoTranslucent)
	w.Bool(f.DoLighting)
	w.Bool(f.DoCollision)
	w.Bool(f.DoGhostFade)
	w.Bool(f.ExactAlpha)
}

func decodeFade(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	f := &entity.Fade{}
	f.FFloor = l.ffloor()
	f.SourceValue = r.I32()
	f.DestValue = r.I32()
	f.DestLightLevel = r.I16()
	f.Speed = r.I16()
	f.TicBased = r.Bool()
	f.Timer = r.I32()
	f.DoExists = r.Bool()
	f.DoTranslucent = r.Bool()
	f.DoLighting = r.Bool()
	f.DoCollision = r.Bool()
	f.DoGhostFade = r.Bool()
	f.ExactAlpha = r.Bool()
	return f
}

func encodePlaneDisplace(s *saver, t entity.Thinker) {
	p := t.(*entity.PlaneDisplace)
	s.sector(p.Affectee)
	s.sector(p.Control)
	s.w.Fixed(p.LastHeight)
	s.w.Fixed(p.Speed)
	s.w.U8(p.Type)
}

func decodePlaneDisplace(l *loader, _ entity.Kind) entity.Thinker {
	p := &entity.PlaneDisplace{}
	p.Affectee = l.sector()
	p.Control = l.sector()
	p.LastHeight = l.r.Fixed()
	p.Speed = l.r.Fixed()
	p.Type = l.r.U8()
	return p
}

// Полиобъекты

func encodePolyRotate(s *saver, t entity.Thinker) {
	p := t.(*entity.PolyRotate)
	w := s.w
	w.I32(p.PolyObjNum)
	w.I32(p.Speed)
	w.I32(p.Distance)
	w.U8(p.TurnObjs)
}

func decodePolyRotate(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	return &entity.PolyRotate{
		PolyObjNum: r.I32(),
		Speed:      r.I32(),
		Distance:   r.I32(),
		TurnObjs:   r.U8(),
	}
}

func encodePolyMove(s *saver, t entity.Thinker) {
	p := t.(*entity.PolyMove)
	w := s.w
	w.I32(p.PolyObjNum)
	w.I32(p.Speed)
	w.Fixed(p.MomX)
	w.Fixed(p.MomY)
	w.I32(p.Distance)
	w.Angle(p.Angle)
}

func decodePolyMove(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	return &entity.PolyMove{
		PolyObjNum: r.I32(),
		Speed:      r.I32(),
		MomX:       r.Fixed(),
		MomY:       r.Fixed(),
		Distance:   r.I32(),
		Angle:      r.Angle(),
	}
}

func encodePolyWaypoint(s *saver, t entity.Thinker) {
	p := t.(*entity.PolyWaypoint)
	w := s.w
	w.I32(p.PolyObjNum)
	w.I32(p.Speed)
	w.I32(p.Sequence)
	w.I32(p.PointNum)
	w.I32(p.Direction)
	w.U8(p.ReturnBehavior)
	w.Bool(p.Continuous)
	w.Bool(p.StopSound)
	s.mobj(p.Target)
}

func decodePolyWaypoint(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	p := &entity.PolyWaypoint{
		PolyObjNum:     r.I32(),
		Speed:          r.I32(),
		Sequence:       r.I32(),
		PointNum:       r.I32(),
		Direction:      r.I32(),
		ReturnBehavior: r.U8(),
		Continuous:     r.Bool(),
		StopSound:      r.Bool(),
	}
	l.mobjRef("polywaypoint target", func(mo *entity.Mobj) { p.Target = mo })
	return p
}

func encodePolySlideDoor(s *saver, t entity.Thinker) {
	p := t.(*entity.PolySlideDoor)
	w := s.w
	w.I32(p.PolyObjNum)
	w.I32(p.Delay)
	w.I32(p.DelayCount)
	w.I32(p.InitSpeed)
	w.I32(p.Speed)
	w.I32(p.InitDistance)
	w.I32(p.Distance)
	w.Angle(p.InitAngle)
	w.Angle(p.Angle)
	w.Angle(p.RevAngle)
	w.Fixed(p.MomX)
	w.Fixed(p.MomY)
	w.Bool(p.Closing)
}

func decodePolySlideDoor(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	return &entity.PolySlideDoor{
		PolyObjNum:   r.I32(),
		Delay:        r.I32(),
		DelayCount:   r.I32(),
		InitSpeed:    r.I32(),
		Speed:        r.I32(),
		InitDistance: r.I32(),
		Distance:     r.I32(),
		InitAngle:    r.Angle(),
		Angle:        r.Angle(),
		RevAngle:     r.Angle(),
		MomX:         r.Fixed(),
		MomY:         r.Fixed(),
		Closing:      r.Bool(),
	}
}

func encodePolySwingDoor(s *saver, t entity.Thinker) {
	p := t.(*entity.PolySwingDoor)
	w := s.w
	w.I32(p.PolyObjNum)
	w.I32(p.Delay)
	w.I32(p.DelayCount)
	w.I32(p.InitSpeed)
	w.I32(p.Speed)
	w.I32(p.InitDistance)
	w.I32(p.Distance)
	w.Bool(p.Closing)
}

func decodePolySwingDoor(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	return &entity.PolySwingDoor{
		PolyObjNum:   r.I32(),
		Delay:        r.I32(),
		DelayCount:   r.I32(),
		InitSpeed:    r.I32(),
		Speed:        r.I32(),
		InitDistance: r.I32(),
		Distance:     r.I32(),
		Closing:      r.Bool(),
	}
}

func encodePolyDisplace(s *saver, t entity.Thinker) {
	p := t.(*entity.PolyDisplace)
	s.w.I32(p.PolyObjNum)
	s.sector(p.Control)
	s.w.Fixed(p.DX)
	s.w.Fixed(p.DY)
	s.w.Fixed(p.OldHeights)
}

func decodePolyDisplace(l *loader, _ entity.Kind) entity.Thinker {
	p := &entity.PolyDisplace{}
	p.PolyObjNum = l.r.I32()
	p.Control = l.sector()
	p.DX = l.r.Fixed()
	p.DY = l.r.Fixed()
	p.OldHeights = l.r.Fixed()
	return p
}

func encodePolyFade(s *saver, t entity.Thinker) {
	p := t.(*entity.PolyFade)
	w := s.w
	w.I32(p.PolyObjNum)
	w.I32(p.SourceValue)
	w.I32(p.DestValue)
	w.Bool(p.DoCollision)
	w.Bool(p.DoGhostFade)
	w.Bool(p.TicBased)
	w.I32(p.Duration)
	w.I32(p.Timer)
}

func decodePolyFade(l *loader, _ entity.Kind) entity.Thinker {
	r := l.r
	return &entity.PolyFade{
		PolyObjNum:  r.I32(),
		SourceValue: r.I32(),
		DestValue:   r.I32(),
		DoCollision: r.Bool(),
		DoGhostFade: r.Bool(),
		TicBased:    r.Bool(),
		Duration:    r.I32(),
		Timer:       r.I32(),
	}
}
