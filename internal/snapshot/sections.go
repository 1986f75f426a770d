package snapshot

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/world/delta"
	"github.com/annel0/savestate/internal/world/entity"
)

// FormatVersion версия формата снимка
const FormatVersion uint16 = 3

// Маркеры секций
const (
	MagicMisc     uint32 = 0x7FEEDEED
	MagicPlayers  uint32 = 0x7F448008
	MagicMobjVars uint32 = 0x7F5A17E5
	MagicTables   uint32 = 0x7F7AB1E5
	MagicWorld    uint32 = 0x7F8C08C0
	MagicPolyobjs uint32 = 0x7F928546
	MagicThinkers uint32 = 0x7F37037C
	MagicSpecials uint32 = 0x7F228378
)

// Имена секций в отчётах об ошибках
const (
	sectionMisc     = "misc"
	sectionPlayers  = "players"
	sectionMobjVars = "mobjvars"
	sectionTables   = "tables"
	sectionWorld    = "world"
	sectionThinkers = "thinkers"
	sectionSpecials = "specials"
)

func (l *loader) expectMagic(section string, want uint32) error {
	at := l.r.Offset()
	got := l.r.U32()
	if err := l.r.Err(); err != nil {
		return err
	}
	if got != want {
		return eris.Wrapf(ErrBadMagic, "section %s: want %#08x, got %#08x at offset %d", section, want, got, at)
	}
	return nil
}

// Header заголовок снимка (секция misc)
type Header struct {
	Version    uint16
	Mode       Mode
	MapName    string
	SessionID  uuid.UUID
	NextSerial uint32
}

func (s *saver) writeHeader() {
	w := s.w
	w.U32(MagicMisc)
	w.U16(FormatVersion)
	w.U8(uint8(s.mode))
	w.String(s.st.Map.Name())
	w.Raw(s.st.SessionID[:])
	w.U32(s.st.Thinkers.NextSerial())
}

// ReadHeader разбирает заголовок снимка без загрузки остальных секций
func ReadHeader(data []byte) (*Header, error) {
	l := &loader{r: archive.NewReader(data)}
	h, err := l.readHeader()
	if err != nil {
		return nil, &CorruptError{Section: sectionMisc, Offset: l.r.Offset(), Err: err}
	}
	return h, nil
}

func (l *loader) readHeader() (*Header, error) {
	if err := l.expectMagic(sectionMisc, MagicMisc); err != nil {
		return nil, err
	}
	r := l.r
	h := &Header{}
	h.Version = r.U16()
	h.Mode = Mode(r.U8())
	h.MapName = r.String()
	copy(h.SessionID[:], r.Raw(16))
	h.NextSerial = r.U32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if h.Version != FormatVersion {
		return nil, eris.Wrapf(ErrVersion, "version %d, expected %d", h.Version, FormatVersion)
	}
	if h.Mode&^modeMask != 0 {
		return nil, eris.Wrapf(ErrBadMode, "mode %#02x", uint8(h.Mode))
	}
	return h, nil
}

// Игроки

func (s *saver) writePlayers() error {
	w := s.w
	w.U32(MagicPlayers)
	mask := s.st.Players.InGameMask()
	w.U32(mask)
	for _, p := range s.st.Players {
		if !p.InGame {
			continue
		}
		w.U8(uint8(p.State))
		w.U32(p.PFlags)
		for _, pw := range p.Powers {
			w.U16(pw)
		}
		w.I8(p.Lives)
		w.U32(p.Score)
		w.I16(p.Rings)
		w.U8(p.Skin)
		w.U16(p.SkinColor)
		w.Angle(p.Aiming)
		w.Angle(p.DrawAngle)
		w.Bool(p.Spectator)
		w.U8(p.Team)
		w.U32(p.Exiting)
		s.mobj(p.Mo)
		if s.mode.Has(NetFields) {
			w.U32(p.JoinTime)
			w.U32(p.QuitTime)
			w.I8(p.Cmd.ForwardMove)
			w.I8(p.Cmd.SideMove)
			w.I16(p.Cmd.AngleTurn)
			w.I16(p.Cmd.Aiming)
			w.U16(p.Cmd.Buttons)
		}
		s.report.Players++
	}
	if err := w.Err(); err != nil {
		return err
	}

	// слот 0 пишется всегда, даже без атрибутов: чтение записей позиционное
	for _, p := range s.st.Players {
		if p.Slot != 0 && !p.InGame {
			continue
		}
		if err := s.writeVarRecord(s.vars().Get(p)); err != nil {
			return eris.Wrapf(err, "player %d vars", p.Slot)
		}
	}
	return w.Err()
}

func (l *loader) readPlayers() error {
	if err := l.expectMagic(sectionPlayers, MagicPlayers); err != nil {
		return err
	}
	r := l.r
	mask := r.U32()
	for _, p := range l.st.Players {
		inGame := mask&(1<<uint(p.Slot)) != 0
		*p = entity.Player{Slot: p.Slot, InGame: inGame, Lives: 3}
		if !inGame {
			continue
		}
		p.State = entity.PlayerState(r.U8())
		p.PFlags = r.U32()
		for i := range p.Powers {
			p.Powers[i] = r.U16()
		}
		p.Lives = r.I8()
		p.Score = r.U32()
		p.Rings = r.I16()
		p.Skin = r.U8()
		p.SkinColor = r.U16()
		p.Aiming = r.Angle()
		p.DrawAngle = r.Angle()
		p.Spectator = r.Bool()
		p.Team = r.U8()
		p.Exiting = r.U32()
		pl := p
		l.mobjRef("player mobj", func(mo *entity.Mobj) {
			pl.Mo = mo
			mo.Player = pl
		})
		if l.mode.Has(NetFields) {
			p.JoinTime = r.U32()
			p.QuitTime = r.U32()
			p.Cmd.ForwardMove = r.I8()
			p.Cmd.SideMove = r.I8()
			p.Cmd.AngleTurn = r.I16()
			p.Cmd.Aiming = r.I16()
			p.Cmd.Buttons = r.U16()
		}
		if err := r.Err(); err != nil {
			return eris.Wrapf(err, "player %d", p.Slot)
		}
		l.report.Players++
	}

	for _, p := range l.st.Players {
		if p.Slot != 0 && !p.InGame {
			continue
		}
		t, err := l.readVarRecord()
		if err != nil {
			return eris.Wrapf(err, "player %d vars", p.Slot)
		}
		if t.Len() > 0 {
			l.vars().Set(p, t)
		}
	}
	return r.Err()
}

// Атрибуты объектов

// writeVarRecord пишет запись атрибутов: u16 count + (имя, значение)*.
// На верхнем уровне записи допустимы только строковые ключи.
func (s *saver) writeVarRecord(t *script.Table) error {
	if t == nil {
		s.w.U16(0)
		return s.w.Err()
	}
	n := 0
	t.Range(func(key, _ script.Value) bool {
		if _, ok := key.(script.String); ok {
			n++
		}
		return true
	})
	s.w.U16(uint16(n))
	var err error
	t.Range(func(key, val script.Value) bool {
		name, ok := key.(script.String)
		if !ok {
			return true
		}
		s.w.String(string(name))
		err = s.enc.WriteValue(val)
		return err == nil
	})
	if err != nil {
		return err
	}
	return s.w.Err()
}

func (l *loader) readVarRecord() (*script.Table, error) {
	n := int(l.r.U16())
	t := script.NewTable()
	for i := 0; i < n; i++ {
		name := l.r.String()
		if err := l.r.Err(); err != nil {
			return nil, err
		}
		v, ok, err := l.dec.ReadValue()
		if err != nil {
			return nil, eris.Wrapf(err, "field %q", name)
		}
		if ok {
			t.SetField(name, v)
		}
	}
	l.rs.watchTables(t)
	return t, l.r.Err()
}

// writeMobjVars пишет (serial, запись)* для объектов с атрибутами, завершая нулевым номером
func (s *saver) writeMobjVars() error {
	s.w.U32(MagicMobjVars)
	vars := s.vars()
	for _, mo := range s.st.Thinkers.Mobjs() {
		if !archivable(mo) || mo.Serial == 0 || !vars.Has(mo) {
			continue
		}
		s.w.U32(mo.Serial)
		if err := s.writeVarRecord(vars.Get(mo)); err != nil {
			return eris.Wrapf(err, "mobj %d vars", mo.Serial)
		}
		s.report.MobjVars++
	}
	s.w.U32(0)
	return s.w.Err()
}

func (l *loader) readMobjVars() error {
	if err := l.expectMagic(sectionMobjVars, MagicMobjVars); err != nil {
		return err
	}
	for {
		serial := l.r.U32()
		if err := l.r.Err(); err != nil {
			return err
		}
		if serial == 0 {
			return nil
		}
		t, err := l.readVarRecord()
		if err != nil {
			return eris.Wrapf(err, "mobj %d vars", serial)
		}
		vars := l.vars()
		l.rs.mobj(serial, "mobj vars", func(mo *entity.Mobj) { vars.Set(mo, t) })
		l.report.MobjVars++
	}
}

func (s *saver) writeTables() error {
	s.w.U32(MagicTables)
	if err := s.enc.WriteTablePool(); err != nil {
		return err
	}
	s.report.Tables = s.enc.TableCount()
	s.report.DroppedKeys = s.enc.Dropped
	return nil
}

func (l *loader) readTables() error {
	if err := l.expectMagic(sectionTables, MagicTables); err != nil {
		return err
	}
	if err := l.dec.ReadTablePool(); err != nil {
		return err
	}
	l.rs.watchTables(l.dec.Tables()...)
	l.report.Tables = len(l.dec.Tables())
	return nil
}

// Геометрия

func (s *saver) writeWorld() error {
	s.w.U32(MagicWorld)
	ss, err := delta.WriteSectors(s.w, s.st.Map)
	if err != nil {
		return err
	}
	ls, err := delta.WriteLines(s.w, s.st.Map)
	if err != nil {
		return err
	}
	s.w.U32(MagicPolyobjs)
	if err := delta.WritePolyobjs(s.w, s.st.Map); err != nil {
		return err
	}
	s.report.Sectors, s.report.FFloors, s.report.Lines = ss.Sectors, ss.FFloors, ls.Lines
	return nil
}

func (l *loader) readWorld() error {
	if err := l.expectMagic(sectionWorld, MagicWorld); err != nil {
		return err
	}
	ss, err := delta.ReadSectors(l.r, l.st.Map)
	if err != nil {
		return err
	}
	ls, err := delta.ReadLines(l.r, l.st.Map)
	if err != nil {
		return err
	}
	if err := l.expectMagic(sectionWorld, MagicPolyobjs); err != nil {
		return err
	}
	if err := delta.ReadPolyobjs(l.r, l.st.Map); err != nil {
		return err
	}
	l.report.Sectors, l.report.FFloors, l.report.Lines = ss.Sectors, ss.FFloors, ls.Lines
	return nil
}

// Мыслители

func (s *saver) writeThinkers() error {
	s.w.U32(MagicThinkers)
	for _, t := range s.st.Thinkers.All() {
		if mo, ok := t.(*entity.Mobj); ok && !archivable(mo) {
			continue
		}
		kind := t.ThinkerKind()
		codec, ok := thinkerCodecs[kind]
		if !ok {
			return eris.Errorf("no codec for thinker kind %s", kind)
		}
		s.w.U8(uint8(kind))
		codec.encode(s, t)
		if err := s.w.Err(); err != nil {
			return eris.Wrapf(err, "thinker %s", kind)
		}
		s.report.Thinkers++
		if kind == entity.KindMobj {
			s.report.Mobjs++
		}
	}
	s.w.U8(uint8(entity.KindEnd))
	return s.w.Err()
}

func (l *loader) readThinkers() error {
	if err := l.expectMagic(sectionThinkers, MagicThinkers); err != nil {
		return err
	}
	for {
		at := l.r.Offset()
		kind := entity.Kind(l.r.U8())
		if err := l.r.Err(); err != nil {
			return err
		}
		if kind == entity.KindEnd {
			return nil
		}
		codec, ok := thinkerCodecs[kind]
		if !ok {
			return eris.Wrapf(ErrUnknownThinker, "tag %d at offset %d", uint8(kind), at)
		}
		ts := codec.decode(l, kind)
		if err := l.r.Err(); err != nil {
			return eris.Wrapf(err, "thinker %s at offset %d", kind, at)
		}
		for _, t := range ts {
			l.st.Thinkers.AddLoaded(t)
		}
		l.report.Thinkers++
		if kind == entity.KindMobj {
			l.report.Mobjs++
		}
	}
}

// Глобальные параметры уровня

func (s *saver) writeSpecials() error {
	w := s.w
	lv := &s.st.Level
	w.U32(MagicSpecials)
	w.U32(lv.Time)
	w.U32(lv.RNGSeed)
	w.U8(lv.Weather)
	s.mobj(lv.SkyboxView)
	s.mobj(lv.SkyboxCenter)
	w.U16(uint16(len(lv.ItemRespawn)))
	for _, it := range lv.ItemRespawn {
		idx := noIndex
		if it.Thing != nil && s.st.Map.Thing(it.Thing.Index) == it.Thing {
			idx = uint16(it.Thing.Index)
		}
		w.U16(idx)
		w.U32(it.Time)
	}
	return w.Err()
}

func (l *loader) readSpecials() error {
	if err := l.expectMagic(sectionSpecials, MagicSpecials); err != nil {
		return err
	}
	r := l.r
	lv := &l.st.Level
	lv.Time = r.U32()
	lv.RNGSeed = r.U32()
	lv.Weather = r.U8()
	lv.SkyboxView, lv.SkyboxCenter = nil, nil
	l.mobjRef("skybox viewpoint", func(mo *entity.Mobj) { lv.SkyboxView = mo })
	l.mobjRef("skybox centerpoint", func(mo *entity.Mobj) { lv.SkyboxCenter = mo })
	n := int(r.U16())
	lv.ItemRespawn = lv.ItemRespawn[:0]
	for i := 0; i < n; i++ {
		idx := r.U16()
		at := r.U32()
		if err := r.Err(); err != nil {
			return err
		}
		mt := l.st.Map.Thing(int(idx))
		if idx != noIndex && mt == nil {
			return eris.Wrapf(ErrBadIndex, "respawn mapthing %d", idx)
		}
		lv.ItemRespawn = append(lv.ItemRespawn, game.ItemRespawn{Thing: mt, Time: at})
	}
	return r.Err()
}
