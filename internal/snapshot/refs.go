package snapshot

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/world"
	"github.com/annel0/savestate/internal/world/entity"
)

// unresolvedMobj заглушка ссылки на mobj внутри таблиц скриптового слоя.
// Живёт только между чтением пула таблиц и вторым проходом загрузки.
type unresolvedMobj struct {
	serial uint32
}

// objects отображает объекты состояния в идентификаторы провода
type objects struct {
	st *game.State
}

// asRef приводит объект ссылки к *T. null=true для nil-указателя нужного типа.
func asRef[T any](obj any) (v *T, null, ok bool) {
	v, ok = obj.(*T)
	return v, ok && v == nil, ok
}

func (o objects) RefID(r script.Ref) (uint32, uint16, bool, error) {
	m := o.st.Map
	fail := func() (uint32, uint16, bool, error) {
		return 0, 0, false, eris.Wrapf(script.ErrUnresolvableRef, "%s %T", r.Of, r.Obj)
	}
	found := func(id uint32, sub uint16) (uint32, uint16, bool, error) {
		return id, sub, true, nil
	}

	switch r.Of {
	case script.KindMobj:
		mo, null, ok := asRef[entity.Mobj](r.Obj)
		if !ok {
			return fail()
		}
		if null || !archivable(mo) || mo.Serial == 0 {
			return 0, 0, false, nil
		}
		return found(mo.Serial, 0)
	case script.KindPlayer:
		p, null, ok := asRef[entity.Player](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if !ok || o.st.Players.Get(p.Slot) != p {
			return fail()
		}
		return found(uint32(p.Slot), 0)
	case script.KindMapThing:
		v, null, ok := asRef[world.MapThing](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && m.Thing(v.Index) == v {
			return found(uint32(v.Index), 0)
		}
	case script.KindVertex:
		v, null, ok := asRef[world.Vertex](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && m.Vertex(v.Index) == v {
			return found(uint32(v.Index), 0)
		}
	case script.KindLine:
		v, null, ok := asRef[world.Line](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && m.Line(v.Index) == v {
			return found(uint32(v.Index), 0)
		}
	case script.KindSide:
		v, null, ok := asRef[world.Side](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && m.Side(v.Index) == v {
			return found(uint32(v.Index), 0)
		}
	case script.KindSector:
		v, null, ok := asRef[world.Sector](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && m.Sector(v.Index) == v {
			return found(uint32(v.Index), 0)
		}
	case script.KindPolyobj:
		v, null, ok := asRef[world.Polyobj](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && m.Polyobj(v.Index) == v {
			return found(uint32(v.Index), 0)
		}
	case script.KindMobjInfo:
		v, null, ok := asRef[entity.MobjInfo](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok {
			for i := range entity.MobjInfos {
				if &entity.MobjInfos[i] == v {
					return found(uint32(i), 0)
				}
			}
		}
	case script.KindState:
		v, null, ok := asRef[entity.State](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok {
			for i := range entity.States {
				if &entity.States[i] == v {
					return found(uint32(i), 0)
				}
			}
		}
	case script.KindFFloor:
		v, null, ok := asRef[world.FFloor](r.Obj)
		if null {
			return 0, 0, false, nil
		}
		if ok && v.Sector != nil && m.Sector(v.Sector.Index) == v.Sector {
			return found(uint32(v.Sector.Index), uint16(v.Ordinal))
		}
	}
	return fail()
}

func (o objects) Lookup(kind script.Kind, id uint32, sub uint16) (any, error) {
	m := o.st.Map
	var obj any
	switch kind {
	case script.KindMobj:
		return &unresolvedMobj{serial: id}, nil
	case script.KindPlayer:
		if p := o.st.Players.Get(int(id)); p != nil {
			obj = p
		}
	case script.KindMapThing:
		if v := m.Thing(int(id)); v != nil {
			obj = v
		}
	case script.KindVertex:
		if v := m.Vertex(int(id)); v != nil {
			obj = v
		}
	case script.KindLine:
		if v := m.Line(int(id)); v != nil {
			obj = v
		}
	case script.KindSide:
		if v := m.Side(int(id)); v != nil {
			obj = v
		}
	case script.KindSector:
		if v := m.Sector(int(id)); v != nil {
			obj = v
		}
	case script.KindPolyobj:
		if v := m.Polyobj(int(id)); v != nil {
			obj = v
		}
	case script.KindMobjInfo:
		if entity.MobjType(id).Valid() {
			obj = &entity.MobjInfos[id]
		}
	case script.KindState:
		if entity.StateNum(id).Valid() {
			obj = &entity.States[id]
		}
	case script.KindFFloor:
		if sec := m.Sector(int(id)); sec != nil && int(sub) < len(sec.FFloors) {
			obj = sec.FFloors[sub]
		}
	}
	if obj == nil {
		return nil, eris.Wrapf(ErrBadIndex, "%s %d/%d", kind, id, sub)
	}
	return obj, nil
}

// fixup ссылка на mobj, ожидающая второго прохода
type fixup struct {
	serial uint32
	what   string
	bind   func(*entity.Mobj)
}

// resolver связывает серийные номера с живыми объектами после того,
// как восстановлены все мыслители
type resolver struct {
	log        *logging.Logger
	fixups     []fixup
	tables     []*script.Table
	unresolved int
}

// mobj откладывает привязку ссылки. Нулевой номер: отсутствие ссылки.
func (rs *resolver) mobj(serial uint32, what string, bind func(*entity.Mobj)) {
	if serial == 0 {
		return
	}
	rs.fixups = append(rs.fixups, fixup{serial: serial, what: what, bind: bind})
}

// watchTables добавляет таблицы, в которых нужно заменить заглушки ссылок
func (rs *resolver) watchTables(ts ...*script.Table) {
	rs.tables = append(rs.tables, ts...)
}

// resolve выполняет второй проход: строит индекс серийных номеров и связывает
// все отложенные ссылки. Промахи логируются, слот остаётся пустым.
func (rs *resolver) resolve(list *entity.List) {
	index := make(map[uint32]*entity.Mobj)
	for _, mo := range list.Mobjs() {
		if mo.Serial != 0 {
			index[mo.Serial] = mo
		}
	}

	for _, f := range rs.fixups {
		mo, ok := index[f.serial]
		if !ok {
			rs.miss(f.what, f.serial)
			continue
		}
		f.bind(mo)
	}
	rs.fixups = nil

	for _, t := range rs.tables {
		rs.resolveTable(t, index)
	}
	rs.tables = nil
}

func (rs *resolver) resolveTable(t *script.Table, index map[uint32]*entity.Mobj) {
	type change struct {
		key, newKey, val script.Value
	}
	var changes []change
	t.Range(func(key, val script.Value) bool {
		nk := rs.resolveValue(key, index)
		nv := rs.resolveValue(val, index)
		if nk != key || nv != val {
			changes = append(changes, change{key: key, newKey: nk, val: nv})
		}
		return true
	})
	for _, c := range changes {
		t.Rekey(c.key, c.newKey, c.val)
	}
}

func (rs *resolver) resolveValue(v script.Value, index map[uint32]*entity.Mobj) script.Value {
	ref, ok := v.(script.Ref)
	if !ok || ref.Of != script.KindMobj {
		return v
	}
	u, ok := ref.Obj.(*unresolvedMobj)
	if !ok {
		return v
	}
	mo, found := index[u.serial]
	if !found {
		rs.miss("script value", u.serial)
		return nil
	}
	return script.Ref{Of: script.KindMobj, Obj: mo}
}

func (rs *resolver) miss(what string, serial uint32) {
	rs.unresolved++
	if rs.log != nil {
		rs.log.Warn("⚠️ Ссылка %s на mobj #%d не найдена, поле обнулено", what, serial)
	}
}
