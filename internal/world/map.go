package world

import (
	"github.com/annel0/savestate/internal/vec"
)

// Vertex вершина карты
type Vertex struct {
	Index int
	X, Y  vec.Fixed
}

// FFloor дополнительный пол (3D-этаж) внутри сектора.
// Ordinal порядковый номер в списке сектора, стабилен для одной карты.
type FFloor struct {
	Sector  *Sector
	Ordinal int
	Master  int // индекс линии-источника
	Flags   uint32
	Alpha   int32
}

// Sector сектор карты
type Sector struct {
	Index int

	FloorHeight   vec.Fixed
	CeilingHeight vec.Fixed
	FloorPic      string
	CeilingPic    string
	LightLevel    int16
	Special       int16
	Tag           int16

	FloorXOffs   vec.Fixed
	FloorYOffs   vec.Fixed
	CeilingXOffs vec.Fixed
	CeilingYOffs vec.Fixed
	FloorAngle   vec.Angle
	CeilingAngle vec.Angle

	FFloors []*FFloor

	// Активные движители сектора. Восстанавливаются загрузчиком мыслителей.
	FloorData    any
	CeilingData  any
	LightingData any
}

// Side сторона линии
type Side struct {
	Index         int
	TextureOffset vec.Fixed
	RowOffset     vec.Fixed
	TopTexture    int32
	BottomTexture int32
	MidTexture    int32
	Sector        int
}

// NumLineArgs количество числовых аргументов линии
const NumLineArgs = 10

// NumLineStringArgs количество строковых аргументов линии
const NumLineStringArgs = 2

// NoSide отсутствующая сторона линии
const NoSide = -1

// Line линия карты
type Line struct {
	Index         int
	V1, V2        int
	Flags         int16
	Special       int16
	Tag           int16
	Args          [NumLineArgs]int32
	StringArgs    [NumLineStringArgs]string
	Sides         [2]int
	ExecutorDelay int32
	CallCount     int16
}

// MapThing запись расстановки объекта на карте
type MapThing struct {
	Index   int
	X, Y    int16
	Z       int16
	Angle   int16 // градусы
	Type    uint16
	Options uint16
}

// Polyobj полиобъект
type Polyobj struct {
	Index int
	ID    int32
	Angle vec.Angle
	Pos   vec.Vec2
}

// Map живое состояние геометрии уровня.
// Baseline никогда не изменяется: diff всегда считается относительно него.
type Map struct {
	Baseline *Resource

	Vertices []*Vertex
	Sectors  []*Sector
	Sides    []*Side
	Lines    []*Line
	Things   []*MapThing
	Polyobjs []*Polyobj
}

// NewMap строит живую карту как независимую копию ресурса
func NewMap(res *Resource) *Map {
	m := &Map{Baseline: res}

	m.Vertices = make([]*Vertex, len(res.Vertices))
	for i, v := range res.Vertices {
		cp := v
		cp.Index = i
		m.Vertices[i] = &cp
	}

	m.Sectors = make([]*Sector, len(res.Sectors))
	for i := range res.Sectors {
		m.Sectors[i] = res.Sectors[i].clone(i)
	}

	m.Sides = make([]*Side, len(res.Sides))
	for i, sd := range res.Sides {
		cp := sd
		cp.Index = i
		m.Sides[i] = &cp
	}

	m.Lines = make([]*Line, len(res.Lines))
	for i, ln := range res.Lines {
		cp := ln
		cp.Index = i
		m.Lines[i] = &cp
	}

	m.Things = make([]*MapThing, len(res.Things))
	for i, mt := range res.Things {
		cp := mt
		cp.Index = i
		m.Things[i] = &cp
	}

	m.Polyobjs = make([]*Polyobj, len(res.Polyobjs))
	for i, po := range res.Polyobjs {
		cp := po
		cp.Index = i
		m.Polyobjs[i] = &cp
	}
	return m
}

// clone копирует сектор ресурса вместе со списком дополнительных полов
func (s *Sector) clone(index int) *Sector {
	cp := *s
	cp.Index = index
	cp.FloorData, cp.CeilingData, cp.LightingData = nil, nil, nil
	cp.FFloors = make([]*FFloor, len(s.FFloors))
	for j, ff := range s.FFloors {
		ffc := *ff
		ffc.Sector = &cp
		ffc.Ordinal = j
		cp.FFloors[j] = &ffc
	}
	return &cp
}

// Name возвращает имя уровня
func (m *Map) Name() string {
	return m.Baseline.Name
}

// Sector возвращает сектор по индексу или nil
func (m *Map) Sector(i int) *Sector {
	if i < 0 || i >= len(m.Sectors) {
		return nil
	}
	return m.Sectors[i]
}

// Line возвращает линию по индексу или nil
func (m *Map) Line(i int) *Line {
	if i < 0 || i >= len(m.Lines) {
		return nil
	}
	return m.Lines[i]
}

// Side возвращает сторону по индексу или nil
func (m *Map) Side(i int) *Side {
	if i < 0 || i >= len(m.Sides) {
		return nil
	}
	return m.Sides[i]
}

// Thing возвращает запись расстановки по индексу или nil
func (m *Map) Thing(i int) *MapThing {
	if i < 0 || i >= len(m.Things) {
		return nil
	}
	return m.Things[i]
}

// Polyobj возвращает полиобъект по индексу или nil
func (m *Map) Polyobj(i int) *Polyobj {
	if i < 0 || i >= len(m.Polyobjs) {
		return nil
	}
	return m.Polyobjs[i]
}

// Vertex возвращает вершину по индексу или nil
func (m *Map) Vertex(i int) *Vertex {
	if i < 0 || i >= len(m.Vertices) {
		return nil
	}
	return m.Vertices[i]
}

// SectorsByTag возвращает все сектора с тегом
func (m *Map) SectorsByTag(tag int16) []*Sector {
	var out []*Sector
	for _, s := range m.Sectors {
		if s.Tag == tag {
			out = append(out, s)
		}
	}
	return out
}

// Reset возвращает живую геометрию к baseline на месте: указатели на секторы,
// линии и дополнительные полы остаются действительными. Ссылки секторов на движители
// сбрасываются только при clearMovers: без перезагрузки мыслителей живые движители
// должны остаться привязанными.
func (m *Map) Reset(clearMovers bool) {
	res := m.Baseline
	for i, sec := range m.Sectors {
		fresh := res.Sectors[i].clone(i)
		if !clearMovers {
			fresh.FloorData, fresh.CeilingData, fresh.LightingData = sec.FloorData, sec.CeilingData, sec.LightingData
		}
		ffloors := sec.FFloors
		for j, ff := range ffloors {
			if j < len(fresh.FFloors) {
				ff.Flags = fresh.FFloors[j].Flags
				ff.Alpha = fresh.FFloors[j].Alpha
			}
		}
		*sec = *fresh
		sec.FFloors = ffloors
	}
	for i, sd := range m.Sides {
		*sd = res.Sides[i]
		sd.Index = i
	}
	for i, ln := range m.Lines {
		*ln = res.Lines[i]
		ln.Index = i
	}
	for i, po := range m.Polyobjs {
		*po = res.Polyobjs[i]
		po.Index = i
	}
}
