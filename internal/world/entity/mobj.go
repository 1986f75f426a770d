package entity

import (
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
)

// Mobj подвижный объект уровня (актёр)
type Mobj struct {
	Serial uint32
	Type   MobjType

	X, Y, Z          vec.Fixed
	FloorZ, CeilingZ vec.Fixed
	MomX, MomY, MomZ vec.Fixed
	Angle            vec.Angle
	Radius, Height   vec.Fixed

	Flags  uint32
	Flags2 uint32
	EFlags uint16

	Health       int32
	ReactionTime int32

	State  StateNum
	Tics   int32
	Sprite uint16
	Frame  uint32

	MoveDir   vec.Angle
	MoveCount int32
	Threshold int32
	LastLook  int32

	Target, Tracer *Mobj
	HNext, HPrev   *Mobj
	Player         *Player
	SpawnPoint     *world.MapThing

	Friction   vec.Fixed
	MoveFactor vec.Fixed
	Fuse       int32

	WaterTop, WaterBottom vec.Fixed

	Scale, DestScale, ScaleSpeed vec.Fixed

	Skin      uint8
	Color     uint16
	CusVal    int32
	CVMem     int32
	ExtValue1 int32
	ExtValue2 int32

	// Removing объект удаляется в текущем тике и не архивируется
	Removing bool
}

func (*Mobj) ThinkerKind() Kind { return KindMobj }

// Info возвращает шаблон типа объекта
func (mo *Mobj) Info() *MobjInfo {
	return mo.Type.Info()
}

// NewMobj создаёт объект со значениями шаблона типа. Серийный номер не назначается.
func NewMobj(t MobjType, x, y, z vec.Fixed) *Mobj {
	info := t.Info()
	st := States[info.SpawnState]
	return &Mobj{
		Type:         t,
		X:            x,
		Y:            y,
		Z:            z,
		Radius:       info.Radius,
		Height:       info.Height,
		Flags:        info.Flags,
		Health:       info.SpawnHealth,
		ReactionTime: info.ReactionTime,
		State:        info.SpawnState,
		Tics:         st.Tics,
		Sprite:       st.Sprite,
		Frame:        st.Frame,
		LastLook:     DefaultLastLook,
		Friction:     OrigFriction,
		MoveFactor:   vec.FracUnit,
		Scale:        DefaultScale,
		DestScale:    DefaultScale,
		ScaleSpeed:   DefaultScaleSpeed,
	}
}

// ThingPosition возвращает позицию и угол, заданные записью расстановки
func ThingPosition(mt *world.MapThing) (x, y, z vec.Fixed, angle vec.Angle) {
	return vec.FromInt(int(mt.X)), vec.FromInt(int(mt.Y)), vec.FromInt(int(mt.Z)), vec.AngleFromDegrees(int(mt.Angle))
}

// SpawnFromThing создаёт объект по записи расстановки. ok=false: номер не описан в таблице.
func SpawnFromThing(mt *world.MapThing) (*Mobj, bool) {
	t, ok := TypeForDoomedNum(mt.Type)
	if !ok {
		return nil, false
	}
	x, y, z, angle := ThingPosition(mt)
	mo := NewMobj(t, x, y, z)
	mo.Angle = angle
	mo.SpawnPoint = mt
	return mo, true
}

// SetState переключает кадр анимации вместе со спрайтом и длительностью
func (mo *Mobj) SetState(s StateNum) {
	if !s.Valid() {
		s = SNull
	}
	st := States[s]
	mo.State = s
	mo.Tics = st.Tics
	mo.Sprite = st.Sprite
	mo.Frame = st.Frame
}

// HoopSegments количество сегментов одного обруча
const HoopSegments = 8

// SpawnHoop создаёт центр обруча и его сегменты, связанные цепочкой HNext/HPrev.
// Сегменты (MTHoop, MTHoopCollide) целиком выводятся из записи расстановки,
// поэтому в архив они не попадают.
func SpawnHoop(mt *world.MapThing) []*Mobj {
	x, y, z, angle := ThingPosition(mt)
	center := NewMobj(MTHoopCenter, x, y, z)
	center.Angle = angle
	center.SpawnPoint = mt

	out := []*Mobj{center}
	prev := center
	radius := vec.FromInt(96)
	for i := 0; i < HoopSegments; i++ {
		t := MTHoop
		if i%2 == 1 {
			t = MTHoopCollide
		}
		a := angle + vec.Angle(uint32(i)*uint32(vec.Ang45))
		seg := NewMobj(t, x, y, z+radius.Mul(sinApprox(a)))
		seg.Target = center
		seg.HPrev = prev
		prev.HNext = seg
		prev = seg
		out = append(out, seg)
	}
	return out
}

// sinApprox грубая синусоида по восьми направлениям (сегменты стоят через 45°)
func sinApprox(a vec.Angle) vec.Fixed {
	const half = vec.FracUnit * 7071 / 10000
	switch a / vec.Ang45 {
	case 0, 4:
		return 0
	case 1, 3:
		return half
	case 2:
		return vec.FracUnit
	case 5, 7:
		return -half
	default:
		return -vec.FracUnit
	}
}
