package entity

import (
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
)

// Ceiling движитель потолка. Crushing выбирает поведение (и тег в архиве).
type Ceiling struct {
	Crushing     bool
	Type         uint8
	Sector       *world.Sector
	BottomHeight vec.Fixed
	TopHeight    vec.Fixed
	Speed        vec.Fixed
	OldSpeed     vec.Fixed
	Delay        vec.Fixed
	DelayTimer   vec.Fixed
	Crush        bool
	Texture      int32
	Direction    int32
	Tag          int32
	OldDirection int32
	OrigSpeed    vec.Fixed
	SourceLine   *world.Line
}

func (c *Ceiling) ThinkerKind() Kind {
	if c.Crushing {
		return KindCrushCeiling
	}
	return KindCeiling
}

// Floor движитель пола
type Floor struct {
	Type            uint8
	Crush           bool
	Sector          *world.Sector
	Direction       int32
	Texture         int32
	FloorDestHeight vec.Fixed
	Speed           vec.Fixed
	OrigSpeed       vec.Fixed
	Delay           vec.Fixed
	DelayTimer      vec.Fixed
	Tag             int16
	SourceLine      *world.Line
}

func (*Floor) ThinkerKind() Kind { return KindFloor }

// Door вертикальная дверь
type Door struct {
	Type         uint8
	Sector       *world.Sector
	TopHeight    vec.Fixed
	Speed        vec.Fixed
	Direction    int32
	TopWait      int32
	TopCountdown int32
	Line         *world.Line
}

func (*Door) ThinkerKind() Kind { return KindDoor }

// LightFlash случайные вспышки света
type LightFlash struct {
	Sector   *world.Sector
	MaxLight int32
	MinLight int32
}

func (*LightFlash) ThinkerKind() Kind { return KindLightFlash }

// Strobe стробоскоп
type Strobe struct {
	Sector     *world.Sector
	Count      int32
	MinLight   int16
	MaxLight   int16
	DarkTime   int32
	BrightTime int32
}

func (*Strobe) ThinkerKind() Kind { return KindStrobe }

// Glow плавная пульсация света
type Glow struct {
	Sector    *world.Sector
	MinLight  int16
	MaxLight  int16
	Direction int16
	Speed     int16
}

func (*Glow) ThinkerKind() Kind { return KindGlow }

// FireFlicker мерцание огня
type FireFlicker struct {
	Sector     *world.Sector
	Count      int32
	ResetCount int32
	MaxLight   int16
	MinLight   int16
}

func (*FireFlicker) ThinkerKind() Kind { return KindFireFlicker }

// LightFade плавный переход уровня освещения
type LightFade struct {
	Sector         *world.Sector
	SourceLevel    int16
	DestLevel      int16
	FixedCurLevel  vec.Fixed
	FixedPerSecond vec.Fixed
	TicBased       bool
	Timer          int32
}

func (*LightFade) ThinkerKind() Kind { return KindLightFade }

// Elevator согласованное движение пола и потолка
type Elevator struct {
	Type              uint8
	Sector            *world.Sector
	ActionSector      *world.Sector
	Direction         int32
	FloorDestHeight   vec.Fixed
	CeilingDestHeight vec.Fixed
	Speed             vec.Fixed
	OrigSpeed         vec.Fixed
	Low               vec.Fixed
	High              vec.Fixed
	Distance          vec.Fixed
	Delay             vec.Fixed
	DelayTimer        vec.Fixed
	FloorWasHeight    vec.Fixed
	CeilingWasHeight  vec.Fixed
	Player            *Player
	SourceLine        *world.Line
}

func (*Elevator) ThinkerKind() Kind { return KindElevator }

// ContinuousFalling бесконечно падающий сектор
type ContinuousFalling struct {
	Sector             *world.Sector
	Speed              vec.Fixed
	Direction          int32
	FloorStartHeight   vec.Fixed
	CeilingStartHeight vec.Fixed
	DestHeight         vec.Fixed
}

func (*ContinuousFalling) ThinkerKind() Kind { return KindContinuousFalling }

// StartCrumble обрушение платформы после касания игроком
type StartCrumble struct {
	SourceLine       *world.Line
	Sector           *world.Sector
	ActionSector     *world.Sector
	Player           *Player
	Direction        int32
	OrigSpeed        vec.Fixed
	Timer            int32
	Speed            vec.Fixed
	FloorWasHeight   vec.Fixed
	CeilingWasHeight vec.Fixed
	Flags            uint8
}

func (*StartCrumble) ThinkerKind() Kind { return KindStartCrumble }

// Scroll прокрутка текстур или переноса. Affectee: индекс стороны или сектора
// в зависимости от Type; Control: управляющий сектор (nil: без управления).
type Scroll struct {
	DX, DY     vec.Fixed
	Affectee   int32
	Control    *world.Sector
	LastHeight vec.Fixed
	VDX, VDY   vec.Fixed
	Accel      bool
	Exclusive  bool
	Type       uint8
}

func (*Scroll) ThinkerKind() Kind { return KindScroll }

// Friction зона трения
type Friction struct {
	Friction      vec.Fixed
	MoveFactor    vec.Fixed
	Affectee      *world.Sector
	Referrer      *world.Sector
	RoverFriction bool
}

func (*Friction) ThinkerKind() Kind { return KindFriction }

// Pusher ветер, течение или точечный толкатель (Source)
type Pusher struct {
	Type        uint8
	XMag, YMag  vec.Fixed
	Magnitude   vec.Fixed
	Radius      vec.Fixed
	X, Y, Z     vec.Fixed
	Affectee    *world.Sector
	Referrer    *world.Sector
	Source      *Mobj
	RoverPusher bool
	Exclusive   bool
	Slider      bool
}

func (*Pusher) ThinkerKind() Kind { return KindPusher }

// Executor отложенный вызов линейного исполнителя
type Executor struct {
	Line   *world.Line
	Caller *Mobj
	Sector *world.Sector
	Timer  int32
}

func (*Executor) ThinkerKind() Kind { return KindExecutor }

// Disappear периодическое появление и исчезновение дополнительного пола
type Disappear struct {
	AppearTime    int32
	DisappearTime int32
	Offset        int32
	Timer         int32
	Affectee      *world.Line
	SourceLine    *world.Line
	Exists        bool
}

func (*Disappear) ThinkerKind() Kind { return KindDisappear }

// Fade затухание прозрачности дополнительного пола
type Fade struct {
	FFloor         *world.FFloor
	SourceValue    int32
	DestValue      int32
	DestLightLevel int16
	Speed          int16
	TicBased       bool
	Timer          int32
	DoExists       bool
	DoTranslucent  bool
	DoLighting     bool
	DoCollision    bool
	DoGhostFade    bool
	ExactAlpha     bool
}

func (*Fade) ThinkerKind() Kind { return KindFade }

// PlaneDisplace смещение плоскости вслед за управляющим сектором
type PlaneDisplace struct {
	Affectee   *world.Sector
	Control    *world.Sector
	LastHeight vec.Fixed
	Speed      vec.Fixed
	Type       uint8
}

func (*PlaneDisplace) ThinkerKind() Kind { return KindPlaneDisplace }

// PolyRotate вращение полиобъекта
type PolyRotate struct {
	PolyObjNum int32
	Speed      int32
	Distance   int32
	TurnObjs   uint8
}

func (*PolyRotate) ThinkerKind() Kind { return KindPolyRotate }

// PolyMove прямолинейное движение полиобъекта
type PolyMove struct {
	PolyObjNum int32
	Speed      int32
	MomX, MomY vec.Fixed
	Distance   int32
	Angle      vec.Angle
}

func (*PolyMove) ThinkerKind() Kind { return KindPolyMove }

// PolyWaypoint движение полиобъекта по точкам пути; Target: текущая точка
type PolyWaypoint struct {
	PolyObjNum     int32
	Speed          int32
	Sequence       int32
	PointNum       int32
	Direction      int32
	ReturnBehavior uint8
	Continuous     bool
	StopSound      bool
	Target         *Mobj
}

func (*PolyWaypoint) ThinkerKind() Kind { return KindPolyWaypoint }

// PolySlideDoor сдвижная дверь-полиобъект
type PolySlideDoor struct {
	PolyObjNum   int32
	Delay        int32
	DelayCount   int32
	InitSpeed    int32
	Speed        int32
	InitDistance int32
	Distance     int32
	InitAngle    vec.Angle
	Angle        vec.Angle
	RevAngle     vec.Angle
	MomX, MomY   vec.Fixed
	Closing      bool
}

func (*PolySlideDoor) ThinkerKind() Kind { return KindPolySlideDoor }

// PolySwingDoor распашная дверь-полиобъект
type PolySwingDoor struct {
	PolyObjNum   int32
	Delay        int32
	DelayCount   int32
	InitSpeed    int32
	Speed        int32
	InitDistance int32
	Distance     int32
	Closing      bool
}

func (*PolySwingDoor) ThinkerKind() Kind { return KindPolySwingDoor }

// PolyDisplace смещение полиобъекта по высоте управляющего сектора
type PolyDisplace struct {
	PolyObjNum int32
	Control    *world.Sector
	DX, DY     vec.Fixed
	OldHeights vec.Fixed
}

func (*PolyDisplace) ThinkerKind() Kind { return KindPolyDisplace }

// PolyFade затухание полиобъекта
type PolyFade struct {
	PolyObjNum  int32
	SourceValue int32
	DestValue   int32
	DoCollision bool
	DoGhostFade bool
	TicBased    bool
	Duration    int32
	Timer       int32
}

func (*PolyFade) ThinkerKind() Kind { return KindPolyFade }
