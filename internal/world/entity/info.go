package entity

import "github.com/annel0/savestate/internal/vec"

// MobjType тип подвижного объекта (индекс в таблице MobjInfos)
type MobjType uint16

const (
	MTUnknown MobjType = iota
	MTPlayer
	MTBlueCrawla
	MTRing
	MTYellowSpring
	MTBarrel
	MTSkyboxView
	MTSkyboxCenter
	MTHoop
	MTHoopCollide
	MTHoopCenter
	MTThok
	MTPushPoint
	MTWaypoint

	NumMobjTypes
)

// StateNum номер кадра анимации (индекс в таблице States)
type StateNum uint16

const (
	SNull StateNum = iota
	SPlayStand
	SPlayRun
	SCrawlaStand
	SCrawlaRun1
	SCrawlaRun2
	SRing
	SSpring
	SSpring2
	SBarrel
	SInvisible
	SHoop
	SHoopCenter
	SThok

	NumStates
)

// Флаги mobj
const (
	MFSpecial    uint32 = 0x0001
	MFSolid      uint32 = 0x0002
	MFShootable  uint32 = 0x0004
	MFNoSector   uint32 = 0x0008
	MFNoBlockmap uint32 = 0x0010
	MFScenery    uint32 = 0x0020
	MFNoGravity  uint32 = 0x0040
	MFNoClip     uint32 = 0x0080
	MFEnemy      uint32 = 0x0100
	MFPushable   uint32 = 0x0200
	MFNoThink    uint32 = 0x0400
)

// State кадр анимации
type State struct {
	Sprite uint16
	Frame  uint32
	Tics   int32
	Next   StateNum
}

// MobjInfo статический шаблон типа объекта. DoomedNum -1: тип не ставится картой.
type MobjInfo struct {
	DoomedNum    int32
	SpawnState   StateNum
	SpawnHealth  int32
	ReactionTime int32
	Radius       vec.Fixed
	Height       vec.Fixed
	Flags        uint32
}

// Значения по умолчанию полей, не описанных шаблоном
const (
	OrigFriction      vec.Fixed = 0xE800
	DefaultScale      vec.Fixed = vec.FracUnit
	DefaultScaleSpeed vec.Fixed = vec.FracUnit / 12
	DefaultLastLook   int32     = -1
)

// Номер расстановки, который порождает обруч NiGHTS (центр + сегменты)
const HoopDoomedNum = 1705

// HoopCollectedThreshold порог центра обруча, уже собранного игроком
const HoopCollectedThreshold = 4242

// States таблица кадров
var States = [NumStates]State{
	SNull:        {Sprite: 0, Frame: 0, Tics: -1, Next: SNull},
	SPlayStand:   {Sprite: 1, Frame: 0, Tics: 105, Next: SPlayStand},
	SPlayRun:     {Sprite: 1, Frame: 1, Tics: 2, Next: SPlayRun},
	SCrawlaStand: {Sprite: 2, Frame: 0, Tics: 5, Next: SCrawlaStand},
	SCrawlaRun1:  {Sprite: 2, Frame: 0, Tics: 3, Next: SCrawlaRun2},
	SCrawlaRun2:  {Sprite: 2, Frame: 1, Tics: 3, Next: SCrawlaRun1},
	SRing:        {Sprite: 3, Frame: 0x8000, Tics: -1, Next: SNull},
	SSpring:      {Sprite: 4, Frame: 0, Tics: -1, Next: SNull},
	SSpring2:     {Sprite: 4, Frame: 1, Tics: 4, Next: SSpring},
	SBarrel:      {Sprite: 5, Frame: 0, Tics: -1, Next: SNull},
	SInvisible:   {Sprite: 6, Frame: 0, Tics: -1, Next: SNull},
	SHoop:        {Sprite: 7, Frame: 0, Tics: -1, Next: SNull},
	SHoopCenter:  {Sprite: 6, Frame: 0, Tics: -1, Next: SNull},
	SThok:        {Sprite: 8, Frame: 0x8000, Tics: 8, Next: SNull},
}

// MobjInfos таблица шаблонов
var MobjInfos = [NumMobjTypes]MobjInfo{
	MTUnknown:      {DoomedNum: -1, SpawnState: SNull, SpawnHealth: 1000, Radius: vec.FromInt(8), Height: vec.FromInt(16), Flags: MFNoGravity},
	MTPlayer:       {DoomedNum: -1, SpawnState: SPlayStand, SpawnHealth: 1, ReactionTime: 0, Radius: vec.FromInt(16), Height: vec.FromInt(48), Flags: MFSolid | MFShootable},
	MTBlueCrawla:   {DoomedNum: 100, SpawnState: SCrawlaStand, SpawnHealth: 1, ReactionTime: 32, Radius: vec.FromInt(24), Height: vec.FromInt(32), Flags: MFSpecial | MFShootable | MFEnemy},
	MTRing:         {DoomedNum: 300, SpawnState: SRing, SpawnHealth: 1000, Radius: vec.FromInt(16), Height: vec.FromInt(24), Flags: MFSpecial | MFNoGravity},
	MTYellowSpring: {DoomedNum: 550, SpawnState: SSpring, SpawnHealth: 1000, Radius: vec.FromInt(20), Height: vec.FromInt(16), Flags: MFSolid | MFSpecial},
	MTBarrel:       {DoomedNum: 3004, SpawnState: SBarrel, SpawnHealth: 20, ReactionTime: 8, Radius: vec.FromInt(16), Height: vec.FromInt(40), Flags: MFSolid | MFShootable | MFPushable},
	MTSkyboxView:   {DoomedNum: 780, SpawnState: SInvisible, SpawnHealth: 1000, Radius: vec.FromInt(8), Height: vec.FromInt(8), Flags: MFNoBlockmap | MFNoGravity | MFScenery},
	MTSkyboxCenter: {DoomedNum: 781, SpawnState: SInvisible, SpawnHealth: 1000, Radius: vec.FromInt(8), Height: vec.FromInt(8), Flags: MFNoBlockmap | MFNoGravity | MFScenery},
	MTHoop:         {DoomedNum: -1, SpawnState: SHoop, SpawnHealth: 1000, Radius: vec.FromInt(1), Height: vec.FromInt(8), Flags: MFNoBlockmap | MFNoGravity},
	MTHoopCollide:  {DoomedNum: -1, SpawnState: SInvisible, SpawnHealth: 1000, Radius: vec.FromInt(16), Height: vec.FromInt(32), Flags: MFSpecial | MFNoGravity},
	MTHoopCenter:   {DoomedNum: HoopDoomedNum, SpawnState: SHoopCenter, SpawnHealth: 1000, Radius: vec.FromInt(2), Height: vec.FromInt(4), Flags: MFNoGravity | MFNoBlockmap},
	MTThok:         {DoomedNum: -1, SpawnState: SThok, SpawnHealth: 1000, Radius: vec.FromInt(32), Height: vec.FromInt(64), Flags: MFNoBlockmap | MFNoGravity | MFNoClip},
	MTPushPoint:    {DoomedNum: 754, SpawnState: SInvisible, SpawnHealth: 1000, Radius: vec.FromInt(16), Height: vec.FromInt(16), Flags: MFNoBlockmap | MFNoGravity | MFScenery},
	MTWaypoint:     {DoomedNum: 760, SpawnState: SInvisible, SpawnHealth: 1000, Radius: vec.FromInt(8), Height: vec.FromInt(8), Flags: MFNoBlockmap | MFNoGravity | MFScenery},
}

// Info возвращает шаблон типа; неизвестный тип даёт шаблон MTUnknown
func (t MobjType) Info() *MobjInfo {
	if t >= NumMobjTypes {
		return &MobjInfos[MTUnknown]
	}
	return &MobjInfos[t]
}

// Valid сообщает, описан ли тип в таблице
func (t MobjType) Valid() bool {
	return t < NumMobjTypes
}

// Valid сообщает, описан ли кадр в таблице
func (s StateNum) Valid() bool {
	return s < NumStates
}

// TypeForDoomedNum ищет тип объекта по номеру расстановки
func TypeForDoomedNum(num uint16) (MobjType, bool) {
	for t := MobjType(0); t < NumMobjTypes; t++ {
		if MobjInfos[t].DoomedNum == int32(num) {
			return t, true
		}
	}
	return MTUnknown, false
}
