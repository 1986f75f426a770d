package entity

import "github.com/annel0/savestate/internal/vec"

// MaxPlayers количество слотов игроков
const MaxPlayers = 32

// NumPowers количество таймеров усилений игрока
const NumPowers = 12

// PlayerState состояние жизненного цикла игрока
type PlayerState uint8

const (
	PlayerLive PlayerState = iota
	PlayerDead
	PlayerReborn
)

// TicCmd последняя команда управления, полученная от клиента
type TicCmd struct {
	ForwardMove int8
	SideMove    int8
	AngleTurn   int16
	Aiming      int16
	Buttons     uint16
}

// Player слот игрока
type Player struct {
	Slot   int
	InGame bool

	State     PlayerState
	PFlags    uint32
	Powers    [NumPowers]uint16
	Lives     int8
	Score     uint32
	Rings     int16
	Skin      uint8
	SkinColor uint16
	Aiming    vec.Angle
	DrawAngle vec.Angle
	Spectator bool
	Team      uint8
	Exiting   uint32

	Mo *Mobj

	// Поля соединения; переносятся только в снимке подключения
	JoinTime uint32
	QuitTime uint32
	Cmd      TicCmd
}

// Players массив слотов игроков
type Players [MaxPlayers]*Player

// NewPlayers создаёт пустые слоты
func NewPlayers() *Players {
	var ps Players
	for i := range ps {
		ps[i] = &Player{Slot: i, Lives: 3}
	}
	return &ps
}

// InGameMask возвращает битовую маску занятых слотов
func (ps *Players) InGameMask() uint32 {
	var mask uint32
	for i, p := range ps {
		if p.InGame {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// Get возвращает игрока по слоту или nil
func (ps *Players) Get(slot int) *Player {
	if slot < 0 || slot >= MaxPlayers {
		return nil
	}
	return ps[slot]
}
