// Package entity описывает симуляционные объекты уровня: мыслители (thinkers),
// подвижные объекты (mobj) со статическими шаблонами и игроков.
package entity

import "fmt"

// Kind закрытое множество видов мыслителей. Значение совпадает с тегом на проводе.
type Kind uint8

const (
	KindMobj Kind = iota + 1
	KindCeiling
	KindCrushCeiling
	KindFloor
	KindDoor
	KindLightFlash
	KindStrobe
	KindGlow
	KindFireFlicker
	KindLightFade
	KindElevator
	KindContinuousFalling
	KindStartCrumble
	KindScroll
	KindFriction
	KindPusher
	KindExecutor
	KindDisappear
	KindFade
	KindPlaneDisplace
	KindPolyRotate
	KindPolyMove
	KindPolyWaypoint
	KindPolySlideDoor
	KindPolySwingDoor
	KindPolyDisplace
	KindPolyFade

	// KindEnd завершает список мыслителей в архиве
	KindEnd Kind = 0xFF
)

var kindNames = [...]string{
	KindMobj:              "mobj",
	KindCeiling:           "ceiling",
	KindCrushCeiling:      "crushceiling",
	KindFloor:             "floor",
	KindDoor:              "door",
	KindLightFlash:        "lightflash",
	KindStrobe:            "strobe",
	KindGlow:              "glow",
	KindFireFlicker:       "fireflicker",
	KindLightFade:         "lightfade",
	KindElevator:          "elevator",
	KindContinuousFalling: "continuousfalling",
	KindStartCrumble:      "startcrumble",
	KindScroll:            "scroll",
	KindFriction:          "friction",
	KindPusher:            "pusher",
	KindExecutor:          "executor",
	KindDisappear:         "disappear",
	KindFade:              "fade",
	KindPlaneDisplace:     "planedisplace",
	KindPolyRotate:        "polyrotate",
	KindPolyMove:          "polymove",
	KindPolyWaypoint:      "polywaypoint",
	KindPolySlideDoor:     "polyslidedoor",
	KindPolySwingDoor:     "polyswingdoor",
	KindPolyDisplace:      "polydisplace",
	KindPolyFade:          "polyfade",
}

func (k Kind) String() string {
	if k == KindEnd {
		return "end"
	}
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Thinker объект, участвующий в покадровой симуляции
type Thinker interface {
	ThinkerKind() Kind
}

// List упорядоченный список мыслителей уровня и выдача серийных номеров mobj.
// Серийный номер 0 означает «нет объекта».
type List struct {
	items      []Thinker
	nextSerial uint32
}

// NewList создаёт пустой список
func NewList() *List {
	return &List{nextSerial: 1}
}

// Add добавляет мыслителя в конец списка. Mobj без серийного номера получает новый.
func (l *List) Add(t Thinker) {
	if mo, ok := t.(*Mobj); ok && mo.Serial == 0 {
		mo.Serial = l.AllocSerial()
	}
	l.items = append(l.items, t)
}

// AddLoaded добавляет восстановленного мыслителя, сохраняя его серийный номер
// (в том числе нулевой: такие номера раздаёт AssignMissingSerials).
func (l *List) AddLoaded(t Thinker) {
	l.items = append(l.items, t)
}

// Remove удаляет мыслителя из списка
func (l *List) Remove(t Thinker) bool {
	for i, it := range l.items {
		if it == t {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// All возвращает мыслителей в порядке списка. Срез принадлежит List.
func (l *List) All() []Thinker {
	return l.items
}

// Len возвращает количество мыслителей
func (l *List) Len() int {
	return len(l.items)
}

// Mobjs возвращает все mobj списка
func (l *List) Mobjs() []*Mobj {
	var out []*Mobj
	for _, t := range l.items {
		if mo, ok := t.(*Mobj); ok {
			out = append(out, mo)
		}
	}
	return out
}

// AllocSerial выдаёт следующий серийный номер
func (l *List) AllocSerial() uint32 {
	s := l.nextSerial
	l.nextSerial++
	if l.nextSerial == 0 {
		l.nextSerial = 1
	}
	return s
}

// NextSerial возвращает номер, который получит следующий mobj
func (l *List) NextSerial() uint32 {
	return l.nextSerial
}

// SetNextSerial восстанавливает счётчик серийных номеров после загрузки
func (l *List) SetNextSerial(n uint32) {
	if n == 0 {
		n = 1
	}
	l.nextSerial = n
}

// AssignMissingSerials раздаёт номера mobj, созданным загрузчиком без номера,
// и поднимает счётчик выше всех занятых номеров.
func (l *List) AssignMissingSerials() {
	for _, mo := range l.Mobjs() {
		if mo.Serial >= l.nextSerial {
			l.nextSerial = mo.Serial + 1
		}
	}
	for _, mo := range l.Mobjs() {
		if mo.Serial == 0 {
			mo.Serial = l.AllocSerial()
		}
	}
}

// Clear очищает список (новый уровень или загрузка)
func (l *List) Clear() {
	l.items = nil
	l.nextSerial = 1
}
