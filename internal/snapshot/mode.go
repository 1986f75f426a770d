package snapshot

import "strings"

// Mode набор флагов, определяющих, какие секции попадают в снимок
type Mode uint8

const (
	// MobjVars записи атрибутов mobj
	MobjVars Mode = 1 << iota
	// Thinkers полный список мыслителей (иначе они порождаются картой заново)
	Thinkers
	// NetFields поля соединения игроков
	NetFields
	// Lenient мягкое декодирование значений для записей демо
	Lenient

	modeMask = MobjVars | Thinkers | NetFields | Lenient
)

// Предопределённые режимы
const (
	ModeSave    = MobjVars | Thinkers
	ModeNetJoin = MobjVars | Thinkers | NetFields
	ModeDemo    = Lenient
)

// Has сообщает, выставлены ли все флаги f
func (m Mode) Has(f Mode) bool {
	return m&f == f
}

func (m Mode) String() string {
	switch m {
	case ModeSave:
		return "save"
	case ModeNetJoin:
		return "netjoin"
	case ModeDemo:
		return "demo"
	}
	var parts []string
	for _, f := range []struct {
		flag Mode
		name string
	}{{MobjVars, "mobjvars"}, {Thinkers, "thinkers"}, {NetFields, "netfields"}, {Lenient, "lenient"}} {
		if m.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseMode разбирает имя предопределённого режима
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "save":
		return ModeSave, true
	case "netjoin", "join":
		return ModeNetJoin, true
	case "demo":
		return ModeDemo, true
	}
	return 0, false
}
