package script

import "github.com/rotisserie/eris"

var (
	// ErrUnknownKind неизвестный тег вида значения; позиция курсора после него недостоверна
	ErrUnknownKind = eris.New("unknown value kind")

	// ErrUnexpectedEnd маркер конца там, где ожидалось значение
	ErrUnexpectedEnd = eris.New("unexpected end marker")

	// ErrBadTableID ссылка на таблицу с недопустимым идентификатором
	ErrBadTableID = eris.New("bad table id")

	// ErrTooManyTables больше 65535 уникальных таблиц в одном снапшоте
	ErrTooManyTables = eris.New("too many tables")

	// ErrTablePoolMismatch контрольное число таблиц не совпало
	ErrTablePoolMismatch = eris.New("table pool count mismatch")

	// ErrUnresolvableRef объект движка не может быть записан (не принадлежит миру)
	ErrUnresolvableRef = eris.New("unresolvable engine reference")
)
