// Package script описывает значения скриптового слоя (динамические атрибуты объектов)
// и их бинарный кодек.
//
// Значение: закрытое множество типов: nil (null), Bool, Int, String, *Table и Ref
// (ссылка на объект движка). Все типы сравнимы, поэтому любое значение может быть
// ключом таблицы.
package script

import "fmt"

// Kind тег вида значения на проводе
type Kind uint8

const (
	KindNull     Kind = 0x00
	KindTrue     Kind = 0x01
	KindFalse    Kind = 0x02
	KindInt      Kind = 0x03
	KindString   Kind = 0x04
	KindTable    Kind = 0x05
	KindMobj     Kind = 0x06
	KindPlayer   Kind = 0x07
	KindMapThing Kind = 0x08
	KindVertex   Kind = 0x09
	KindLine     Kind = 0x0A
	KindSide     Kind = 0x0B
	KindSector   Kind = 0x0C
	KindPolyobj  Kind = 0x0D
	KindMobjInfo Kind = 0x0E
	KindState    Kind = 0x0F
	KindFFloor   Kind = 0x10

	// KindLegacyRef писался старыми ревизиями движка (u32 полезной нагрузки).
	// Сейчас не пишется; строгий декодер считает его неизвестным.
	KindLegacyRef Kind = 0x20

	// KindEnd завершает список записей таблицы
	KindEnd Kind = 0xFF
)

var kindNames = map[Kind]string{
	KindNull:      "null",
	KindTrue:      "true",
	KindFalse:     "false",
	KindInt:       "int",
	KindString:    "string",
	KindTable:     "table",
	KindMobj:      "mobj",
	KindPlayer:    "player",
	KindMapThing:  "mapthing",
	KindVertex:    "vertex",
	KindLine:      "line",
	KindSide:      "side",
	KindSector:    "sector",
	KindPolyobj:   "polyobj",
	KindMobjInfo:  "mobjinfo",
	KindState:     "state",
	KindFFloor:    "ffloor",
	KindLegacyRef: "legacy-ref",
	KindEnd:       "end",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(0x%02x)", uint8(k))
}

// IsRef сообщает, является ли вид ссылкой на объект движка
func (k Kind) IsRef() bool {
	return k >= KindMobj && k <= KindFFloor
}

// Value значение скриптового слоя. nil означает null.
type Value interface {
	Kind() Kind
}

// KindOf возвращает вид значения с учётом nil
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// Bool логическое значение
type Bool bool

func (b Bool) Kind() Kind {
	if b {
		return KindTrue
	}
	return KindFalse
}

// Int знаковое число с фиксированной точкой (числа скриптового слоя целые)
type Int int32

func (Int) Kind() Kind { return KindInt }

// String строка произвольных байт, нули внутри допустимы
type String string

func (String) Kind() Kind { return KindString }

// Ref ссылка на объект движка. Obj обязан быть указателем: от этого зависят
// сравнимость и идентичность.
type Ref struct {
	Of  Kind
	Obj any
}

func (r Ref) Kind() Kind { return r.Of }
