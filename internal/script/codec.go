package script

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
)

// Objects отображает объекты движка в идентификаторы провода и обратно.
// Для массивов (секторы, линии, ...) id: индекс, для mobj: серийный номер,
// для игрока: слот, для ffloor: индекс сектора и порядковый номер в sub.
type Objects interface {
	// RefID возвращает идентификатор ссылки. ok=false означает, что объект
	// больше не существует и пишется как null.
	RefID(r Ref) (id uint32, sub uint16, ok bool, err error)

	// Lookup возвращает объект по идентификатору. Для mobj допускается
	// возврат заглушки, которую позже заменит резолвер.
	Lookup(kind Kind, id uint32, sub uint16) (any, error)
}

// Encoder пишет значения и интернирует таблицы: первая встреча таблицы
// выдаёт следующий id и ставит её в очередь на запись записей, повторные: только id.
type Encoder struct {
	w     *archive.Writer
	objs  Objects
	ids   map[*Table]uint16
	queue []*Table

	// Dropped число записей пула, отброшенных из-за ключа на исчезнувший объект
	Dropped int
}

// NewEncoder создаёт кодировщик поверх w
func NewEncoder(w *archive.Writer, objs Objects) *Encoder {
	return &Encoder{
		w:    w,
		objs: objs,
		ids:  make(map[*Table]uint16),
	}
}

// TableCount возвращает число интернированных таблиц
func (e *Encoder) TableCount() int {
	return len(e.queue)
}

// intern возвращает id таблицы и признак первой встречи
func (e *Encoder) intern(t *Table) (uint16, bool, error) {
	if id, ok := e.ids[t]; ok {
		return id, false, nil
	}
	if len(e.queue) >= 0xFFFF {
		return 0, false, ErrTooManyTables
	}
	e.queue = append(e.queue, t)
	id := uint16(len(e.queue))
	e.ids[t] = id
	return id, true, nil
}

// WriteValue пишет одно значение с тегом вида
func (e *Encoder) WriteValue(v Value) error {
	switch val := v.(type) {
	case nil:
		e.w.U8(uint8(KindNull))
	case Bool:
		e.w.U8(uint8(val.Kind()))
	case Int:
		e.w.U8(uint8(KindInt))
		e.w.I32(int32(val))
	case String:
		e.w.U8(uint8(KindString))
		e.w.String(string(val))
	case *Table:
		if val == nil {
			e.w.U8(uint8(KindNull))
			break
		}
		id, _, err := e.intern(val)
		if err != nil {
			return err
		}
		e.w.U8(uint8(KindTable))
		e.w.U16(id)
	case Ref:
		if err := e.writeRef(val); err != nil {
			return err
		}
	default:
		return eris.Errorf("unsupported value type %T", v)
	}
	return e.w.Err()
}

func (e *Encoder) writeRef(r Ref) error {
	if !r.Of.IsRef() {
		return eris.Wrapf(ErrUnresolvableRef, "kind %s is not a reference", r.Of)
	}
	if r.Obj == nil {
		e.w.U8(uint8(KindNull))
		return nil
	}
	id, sub, ok, err := e.objs.RefID(r)
	if err != nil {
		return err
	}
	if !ok {
		e.w.U8(uint8(KindNull))
		return nil
	}
	e.w.U8(uint8(r.Of))
	switch r.Of {
	case KindMobj:
		e.w.U32(id)
	case KindPlayer:
		e.w.U8(uint8(id))
	case KindFFloor:
		e.w.U16(uint16(id))
		e.w.U16(sub)
	default:
		e.w.U16(uint16(id))
	}
	return nil
}

// WriteTablePool пишет записи всех интернированных таблиц в порядке id.
// Таблицы, впервые встреченные по ходу, дописываются в конец очереди.
// Завершается контрольным числом таблиц.
func (e *Encoder) WriteTablePool() error {
	for i := 0; i < len(e.queue); i++ {
		var err error
		e.queue[i].Range(func(key, val Value) bool {
			var null bool
			if null, err = e.nullKey(key); err != nil {
				return false
			}
			if null {
				// объект-ключ не переживает снимок: запись не пишется вовсе
				e.Dropped++
				return true
			}
			if err = e.WriteValue(key); err != nil {
				return false
			}
			err = e.WriteValue(val)
			return err == nil
		})
		if err != nil {
			return eris.Wrapf(err, "table %d", i+1)
		}
		e.w.U8(uint8(KindEnd))
	}
	e.w.U16(uint16(len(e.queue)))
	return e.w.Err()
}

// nullKey сообщает, что ключ-ссылка будет записан как null
func (e *Encoder) nullKey(key Value) (bool, error) {
	r, ok := key.(Ref)
	if !ok {
		return false, nil
	}
	if r.Obj == nil {
		return true, nil
	}
	_, _, ok, err := e.objs.RefID(r)
	return !ok, err
}

// Decoder читает значения, записанные Encoder.
// В мягком режиме (lenient) ссылки на mobj и устаревшие виды пропускаются:
// значение вычитывается, но поле остаётся незаданным.
type Decoder struct {
	r       *archive.Reader
	objs    Objects
	tables  []*Table
	lenient bool

	// OnSkip вызывается для каждого пропущенного в мягком режиме значения
	OnSkip func(kind Kind, offset int)
	// OnNilKey вызывается для записи таблицы с ключом null; запись отбрасывается
	OnNilKey func(table int, offset int)
}

// NewDecoder создаёт декодер поверх r
func NewDecoder(r *archive.Reader, objs Objects, lenient bool) *Decoder {
	return &Decoder{r: r, objs: objs, lenient: lenient}
}

// Tables возвращает все таблицы, встреченные при декодировании, в порядке id
func (d *Decoder) Tables() []*Table {
	return d.tables
}

func (d *Decoder) table(id uint16, offset int) (*Table, error) {
	switch {
	case id == 0 || int(id) > len(d.tables)+1:
		return nil, eris.Wrapf(ErrBadTableID, "id %d at offset %d (known %d)", id, offset, len(d.tables))
	case int(id) == len(d.tables)+1:
		t := NewTable()
		d.tables = append(d.tables, t)
		return t, nil
	default:
		return d.tables[id-1], nil
	}
}

// ReadValue читает одно значение. ok=false означает, что значение пропущено
// в мягком режиме и поле нужно оставить незаданным.
func (d *Decoder) ReadValue() (v Value, ok bool, err error) {
	offset := d.r.Offset()
	kind := Kind(d.r.U8())
	if err := d.r.Err(); err != nil {
		return nil, false, err
	}
	if kind == KindEnd {
		return nil, false, eris.Wrapf(ErrUnexpectedEnd, "offset %d", offset)
	}
	return d.readBody(kind, offset)
}

// readEntryKey читает ключ записи таблицы; end=true: таблица закончилась
func (d *Decoder) readEntryKey() (key Value, ok, end bool, err error) {
	offset := d.r.Offset()
	kind := Kind(d.r.U8())
	if err := d.r.Err(); err != nil {
		return nil, false, false, err
	}
	if kind == KindEnd {
		return nil, false, true, nil
	}
	key, ok, err = d.readBody(kind, offset)
	return key, ok, false, err
}

func (d *Decoder) readBody(kind Kind, offset int) (Value, bool, error) {
	var v Value
	switch kind {
	case KindNull:
		v = nil
	case KindTrue:
		v = Bool(true)
	case KindFalse:
		v = Bool(false)
	case KindInt:
		v = Int(d.r.I32())
	case KindString:
		v = String(d.r.String())
	case KindTable:
		id := d.r.U16()
		if err := d.r.Err(); err != nil {
			return nil, false, err
		}
		t, err := d.table(id, offset)
		if err != nil {
			return nil, false, err
		}
		v = t
	case KindLegacyRef:
		if !d.lenient {
			return nil, false, eris.Wrapf(ErrUnknownKind, "%s at offset %d", kind, offset)
		}
		d.r.Skip(4)
		return nil, false, d.skip(kind, offset)
	default:
		if !kind.IsRef() {
			return nil, false, eris.Wrapf(ErrUnknownKind, "%s at offset %d", kind, offset)
		}
		var id uint32
		var sub uint16
		switch kind {
		case KindMobj:
			id = d.r.U32()
		case KindPlayer:
			id = uint32(d.r.U8())
		case KindFFloor:
			id = uint32(d.r.U16())
			sub = d.r.U16()
		default:
			id = uint32(d.r.U16())
		}
		if err := d.r.Err(); err != nil {
			return nil, false, err
		}
		if kind == KindMobj && d.lenient {
			return nil, false, d.skip(kind, offset)
		}
		obj, err := d.objs.Lookup(kind, id, sub)
		if err != nil {
			return nil, false, eris.Wrapf(err, "%s %d at offset %d", kind, id, offset)
		}
		v = Ref{Of: kind, Obj: obj}
	}
	if err := d.r.Err(); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (d *Decoder) skip(kind Kind, offset int) error {
	if err := d.r.Err(); err != nil {
		return err
	}
	if d.OnSkip != nil {
		d.OnSkip(kind, offset)
	}
	return nil
}

// ReadTablePool читает записи всех таблиц, на которые уже есть ссылки,
// включая обнаруженные по ходу чтения, и сверяет контрольное число.
func (d *Decoder) ReadTablePool() error {
	for i := 0; i < len(d.tables); i++ {
		t := d.tables[i]
		for {
			offset := d.r.Offset()
			key, keyOK, end, err := d.readEntryKey()
			if err != nil {
				return eris.Wrapf(err, "table %d", i+1)
			}
			if end {
				break
			}
			val, valOK, err := d.ReadValue()
			if err != nil {
				return eris.Wrapf(err, "table %d", i+1)
			}
			if !keyOK || !valOK {
				continue
			}
			if key == nil {
				if d.OnNilKey != nil {
					d.OnNilKey(i+1, offset)
				}
				continue
			}
			t.Set(key, val)
		}
	}
	count := d.r.U16()
	if err := d.r.Err(); err != nil {
		return err
	}
	if int(count) != len(d.tables) {
		return eris.Wrapf(ErrTablePoolMismatch, "header says %d, decoded %d", count, len(d.tables))
	}
	return nil
}
