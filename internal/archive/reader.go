package archive

import (
	"bytes"
	"encoding/binary"

	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/vec"
)

// Reader читает данные, записанные Writer. Любое чтение за концом
// устанавливает ErrTruncated и возвращает нулевые значения.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader создаёт Reader поверх data (данные не копируются)
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err возвращает первую ошибку чтения
func (r *Reader) Err() error {
	return r.err
}

// Offset возвращает текущую позицию курсора
func (r *Reader) Offset() int {
	return r.pos
}

// Remaining возвращает число непрочитанных байт
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Fail устанавливает ошибку извне (например, при нарушении структуры),
// чтобы последующие чтения стали no-op. Первая ошибка сохраняется.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > len(r.data)-r.pos {
		r.err = eris.Wrapf(ErrTruncated, "need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) U8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) I8() int8 {
	return int8(r.U8())
}

func (r *Reader) Bool() bool {
	return r.U8() != 0
}

func (r *Reader) U16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) I16() int16 {
	return int16(r.U16())
}

func (r *Reader) U32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) Fixed() vec.Fixed {
	return vec.Fixed(r.I32())
}

func (r *Reader) Angle() vec.Angle {
	return vec.Angle(r.U32())
}

// Raw читает n байт; возвращённый срез: копия
func (r *Reader) Raw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Skip пропускает n байт
func (r *Reader) Skip(n int) {
	r.take(n)
}

// String читает строку с префиксом длины u16
func (r *Reader) String() string {
	n := int(r.U16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// Name читает имя лампа фиксированной длины, отрезая хвостовые нули
func (r *Reader) Name() string {
	b := r.take(NameLen)
	if b == nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
