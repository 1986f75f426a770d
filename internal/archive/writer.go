// Package archive реализует курсорный буфер для бинарных снапшотов.
//
// Формат little-endian. Writer растёт по мере необходимости, но не дальше MaxSize:
// выход за предел превращается в восстановимую ошибку ErrCapacityExceeded вместо
// записи за границу буфера.
package archive

import (
	"encoding/binary"

	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/vec"
)

const (
	// DefaultInitialSize стартовый размер буфера, если не задан конфигом
	DefaultInitialSize = 64 * 1024
	// DefaultMaxSize жёсткий предел размера снапшота по умолчанию
	DefaultMaxSize = 32 * 1024 * 1024

	// NameLen длина имени лампа (текстуры пола/потолка)
	NameLen = 8
)

// Writer последовательно пишет значения фиксированной ширины
type Writer struct {
	buf     []byte
	maxSize int
	err     error
}

// NewWriter создаёт буфер с начальной ёмкостью initial и пределом maxSize.
// Нулевые значения заменяются значениями по умолчанию.
func NewWriter(initial, maxSize int) *Writer {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if initial <= 0 {
		initial = DefaultInitialSize
	}
	if initial > maxSize {
		initial = maxSize
	}
	return &Writer{
		buf:     make([]byte, 0, initial),
		maxSize: maxSize,
	}
}

// Err возвращает первую ошибку записи
func (w *Writer) Err() error {
	return w.err
}

// Len возвращает количество записанных байт
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes возвращает записанные данные. Срез принадлежит Writer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// reserve проверяет, что n байт помещаются в предел, и возвращает срез под запись
func (w *Writer) reserve(n int) []byte {
	if w.err != nil {
		return nil
	}
	if len(w.buf)+n > w.maxSize {
		w.err = eris.Wrapf(ErrCapacityExceeded, "need %d bytes at offset %d, limit %d", n, len(w.buf), w.maxSize)
		return nil
	}
	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return w.buf[start:]
}

func (w *Writer) U8(v uint8) {
	if b := w.reserve(1); b != nil {
		b[0] = v
	}
}

func (w *Writer) I8(v int8) {
	w.U8(uint8(v))
}

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

func (w *Writer) U16(v uint16) {
	if b := w.reserve(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

func (w *Writer) U32(v uint32) {
	if b := w.reserve(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// Fixed пишет число 16.16
func (w *Writer) Fixed(v vec.Fixed) {
	w.I32(int32(v))
}

// Angle пишет угол BAM
func (w *Writer) Angle(v vec.Angle) {
	w.U32(uint32(v))
}

// Raw пишет байты как есть
func (w *Writer) Raw(p []byte) {
	if b := w.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// String пишет строку с префиксом длины u16. Нулевые байты внутри допустимы.
func (w *Writer) String(s string) {
	if w.err != nil {
		return
	}
	if len(s) > 0xFFFF {
		w.err = eris.Wrapf(ErrStringTooLong, "length %d", len(s))
		return
	}
	w.U16(uint16(len(s)))
	if b := w.reserve(len(s)); b != nil {
		copy(b, s)
	}
}

// Name пишет имя лампа фиксированной длины NameLen, дополняя нулями.
// Имя длиннее NameLen останавливает запись с ErrNameTooLong.
func (w *Writer) Name(s string) {
	if w.err != nil {
		return
	}
	if len(s) > NameLen {
		w.err = eris.Wrapf(ErrNameTooLong, "%q", s)
		return
	}
	b := w.reserve(NameLen)
	if b == nil {
		return
	}
	copy(b, s)
}
