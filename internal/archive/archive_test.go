package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/vec"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(4, 1024)
	w.U8(0xAB)
	w.I8(-3)
	w.Bool(true)
	w.U16(0xBEEF)
	w.I16(-1234)
	w.U32(0xDEADBEEF)
	w.I32(-7)
	w.Fixed(vec.FromInt(-5))
	w.Angle(vec.Ang270)
	w.Name("FLOOR0_1")
	w.Name("F")
	w.String("hello")
	require.NoError(t, w.Err())

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(0xAB), r.U8())
	assert.Equal(t, int8(-3), r.I8())
	assert.True(t, r.Bool())
	assert.Equal(t, uint16(0xBEEF), r.U16())
	assert.Equal(t, int16(-1234), r.I16())
	assert.Equal(t, uint32(0xDEADBEEF), r.U32())
	assert.Equal(t, int32(-7), r.I32())
	assert.Equal(t, vec.FromInt(-5), r.Fixed())
	assert.Equal(t, vec.Ang270, r.Angle())
	assert.Equal(t, "FLOOR0_1", r.Name())
	assert.Equal(t, "F", r.Name())
	assert.Equal(t, "hello", r.String())
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestStringWithEmbeddedZeros(t *testing.T) {
	s := "a\x00b\x00\x00c"

	w := NewWriter(0, 0)
	w.String(s)
	require.NoError(t, w.Err())
	assert.Equal(t, 2+len(s), w.Len(), "длина u16 + сырые байты")

	r := NewReader(w.Bytes())
	got := r.String()
	require.NoError(t, r.Err())
	assert.Equal(t, []byte(s), []byte(got))
	assert.Len(t, got, 6)
}

func TestWriterCapacityExceeded(t *testing.T) {
	w := NewWriter(2, 6)
	w.U32(1)
	w.U16(2)
	require.NoError(t, w.Err())

	w.U8(3)
	require.Error(t, w.Err())
	assert.ErrorIs(t, w.Err(), ErrCapacityExceeded)
	assert.Equal(t, 6, w.Len(), "после ошибки данные не дописываются")

	// ошибка липкая
	w.U8(4)
	assert.Equal(t, 6, w.Len())
}

func TestWriterStringTooLong(t *testing.T) {
	w := NewWriter(0, 0)
	w.String(string(make([]byte, 0x10000)))
	assert.ErrorIs(t, w.Err(), ErrStringTooLong)
	assert.Equal(t, 0, w.Len())
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	assert.Equal(t, uint16(0x0201), r.U16())
	assert.Equal(t, uint32(0), r.U32())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
	assert.Equal(t, uint8(0), r.U8(), "после ошибки чтение возвращает нули")
	assert.Equal(t, 2, r.Offset())
}

func TestReaderStringLengthBeyondData(t *testing.T) {
	r := NewReader([]byte{10, 0, 'a', 'b'})
	assert.Equal(t, "", r.String())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
}

func TestNameTooLongStopsWriter(t *testing.T) {
	w := NewWriter(0, 0)
	w.Name("FLOOR0_1")
	require.NoError(t, w.Err())
	w.Name("GFZROCK01")
	assert.ErrorIs(t, w.Err(), ErrNameTooLong)
	w.U8(1)
	assert.Equal(t, NameLen, w.Len(), "после ошибки запись не продолжается")
}
