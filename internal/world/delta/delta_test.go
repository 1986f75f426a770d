package delta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
	"github.com/annel0/savestate/internal/world/worldtest"
)

func encode(t *testing.T, m *world.Map) []byte {
	t.Helper()
	w := archive.NewWriter(0, 0)
	_, err := WriteSectors(w, m)
	require.NoError(t, err)
	_, err = WriteLines(w, m)
	require.NoError(t, err)
	require.NoError(t, WritePolyobjs(w, m))
	return w.Bytes()
}

func decode(t *testing.T, data []byte, res *world.Resource) *world.Map {
	t.Helper()
	m := world.NewMap(res)
	r := archive.NewReader(data)
	_, err := ReadSectors(r, m)
	require.NoError(t, err)
	_, err = ReadLines(r, m)
	require.NoError(t, err)
	require.NoError(t, ReadPolyobjs(r, m))
	assert.Zero(t, r.Remaining(), "все байты должны быть прочитаны")
	return m
}

func TestSectorLightIsFiveBytes(t *testing.T) {
	res := worldtest.Resource()
	m := world.NewMap(res)
	m.Sectors[12].LightLevel = 255

	w := archive.NewWriter(0, 0)
	st, err := WriteSectors(w, m)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Sectors)

	// запись + терминатор 0xFFFF
	data := w.Bytes()
	require.Len(t, data, 5+2)
	assert.Equal(t, []byte{12, 0, SDLight, 0xFF, 0x00}, data[:5])

	loaded := world.NewMap(res)
	_, err = ReadSectors(archive.NewReader(data), loaded)
	require.NoError(t, err)

	got := loaded.Sectors[12]
	assert.Equal(t, int16(255), got.LightLevel)
	want := *m.Sectors[12]
	got.FFloors, want.FFloors = nil, nil
	assert.Equal(t, want, *got, "остальные поля сектора равны исходным")
}

func TestUnchangedMapWritesOnlyTerminators(t *testing.T) {
	m := worldtest.Map()

	w := archive.NewWriter(0, 0)
	st, err := WriteSectors(w, m)
	require.NoError(t, err)
	assert.Zero(t, st.Sectors)
	lst, err := WriteLines(w, m)
	require.NoError(t, err)
	assert.Zero(t, lst.Lines)

	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, w.Bytes())
}

func TestEmptyDiffIsIdempotent(t *testing.T) {
	res := worldtest.Resource()
	data := encode(t, world.NewMap(res))

	fresh := world.NewMap(res)
	loaded := decode(t, data, res)
	assert.Equal(t, fresh, loaded)
}

func TestFullRoundTrip(t *testing.T) {
	res := worldtest.Resource()
	m := world.NewMap(res)

	s := m.Sectors[3]
	s.FloorHeight = vec.FromInt(-16)
	s.CeilingHeight = vec.FromInt(512)
	s.FloorPic = "LAVA1"
	s.CeilingPic = "F_SKY2"
	s.Special = 7
	s.FloorXOffs = vec.FromInt(3)
	s.FloorYOffs = vec.FromInt(4)
	s.CeilingXOffs = vec.FromInt(5)
	s.CeilingYOffs = vec.FromInt(6)
	s.FloorAngle = vec.Ang45
	s.CeilingAngle = vec.Ang270
	s.Tag = 99
	s.FFloors[1].Alpha = 64

	ln := m.Lines[2]
	ln.Flags = 0x40
	ln.Special = 12
	ln.CallCount = 3
	ln.Args[9] = -5
	ln.StringArgs[1] = "a\x00b"
	ln.ExecutorDelay = 35
	m.Sides[ln.Sides[0]].TopTexture = 77
	m.Sides[ln.Sides[1]].RowOffset = vec.FromInt(8)
	m.Sides[ln.Sides[1]].MidTexture = 5

	m.Polyobjs[0].Angle = vec.Ang180
	m.Polyobjs[0].Pos.X = vec.FromInt(300)

	loaded := decode(t, encode(t, m), res)
	assert.Equal(t, m, loaded)
}

func TestFFloorSubDiff(t *testing.T) {
	res := worldtest.Resource()
	m := world.NewMap(res)
	m.Sectors[3].FFloors[1].Flags = 0x10

	w := archive.NewWriter(0, 0)
	st, err := WriteSectors(w, m)
	require.NoError(t, err)
	assert.Equal(t, 1, st.FFloors)

	// u16 index, u8 mask, (u16 ordinal, u8 mask, u32 flags), u16 end, u16 list end
	assert.Equal(t, []byte{
		3, 0, SDFFloors,
		1, 0, FFFlags, 0x10, 0, 0, 0,
		0xFF, 0xFF,
		0xFF, 0xFF,
	}, w.Bytes())
}

func TestOutOfRangeSectorIsFatal(t *testing.T) {
	m := worldtest.Map()
	w := archive.NewWriter(0, 0)
	w.U16(uint16(len(m.Sectors)))
	w.U8(SDLight)
	w.I16(1)
	w.U16(0xFFFF)

	_, err := ReadSectors(archive.NewReader(w.Bytes()), m)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestOutOfRangeLineIsFatal(t *testing.T) {
	m := worldtest.Map()
	w := archive.NewWriter(0, 0)
	w.I16(int16(len(m.Lines) + 3))
	w.U8(LDFlags)
	w.I16(1)
	w.I16(-1)

	_, err := ReadLines(archive.NewReader(w.Bytes()), m)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestOutOfRangeFFloorIsFatal(t *testing.T) {
	m := worldtest.Map()
	w := archive.NewWriter(0, 0)
	w.U16(3)
	w.U8(SDFFloors)
	w.U16(9)
	w.U8(FFAlpha)
	w.I32(1)
	w.U16(0xFFFF)
	w.U16(0xFFFF)

	_, err := ReadSectors(archive.NewReader(w.Bytes()), m)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTruncatedSectorList(t *testing.T) {
	m := worldtest.Map()
	_, err := ReadSectors(archive.NewReader([]byte{1, 0, SDLight}), m)
	assert.ErrorIs(t, err, archive.ErrTruncated)
}

func TestTopologyMismatchOnWrite(t *testing.T) {
	m := worldtest.Map()
	m.Sectors[3].FFloors = m.Sectors[3].FFloors[:1]

	_, err := WriteSectors(archive.NewWriter(0, 0), m)
	assert.ErrorIs(t, err, ErrTopologyMismatch)
}

func TestPolyobjUnknownID(t *testing.T) {
	m := worldtest.Map()
	w := archive.NewWriter(0, 0)
	w.U16(1)
	w.I32(999)
	w.Angle(0)
	w.Fixed(0)
	w.Fixed(0)

	err := ReadPolyobjs(archive.NewReader(w.Bytes()), m)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}
