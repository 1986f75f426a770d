package delta

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/world"
)

// Биты базовой маски линии
const (
	LDFlags     uint8 = 0x01
	LDSpecial   uint8 = 0x02
	LDCallCount uint8 = 0x04
	LDS0Offsets uint8 = 0x08
	LDS0Top     uint8 = 0x10
	LDS0Bottom  uint8 = 0x20
	LDS0Mid     uint8 = 0x40
	LDExtended  uint8 = 0x80
)

// Биты расширенной маски линии
const (
	LDS1Offsets  uint8 = 0x01
	LDS1Top      uint8 = 0x02
	LDS1Bottom   uint8 = 0x04
	LDS1Mid      uint8 = 0x08
	LDArgs       uint8 = 0x10
	LDStringArgs uint8 = 0x20
	LDExecDelay  uint8 = 0x40
)

// sideBits маски одной стороны: смещения, верх, низ, середина
type sideBits struct {
	offsets, top, bottom, mid uint8
}

var (
	frontBits = sideBits{LDS0Offsets, LDS0Top, LDS0Bottom, LDS0Mid}
	backBits  = sideBits{LDS1Offsets, LDS1Top, LDS1Bottom, LDS1Mid}
)

func sideMask(base, live *world.Side, bits sideBits) uint8 {
	var mask uint8
	if live.TextureOffset != base.TextureOffset || live.RowOffset != base.RowOffset {
		mask |= bits.offsets
	}
	if live.TopTexture != base.TopTexture {
		mask |= bits.top
	}
	if live.BottomTexture != base.BottomTexture {
		mask |= bits.bottom
	}
	if live.MidTexture != base.MidTexture {
		mask |= bits.mid
	}
	return mask
}

func writeSide(w *archive.Writer, sd *world.Side, mask uint8, bits sideBits) {
	if mask&bits.offsets != 0 {
		w.Fixed(sd.TextureOffset)
		w.Fixed(sd.RowOffset)
	}
	if mask&bits.top != 0 {
		w.I32(sd.TopTexture)
	}
	if mask&bits.bottom != 0 {
		w.I32(sd.BottomTexture)
	}
	if mask&bits.mid != 0 {
		w.I32(sd.MidTexture)
	}
}

func readSide(r *archive.Reader, sd *world.Side, mask uint8, bits sideBits) {
	if mask&bits.offsets != 0 {
		sd.TextureOffset = r.Fixed()
		sd.RowOffset = r.Fixed()
	}
	if mask&bits.top != 0 {
		sd.TopTexture = r.I32()
	}
	if mask&bits.bottom != 0 {
		sd.BottomTexture = r.I32()
	}
	if mask&bits.mid != 0 {
		sd.MidTexture = r.I32()
	}
}

func lineMasks(m *world.Map, i int) (uint8, uint8) {
	base := &m.Baseline.Lines[i]
	live := m.Lines[i]
	var diff, diff2 uint8

	if live.Flags != base.Flags {
		diff |= LDFlags
	}
	if live.Special != base.Special {
		diff |= LDSpecial
	}
	if live.CallCount != base.CallCount {
		diff |= LDCallCount
	}
	diff |= sideMask(&m.Baseline.Sides[base.Sides[0]], m.Sides[live.Sides[0]], frontBits)
	if live.Sides[1] != world.NoSide {
		diff2 |= sideMask(&m.Baseline.Sides[base.Sides[1]], m.Sides[live.Sides[1]], backBits)
	}
	if live.Args != base.Args {
		diff2 |= LDArgs
	}
	if live.StringArgs != base.StringArgs {
		diff2 |= LDStringArgs
	}
	if live.ExecutorDelay != base.ExecutorDelay {
		diff2 |= LDExecDelay
	}
	if diff2 != 0 {
		diff |= LDExtended
	}
	return diff, diff2
}

// WriteLines пишет список отличий линий (и их сторон), завершённый -1
func WriteLines(w *archive.Writer, m *world.Map) (Stats, error) {
	var st Stats
	base := m.Baseline
	if len(base.Lines) != len(m.Lines) || len(base.Sides) != len(m.Sides) {
		return st, eris.Wrapf(ErrTopologyMismatch, "lines %d/%d, sides %d/%d",
			len(m.Lines), len(base.Lines), len(m.Sides), len(base.Sides))
	}

	for i, live := range m.Lines {
		if live.Sides != base.Lines[i].Sides {
			return st, eris.Wrapf(ErrTopologyMismatch, "line %d sides changed", i)
		}
		diff, diff2 := lineMasks(m, i)
		if diff == 0 {
			continue
		}
		st.Lines++

		w.I16(int16(i))
		w.U8(diff)
		if diff&LDExtended != 0 {
			w.U8(diff2)
		}
		if diff&LDFlags != 0 {
			w.I16(live.Flags)
		}
		if diff&LDSpecial != 0 {
			w.I16(live.Special)
		}
		if diff&LDCallCount != 0 {
			w.I16(live.CallCount)
		}
		writeSide(w, m.Sides[live.Sides[0]], diff, frontBits)
		if live.Sides[1] != world.NoSide {
			writeSide(w, m.Sides[live.Sides[1]], diff2, backBits)
		}
		if diff2&LDArgs != 0 {
			for _, a := range live.Args {
				w.I32(a)
			}
		}
		if diff2&LDStringArgs != 0 {
			for _, s := range live.StringArgs {
				w.String(s)
			}
		}
		if diff2&LDExecDelay != 0 {
			w.I32(live.ExecutorDelay)
		}
	}
	w.I16(lineListEnd)
	return st, w.Err()
}

// ReadLines применяет список отличий линий к свежезагруженной карте
func ReadLines(r *archive.Reader, m *world.Map) (Stats, error) {
	var st Stats
	for {
		idx := r.I16()
		if r.Err() != nil {
			return st, r.Err()
		}
		if idx == lineListEnd {
			return st, nil
		}
		ln := m.Line(int(idx))
		if ln == nil {
			return st, eris.Wrapf(ErrIndexOutOfRange, "line %d of %d at offset %d", idx, len(m.Lines), r.Offset()-2)
		}
		st.Lines++

		diff := r.U8()
		var diff2 uint8
		if diff&LDExtended != 0 {
			diff2 = r.U8()
		}
		if diff&LDFlags != 0 {
			ln.Flags = r.I16()
		}
		if diff&LDSpecial != 0 {
			ln.Special = r.I16()
		}
		if diff&LDCallCount != 0 {
			ln.CallCount = r.I16()
		}
		readSide(r, m.Sides[ln.Sides[0]], diff, frontBits)

		back := diff2 & (LDS1Offsets | LDS1Top | LDS1Bottom | LDS1Mid)
		if back != 0 {
			if ln.Sides[1] == world.NoSide {
				return st, eris.Wrapf(ErrIndexOutOfRange, "line %d has no back side for diff 0x%02x", idx, back)
			}
			readSide(r, m.Sides[ln.Sides[1]], diff2, backBits)
		}
		if diff2&LDArgs != 0 {
			for j := range ln.Args {
				ln.Args[j] = r.I32()
			}
		}
		if diff2&LDStringArgs != 0 {
			for j := range ln.StringArgs {
				ln.StringArgs[j] = r.String()
			}
		}
		if diff2&LDExecDelay != 0 {
			ln.ExecutorDelay = r.I32()
		}
		if r.Err() != nil {
			return st, r.Err()
		}
	}
}

// WritePolyobjs пишет состояние всех полиобъектов: u16 count, затем (i32 id, angle, x, y)
func WritePolyobjs(w *archive.Writer, m *world.Map) error {
	w.U16(uint16(len(m.Polyobjs)))
	for _, po := range m.Polyobjs {
		w.I32(po.ID)
		w.Angle(po.Angle)
		w.Fixed(po.Pos.X)
		w.Fixed(po.Pos.Y)
	}
	return w.Err()
}

// ReadPolyobjs восстанавливает полиобъекты по id
func ReadPolyobjs(r *archive.Reader, m *world.Map) error {
	n := int(r.U16())
	if r.Err() != nil {
		return r.Err()
	}
	if n != len(m.Polyobjs) {
		return eris.Wrapf(ErrTopologyMismatch, "polyobjs: archive %d, map %d", n, len(m.Polyobjs))
	}
	byID := make(map[int32]*world.Polyobj, n)
	for _, po := range m.Polyobjs {
		byID[po.ID] = po
	}
	for i := 0; i < n; i++ {
		id := r.I32()
		angle := r.Angle()
		x, y := r.Fixed(), r.Fixed()
		if r.Err() != nil {
			return r.Err()
		}
		po, ok := byID[id]
		if !ok {
			return eris.Wrapf(ErrIndexOutOfRange, "polyobj id %d", id)
		}
		po.Angle = angle
		po.Pos.X, po.Pos.Y = x, y
	}
	return nil
}
