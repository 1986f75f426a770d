// Package delta кодирует отличия живой геометрии уровня от исходного ресурса карты.
//
// Для каждого сектора и линии сравниваются поля с baseline (world.Resource, а не
// живые массивы); пишутся только изменившиеся значения под битовой маской.
// Неизменённая карта даёт только терминаторы списков.
package delta

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/world"
)

// Биты базовой маски сектора
const (
	SDFloorHeight uint8 = 0x01
	SDCeilHeight  uint8 = 0x02
	SDFloorPic    uint8 = 0x04
	SDCeilPic     uint8 = 0x08
	SDLight       uint8 = 0x10
	SDSpecial     uint8 = 0x20
	SDExtended    uint8 = 0x40
	SDFFloors     uint8 = 0x80
)

// Биты расширенной маски сектора
const (
	SDFloorXOffs uint8 = 0x01
	SDFloorYOffs uint8 = 0x02
	SDCeilXOffs  uint8 = 0x04
	SDCeilYOffs  uint8 = 0x08
	SDFloorAngle uint8 = 0x10
	SDCeilAngle  uint8 = 0x20
	SDTag        uint8 = 0x40
)

// Биты маски дополнительного пола
const (
	FFFlags uint8 = 0x01
	FFAlpha uint8 = 0x02
)

// Терминаторы списков
const (
	sectorListEnd uint16 = 0xFFFF
	ffloorListEnd uint16 = 0xFFFF
	lineListEnd   int16  = -1
)

var (
	// ErrIndexOutOfRange индекс записи не существует в карте (несовпадение топологии)
	ErrIndexOutOfRange = eris.New("diff index out of range")

	// ErrTopologyMismatch живая карта структурно отличается от baseline
	ErrTopologyMismatch = eris.New("map topology does not match baseline")
)

// Stats количество записанных или применённых записей
type Stats struct {
	Sectors int
	Lines   int
	FFloors int
}

func sectorMasks(base, live *world.Sector) (uint8, uint8) {
	var diff, diff2 uint8

	if live.FloorHeight != base.FloorHeight {
		diff |= SDFloorHeight
	}
	if live.CeilingHeight != base.CeilingHeight {
		diff |= SDCeilHeight
	}
	if live.FloorPic != base.FloorPic {
		diff |= SDFloorPic
	}
	if live.CeilingPic != base.CeilingPic {
		diff |= SDCeilPic
	}
	if live.LightLevel != base.LightLevel {
		diff |= SDLight
	}
	if live.Special != base.Special {
		diff |= SDSpecial
	}

	if live.FloorXOffs != base.FloorXOffs {
		diff2 |= SDFloorXOffs
	}
	if live.FloorYOffs != base.FloorYOffs {
		diff2 |= SDFloorYOffs
	}
	if live.CeilingXOffs != base.CeilingXOffs {
		diff2 |= SDCeilXOffs
	}
	if live.CeilingYOffs != base.CeilingYOffs {
		diff2 |= SDCeilYOffs
	}
	if live.FloorAngle != base.FloorAngle {
		diff2 |= SDFloorAngle
	}
	if live.CeilingAngle != base.CeilingAngle {
		diff2 |= SDCeilAngle
	}
	if live.Tag != base.Tag {
		diff2 |= SDTag
	}
	if diff2 != 0 {
		diff |= SDExtended
	}

	for i, ff := range live.FFloors {
		if ffloorMask(base.FFloors[i], ff) != 0 {
			diff |= SDFFloors
			break
		}
	}
	return diff, diff2
}

func ffloorMask(base, live *world.FFloor) uint8 {
	var mask uint8
	if live.Flags != base.Flags {
		mask |= FFFlags
	}
	if live.Alpha != base.Alpha {
		mask |= FFAlpha
	}
	return mask
}

// WriteSectors пишет список отличий секторов, завершённый 0xFFFF
func WriteSectors(w *archive.Writer, m *world.Map) (Stats, error) {
	var st Stats
	base := m.Baseline
	if len(base.Sectors) != len(m.Sectors) {
		return st, eris.Wrapf(ErrTopologyMismatch, "sectors: live %d, baseline %d", len(m.Sectors), len(base.Sectors))
	}

	for i, live := range m.Sectors {
		bs := &base.Sectors[i]
		if len(bs.FFloors) != len(live.FFloors) {
			return st, eris.Wrapf(ErrTopologyMismatch, "sector %d ffloors: live %d, baseline %d", i, len(live.FFloors), len(bs.FFloors))
		}

		diff, diff2 := sectorMasks(bs, live)
		if diff == 0 {
			continue
		}
		st.Sectors++

		w.U16(uint16(i))
		w.U8(diff)
		if diff&SDExtended != 0 {
			w.U8(diff2)
		}

		if diff&SDFloorHeight != 0 {
			w.Fixed(live.FloorHeight)
		}
		if diff&SDCeilHeight != 0 {
			w.Fixed(live.CeilingHeight)
		}
		if diff&SDFloorPic != 0 {
			w.Name(live.FloorPic)
		}
		if diff&SDCeilPic != 0 {
			w.Name(live.CeilingPic)
		}
		if diff&SDLight != 0 {
			w.I16(live.LightLevel)
		}
		if diff&SDSpecial != 0 {
			w.I16(live.Special)
		}

		if diff2&SDFloorXOffs != 0 {
			w.Fixed(live.FloorXOffs)
		}
		if diff2&SDFloorYOffs != 0 {
			w.Fixed(live.FloorYOffs)
		}
		if diff2&SDCeilXOffs != 0 {
			w.Fixed(live.CeilingXOffs)
		}
		if diff2&SDCeilYOffs != 0 {
			w.Fixed(live.CeilingYOffs)
		}
		if diff2&SDFloorAngle != 0 {
			w.Angle(live.FloorAngle)
		}
		if diff2&SDCeilAngle != 0 {
			w.Angle(live.CeilingAngle)
		}
		if diff2&SDTag != 0 {
			w.I16(live.Tag)
		}

		if diff&SDFFloors != 0 {
			for j, ff := range live.FFloors {
				mask := ffloorMask(bs.FFloors[j], ff)
				if mask == 0 {
					continue
				}
				st.FFloors++
				w.U16(uint16(j))
				w.U8(mask)
				if mask&FFFlags != 0 {
					w.U32(ff.Flags)
				}
				if mask&FFAlpha != 0 {
					w.I32(ff.Alpha)
				}
			}
			w.U16(ffloorListEnd)
		}
	}
	w.U16(sectorListEnd)
	return st, w.Err()
}

// ReadSectors применяет список отличий секторов к свежезагруженной карте
func ReadSectors(r *archive.Reader, m *world.Map) (Stats, error) {
	var st Stats
	for {
		idx := r.U16()
		if r.Err() != nil {
			return st, r.Err()
		}
		if idx == sectorListEnd {
			return st, nil
		}
		sec := m.Sector(int(idx))
		if sec == nil {
			return st, eris.Wrapf(ErrIndexOutOfRange, "sector %d of %d at offset %d", idx, len(m.Sectors), r.Offset()-2)
		}
		st.Sectors++

		diff := r.U8()
		var diff2 uint8
		if diff&SDExtended != 0 {
			diff2 = r.U8()
		}

		if diff&SDFloorHeight != 0 {
			sec.FloorHeight = r.Fixed()
		}
		if diff&SDCeilHeight != 0 {
			sec.CeilingHeight = r.Fixed()
		}
		if diff&SDFloorPic != 0 {
			sec.FloorPic = r.Name()
		}
		if diff&SDCeilPic != 0 {
			sec.CeilingPic = r.Name()
		}
		if diff&SDLight != 0 {
			sec.LightLevel = r.I16()
		}
		if diff&SDSpecial != 0 {
			sec.Special = r.I16()
		}

		if diff2&SDFloorXOffs != 0 {
			sec.FloorXOffs = r.Fixed()
		}
		if diff2&SDFloorYOffs != 0 {
			sec.FloorYOffs = r.Fixed()
		}
		if diff2&SDCeilXOffs != 0 {
			sec.CeilingXOffs = r.Fixed()
		}
		if diff2&SDCeilYOffs != 0 {
			sec.CeilingYOffs = r.Fixed()
		}
		if diff2&SDFloorAngle != 0 {
			sec.FloorAngle = r.Angle()
		}
		if diff2&SDCeilAngle != 0 {
			sec.CeilingAngle = r.Angle()
		}
		if diff2&SDTag != 0 {
			sec.Tag = r.I16()
		}

		if diff&SDFFloors != 0 {
			n, err := readFFloors(r, sec)
			st.FFloors += n
			if err != nil {
				return st, err
			}
		}
		if r.Err() != nil {
			return st, r.Err()
		}
	}
}

func readFFloors(r *archive.Reader, sec *world.Sector) (int, error) {
	n := 0
	for {
		ord := r.U16()
		if r.Err() != nil {
			return n, r.Err()
		}
		if ord == ffloorListEnd {
			return n, nil
		}
		if int(ord) >= len(sec.FFloors) {
			return n, eris.Wrapf(ErrIndexOutOfRange, "sector %d ffloor %d of %d", sec.Index, ord, len(sec.FFloors))
		}
		ff := sec.FFloors[ord]
		mask := r.U8()
		if mask&FFFlags != 0 {
			ff.Flags = r.U32()
		}
		if mask&FFAlpha != 0 {
			ff.Alpha = r.I32()
		}
		n++
	}
}
