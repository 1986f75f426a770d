package vec

// Angle бинарное угловое измерение (BAM): полный круг = 2^32
type Angle uint32

const (
	Ang45  Angle = 0x20000000
	Ang90  Angle = 0x40000000
	Ang180 Angle = 0x80000000
	Ang270 Angle = 0xC0000000

	Ang1 = Ang45 / 45
)

// AngleFromDegrees переводит целые градусы (как в записях размещения на карте) в BAM
func AngleFromDegrees(deg int) Angle {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return Angle((uint64(deg) << 32) / 360)
}

// Degrees возвращает угол в целых градусах
func (a Angle) Degrees() int {
	return int(uint64(a) * 360 >> 32)
}
