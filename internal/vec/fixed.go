package vec

// Fixed число с фиксированной точкой 16.16, основная единица измерения симуляции
type Fixed int32

const (
	FracBits = 16
	FracUnit Fixed = 1 << FracBits
)

// FromInt переводит целое в Fixed
func FromInt(v int) Fixed {
	return Fixed(v << FracBits)
}

// FromFloat переводит float64 в Fixed (используется загрузчиком карт и тестами)
func FromFloat(v float64) Fixed {
	return Fixed(v * float64(FracUnit))
}

// Int возвращает целую часть (с округлением к минус бесконечности)
func (f Fixed) Int() int {
	return int(f >> FracBits)
}

// Float возвращает значение в виде float64
func (f Fixed) Float() float64 {
	return float64(f) / float64(FracUnit)
}

// Mul умножает два числа с фиксированной точкой
func (f Fixed) Mul(o Fixed) Fixed {
	return Fixed((int64(f) * int64(o)) >> FracBits)
}

// Div делит два числа с фиксированной точкой. Деление на ноль даёт насыщение.
func (f Fixed) Div(o Fixed) Fixed {
	if o == 0 {
		if f < 0 {
			return -0x7FFFFFFF
		}
		return 0x7FFFFFFF
	}
	return Fixed((int64(f) << FracBits) / int64(o))
}
