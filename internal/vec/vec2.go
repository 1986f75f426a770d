package vec

// Vec2 представляет 2D координаты в единицах Fixed
type Vec2 struct {
	X, Y Fixed
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// IsZero проверяет, что оба компонента равны нулю
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}
