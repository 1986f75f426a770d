package script

// Vars хранит таблицы динамических атрибутов (ExtVar) объектов движка.
// Ключ: указатель на объект (игрок, mobj), значение: его таблица атрибутов.
type Vars struct {
	tables map[any]*Table
}

// NewVars создаёт пустое хранилище
func NewVars() *Vars {
	return &Vars{tables: make(map[any]*Table)}
}

// Get возвращает таблицу объекта или nil
func (v *Vars) Get(obj any) *Table {
	return v.tables[obj]
}

// Ensure возвращает таблицу объекта, создавая её при необходимости
func (v *Vars) Ensure(obj any) *Table {
	t, ok := v.tables[obj]
	if !ok {
		t = NewTable()
		v.tables[obj] = t
	}
	return t
}

// Set привязывает таблицу к объекту; nil снимает привязку
func (v *Vars) Set(obj any, t *Table) {
	if t == nil {
		delete(v.tables, obj)
		return
	}
	v.tables[obj] = t
}

// Delete удаляет атрибуты объекта (например, при удалении mobj)
func (v *Vars) Delete(obj any) {
	delete(v.tables, obj)
}

// Has сообщает, есть ли у объекта непустые атрибуты
func (v *Vars) Has(obj any) bool {
	t, ok := v.tables[obj]
	return ok && t.Len() > 0
}

// Len возвращает число объектов с атрибутами
func (v *Vars) Len() int {
	return len(v.tables)
}

// Clear удаляет все атрибуты (перед загрузкой снапшота)
func (v *Vars) Clear() {
	v.tables = make(map[any]*Table)
}
