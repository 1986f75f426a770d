package script

// Table таблица скриптового слоя. Идентичность определяется указателем:
// две ссылки на один *Table: один и тот же экземпляр.
// Порядок обхода совпадает с порядком вставки, что делает сериализацию детерминированной.
type Table struct {
	keys []Value
	vals map[Value]Value
}

// NewTable создаёт пустую таблицу
func NewTable() *Table {
	return &Table{vals: make(map[Value]Value)}
}

func (*Table) Kind() Kind { return KindTable }

// Len возвращает количество записей
func (t *Table) Len() int {
	return len(t.keys)
}

// Get возвращает значение по ключу
func (t *Table) Get(key Value) (Value, bool) {
	v, ok := t.vals[key]
	return v, ok
}

// Field удобный доступ по строковому ключу
func (t *Table) Field(name string) Value {
	return t.vals[String(name)]
}

// Set записывает значение. Присваивание nil удаляет ключ, как в Lua.
// Ключ nil игнорируется.
func (t *Table) Set(key, val Value) {
	if key == nil {
		return
	}
	if val == nil {
		t.Delete(key)
		return
	}
	if _, exists := t.vals[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = val
}

// SetField удобная запись по строковому ключу
func (t *Table) SetField(name string, val Value) {
	t.Set(String(name), val)
}

// Delete удаляет ключ
func (t *Table) Delete(key Value) {
	if _, exists := t.vals[key]; !exists {
		return
	}
	delete(t.vals, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
}

// Rekey заменяет ключ old на key, сохраняя позицию записи в порядке обхода.
// Если key уже есть в таблице, запись old удаляется, а key получает val.
// nil в key или val удаляет запись old.
func (t *Table) Rekey(old, key, val Value) {
	if _, exists := t.vals[old]; !exists {
		return
	}
	if key == nil || val == nil {
		t.Delete(old)
		return
	}
	if key == old {
		t.vals[key] = val
		return
	}
	if _, exists := t.vals[key]; exists {
		t.Delete(old)
		t.vals[key] = val
		return
	}
	delete(t.vals, old)
	for i, k := range t.keys {
		if k == old {
			t.keys[i] = key
			break
		}
	}
	t.vals[key] = val
}

// Range обходит записи в порядке вставки; fn возвращает false для остановки.
// Изменять таблицу внутри fn можно только через значения, не ключи.
func (t *Table) Range(fn func(key, val Value) bool) {
	for _, k := range t.keys {
		if !fn(k, t.vals[k]) {
			return
		}
	}
}
