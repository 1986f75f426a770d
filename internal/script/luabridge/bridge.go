// Package luabridge переносит таблицы атрибутов между Lua VM и script.Table.
//
// Идентичность сохраняется в обе стороны в пределах одного Bridge: одна Lua-таблица
// превращается ровно в один *script.Table и наоборот, поэтому алиасы и циклы
// переживают перенос.
package luabridge

import (
	"github.com/Shopify/go-lua"
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/script"
)

// ErrUnsupportedType значение Lua не представимо в скриптовом слое (функции, потоки)
var ErrUnsupportedType = eris.New("unsupported lua value type")

// Bridge живёт одну операцию переноса
type Bridge struct {
	l          *lua.State
	exported   map[any]*script.Table
	pushed     map[*script.Table]int
	cacheReady bool
}

// cacheGlobal глобальная переменная VM, в которой мост держит созданные таблицы
const cacheGlobal = "__savestate_bridge"

// New создаёт мост поверх состояния VM
func New(l *lua.State) *Bridge {
	return &Bridge{
		l:        l,
		exported: make(map[any]*script.Table),
		pushed:   make(map[*script.Table]int),
	}
}

// Export переводит значение Lua по индексу стека в script.Value. Стек не меняется.
func (b *Bridge) Export(index int) (script.Value, error) {
	l := b.l
	index = l.AbsIndex(index)

	switch l.TypeOf(index) {
	case lua.TypeNil:
		return nil, nil
	case lua.TypeBoolean:
		return script.Bool(l.ToBoolean(index)), nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return script.Int(int32(n)), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return script.String(s), nil
	case lua.TypeTable:
		return b.exportTable(index)
	case lua.TypeUserData, lua.TypeLightUserData:
		if ref, ok := l.ToUserData(index).(script.Ref); ok {
			return ref, nil
		}
		return nil, eris.Wrapf(ErrUnsupportedType, "userdata %T", l.ToUserData(index))
	default:
		return nil, eris.Wrapf(ErrUnsupportedType, "%s", lua.TypeNameOf(l, index))
	}
}

func (b *Bridge) exportTable(index int) (*script.Table, error) {
	l := b.l
	identity := l.ToValue(index)
	if t, ok := b.exported[identity]; ok {
		return t, nil
	}
	t := script.NewTable()
	b.exported[identity] = t

	l.PushNil()
	for l.Next(index) {
		// ключ на -2, значение на -1
		val, err := b.Export(-1)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		key, err := b.Export(-2)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		t.Set(key, val)
		l.Pop(1)
	}
	return t, nil
}

// ExportGlobal экспортирует глобальную таблицу. Отсутствующая глобальная даёт nil.
func (b *Bridge) ExportGlobal(name string) (*script.Table, error) {
	b.l.Global(name)
	defer b.l.Pop(1)
	if b.l.TypeOf(-1) == lua.TypeNil {
		return nil, nil
	}
	if b.l.TypeOf(-1) != lua.TypeTable {
		return nil, eris.Errorf("global %q is %s, not a table", name, lua.TypeNameOf(b.l, -1))
	}
	return b.exportTable(b.l.AbsIndex(-1))
}

// Push кладёт значение на вершину стека Lua. Таблицы, созданные за время жизни
// моста, регистрируются в кеш-таблице VM и переиспользуются, так что алиасы
// остаются алиасами и между разными вызовами Push.
func (b *Bridge) Push(v script.Value) error {
	base := b.l.Top()
	if err := b.push(v); err != nil {
		b.l.SetTop(base)
		return err
	}
	return nil
}

// push оставляет на стеке ровно одно значение
func (b *Bridge) push(v script.Value) error {
	l := b.l
	if !l.CheckStack(4) {
		return eris.New("lua stack overflow")
	}
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case script.Bool:
		l.PushBoolean(bool(val))
	case script.Int:
		l.PushInteger(int(val))
	case script.String:
		l.PushString(string(val))
	case script.Ref:
		l.PushUserData(val)
	case *script.Table:
		if id, ok := b.pushed[val]; ok {
			b.fetchCached(id)
			return nil
		}
		return b.pushNewTable(val)
	default:
		return eris.Wrapf(ErrUnsupportedType, "%T", v)
	}
	return nil
}

func (b *Bridge) pushNewTable(t *script.Table) error {
	l := b.l
	l.NewTable()
	abs := l.Top()

	// регистрируем до заполнения, чтобы циклы находили таблицу в кеше
	id := len(b.pushed) + 1
	b.pushed[t] = id
	b.exported[l.ToValue(abs)] = t
	b.cache()
	l.PushValue(abs)
	l.RawSetInt(-2, id)
	l.Pop(1)

	var err error
	t.Range(func(key, item script.Value) bool {
		if err = b.push(key); err != nil {
			return false
		}
		if err = b.push(item); err != nil {
			l.Pop(1)
			return false
		}
		l.RawSet(abs)
		return true
	})
	return err
}

// cache кладёт на стек кеш-таблицу моста, создавая её при первом обращении
func (b *Bridge) cache() {
	l := b.l
	l.Global(cacheGlobal)
	if l.TypeOf(-1) == lua.TypeTable && b.cacheReady {
		return
	}
	l.Pop(1)
	l.NewTable()
	l.PushValue(-1)
	l.SetGlobal(cacheGlobal)
	b.cacheReady = true
}

func (b *Bridge) fetchCached(id int) {
	l := b.l
	b.cache()
	c := l.Top()
	l.RawGetInt(c, id)
	l.Replace(c)
}

// Release удаляет кеш-таблицу моста из VM
func (b *Bridge) Release() {
	if !b.cacheReady {
		return
	}
	b.l.PushNil()
	b.l.SetGlobal(cacheGlobal)
	b.cacheReady = false
}

// SetGlobal присваивает значение глобальной переменной Lua
func (b *Bridge) SetGlobal(name string, v script.Value) error {
	if err := b.Push(v); err != nil {
		return err
	}
	b.l.SetGlobal(name)
	return nil
}
