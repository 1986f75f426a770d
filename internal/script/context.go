package script

import (
	"github.com/Shopify/go-lua"
)

// Context явный дескриптор скриптового рантайма. Создаётся циклом симуляции
// и передаётся в каждый вызов архивации/восстановления; глобального состояния нет.
type Context struct {
	// Vars таблицы атрибутов объектов
	Vars *Vars
	// L состояние Lua VM, в которой живут скрипты уровня. Может быть nil,
	// если контекст используется без VM (инструменты, тесты кодека).
	L *lua.State
}

// NewContext создаёт контекст с новой Lua VM и стандартными библиотеками
func NewContext() *Context {
	l := lua.NewState()
	lua.OpenLibraries(l)
	return &Context{
		Vars: NewVars(),
		L:    l,
	}
}

// NewDetachedContext создаёт контекст без VM
func NewDetachedContext() *Context {
	return &Context{Vars: NewVars()}
}

// Close освобождает VM. После Close контекст непригоден для скриптов,
// но Vars остаются доступны.
func (c *Context) Close() {
	c.L = nil
}
