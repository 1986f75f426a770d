package game

import (
	"github.com/Shopify/go-lua"
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/script/luabridge"
	"github.com/annel0/savestate/internal/world/entity"
)

// VarsGlobal имя глобальной таблицы Lua с атрибутами объектов:
// extvars.players[slot] и extvars.mobjs[serial].
const VarsGlobal = "extvars"

// ErrNoScriptVM у состояния нет Lua VM
var ErrNoScriptVM = eris.New("script context has no lua state")

// PushVars публикует атрибуты игроков и объектов в Lua VM
func (s *State) PushVars() error {
	if s.Script == nil || s.Script.L == nil {
		return ErrNoScriptVM
	}
	players := script.NewTable()
	for _, p := range s.Players {
		if t := s.Script.Vars.Get(p); t != nil {
			players.Set(script.Int(p.Slot), t)
		}
	}
	mobjs := script.NewTable()
	for _, mo := range s.Thinkers.Mobjs() {
		if t := s.Script.Vars.Get(mo); t != nil {
			mobjs.Set(script.Int(int32(mo.Serial)), t)
		}
	}
	root := script.NewTable()
	root.SetField("players", players)
	root.SetField("mobjs", mobjs)

	br := luabridge.New(s.Script.L)
	defer br.Release()
	return br.SetGlobal(VarsGlobal, root)
}

// PullVars забирает атрибуты из Lua VM обратно в Vars. Записи для
// несуществующих игроков и объектов отбрасываются.
func (s *State) PullVars() error {
	if s.Script == nil || s.Script.L == nil {
		return ErrNoScriptVM
	}
	root, err := luabridge.New(s.Script.L).ExportGlobal(VarsGlobal)
	if err != nil {
		return eris.Wrap(err, "export script vars")
	}
	vars := s.Script.Vars
	vars.Clear()
	if root == nil {
		return nil
	}

	dropped := 0
	if players, ok := root.Field("players").(*script.Table); ok {
		players.Range(func(key, val script.Value) bool {
			slot, ok1 := key.(script.Int)
			t, ok2 := val.(*script.Table)
			if !ok1 || !ok2 {
				return true
			}
			if p := s.Players.Get(int(slot)); p != nil {
				vars.Set(p, t)
			} else {
				dropped++
			}
			return true
		})
	}
	if mobjs, ok := root.Field("mobjs").(*script.Table); ok {
		index := make(map[uint32]*entity.Mobj)
		for _, mo := range s.Thinkers.Mobjs() {
			index[mo.Serial] = mo
		}
		mobjs.Range(func(key, val script.Value) bool {
			serial, ok1 := key.(script.Int)
			t, ok2 := val.(*script.Table)
			if !ok1 || !ok2 {
				return true
			}
			if mo := index[uint32(serial)]; mo != nil {
				vars.Set(mo, t)
			} else {
				dropped++
			}
			return true
		})
	}
	if dropped > 0 {
		logging.GetScriptLogger().Warn("⚠️ Отброшено атрибутов без владельца: %d", dropped)
	}
	return nil
}

// RunScript выполняет фрагмент Lua с доступом к атрибутам объектов
func (s *State) RunScript(src string) error {
	if err := s.PushVars(); err != nil {
		return err
	}
	if err := lua.DoString(s.Script.L, src); err != nil {
		return eris.Wrap(err, "run script")
	}
	return s.PullVars()
}
