// Package game владеет состоянием симуляции уровня: картой, списком мыслителей,
// игроками, глобальными параметрами уровня и скриптовым контекстом.
//
// Все методы вызываются из одного потока симуляции между тиками.
package game

import (
	"github.com/google/uuid"

	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/vec"
	"github.com/annel0/savestate/internal/world"
	"github.com/annel0/savestate/internal/world/entity"
)

// ItemRespawn запись очереди возрождения предметов
type ItemRespawn struct {
	Thing *world.MapThing
	Time  uint32
}

// Level глобальные параметры уровня, не привязанные к мыслителям
type Level struct {
	Time         uint32
	RNGSeed      uint32
	Weather      uint8
	SkyboxView   *entity.Mobj
	SkyboxCenter *entity.Mobj
	ItemRespawn  []ItemRespawn
}

// State полное живое состояние симуляции
type State struct {
	SessionID uuid.UUID
	Map       *world.Map
	Thinkers  *entity.List
	Players   *entity.Players
	Level     Level
	Script    *script.Context
}

// NewState создаёт уровень из ресурса карты: строит живую геометрию и
// расставляет объекты по записям расстановки.
func NewState(res *world.Resource, sc *script.Context) *State {
	s := &State{
		SessionID: uuid.New(),
		Map:       world.NewMap(res),
		Thinkers:  entity.NewList(),
		Players:   entity.NewPlayers(),
		Script:    sc,
	}
	s.Level.RNGSeed = 0x2A
	s.SpawnMapThings()
	return s
}

// NewEmptyState создаёт состояние под загрузку снимка: свежая карта, пустой список
// мыслителей. Скриптовые атрибуты очищаются.
func NewEmptyState(res *world.Resource, sc *script.Context) *State {
	if sc != nil {
		sc.Vars.Clear()
	}
	return &State{
		Map:      world.NewMap(res),
		Thinkers: entity.NewList(),
		Players:  entity.NewPlayers(),
		Script:   sc,
	}
}

// SpawnMapThings порождает объекты по всем записям расстановки карты.
// Обручи порождают центр и сегменты; номера без шаблона пропускаются.
func (s *State) SpawnMapThings() {
	for _, mt := range s.Map.Things {
		if mt.Type == entity.HoopDoomedNum {
			for _, mo := range entity.SpawnHoop(mt) {
				s.Thinkers.Add(mo)
			}
			continue
		}
		mo, ok := entity.SpawnFromThing(mt)
		if !ok {
			continue
		}
		s.Thinkers.Add(mo)
		switch mo.Type {
		case entity.MTSkyboxView:
			s.Level.SkyboxView = mo
		case entity.MTSkyboxCenter:
			s.Level.SkyboxCenter = mo
		}
	}
}

// SpawnMobj создаёт объект и добавляет его в список мыслителей
func (s *State) SpawnMobj(t entity.MobjType, x, y, z int) *entity.Mobj {
	mo := entity.NewMobj(t, vec.FromInt(x), vec.FromInt(y), vec.FromInt(z))
	s.Thinkers.Add(mo)
	return mo
}

// AddThinker добавляет мыслителя (движители, эффекты)
func (s *State) AddThinker(t entity.Thinker) {
	s.Thinkers.Add(t)
}

// RemoveMobj помечает объект удаляемым; он исчезает в конце тика
func (s *State) RemoveMobj(mo *entity.Mobj) {
	mo.Removing = true
}

// JoinPlayer занимает слот и порождает для него объект игрока
func (s *State) JoinPlayer(slot int) *entity.Player {
	p := s.Players.Get(slot)
	if p == nil {
		return nil
	}
	p.InGame = true
	p.State = entity.PlayerLive
	p.JoinTime = s.Level.Time
	mo := s.SpawnMobj(entity.MTPlayer, 0, 0, 0)
	mo.Player = p
	p.Mo = mo
	return p
}

// Tick продвигает симуляцию на один кадр: время уровня, движение объектов,
// анимацию и удаление помеченных объектов.
func (s *State) Tick() {
	s.Level.Time++
	s.Level.RNGSeed = s.Level.RNGSeed*1103515245 + 12345

	for _, t := range s.Thinkers.All() {
		mo, ok := t.(*entity.Mobj)
		if !ok || mo.Removing {
			continue
		}
		mo.X += mo.MomX
		mo.Y += mo.MomY
		mo.Z += mo.MomZ
		if mo.Fuse > 0 {
			mo.Fuse--
			if mo.Fuse == 0 {
				s.RemoveMobj(mo)
				continue
			}
		}
		if mo.Tics > 0 {
			mo.Tics--
			if mo.Tics == 0 {
				mo.SetState(entity.States[mo.State].Next)
			}
		}
	}
	s.reapRemoved()
}

func (s *State) reapRemoved() {
	var removed []*entity.Mobj
	for _, mo := range s.Thinkers.Mobjs() {
		if mo.Removing {
			removed = append(removed, mo)
		}
	}
	for _, mo := range removed {
		s.Thinkers.Remove(mo)
		if s.Script != nil {
			s.Script.Vars.Delete(mo)
		}
		if mo.Player != nil && mo.Player.Mo == mo {
			mo.Player.Mo = nil
		}
		if s.Level.SkyboxView == mo {
			s.Level.SkyboxView = nil
		}
		if s.Level.SkyboxCenter == mo {
			s.Level.SkyboxCenter = nil
		}
	}
}

// FindMobj ищет объект по серийному номеру
func (s *State) FindMobj(serial uint32) *entity.Mobj {
	if serial == 0 {
		return nil
	}
	for _, mo := range s.Thinkers.Mobjs() {
		if mo.Serial == serial {
			return mo
		}
	}
	return nil
}
