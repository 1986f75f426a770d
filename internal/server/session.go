// Package server связывает живое состояние уровня с архиватором, хранилищем
// слотов и кешем снимков подключения.
package server

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/cache"
	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/network"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/snapshot"
	"github.com/annel0/savestate/internal/storage"
)

var (
	// ErrNoStore сессия запущена без хранилища слотов
	ErrNoStore = eris.New("save store is not configured")
	// ErrWrongMap запрошен снимок другой карты
	ErrWrongMap = eris.New("map is not loaded")
)

// Session владеет состоянием уровня. Все обращения к состоянию идут под мьютексом:
// тик симуляции, запись снимков и восстановление из слота не пересекаются.
type Session struct {
	mu       sync.Mutex
	state    *game.State
	archiver *snapshot.Archiver
	store    *storage.SaveStore
	joins    cache.JoinCache
	log      *logging.Logger

	// nonce и version метят снимки подключения в кеше. version растёт при
	// каждом изменении состояния, nonce отличает процессы с общим Redis.
	nonce   uuid.UUID
	version uint64
}

// joinTagLen длина метки перед снимком в записи кеша подключения
const joinTagLen = 16 + 8

var _ network.SnapshotSource = (*Session)(nil)

// NewSession создаёт сессию. store и joins могут быть nil.
func NewSession(st *game.State, archiver *snapshot.Archiver, store *storage.SaveStore, joins cache.JoinCache) *Session {
	return &Session{
		state:    st,
		archiver: archiver,
		store:    store,
		joins:    joins,
		log:      logging.GetServerLogger(),
		nonce:    uuid.New(),
	}
}

// With выполняет fn над состоянием под блокировкой сессии
func (s *Session) With(fn func(st *game.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	fn(s.state)
}

// Tick продвигает симуляцию на один кадр
func (s *Session) Tick() {
	s.mu.Lock()
	s.state.Tick()
	s.version++
	s.mu.Unlock()
}

// MapName возвращает имя загруженной карты
func (s *Session) MapName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Map.Name()
}

// Snapshot записывает снимок состояния в заданном режиме
func (s *Session) Snapshot(mode snapshot.Mode) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiver.Save(s.state, mode)
}

// RunScript выполняет фрагмент Lua над состоянием сессии
func (s *Session) RunScript(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	return s.state.RunScript(src)
}

// Save записывает снимок ModeSave в слот
func (s *Session) Save(ctx context.Context, slot string) (*storage.SlotInfo, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	data, err := s.Snapshot(snapshot.ModeSave)
	if err != nil {
		return nil, eris.Wrapf(err, "снимок для слота %s", slot)
	}
	return s.store.Save(ctx, slot, data)
}

// Restore загружает слот в новое состояние и подменяет им текущее.
// При ошибке текущее состояние не меняется.
func (s *Session) Restore(ctx context.Context, slot string) (*snapshot.Report, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	data, info, err := s.store.Load(ctx, slot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if info.MapName != s.state.Map.Name() {
		return nil, eris.Wrapf(snapshot.ErrMapMismatch, "слот %s: карта %s", slot, info.MapName)
	}
	sc := &script.Context{Vars: script.NewVars()}
	if s.state.Script != nil {
		sc.L = s.state.Script.L
	}
	next := game.NewEmptyState(s.state.Map.Baseline, sc)
	report, err := s.archiver.Load(data, next)
	if err != nil {
		return report, err
	}
	s.state = next
	s.version++
	if sc.L != nil {
		if err := next.PushVars(); err != nil {
			s.log.Warn("⚠️ Атрибуты не переданы в Lua VM: %v", err)
		}
	}
	if s.joins != nil {
		if err := s.joins.Invalidate(ctx, next.Map.Name()); err != nil {
			s.log.Warn("⚠️ Кеш подключения не сброшен: %v", err)
		}
	}
	s.log.Info("📥 Слот %s восстановлен (сохранён %s)", slot, info.SavedAt.Format(time.RFC3339))
	return report, nil
}

// JoinSnapshot выдаёт снимок подключения. Запись кеша годится, только если
// с момента её создания состояние не менялось.
func (s *Session) JoinSnapshot(ctx context.Context, mapName string) ([]byte, error) {
	if mapName != s.MapName() {
		return nil, eris.Wrapf(ErrWrongMap, "%s", mapName)
	}
	var cached []byte
	if s.joins != nil {
		data, err := s.joins.Get(ctx, mapName)
		switch {
		case err == nil:
			cached = data
		case !cache.IsCacheMiss(err):
			s.log.Warn("⚠️ Кеш снимков недоступен: %v", err)
		}
	}

	s.mu.Lock()
	tag := s.joinTag()
	if len(cached) >= joinTagLen && bytes.Equal(cached[:joinTagLen], tag) {
		s.mu.Unlock()
		return cached[joinTagLen:], nil
	}
	data, err := s.archiver.Save(s.state, snapshot.ModeNetJoin)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if cached != nil {
		s.log.Debug("🔄 Снимок подключения %s устарел, записан заново", mapName)
	}

	if s.joins != nil {
		entry := make([]byte, 0, joinTagLen+len(data))
		entry = append(append(entry, tag...), data...)
		if err := s.joins.Put(ctx, mapName, entry); err != nil {
			s.log.Warn("⚠️ Снимок не помещён в кеш: %v", err)
		}
	}
	return data, nil
}

// joinTag метка текущей версии состояния. Вызывается под s.mu.
func (s *Session) joinTag() []byte {
	w := archive.NewWriter(joinTagLen, 0)
	w.Raw(s.nonce[:])
	w.U32(uint32(s.version >> 32))
	w.U32(uint32(s.version))
	return w.Bytes()
}

// Run крутит симуляцию с частотой tickRate и сохраняет слот autosaveSlot каждые
// autosaveEvery (0: без автосохранения) до отмены ctx.
func (s *Session) Run(ctx context.Context, tickRate int, autosaveEvery time.Duration, autosaveSlot string) error {
	if tickRate <= 0 {
		tickRate = 35
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	var autosave <-chan time.Time
	if autosaveEvery > 0 && s.store != nil {
		t := time.NewTicker(autosaveEvery)
		defer t.Stop()
		autosave = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		case <-autosave:
			if _, err := s.Save(ctx, autosaveSlot); err != nil {
				s.log.Error("❌ Автосохранение не удалось: %v", err)
			}
		}
	}
}
