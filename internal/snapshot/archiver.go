// Package snapshot собирает и восстанавливает полный снимок состояния симуляции:
// игроков, атрибуты скриптового слоя, отличия геометрии, мыслителей и глобальные
// параметры уровня. Один и тот же порядок секций обслуживает файлы сохранений,
// передачу состояния подключающемуся клиенту и мягкую загрузку для демо.
//
// Порядок секций фиксирован:
//
//	misc → players → [mobjvars] → tables → world → [thinkers] → specials
//
// Загрузка двухпроходная: сначала восстанавливаются все объекты, ссылки на mobj
// копятся как отложенные привязки по серийному номеру; затем резолвер связывает их
// с живыми объектами.
package snapshot

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/script"
)

// Report сводка одной операции архивации или загрузки
type Report struct {
	Mode      Mode
	MapName   string
	SessionID uuid.UUID
	Bytes     int
	Duration  time.Duration

	Players  int
	MobjVars int
	Tables   int
	Sectors  int
	FFloors  int
	Lines    int
	Thinkers int
	Mobjs    int

	// Unresolved ссылки на mobj, не найденные во втором проходе
	Unresolved int
	// Skipped значения, пропущенные мягким декодером
	Skipped int
	// DroppedKeys записи таблиц, отброшенные из-за ключа на исчезнувший объект
	DroppedKeys int
}

// Observer получает результаты операций (метрики)
type Observer interface {
	ObserveSave(r *Report, err error)
	ObserveLoad(r *Report, err error)
}

// Archiver точка входа архивации. Не хранит состояния между вызовами,
// но не предназначен для параллельного использования с одним game.State.
type Archiver struct {
	log         *logging.Logger
	initialSize int
	maxSize     int
	observer    Observer
}

// Option настраивает Archiver
type Option func(*Archiver)

// WithBufferSize задаёт начальный и предельный размер буфера записи
func WithBufferSize(initial, maxSize int) Option {
	return func(a *Archiver) {
		a.initialSize = initial
		a.maxSize = maxSize
	}
}

// WithObserver подключает наблюдателя операций
func WithObserver(o Observer) Option {
	return func(a *Archiver) {
		a.observer = o
	}
}

// WithLogger подменяет логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(a *Archiver) {
		a.log = l
	}
}

// New создаёт архиватор
func New(opts ...Option) *Archiver {
	a := &Archiver{}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logging.GetSnapshotLogger()
	}
	return a
}

// saver состояние одной операции записи
type saver struct {
	w      *archive.Writer
	st     *game.State
	mode   Mode
	enc    *script.Encoder
	report *Report
}

func (s *saver) vars() *script.Vars {
	return varsOf(s.st)
}

// loader состояние одной операции загрузки
type loader struct {
	r      *archive.Reader
	st     *game.State
	mode   Mode
	dec    *script.Decoder
	rs     *resolver
	report *Report
}

func (l *loader) vars() *script.Vars {
	return varsOf(l.st)
}

// varsOf возвращает хранилище атрибутов; состояние без скриптового контекста
// получает отсоединённый контекст
func varsOf(st *game.State) *script.Vars {
	if st.Script == nil {
		st.Script = script.NewDetachedContext()
	}
	return st.Script.Vars
}

// Save пишет снимок состояния в заданном режиме
func (a *Archiver) Save(st *game.State, mode Mode) (data []byte, err error) {
	start := time.Now()
	report := &Report{Mode: mode, MapName: st.Map.Name(), SessionID: st.SessionID}
	defer func() {
		report.Duration = time.Since(start)
		if a.observer != nil {
			a.observer.ObserveSave(report, err)
		}
	}()

	if mode&^modeMask != 0 {
		return nil, eris.Wrapf(ErrBadMode, "mode %#02x", uint8(mode))
	}

	w := archive.NewWriter(a.initialSize, a.maxSize)
	s := &saver{
		w:      w,
		st:     st,
		mode:   mode,
		enc:    script.NewEncoder(w, objects{st: st}),
		report: report,
	}

	s.writeHeader()
	steps := []struct {
		section string
		on      bool
		fn      func() error
	}{
		{sectionPlayers, true, s.writePlayers},
		{sectionMobjVars, mode.Has(MobjVars), s.writeMobjVars},
		{sectionTables, true, s.writeTables},
		{sectionWorld, true, s.writeWorld},
		{sectionThinkers, mode.Has(Thinkers), s.writeThinkers},
		{sectionSpecials, true, s.writeSpecials},
	}
	for _, step := range steps {
		if !step.on {
			continue
		}
		if err := step.fn(); err != nil {
			a.log.Error("❌ Ошибка записи секции %s: %v", step.section, err)
			return nil, eris.Wrapf(err, "write section %s", step.section)
		}
	}
	if err := w.Err(); err != nil {
		return nil, err
	}

	report.Bytes = w.Len()
	a.log.Debug("💾 Снимок %s карты %s: %d байт, мыслителей %d, таблиц %d",
		mode, report.MapName, report.Bytes, report.Thinkers, report.Tables)
	return w.Bytes(), nil
}

// Load восстанавливает снимок в st. Карта st должна совпадать с картой снимка.
// В режимах с секцией мыслителей список мыслителей st заменяется целиком; в демо-режиме
// мыслители остаются порождёнными картой. При ошибке st находится в неопределённом
// состоянии и должен быть отброшен.
func (a *Archiver) Load(data []byte, st *game.State) (report *Report, err error) {
	start := time.Now()
	report = &Report{Bytes: len(data)}
	defer func() {
		report.Duration = time.Since(start)
		if a.observer != nil {
			a.observer.ObserveLoad(report, err)
		}
	}()

	r := archive.NewReader(data)
	rs := &resolver{log: a.log}
	l := &loader{r: r, st: st, rs: rs, report: report}

	corrupt := func(section string, cause error) error {
		ce := &CorruptError{Section: section, Offset: r.Offset(), Err: cause}
		logging.LogCorruptArchive(a.log, section, cause, data, r.Offset())
		return ce
	}

	h, err := l.readHeader()
	if err != nil {
		return report, corrupt(sectionMisc, err)
	}
	if h.MapName != st.Map.Name() {
		return report, corrupt(sectionMisc, eris.Wrapf(ErrMapMismatch, "snapshot %q, loaded %q", h.MapName, st.Map.Name()))
	}
	l.mode = h.Mode
	report.Mode, report.MapName, report.SessionID = h.Mode, h.MapName, h.SessionID

	dec := script.NewDecoder(r, objects{st: st}, h.Mode.Has(Lenient))
	dec.OnSkip = func(kind script.Kind, offset int) {
		report.Skipped++
		a.log.Warn("⚠️ Значение вида %s по смещению %d пропущено (несовместимо с демо)", kind, offset)
	}
	dec.OnNilKey = func(table, offset int) {
		report.DroppedKeys++
		a.log.Warn("⚠️ Запись таблицы %d с ключом null по смещению %d отброшена", table, offset)
	}
	l.dec = dec

	st.SessionID = h.SessionID
	st.Map.Reset(h.Mode.Has(Thinkers))
	varsOf(st).Clear()
	if h.Mode.Has(Thinkers) {
		st.Thinkers.Clear()
		st.Level.SkyboxView, st.Level.SkyboxCenter = nil, nil
	}

	steps := []struct {
		section string
		on      bool
		fn      func() error
	}{
		{sectionPlayers, true, l.readPlayers},
		{sectionMobjVars, h.Mode.Has(MobjVars), l.readMobjVars},
		{sectionTables, true, l.readTables},
		{sectionWorld, true, l.readWorld},
		{sectionThinkers, h.Mode.Has(Thinkers), l.readThinkers},
		{sectionSpecials, true, l.readSpecials},
	}
	for _, step := range steps {
		if !step.on {
			continue
		}
		if err := step.fn(); err != nil {
			return report, corrupt(step.section, err)
		}
	}
	if r.Remaining() != 0 {
		a.log.Warn("⚠️ После секции specials осталось %d байт", r.Remaining())
	}

	rs.resolve(st.Thinkers)
	report.Unresolved = rs.unresolved
	if h.Mode.Has(Thinkers) {
		st.Thinkers.SetNextSerial(h.NextSerial)
		st.Thinkers.AssignMissingSerials()
	}

	a.log.Info("📥 Загружен снимок %s карты %s: мыслителей %d, неразрешённых ссылок %d, пропущено значений %d",
		h.Mode, h.MapName, report.Thinkers, report.Unresolved, report.Skipped)
	return report, nil
}
