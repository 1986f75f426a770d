package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/blake2b"

	"github.com/annel0/savestate/internal/archive"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/snapshot"
)

var (
	// ErrSlotNotFound слот сохранения не существует
	ErrSlotNotFound = eris.New("save slot not found")
	// ErrChecksum содержимое слота не совпадает с контрольной суммой
	ErrChecksum = eris.New("save slot checksum mismatch")
	// ErrNotReady хранилище закрыто
	ErrNotReady = eris.New("save store is not ready")
	// ErrBadSlotName пустое или недопустимое имя слота
	ErrBadSlotName = eris.New("bad save slot name")
)

const (
	slotPrefix = "slot:"
	// версия раскладки записи слота
	recordLayout uint8 = 1
)

// SlotInfo описывает сохранённый слот без распаковки снимка
type SlotInfo struct {
	Name      string
	SaveID    uuid.UUID
	SessionID uuid.UUID
	MapName   string
	Mode      snapshot.Mode
	SavedAt   time.Time
	Size      int // размер снимка
	Stored    int // размер сжатой записи
	Checksum  [blake2b.Size256]byte
}

// SaveStore хранит снимки в слотах BadgerDB. Запись слота:
// заголовок (раскладка, id сохранения, сессия, карта, режим, время, blake2b-256, размер)
// и zstd-сжатый снимок.
type SaveStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	log     *logging.Logger
}

// NewSaveStore открывает хранилище слотов в каталоге dataPath/saves.
// level уровень zstd от 1 (быстрее) до 4 (плотнее).
func NewSaveStore(dataPath string, level int) (*SaveStore, error) {
	dbPath := filepath.Join(dataPath, "saves")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, eris.Wrapf(err, "не удалось открыть BadgerDB %s", dbPath)
	}

	if level < int(zstd.SpeedFastest) || level > int(zstd.SpeedBestCompression) {
		level = int(zstd.SpeedDefault)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevel(level)))
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, eris.Wrap(err, "zstd decoder")
	}

	return &SaveStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: enc,
		decoder: dec,
		log:     logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище
func (s *SaveStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}

func slotKey(name string) ([]byte, error) {
	if name == "" || strings.ContainsAny(name, "\x00\n") {
		return nil, eris.Wrapf(ErrBadSlotName, "%q", name)
	}
	return []byte(slotPrefix + name), nil
}

// Save записывает снимок в слот, заменяя прежнее содержимое.
// Снимок должен начинаться с корректного заголовка.
func (s *SaveStore) Save(ctx context.Context, name string, data []byte) (*SlotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := slotKey(name)
	if err != nil {
		return nil, err
	}
	h, err := snapshot.ReadHeader(data)
	if err != nil {
		return nil, eris.Wrapf(err, "слот %s", name)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, ErrNotReady
	}

	info := &SlotInfo{
		Name:      name,
		SaveID:    uuid.New(),
		SessionID: h.SessionID,
		MapName:   h.MapName,
		Mode:      h.Mode,
		SavedAt:   time.Now().UTC().Truncate(time.Millisecond),
		Size:      len(data),
		Checksum:  blake2b.Sum256(data),
	}
	payload := s.encoder.EncodeAll(data, nil)

	w := archive.NewWriter(len(payload)+128, 0)
	writeSlotHeader(w, info)
	w.Raw(payload)
	if err := w.Err(); err != nil {
		return nil, err
	}
	record := w.Bytes()
	info.Stored = len(record)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, record)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ошибка сохранения слота %s в BadgerDB", name)
	}

	s.log.Info("💾 Слот %s сохранён: карта %s, %d → %d байт", name, info.MapName, info.Size, info.Stored)
	return info, nil
}

// Load читает снимок из слота и проверяет контрольную сумму
func (s *SaveStore) Load(ctx context.Context, name string) ([]byte, *SlotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	key, err := slotKey(name)
	if err != nil {
		return nil, nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, nil, ErrNotReady
	}

	var record []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		record, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, eris.Wrapf(ErrSlotNotFound, "%s", name)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ошибка чтения слота %s из BadgerDB", name)
	}

	r := archive.NewReader(record)
	info, err := readSlotHeader(r, name)
	if err != nil {
		return nil, nil, err
	}
	info.Stored = len(record)

	data, err := s.decoder.DecodeAll(r.Raw(r.Remaining()), make([]byte, 0, info.Size))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "распаковка слота %s", name)
	}
	if len(data) != info.Size || blake2b.Sum256(data) != info.Checksum {
		s.log.Error("❌ Слот %s повреждён: размер %d, ожидался %d", name, len(data), info.Size)
		return nil, nil, eris.Wrapf(ErrChecksum, "%s", name)
	}
	return data, info, nil
}

// List возвращает слоты в порядке имени. Снимки не распаковываются.
func (s *SaveStore) List(ctx context.Context) ([]*SlotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return nil, ErrNotReady
	}

	var out []*SlotInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(slotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), slotPrefix)
			err := item.Value(func(val []byte) error {
				info, err := readSlotHeader(archive.NewReader(val), name)
				if err != nil {
					return err
				}
				info.Stored = len(val)
				out = append(out, info)
				return nil
			})
			if err != nil {
				s.log.Warn("⚠️ Пропущен повреждённый слот %s: %v", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "перечисление слотов")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete удаляет слот
func (s *SaveStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := slotKey(name)
	if err != nil {
		return err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.isReady {
		return ErrNotReady
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return eris.Wrapf(ErrSlotNotFound, "%s", name)
			}
			return err
		}
		return txn.Delete(key)
	})
}

func writeSlotHeader(w *archive.Writer, info *SlotInfo) {
	w.U8(recordLayout)
	w.Raw(info.SaveID[:])
	w.Raw(info.SessionID[:])
	w.String(info.MapName)
	w.U8(uint8(info.Mode))
	w.U32(uint32(info.SavedAt.Unix()))
	w.U32(uint32(info.SavedAt.Nanosecond()))
	w.Raw(info.Checksum[:])
	w.U32(uint32(info.Size))
}

func readSlotHeader(r *archive.Reader, name string) (*SlotInfo, error) {
	info := &SlotInfo{Name: name}
	if layout := r.U8(); r.Err() == nil && layout != recordLayout {
		return nil, eris.Wrapf(snapshot.ErrVersion, "слот %s: раскладка %d", name, layout)
	}
	copy(info.SaveID[:], r.Raw(16))
	copy(info.SessionID[:], r.Raw(16))
	info.MapName = r.String()
	info.Mode = snapshot.Mode(r.U8())
	sec, nsec := r.U32(), r.U32()
	info.SavedAt = time.Unix(int64(sec), int64(nsec)).UTC()
	copy(info.Checksum[:], r.Raw(blake2b.Size256))
	info.Size = int(r.U32())
	if err := r.Err(); err != nil {
		return nil, eris.Wrapf(err, "заголовок слота %s", name)
	}
	return info, nil
}
