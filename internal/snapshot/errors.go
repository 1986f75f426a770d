package snapshot

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrCorrupt корень всех структурных ошибок загрузки. Поток после неё
	// не может быть пересинхронизирован, загрузка прерывается целиком.
	ErrCorrupt = eris.New("corrupted snapshot data")

	// ErrVersion снимок записан другой версией формата
	ErrVersion = eris.New("unsupported snapshot version")

	// ErrBadMagic маркер секции не совпал
	ErrBadMagic = eris.New("section magic mismatch")

	// ErrBadIndex индекс статического объекта вне диапазона
	ErrBadIndex = eris.New("reference index out of range")

	// ErrUnknownThinker неизвестный тег вида мыслителя
	ErrUnknownThinker = eris.New("unknown thinker kind")

	// ErrMapMismatch снимок снят с другой карты
	ErrMapMismatch = eris.New("snapshot map does not match loaded map")

	// ErrBadMode в заголовке выставлены неизвестные флаги режима
	ErrBadMode = eris.New("unknown snapshot mode flags")
)

// CorruptError описывает место, где загрузка наткнулась на повреждение
type CorruptError struct {
	Section string
	Offset  int
	Err     error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupted snapshot: section %s at offset %d: %v", e.Section, e.Offset, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Is относит ошибку к ErrCorrupt независимо от исходной причины
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}
