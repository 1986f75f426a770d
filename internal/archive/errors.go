package archive

import "github.com/rotisserie/eris"

// Ошибки буфера архива. Обе ошибки «липкие»: после первой все последующие
// операции записи/чтения становятся no-op, а Err() возвращает исходную причину.
var (
	// ErrCapacityExceeded запись превысила жёсткий предел размера буфера
	ErrCapacityExceeded = eris.New("archive capacity exceeded")

	// ErrTruncated чтение за концом данных
	ErrTruncated = eris.New("archive truncated")

	// ErrStringTooLong строка не помещается в префикс длины u16
	ErrStringTooLong = eris.New("string longer than 65535 bytes")

	// ErrNameTooLong имя лампа не помещается в NameLen байт
	ErrNameTooLong = eris.New("lump name longer than 8 bytes")
)
