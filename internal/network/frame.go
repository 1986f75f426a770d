package network

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"
)

var (
	// ErrFrameTooLarge длина кадра превышает предел кодека
	ErrFrameTooLarge = eris.New("frame too large")
	// ErrBadFrame некорректный заголовок или содержимое кадра
	ErrBadFrame = eris.New("bad frame")
)

const (
	frameHeaderSize = 5

	flagZstd uint8 = 1 << 0

	// кадры меньше порога не сжимаются
	compressThreshold = 256

	// DefaultMaxFrame предел распакованного кадра по умолчанию
	DefaultMaxFrame = 32 << 20
)

// FrameCodec пишет и читает кадры: u32 длина полезной нагрузки, u8 флаги, нагрузка.
// Нагрузка длиннее порога сжимается zstd. Кодек безопасен для параллельного
// использования.
type FrameCodec struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	maxSize      int
}

// NewFrameCodec создаёт кодек; maxSize <= 0: DefaultMaxFrame
func NewFrameCodec(maxSize int) (*FrameCodec, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrame
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, eris.Wrap(err, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxSize)))
	if err != nil {
		enc.Close()
		return nil, eris.Wrap(err, "failed to create zstd decoder")
	}
	return &FrameCodec{compressor: enc, decompressor: dec, maxSize: maxSize}, nil
}

// Close освобождает ресурсы zstd
func (fc *FrameCodec) Close() {
	fc.compressor.Close()
	fc.decompressor.Close()
}

// WriteFrame пишет один кадр
func (fc *FrameCodec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > fc.maxSize {
		return eris.Wrapf(ErrFrameTooLarge, "%d > %d", len(payload), fc.maxSize)
	}
	var flags uint8
	if len(payload) >= compressThreshold {
		payload = fc.compressor.EncodeAll(payload, nil)
		flags |= flagZstd
	}

	buf := make([]byte, frameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	buf[4] = flags
	copy(buf[frameHeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return eris.Wrap(err, "failed to write frame")
	}
	return nil
}

// ReadFrame читает один кадр и возвращает распакованную нагрузку
func (fc *FrameCodec) ReadFrame(r io.Reader) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, eris.Wrap(err, "failed to read frame header")
	}
	length := binary.LittleEndian.Uint32(header[:4])
	flags := header[4]
	if int64(length) > int64(fc.maxSize) {
		return nil, eris.Wrapf(ErrFrameTooLarge, "%d > %d", length, fc.maxSize)
	}
	if flags&^flagZstd != 0 {
		return nil, eris.Wrapf(ErrBadFrame, "unknown flags %#02x", flags)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, eris.Wrap(err, "failed to read frame payload")
	}
	if flags&flagZstd == 0 {
		return payload, nil
	}
	data, err := fc.decompressor.DecodeAll(payload, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrBadFrame, "decompression failed: %v", err)
	}
	if len(data) > fc.maxSize {
		return nil, eris.Wrapf(ErrFrameTooLarge, "%d > %d", len(data), fc.maxSize)
	}
	return data, nil
}
