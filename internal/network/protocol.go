package network

import (
	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/archive"
)

// MessageType тип сообщения протокола подключения
type MessageType uint8

const (
	// MsgJoinRequest клиент запрашивает снимок карты
	MsgJoinRequest MessageType = iota + 1
	// MsgSnapshot ответ со снимком ModeNetJoin
	MsgSnapshot
	// MsgError ответ с текстом ошибки
	MsgError
	// MsgAck клиент получил ответ, сервер может закрыть сессию
	MsgAck
)

// ProtocolVersion версия протокола подключения
const ProtocolVersion uint16 = 1

var (
	// ErrProtocol нарушение протокола подключения
	ErrProtocol = eris.New("join protocol violation")
	// ErrRemote сервер ответил ошибкой
	ErrRemote = eris.New("join server error")
)

// JoinRequest запрос снимка
type JoinRequest struct {
	Version uint16
	MapName string
	Client  string
}

func (m *JoinRequest) encode() ([]byte, error) {
	w := archive.NewWriter(64, 0)
	w.U8(uint8(MsgJoinRequest))
	w.U16(m.Version)
	w.String(m.MapName)
	w.String(m.Client)
	return w.Bytes(), w.Err()
}

func decodeJoinRequest(data []byte) (*JoinRequest, error) {
	r := archive.NewReader(data)
	if t := MessageType(r.U8()); r.Err() == nil && t != MsgJoinRequest {
		return nil, eris.Wrapf(ErrProtocol, "expected join request, got type %d", t)
	}
	m := &JoinRequest{}
	m.Version = r.U16()
	m.MapName = r.String()
	m.Client = r.String()
	if err := r.Err(); err != nil {
		return nil, eris.Wrapf(ErrProtocol, "join request: %v", err)
	}
	return m, nil
}

func encodeSnapshot(data []byte) []byte {
	out := make([]byte, 1+len(data))
	out[0] = byte(MsgSnapshot)
	copy(out[1:], data)
	return out
}

func encodeError(msg string) []byte {
	w := archive.NewWriter(len(msg)+3, 0)
	w.U8(uint8(MsgError))
	if len(msg) > 0xFFFF {
		msg = msg[:0xFFFF]
	}
	w.String(msg)
	return w.Bytes()
}

// decodeReply возвращает снимок из ответа сервера или ошибку сервера
func decodeReply(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, eris.Wrap(ErrProtocol, "empty reply")
	}
	switch MessageType(data[0]) {
	case MsgSnapshot:
		return data[1:], nil
	case MsgError:
		r := archive.NewReader(data[1:])
		msg := r.String()
		if err := r.Err(); err != nil {
			return nil, eris.Wrapf(ErrProtocol, "error reply: %v", err)
		}
		return nil, eris.Wrapf(ErrRemote, "%s", msg)
	}
	return nil, eris.Wrapf(ErrProtocol, "unexpected reply type %d", data[0])
}

func encodeAck() []byte {
	return []byte{byte(MsgAck)}
}

func isAck(data []byte) bool {
	return len(data) == 1 && MessageType(data[0]) == MsgAck
}
