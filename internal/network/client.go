package network

import (
	"context"
	"net"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xtaci/kcp-go/v5"
)

// FetchSnapshot подключается к серверу по KCP и получает снимок карты
func FetchSnapshot(ctx context.Context, addr, mapName, client string, config KCPConfig, codec *FrameCodec) ([]byte, error) {
	conn, err := kcp.DialWithOptions(addr, nil, config.DataShards, config.ParityShards)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to connect to %s", addr)
	}
	defer conn.Close()
	config.tune(conn)
	if config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(config.Timeout))
	}

	data, err := RequestSnapshot(ctx, conn, mapName, client, codec)
	if err == nil || eris.Is(err, ErrRemote) {
		_ = codec.WriteFrame(conn, encodeAck())
	}
	return data, err
}

// RequestSnapshot выполняет обмен запрос/ответ на готовом соединении.
// Отмена ctx прерывает ожидание на соединении.
func RequestSnapshot(ctx context.Context, conn net.Conn, mapName, client string, codec *FrameCodec) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	req := &JoinRequest{Version: ProtocolVersion, MapName: mapName, Client: client}
	payload, err := req.encode()
	if err != nil {
		return nil, err
	}
	if err := codec.WriteFrame(conn, payload); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	data, err := codec.ReadFrame(conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return decodeReply(data)
}
