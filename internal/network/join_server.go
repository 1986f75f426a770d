package network

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/savestate/internal/logging"
)

// SnapshotSource выдаёт снимок подключения для карты
type SnapshotSource interface {
	JoinSnapshot(ctx context.Context, mapName string) ([]byte, error)
}

// SnapshotSourceFunc адаптирует функцию к SnapshotSource
type SnapshotSourceFunc func(ctx context.Context, mapName string) ([]byte, error)

func (f SnapshotSourceFunc) JoinSnapshot(ctx context.Context, mapName string) ([]byte, error) {
	return f(ctx, mapName)
}

// KCPConfig параметры KCP сессий
type KCPConfig struct {
	MTU          int
	WindowSize   int
	DataShards   int
	ParityShards int
	// Timeout предел одного обмена запрос/ответ
	Timeout time.Duration
}

// DefaultKCPConfig возвращает настройки для передачи крупных снимков
func DefaultKCPConfig() KCPConfig {
	return KCPConfig{
		MTU:          1400,
		WindowSize:   512,
		DataShards:   10,
		ParityShards: 3,
		Timeout:      10 * time.Second,
	}
}

func (c KCPConfig) tune(conn *kcp.UDPSession) {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 20, 2, 1) // Агрессивные настройки для игр
	conn.SetWindowSize(c.WindowSize, c.WindowSize)
	conn.SetMtu(c.MTU)
}

// JoinStats счётчики сервера подключений
type JoinStats struct {
	Requests  int64
	Served    int64
	Failed    int64
	BytesSent int64
}

// JoinServer отдаёт подключающимся клиентам снимок текущего состояния карты по KCP.
// Каждое соединение обслуживает один запрос.
type JoinServer struct {
	addr   string
	config KCPConfig
	source SnapshotSource
	codec  *FrameCodec

	listener *kcp.Listener

	stats JoinStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *logging.Logger
}

// NewJoinServer создаёт сервер; Start начинает приём соединений
func NewJoinServer(addr string, config KCPConfig, source SnapshotSource, codec *FrameCodec) *JoinServer {
	return &JoinServer{
		addr:   addr,
		config: config,
		source: source,
		codec:  codec,
		logger: logging.GetNetworkLogger(),
	}
}

// Start запускает сервер
func (js *JoinServer) Start() error {
	listener, err := kcp.ListenWithOptions(js.addr, nil, js.config.DataShards, js.config.ParityShards)
	if err != nil {
		return eris.Wrapf(err, "failed to listen on %s", js.addr)
	}

	js.listener = listener
	js.ctx, js.cancel = context.WithCancel(context.Background())

	js.wg.Add(1)
	go js.acceptLoop()

	js.logger.Info("🚀 Join server started on %s", listener.Addr())
	return nil
}

// Addr возвращает фактический адрес слушателя
func (js *JoinServer) Addr() string {
	if js.listener == nil {
		return js.addr
	}
	return js.listener.Addr().String()
}

// Stop останавливает сервер и дожидается обработчиков
func (js *JoinServer) Stop() error {
	if js.cancel != nil {
		js.cancel()
	}
	if js.listener != nil {
		js.listener.Close()
	}
	js.wg.Wait()
	js.logger.Info("🛑 Join server stopped")
	return nil
}

// Stats возвращает копию счётчиков
func (js *JoinServer) Stats() JoinStats {
	return JoinStats{
		Requests:  atomic.LoadInt64(&js.stats.Requests),
		Served:    atomic.LoadInt64(&js.stats.Served),
		Failed:    atomic.LoadInt64(&js.stats.Failed),
		BytesSent: atomic.LoadInt64(&js.stats.BytesSent),
	}
}

// acceptLoop принимает входящие соединения
func (js *JoinServer) acceptLoop() {
	defer js.wg.Done()

	for {
		conn, err := js.listener.AcceptKCP()
		if err != nil {
			select {
			case <-js.ctx.Done():
				return // Сервер останавливается
			default:
				js.logger.Error("Failed to accept connection: %v", err)
				continue
			}
		}
		js.config.tune(conn)

		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			defer conn.Close()
			js.ServeConn(js.ctx, conn)
			js.drain(conn)
		}()
	}
}

// drain ждёт подтверждения клиента: Close сессии KCP не дожидается доставки
// неподтверждённых сегментов
func (js *JoinServer) drain(conn net.Conn) {
	stop := context.AfterFunc(js.ctx, func() {
		conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	data, err := js.codec.ReadFrame(conn)
	if err == nil && !isAck(data) {
		js.logger.Warn("⚠️ %s прислал лишний кадр вместо подтверждения", conn.RemoteAddr())
	}
}

// ServeConn обслуживает один запрос на уже установленном соединении
func (js *JoinServer) ServeConn(ctx context.Context, conn net.Conn) {
	if js.config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(js.config.Timeout))
	}
	atomic.AddInt64(&js.stats.Requests, 1)

	data, err := js.codec.ReadFrame(conn)
	if err != nil {
		atomic.AddInt64(&js.stats.Failed, 1)
		js.logger.Warn("⚠️ Не удалось прочитать запрос от %s: %v", conn.RemoteAddr(), err)
		return
	}
	req, err := decodeJoinRequest(data)
	if err == nil && req.Version != ProtocolVersion {
		err = eris.Wrapf(ErrProtocol, "protocol version %d, expected %d", req.Version, ProtocolVersion)
	}
	if err != nil {
		atomic.AddInt64(&js.stats.Failed, 1)
		js.reply(conn, encodeError(err.Error()))
		return
	}

	snap, err := js.source.JoinSnapshot(ctx, req.MapName)
	if err != nil {
		atomic.AddInt64(&js.stats.Failed, 1)
		js.logger.Error("❌ Снимок карты %s для %s не получен: %v", req.MapName, req.Client, err)
		js.reply(conn, encodeError(err.Error()))
		return
	}

	if js.reply(conn, encodeSnapshot(snap)) {
		atomic.AddInt64(&js.stats.Served, 1)
		atomic.AddInt64(&js.stats.BytesSent, int64(len(snap)))
		js.logger.Info("📤 Снимок карты %s (%d байт) отправлен %s", req.MapName, len(snap), req.Client)
	}
}

func (js *JoinServer) reply(conn net.Conn, payload []byte) bool {
	if err := js.codec.WriteFrame(conn, payload); err != nil {
		js.logger.Warn("⚠️ Ответ %s не отправлен: %v", conn.RemoteAddr(), err)
		return false
	}
	return true
}
