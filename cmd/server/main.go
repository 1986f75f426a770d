package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"

	"github.com/annel0/savestate/internal/cache"
	"github.com/annel0/savestate/internal/config"
	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/metrics"
	"github.com/annel0/savestate/internal/network"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/server"
	"github.com/annel0/savestate/internal/snapshot"
	"github.com/annel0/savestate/internal/storage"
	"github.com/annel0/savestate/internal/world"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию SNAPSHOT_CONFIG)")
	mapFile := flag.String("map", "", "Файл карты (перекрывает game.map_file)")
	restore := flag.String("restore", "", "Восстановить слот при старте")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logOpts := logging.DefaultOptions()
	logOpts.Dir = cfg.Log.Dir
	if lvl, err := logging.ParseLevel(cfg.Log.ConsoleLevel); err == nil {
		logOpts.ConsoleLevel = lvl
	}
	if lvl, err := logging.ParseLevel(cfg.Log.FileLevel); err == nil {
		logOpts.FileLevel = lvl
	}
	logging.GetLoggerManager().Configure(logOpts)
	if err := logging.InitDefaultLogger("server", logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🚀 Запуск сервера снимков состояния...")

	// === КАРТА И СОСТОЯНИЕ ===
	if *mapFile == "" {
		*mapFile = cfg.Game.MapFile
	}
	if *mapFile == "" {
		logging.Error("❌ Не задан файл карты (-map или game.map_file)")
		os.Exit(1)
	}
	res, err := world.LoadMapFile(*mapFile)
	if err != nil {
		logging.Error("❌ Ошибка загрузки карты %s: %v", *mapFile, err)
		os.Exit(1)
	}

	sc := script.NewContext()
	defer sc.Close()
	st := game.NewState(res, sc)
	if cfg.Game.ScriptBootstrap != "" {
		src, err := os.ReadFile(cfg.Game.ScriptBootstrap)
		if err != nil {
			logging.Error("❌ Ошибка чтения скрипта %s: %v", cfg.Game.ScriptBootstrap, err)
			os.Exit(1)
		}
		if err := st.RunScript(string(src)); err != nil {
			logging.Error("❌ Ошибка выполнения скрипта %s: %v", cfg.Game.ScriptBootstrap, err)
			os.Exit(1)
		}
	}
	logging.Info("🗺️ Карта %s: секторов %d, линий %d, объектов %d",
		st.Map.Name(), len(st.Map.Sectors), len(st.Map.Lines), len(st.Thinkers.Mobjs()))

	// === КОМПОНЕНТЫ ===
	collector := metrics.NewCollector()
	archiver := snapshot.New(
		snapshot.WithBufferSize(cfg.Archive.GetInitialSize(), cfg.Archive.GetMaxSize()),
		snapshot.WithObserver(collector),
	)

	store, err := storage.NewSaveStore(cfg.Storage.GetPath(), cfg.Archive.GetCompressionLevel())
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища слотов: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	joins, err := newJoinCache(ctx, &cfg.Cache)
	if err != nil {
		logging.Error("❌ Ошибка подключения кеша снимков: %v", err)
		os.Exit(1)
	}
	defer joins.Close()

	session := server.NewSession(st, archiver, store, joins)
	if *restore != "" {
		if _, err := session.Restore(ctx, *restore); err != nil {
			logging.Error("❌ Ошибка восстановления слота %s: %v", *restore, err)
			os.Exit(1)
		}
	}

	codec, err := network.NewFrameCodec(0)
	if err != nil {
		logging.Error("❌ Ошибка создания кодека кадров: %v", err)
		os.Exit(1)
	}
	defer codec.Close()

	kcpCfg := network.DefaultKCPConfig()
	kcpCfg.MTU = cfg.Net.GetMTU()
	kcpCfg.WindowSize = cfg.Net.GetWindowSize()
	kcpCfg.DataShards, kcpCfg.ParityShards = cfg.Net.GetShards()

	joinServer := network.NewJoinServer(cfg.Net.GetJoinAddr(), kcpCfg, session, codec)
	if err := joinServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска сервера подключений: %v", err)
		os.Exit(1)
	}

	collector.Track(joinServer, joins)
	collector.StartHTTP(fmt.Sprintf(":%d", cfg.Metrics.GetPort()), 5*time.Second)

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   📤 Снимки подключения: KCP %s", joinServer.Addr())
	logging.Info("   💾 Автосохранение: слот %s каждые %s", cfg.Game.GetAutosaveSlot(), cfg.Game.GetAutosaveInterval())

	err = session.Run(ctx, cfg.Game.GetTickRate(), cfg.Game.GetAutosaveInterval(), cfg.Game.GetAutosaveSlot())
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("❌ Цикл симуляции остановлен: %v", err)
	}

	// === GRACEFUL SHUTDOWN ===
	logging.Info("🛑 Завершение работы...")

	if err := joinServer.Stop(); err != nil {
		logging.Error("❌ Ошибка остановки сервера подключений: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if _, err := session.Save(shutdownCtx, cfg.Game.GetAutosaveSlot()); err != nil {
		logging.Error("❌ Ошибка сохранения при выходе: %v", err)
	}
	if err := collector.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки метрик: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// newJoinCache выбирает бэкенд кеша снимков подключения
func newJoinCache(ctx context.Context, cfg *config.CacheConfig) (cache.JoinCache, error) {
	switch cfg.GetBackend() {
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.GetAddr(),
			Password: cfg.Password,
			DB:       cfg.DB,
			TTL:      cfg.GetTTL(),
		})
	case "memory", "":
		return cache.NewMemoryCache(cfg.GetTTL()), nil
	default:
		return nil, eris.Errorf("неизвестный бэкенд кеша %q", cfg.GetBackend())
	}
}
