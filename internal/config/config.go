package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Archive ArchiveConfig `yaml:"archive"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Net     NetConfig     `yaml:"net"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
	Game    GameConfig    `yaml:"game"`
}

type ArchiveConfig struct {
	InitialSize int `yaml:"initial_size"`
	MaxSize     int `yaml:"max_size"`
	// Уровень zstd: 1 (fastest) .. 4 (best)
	CompressionLevel int `yaml:"compression_level"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	Backend  string `yaml:"backend"` // redis | memory
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSec   int    `yaml:"ttl_seconds"`
}

type NetConfig struct {
	JoinAddr    string `yaml:"join_addr"`
	MTU         int    `yaml:"mtu"`
	WindowSize  int    `yaml:"window_size"`
	DataShards  int    `yaml:"data_shards"`
	ParityShard int    `yaml:"parity_shards"`
}

type MetricsConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

type GameConfig struct {
	MapFile         string `yaml:"map_file"`
	AutosaveSec     int    `yaml:"autosave_seconds"`
	AutosaveSlot    string `yaml:"autosave_slot"`
	TickRate        int    `yaml:"tick_rate"`
	ScriptBootstrap string `yaml:"script_bootstrap"`
}

// GetInitialSize возвращает стартовую ёмкость буфера снимка
func (a *ArchiveConfig) GetInitialSize() int {
	return getIntWithEnvFallback(a.InitialSize, "SNAPSHOT_INITIAL_SIZE", 64<<10)
}

// GetMaxSize возвращает жёсткий предел буфера снимка
func (a *ArchiveConfig) GetMaxSize() int {
	return getIntWithEnvFallback(a.MaxSize, "SNAPSHOT_MAX_SIZE", 32<<20)
}

// GetCompressionLevel возвращает уровень zstd (по умолчанию SpeedDefault = 2)
func (a *ArchiveConfig) GetCompressionLevel() int {
	lvl := getIntWithEnvFallback(a.CompressionLevel, "SNAPSHOT_COMPRESSION_LEVEL", 2)
	if lvl > 4 {
		lvl = 4
	}
	return lvl
}

// GetPath возвращает каталог badger с поддержкой fallback значений
func (s *StorageConfig) GetPath() string {
	return getStringWithEnvFallback(s.Path, "SNAPSHOT_DATA_DIR", "data/saves")
}

// GetBackend возвращает тип кеша снимков для подключения
func (c *CacheConfig) GetBackend() string {
	return getStringWithEnvFallback(c.Backend, "SNAPSHOT_CACHE_BACKEND", "memory")
}

// GetAddr возвращает адрес redis
func (c *CacheConfig) GetAddr() string {
	return getStringWithEnvFallback(c.Addr, "SNAPSHOT_REDIS_ADDR", "localhost:6379")
}

// GetTTL возвращает время жизни снимка подключения в кеше
func (c *CacheConfig) GetTTL() time.Duration {
	return time.Duration(getIntWithEnvFallback(c.TTLSec, "SNAPSHOT_CACHE_TTL", 30)) * time.Second
}

// GetJoinAddr возвращает адрес KCP слушателя подключений
func (n *NetConfig) GetJoinAddr() string {
	return getStringWithEnvFallback(n.JoinAddr, "SNAPSHOT_JOIN_ADDR", ":7780")
}

// GetMTU возвращает MTU KCP сессии
func (n *NetConfig) GetMTU() int {
	return getIntWithEnvFallback(n.MTU, "SNAPSHOT_KCP_MTU", 1400)
}

// GetWindowSize возвращает размер окна KCP
func (n *NetConfig) GetWindowSize() int {
	return getIntWithEnvFallback(n.WindowSize, "SNAPSHOT_KCP_WINDOW", 512)
}

// GetShards возвращает параметры FEC (data, parity)
func (n *NetConfig) GetShards() (int, int) {
	return getIntWithEnvFallback(n.DataShards, "SNAPSHOT_KCP_DATA_SHARDS", 10),
		getIntWithEnvFallback(n.ParityShard, "SNAPSHOT_KCP_PARITY_SHARDS", 3)
}

// GetPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (m *MetricsConfig) GetPort() int {
	return getIntWithEnvFallback(m.Port, "SNAPSHOT_METRICS_PORT", 2112)
}

// GetAutosaveInterval возвращает период автосохранения
func (g *GameConfig) GetAutosaveInterval() time.Duration {
	return time.Duration(getIntWithEnvFallback(g.AutosaveSec, "SNAPSHOT_AUTOSAVE_SECONDS", 60)) * time.Second
}

// GetAutosaveSlot возвращает имя слота автосохранения
func (g *GameConfig) GetAutosaveSlot() string {
	return getStringWithEnvFallback(g.AutosaveSlot, "SNAPSHOT_AUTOSAVE_SLOT", "autosave")
}

// GetTickRate возвращает частоту симуляции
func (g *GameConfig) GetTickRate() int {
	return getIntWithEnvFallback(g.TickRate, "SNAPSHOT_TICK_RATE", 35)
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	// Если значение задано в конфиге и больше 0, используем его
	if configValue > 0 {
		return configValue
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

func getStringWithEnvFallback(configValue, envVar, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV SNAPSHOT_CONFIG или возвращает пустой конфиг
// (все значения берутся из env и дефолтов).
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SNAPSHOT_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "чтение конфигурации %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, eris.Wrapf(err, "разбор конфигурации %s", path)
	}

	return &cfg, nil
}
