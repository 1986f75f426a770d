package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации. Пустая строка даёт INFO.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, eris.Errorf("неизвестный уровень логирования %q", s)
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case TRACE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Options параметры создания логгера компонента
type Options struct {
	// Dir каталог файловых логов; пустая строка отключает запись в файл
	Dir string
	// ConsoleLevel минимальный уровень для консоли
	ConsoleLevel LogLevel
	// FileLevel минимальный уровень для файла
	FileLevel LogLevel
	// Console вывод в stdout; nil означает os.Stdout
	Console io.Writer
}

// DefaultOptions консоль от INFO. Файл включается конфигурацией (log.dir).
func DefaultOptions() Options {
	return Options{
		ConsoleLevel: INFO,
		FileLevel:    DEBUG,
	}
}

// Logger логгер компонента поверх zerolog
type Logger struct {
	zl              zerolog.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// levelWriter пропускает в нижележащий writer только события не ниже min
type levelWriter struct {
	w   io.Writer
	min *LogLevel
}

func (lw levelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < lw.min.zerolog() {
		return len(p), nil
	}
	return lw.w.Write(p)
}

// NewLogger создаёт логгер компонента с параметрами по умолчанию
func NewLogger(component string) (*Logger, error) {
	return NewLoggerWithOptions(component, DefaultOptions())
}

// NewLoggerWithOptions создаёт логгер компонента. Консоль получает человекочитаемый
// вывод, файл: JSON строки zerolog.
func NewLoggerWithOptions(component string, opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		minConsoleLevel: opts.ConsoleLevel,
		minFileLevel:    opts.FileLevel,
	}

	writers := []io.Writer{levelWriter{
		w:   zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: console != os.Stdout},
		min: &l.minConsoleLevel,
	}}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "ошибка создания директории логов")
		}
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, eris.Wrap(err, "ошибка создания файла логов")
		}
		l.file = file
		writers = append(writers, levelWriter{w: file, min: &l.minFileLevel})
	}

	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Str("component", component).
		Logger()
	return l, nil
}

// Zerolog даёт доступ к структурированному логгеру для полей
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.zl.Trace().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Глобальный логгер процесса
var defaultLogger *Logger

func init() {
	defaultLogger, _ = NewLoggerWithOptions("default", Options{ConsoleLevel: INFO, FileLevel: ERROR})
}

// InitDefaultLogger заменяет глобальный логгер логгером компонента
func InitDefaultLogger(component string, opts Options) error {
	l, err := NewLoggerWithOptions(component, opts)
	if err != nil {
		return err
	}
	defaultLogger = l
	return nil
}

// CloseDefaultLogger закрывает глобальный логгер
func CloseDefaultLogger() {
	if defaultLogger != nil {
		_ = defaultLogger.Close()
	}
}

// Default возвращает глобальный логгер
func Default() *Logger {
	return defaultLogger
}

func Trace(format string, args ...interface{}) { defaultLogger.Trace(format, args...) }
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

// HexDump создает hex дамп данных
func HexDump(data []byte) string {
	if len(data) == 0 {
		return "No data"
	}

	// Ограничиваем размер дампа до 256 байт
	size := len(data)
	if size > 256 {
		size = 256
	}

	return hex.Dump(data[:size])
}

// LogCorruptArchive логирует ошибку разбора снимка вместе с окрестностью смещения
func LogCorruptArchive(l *Logger, source string, err error, data []byte, offset int) {
	l.Zerolog().Error().
		Str("section", source).
		Int("offset", offset).
		Err(err).
		Msg("❌ Повреждённый снимок")
	if len(data) == 0 {
		return
	}
	from := offset - 32
	if from < 0 {
		from = 0
	}
	if from > len(data) {
		from = len(data)
	}
	l.Debug("Байты с 0x%x:\n%s", from, HexDump(data[from:]))
}
