package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - структурированное логирование на zap
//
// Назначение:
// Единая инициализация логгера для всех компонентов. JSON для
// production, текстовый формат для разработки. Глобальный логгер
// доступен через пакетные функции для кода без внедрения зависимостей.

// LogConfig - конфигурация логгера
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json или text
	Output      string // путь к файлу; пусто = stderr
	Development bool   // режим разработки (стектрейсы на warn)
}

// Logger - обёртка над zap с доменными хелперами
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// parseLevel конвертирует строковый уровень в zapcore.Level
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger создаёт логгер по конфигурации
//
// Невалидный Output не фатален: логгер откатывается на stderr.
func InitLogger(cfg LogConfig) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			sink = zapcore.AddSync(file)
		}
	}

	core := zapcore.NewCore(encoder, sink, parseLevel(cfg.Level))

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	zl := zap.New(core, opts...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// Sugar возвращает sugared-логгер для printf-style вызовов
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// With возвращает логгер с добавленными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// WithComponent добавляет имя компонента
func (l *Logger) WithComponent(component string) *Logger {
	return l.With(zap.String("component", component))
}

// WithVenue добавляет площадку
func (l *Logger) WithVenue(venue string) *Logger {
	return l.With(zap.String("venue", venue))
}

// WithInstrument добавляет инструмент
func (l *Logger) WithInstrument(instrument string) *Logger {
	return l.With(zap.String("instrument", instrument))
}

// WithClientOrderID добавляет клиентский идентификатор ордера
func (l *Logger) WithClientOrderID(id string) *Logger {
	return l.With(zap.String("client_order_id", id))
}

// ============================================================
// Глобальный логгер
// ============================================================

// InitGlobalLogger инициализирует и устанавливает глобальный логгер
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный логгер
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger возвращает глобальный логгер, создавая дефолтный при необходимости
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{Level: "info", Format: "json"})
	}
	return globalLogger
}

// L - краткий доступ к глобальному логгеру
func L() *Logger {
	return GetGlobalLogger()
}

// Debug логирует через глобальный логгер
func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Debug(msg, fields...)
}

// Info логирует через глобальный логгер
func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Info(msg, fields...)
}

// Warn логирует через глобальный логгер
func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Warn(msg, fields...)
}

// Error логирует через глобальный логгер
func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().Logger.Error(msg, fields...)
}

// Debugf логирует форматированное сообщение через глобальный логгер
func Debugf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Debugf(template, args...)
}

// Infof логирует форматированное сообщение через глобальный логгер
func Infof(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Infof(template, args...)
}

// Warnf логирует форматированное сообщение через глобальный логгер
func Warnf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Warnf(template, args...)
}

// Errorf логирует форматированное сообщение через глобальный логгер
func Errorf(template string, args ...interface{}) {
	GetGlobalLogger().sugar.Errorf(template, args...)
}

// fieldsToInterface конвертирует zap-поля в пары ключ/значение для sugared-вызовов
func fieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		result = append(result, f.Key, fieldValue(f))
	}
	return result
}

// fieldValue извлекает значение из zap.Field
func fieldValue(f zap.Field) interface{} {
	if f.Interface != nil {
		return f.Interface
	}
	if f.String != "" {
		return f.String
	}
	return f.Integer
}

// ============================================================
// Конструкторы доменных полей
// ============================================================

// Venue - поле с названием площадки
func Venue(venue string) zap.Field {
	return zap.String("venue", venue)
}

// Symbol - поле с торговым символом
func Symbol(symbol string) zap.Field {
	return zap.String("symbol", symbol)
}

// ClientOrderID - поле с клиентским идентификатором ордера
func ClientOrderID(id string) zap.Field {
	return zap.String("client_order_id", id)
}

// VenueOrderID - поле с биржевым идентификатором ордера
func VenueOrderID(id string) zap.Field {
	return zap.String("venue_order_id", id)
}

// Price - поле с ценой
func Price(price float64) zap.Field {
	return zap.Float64("price", price)
}

// Qty - поле с объёмом
func Qty(qty float64) zap.Field {
	return zap.Float64("qty", qty)
}

// Topic - поле с топиком подписки
func Topic(topic string) zap.Field {
	return zap.String("topic", topic)
}

// Latency - поле с задержкой в миллисекундах
func Latency(ms float64) zap.Field {
	return zap.Float64("latency_ms", ms)
}

// RequestID - поле с идентификатором запроса
func RequestID(id string) zap.Field {
	return zap.String("request_id", id)
}

// Component - поле с именем компонента
func Component(name string) zap.Field {
	return zap.String("component", name)
}

// Attempt - поле с номером попытки
func Attempt(n int) zap.Field {
	return zap.Int("attempt", n)
}

// ============================================================
// Переэкспорт стандартных конструкторов zap
// ============================================================

// String - переэкспорт zap.String
func String(key, value string) zap.Field { return zap.String(key, value) }

// Int - переэкспорт zap.Int
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Int64 - переэкспорт zap.Int64
func Int64(key string, value int64) zap.Field { return zap.Int64(key, value) }

// Float64 - переэкспорт zap.Float64
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }

// Bool - переэкспорт zap.Bool
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// Err - переэкспорт zap.Error
func Err(err error) zap.Field { return zap.Error(err) }

// Any - переэкспорт zap.Any
func Any(key string, value interface{}) zap.Field { return zap.Any(key, value) }
