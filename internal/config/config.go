package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	Feed      FeedConfig
	Execution ExecutionConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД (журнал отчётов)
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	EncryptionKey string // ключ шифрования реквизитов площадок
	APIToken      string // токен доступа к management API
}

// FeedConfig - настройки приёма рыночных данных
type FeedConfig struct {
	URL              string        // адрес WebSocket стрима площадки
	Venue            string        // имя площадки для InstrumentID
	Symbols          []string      // символы инструментов площадки
	TopicDelimiter   string        // разделитель канал/символ в топиках
	ReconnectDelay   time.Duration // задержка перед переподключением
	PingInterval     time.Duration // интервал ping для поддержания соединения
	ReadTimeout      time.Duration // таймаут чтения сообщений
	AcceptedBuffer   time.Duration // лаг видимости своих ордеров в стакане
	BookDepth        int           // глубина публикуемых срезов стакана
	MaxReconnects    int           // повторы переподключения (0 = по профилю)
}

// ExecutionConfig - настройки исполнения и отмен
type ExecutionConfig struct {
	TraderID            string
	StrategyID          string
	AccountID           string
	BaseURL             string
	APIKey              string
	APISecret           string
	APISecretEnc        string // зашифрованный секрет; имеет приоритет над APISecret
	Testnet             bool
	CancelPoolSize      int
	RequestTimeout      time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	RequestsPerSecond   float64
	Burst               float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "tradecore"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			APIToken:      getEnv("API_TOKEN", ""),
		},
		Feed: FeedConfig{
			URL:            getEnv("FEED_URL", ""),
			Venue:          getEnv("FEED_VENUE", "BITMEX"),
			Symbols:        getEnvAsList("FEED_SYMBOLS", []string{"XBTUSD"}),
			TopicDelimiter: getEnv("FEED_TOPIC_DELIMITER", ":"),
			ReconnectDelay: getEnvAsDuration("FEED_RECONNECT_DELAY", 1*time.Second),
			PingInterval:   getEnvAsDuration("FEED_PING_INTERVAL", 15*time.Second),
			ReadTimeout:    getEnvAsDuration("FEED_READ_TIMEOUT", 30*time.Second),
			AcceptedBuffer: getEnvAsDuration("FEED_ACCEPTED_BUFFER", 0),
			BookDepth:      getEnvAsInt("FEED_BOOK_DEPTH", 25),
			MaxReconnects:  getEnvAsInt("FEED_MAX_RECONNECTS", 0),
		},
		Execution: ExecutionConfig{
			TraderID:            getEnv("EXEC_TRADER_ID", "TRADER-001"),
			StrategyID:          getEnv("EXEC_STRATEGY_ID", "S-001"),
			AccountID:           getEnv("EXEC_ACCOUNT_ID", ""),
			BaseURL:             getEnv("EXEC_BASE_URL", ""),
			APIKey:              getEnv("EXEC_API_KEY", ""),
			APISecret:           getEnv("EXEC_API_SECRET", ""),
			APISecretEnc:        getEnv("EXEC_API_SECRET_ENC", ""),
			Testnet:             getEnvAsBool("EXEC_TESTNET", false),
			CancelPoolSize:      getEnvAsInt("EXEC_CANCEL_POOL_SIZE", 2),
			RequestTimeout:      getEnvAsDuration("EXEC_REQUEST_TIMEOUT", 10*time.Second),
			HealthCheckInterval: getEnvAsDuration("EXEC_HEALTH_CHECK_INTERVAL", 30*time.Second),
			HealthCheckTimeout:  getEnvAsDuration("EXEC_HEALTH_CHECK_TIMEOUT", 5*time.Second),
			RequestsPerSecond:   getEnvAsFloat("EXEC_REQUESTS_PER_SECOND", 10),
			Burst:               getEnvAsFloat("EXEC_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования реквизитов площадок
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting venue credentials")
	}

	if len(c.Security.EncryptionKey) < 16 {
		return fmt.Errorf("ENCRYPTION_KEY must be at least 16 characters")
	}

	if c.Security.APIToken != "" && len(c.Security.APIToken) < 32 {
		return fmt.Errorf("API_TOKEN must be at least 32 characters when set")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Feed.ReadTimeout <= 0 {
		return fmt.Errorf("FEED_READ_TIMEOUT must be positive, got %v", c.Feed.ReadTimeout)
	}

	if c.Feed.BookDepth < 1 {
		return fmt.Errorf("FEED_BOOK_DEPTH must be positive, got %d", c.Feed.BookDepth)
	}

	if len(c.Feed.TopicDelimiter) != 1 || strings.ContainsAny(c.Feed.TopicDelimiter, " \t") {
		return fmt.Errorf("FEED_TOPIC_DELIMITER must be a single non-space character, got %q", c.Feed.TopicDelimiter)
	}

	if c.Execution.CancelPoolSize < 1 {
		return fmt.Errorf("EXEC_CANCEL_POOL_SIZE must be >= 1, got %d", c.Execution.CancelPoolSize)
	}

	if c.Execution.RequestTimeout <= 0 {
		return fmt.Errorf("EXEC_REQUEST_TIMEOUT must be positive, got %v", c.Execution.RequestTimeout)
	}

	if c.Execution.HealthCheckInterval <= 0 || c.Execution.HealthCheckTimeout <= 0 {
		return fmt.Errorf("health check interval and timeout must be positive")
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
