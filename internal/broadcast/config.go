package broadcast

import (
	"fmt"
	"time"

	"tradecore/pkg/retry"
)

// Config конфигурация пула транспортов отмены
type Config struct {
	// PoolSize - количество независимых транспортов (>= 1)
	PoolSize int

	// BaseURL - адрес REST API площадки
	BaseURL string

	// APIKey / APISecret - реквизиты доступа
	APIKey    string
	APISecret string

	// Testnet - использовать тестовую площадку
	Testnet bool

	// RequestTimeout - таймаут одного запроса отмены
	RequestTimeout time.Duration

	// Retry - параметры повторов внутри транспорта
	Retry retry.Config

	// RequestsPerSecond / Burst - лимиты запросов транспорта
	RequestsPerSecond float64
	Burst             float64

	// HealthCheckInterval - период опроса здоровья транспортов
	HealthCheckInterval time.Duration

	// HealthCheckTimeout - таймаут одного пробного запроса
	HealthCheckTimeout time.Duration

	// ExpectedRejectPatterns - подстроки отказов, считающихся штатными
	// (например, post-only отклонён при пересечении спреда)
	ExpectedRejectPatterns []string

	// IdempotentSuccessPatterns - подстроки отказов, означающих
	// что нужное состояние уже достигнуто
	IdempotentSuccessPatterns []string
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		PoolSize:            2,
		RequestTimeout:      10 * time.Second,
		Retry:               retry.HTTPConfig(),
		RequestsPerSecond:   10,
		Burst:               20,
		HealthCheckInterval: 30 * time.Second,
		HealthCheckTimeout:  5 * time.Second,
		ExpectedRejectPatterns: []string{
			"Order had execInst of ParticipateDoNotInitiate",
		},
		IdempotentSuccessPatterns: []string{
			"AlreadyCanceled",
			"orderID not found",
			"Unable to cancel order due to existing state",
		},
	}
}

// Validate проверяет конфигурацию и заполняет значения по умолчанию
func (c *Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool size must be >= 1, got %d", c.PoolSize)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.HealthCheckTimeout <= 0 {
		c.HealthCheckTimeout = 5 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.Burst <= 0 {
		c.Burst = c.RequestsPerSecond * 2
	}
	return nil
}
