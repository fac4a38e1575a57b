package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config описывает настройки запуска приложения. Все значения читаются из
// окружения с префиксом PRINTSHOP_; пустые поля заменяются значениями по
// умолчанию.
type Config struct {
	// MetricsAddr — адрес HTTP-сервера метрик и health-проверок.
	MetricsAddr string
	// PostgresDSN включает PostgreSQL-хранилище; пустая строка означает
	// in-memory хранилище для локальной разработки.
	PostgresDSN string
	// KafkaBrokers — список брокеров через запятую; пустая строка отключает Kafka.
	KafkaBrokers string
	// OutboxPollInterval — частота опроса transactional outbox.
	OutboxPollInterval time.Duration
	// OutboxMaxPending — порог backlog, после которого health деградирует.
	OutboxMaxPending int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:        ":9090",
		OutboxPollInterval: 1 * time.Second,
		OutboxMaxPending:   1000,
	}
}

// LoadConfig собирает конфигурацию из переменных окружения поверх значений
// по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if addr := os.Getenv("PRINTSHOP_METRICS_ADDR"); addr != "" {
		cfg.MetricsAddr = addr
	}
	if dsn := os.Getenv("PRINTSHOP_POSTGRES_DSN"); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	if brokers := os.Getenv("PRINTSHOP_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = brokers
	}
	if raw := os.Getenv("PRINTSHOP_OUTBOX_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.OutboxPollInterval = d
		}
	}
	if raw := os.Getenv("PRINTSHOP_OUTBOX_MAX_PENDING"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.OutboxMaxPending = n
		}
	}

	return cfg
}

// Brokers разбирает список Kafka-брокеров.
func (c Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
