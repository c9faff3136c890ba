package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации консоли и клиента-стены.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Stream   StreamConfig   `mapstructure:"stream"`
	AI       AIConfig       `mapstructure:"ai"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MetricsPort  int           `mapstructure:"metrics_port"`
}

// DatabaseConfig описывает подключение к PostgreSQL с телеметрией.
// Пустой URL допустим: сервисы уходят в режим demo-данных.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (шина телеметрии и кэш).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StreamConfig — параметры push-потока с обеих сторон.
type StreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"` // куда ходит клиент-стена
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"`
	SeriesCap   int           `mapstructure:"series_cap"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
}

// AIConfig — внешний chat-completion API (deepseek-совместимый).
type AIConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`

	// Настройки Circuit Breaker для внешнего LLM-коннектора
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	// Лимит запросов к провайдеру (запросов в секунду)
	RateLimit float64 `mapstructure:"rate_limit"`
}

// AgentConfig — автономный мониторинг рисков.
type AgentConfig struct {
	AutoMonitor bool          `mapstructure:"auto_monitor"`
	Interval    time.Duration `mapstructure:"interval"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	// Пороги срабатывания (из регламента стройки)
	GasThreshold      float64 `mapstructure:"gas_threshold"`
	PressureThreshold float64 `mapstructure:"pressure_threshold"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: STREAM_BACKOFF_MAX=30s перекроет stream.backoff_max
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 0) // SSE: поток пишется бесконечно
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("stream.base_url", "http://localhost:8081")
	v.SetDefault("stream.backoff_base", time.Second)
	v.SetDefault("stream.backoff_max", 10*time.Second)
	v.SetDefault("stream.series_cap", 300)
	v.SetDefault("stream.heartbeat", 15*time.Second)
	v.SetDefault("ai.provider", "deepseek")
	v.SetDefault("ai.model", "deepseek-chat")
	v.SetDefault("ai.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("ai.cb_max_requests", 3)
	v.SetDefault("ai.cb_interval", 5*time.Second)
	v.SetDefault("ai.cb_timeout", 30*time.Second)
	v.SetDefault("ai.rate_limit", 5)
	v.SetDefault("agent.auto_monitor", true)
	v.SetDefault("agent.interval", 10*time.Second)
	v.SetDefault("agent.cooldown", 60*time.Second)
	v.SetDefault("agent.gas_threshold", 0.5)
	v.SetDefault("agent.pressure_threshold", 3.0)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}
