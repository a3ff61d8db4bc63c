package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root of config/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

// DatabaseConfig selects the gorm dialect with Driver ("postgres" or "mysql").
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	AuctionEvents string `mapstructure:"auction_events"`
	WalletEvents  string `mapstructure:"wallet_events"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BusinessConfig struct {
	ExpirySweepSeconds int `mapstructure:"expiry_sweep_seconds"`
	ExpiryBatchSize    int `mapstructure:"expiry_batch_size"`
	AuditIntervalSecs  int `mapstructure:"audit_interval_seconds"`
	MaxRetryCount      int `mapstructure:"max_retry_count"`
	LockTTLSeconds     int `mapstructure:"lock_ttl_seconds"`
	LockMaxRetries     int `mapstructure:"lock_max_retries"`
}

const envPrefix = "NEXOS"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.worker_id", 1)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("kafka.topic.auction_events", "nexos.auction.events")
	v.SetDefault("kafka.topic.wallet_events", "nexos.wallet.events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("business.expiry_sweep_seconds", 15)
	v.SetDefault("business.expiry_batch_size", 50)
	v.SetDefault("business.audit_interval_seconds", 300)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.lock_ttl_seconds", 10)
	v.SetDefault("business.lock_max_retries", 30)
}

// LoadConfig reads the YAML file at configPath. Every key can be overridden from the environment,
// e.g. NEXOS_DATABASE_PASSWORD or NEXOS_AUTH_JWT_SECRET.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	if c.Business.MaxRetryCount <= 0 {
		return fmt.Errorf("config: business.max_retry_count must be positive")
	}
	if c.Business.ExpirySweepSeconds <= 0 || c.Business.AuditIntervalSecs <= 0 {
		return fmt.Errorf("config: job intervals must be positive")
	}
	if c.Business.LockTTLSeconds <= 0 || c.Business.LockMaxRetries <= 0 {
		return fmt.Errorf("config: lock settings must be positive")
	}
	return nil
}
