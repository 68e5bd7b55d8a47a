package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "CAMPUS"

type HTTPConfig struct {
	Addr           string `mapstructure:"addr" validate:"required"`
	UploadDir      string `mapstructure:"upload_dir" validate:"required"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type JWTConfig struct {
	AccessSecret  string        `mapstructure:"access_secret" validate:"required"`
	RefreshSecret string        `mapstructure:"refresh_secret" validate:"required"`
	AccessTTL     time.Duration `mapstructure:"access_ttl" validate:"gt=0"`
	RefreshTTL    time.Duration `mapstructure:"refresh_ttl" validate:"gt=0"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required"`
	GroupID string   `mapstructure:"group_id" validate:"required"`
}

// NotifyConfig tunes the notification pipeline.
type NotifyConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	TransferBatch    int           `mapstructure:"transfer_batch" validate:"gt=0"`
	TransferLockTTL  time.Duration `mapstructure:"transfer_lock_ttl" validate:"gt=0"`
	RelayInterval    time.Duration `mapstructure:"relay_interval" validate:"gt=0"`
	RelayBatch       int           `mapstructure:"relay_batch" validate:"gt=0"`
	RelayMaxRetry    int           `mapstructure:"relay_max_retry" validate:"gt=0"`
	BanCacheTTL      time.Duration `mapstructure:"ban_cache_ttl" validate:"gt=0"`
	ReconcileEvery   time.Duration `mapstructure:"reconcile_every" validate:"gt=0"`
	ReconcileBatch   int           `mapstructure:"reconcile_batch" validate:"gt=0"`
	BroadcastPageLen int           `mapstructure:"broadcast_page_len" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// Config holds all application configuration
type Config struct {
	HTTP   HTTPConfig   `mapstructure:"http"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	SMTP   SMTPConfig   `mapstructure:"smtp"`
	Kafka  KafkaConfig  `mapstructure:"kafka"`
	Notify NotifyConfig `mapstructure:"notify"`
	Log    LogConfig    `mapstructure:"log"`
}

// KafkaEnabled reports whether outbox events go through Kafka instead of in-process fan-out.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.upload_dir", "./uploads")
	v.SetDefault("http.max_upload_bytes", 5<<20)

	v.SetDefault("mysql.dsn", "user:password@tcp(127.0.0.1:3306)/campus?charset=utf8mb4&parseTime=True&loc=Local")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_secret", "secret-key")
	v.SetDefault("jwt.refresh_secret", "refresh-key")
	v.SetDefault("jwt.access_ttl", 30*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 24*time.Hour)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "NoReply <no-reply@example.com>")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "campus.notifications")
	v.SetDefault("kafka.group_id", "campus-notification-fanout")

	v.SetDefault("notify.poll_interval", 15*time.Second)
	v.SetDefault("notify.transfer_batch", 50)
	v.SetDefault("notify.transfer_lock_ttl", 5*time.Second)
	v.SetDefault("notify.relay_interval", time.Second)
	v.SetDefault("notify.relay_batch", 200)
	v.SetDefault("notify.relay_max_retry", 5)
	v.SetDefault("notify.ban_cache_ttl", 30*time.Second)
	v.SetDefault("notify.reconcile_every", 5*time.Minute)
	v.SetDefault("notify.reconcile_batch", 500)
	v.SetDefault("notify.broadcast_page_len", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads defaults, an optional dotenv file and CAMPUS_* environment variables.
// envFile may be empty; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct-level constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// compact trims entries and drops empty ones; CAMPUS_KAFKA_BROKERS="" yields one empty entry.
func compact(list []string) []string {
	var out []string
	for _, p := range list {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
