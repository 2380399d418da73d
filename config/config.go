package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Waitlist WaitlistConfig
	Log      LogConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// WaitlistConfig carries the per-guild wiring and the queue policy knobs.
type WaitlistConfig struct {
	GuildID            string
	ManagedCategoryID  string
	BroadcastChannelID string

	MaxQueueSize int
	GroupSize    int

	InactivityWindow    time.Duration
	HostCheckInterval   time.Duration
	ReapInterval        time.Duration
	AdReconcileInterval time.Duration

	// AdScanLimit bounds how many broadcast-surface messages one
	// reconciliation pass inspects.
	AdScanLimit int
}

type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

type KafkaConfig struct {
	Enabled              bool
	Brokers              []string
	ProducerRetryMax     int
	ProducerRequiredAcks int
}

type LogConfig struct {
	Level    string
	Mode     string
	Encoding string
}

func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Waitlist: WaitlistConfig{
			GuildID:             getEnv("WAITLIST_GUILD_ID", ""),
			ManagedCategoryID:   getEnv("WAITLIST_CATEGORY_ID", ""),
			BroadcastChannelID:  getEnv("WAITLIST_BROADCAST_CHANNEL_ID", ""),
			MaxQueueSize:        getEnvAsInt("WAITLIST_MAX_QUEUE_SIZE", 50),
			GroupSize:           getEnvAsInt("WAITLIST_GROUP_SIZE", 8),
			InactivityWindow:    getEnvAsDuration("WAITLIST_INACTIVITY_WINDOW", 7*24*time.Hour),
			HostCheckInterval:   getEnvAsDuration("WAITLIST_HOST_CHECK_INTERVAL", 5*time.Minute),
			ReapInterval:        getEnvAsDuration("WAITLIST_REAP_INTERVAL", 1*time.Hour),
			AdReconcileInterval: getEnvAsDuration("WAITLIST_AD_RECONCILE_INTERVAL", 6*time.Hour),
			AdScanLimit:         getEnvAsInt("WAITLIST_AD_SCAN_LIMIT", 100),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Mode:     getEnv("LOG_MODE", "development"),
			Encoding: getEnv("LOG_ENCODING", "console"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Kafka: KafkaConfig{
			Enabled:              getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:              getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			ProducerRetryMax:     getEnvAsInt("KAFKA_PRODUCER_RETRY_MAX", 3),
			ProducerRequiredAcks: getEnvAsInt("KAFKA_PRODUCER_REQUIRED_ACKS", 1),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Waitlist.MaxQueueSize <= 0 {
		return fmt.Errorf("invalid max queue size: %d", c.Waitlist.MaxQueueSize)
	}

	if c.Waitlist.GroupSize <= 0 {
		return fmt.Errorf("invalid group size: %d", c.Waitlist.GroupSize)
	}

	if c.Waitlist.InactivityWindow <= 0 {
		return fmt.Errorf("invalid inactivity window: %v", c.Waitlist.InactivityWindow)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	// Split by comma
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
