package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用程序配置
type Config struct {
	APIPort  int
	LogLevel string
	LogFile  LogFileConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig
	Order    OrderConfig
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled    bool
	Path       string
	MaxSize    int // 单个文件最大大小，单位MB
	MaxBackups int
	MaxAge     int // 保留天数
	Compress   bool
}

// DatabaseConfig MySQL数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// KafkaConfig 订单事件投递配置，Brokers 为空时不投递
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// PaymentConfig 支付通道配置
type PaymentConfig struct {
	Endpoint  string // 支付网关地址
	AppID     string
	MchID     string // 商户号
	APIKey    string // 签名密钥
	NotifyURL string // 支付结果回调地址
	Timeout   time.Duration
}

// OrderConfig 订单流程配置
type OrderConfig struct {
	PaymentTimeout time.Duration // 待支付超时时间
	SweepInterval  time.Duration // 超时订单扫描间隔
}

// Load 从环境变量加载并校验配置
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv 从环境变量读取配置，不做校验
func FromEnv() (*Config, error) {
	// 加载.env文件，不存在时直接使用环境变量
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return &Config{
		APIPort:  getInt("API_PORT", 8080),
		LogLevel: getString("LOG_LEVEL", "info"),
		LogFile: LogFileConfig{
			Enabled:    getBool("LOG_FILE_ENABLED", false),
			Path:       getString("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getInt("LOG_FILE_MAX_SIZE", 100),
			MaxBackups: getInt("LOG_FILE_MAX_BACKUPS", 7),
			MaxAge:     getInt("LOG_FILE_MAX_AGE", 30),
			Compress:   getBool("LOG_FILE_COMPRESS", true),
		},
		Database: DatabaseConfig{
			Host:     getString("DB_HOST", "127.0.0.1"),
			Port:     getInt("DB_PORT", 3306),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     getString("REDIS_HOST", "127.0.0.1"),
			Port:     getInt("REDIS_PORT", 6379),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getString("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
		},
		Payment: PaymentConfig{
			Endpoint:  os.Getenv("PAY_ENDPOINT"),
			AppID:     os.Getenv("PAY_APP_ID"),
			MchID:     os.Getenv("PAY_MCH_ID"),
			APIKey:    os.Getenv("PAY_API_KEY"),
			NotifyURL: os.Getenv("PAY_NOTIFY_URL"),
			Timeout:   getDuration("PAY_TIMEOUT", 10*time.Second),
		},
		Order: OrderConfig{
			PaymentTimeout: getDuration("ORDER_PAYMENT_TIMEOUT", 30*time.Minute),
			SweepInterval:  getDuration("ORDER_SWEEP_INTERVAL", time.Minute),
		},
	}, nil
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("DB_USER 和 DB_NAME 必须设置")
	}
	if c.Payment.APIKey == "" {
		return fmt.Errorf("PAY_API_KEY 必须设置")
	}
	if c.Order.PaymentTimeout <= 0 {
		return fmt.Errorf("ORDER_PAYMENT_TIMEOUT 必须大于0")
	}
	return nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
