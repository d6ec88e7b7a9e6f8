package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config - настройки сервиса
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	ISO       ISOConfig       `yaml:"iso"`
	Auth      AuthConfig      `yaml:"auth"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, redis, postgres
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN - строка подключения к PostgreSQL (логин и пароль экранируются)
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	GroupID           string   `yaml:"group_id"`
	JSONRequestTopic  string   `yaml:"json_request_topic"`
	JSONResponseTopic string   `yaml:"json_response_topic"`
	XMLRequestTopic   string   `yaml:"xml_request_topic"`
	XMLResponseTopic  string   `yaml:"xml_response_topic"`
}

type ISOConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

type AuthConfig struct {
	JWTSecret       string      `yaml:"jwt_secret"`
	TokenTTLMinutes int         `yaml:"token_ttl_minutes"`
	Admins          []AdminUser `yaml:"admins"`
}

// AdminUser - учетная запись администратора (пароль хранится bcrypt-хэшем)
type AdminUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

type PricingConfig struct {
	// StrictValidation - отклонять отрицательное количество и нечисловые акции вместо NaN
	StrictValidation bool `yaml:"strict_validation"`
}

type SchedulerConfig struct {
	CatalogReload string `yaml:"catalog_reload"` // cron с секундами
}

// Load читает .env (если есть), YAML-файл и переменные окружения
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// без файла работаем на значениях по умолчанию и окружении
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) overrideWithEnv() {
	setString(&c.Server.Port, "SERVER_PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Catalog.Path, "CATALOG_PATH")
	setString(&c.Store.Driver, "STORE_DRIVER")

	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	setString(&c.Kafka.JSONRequestTopic, "KAFKA_TOPIC_JSON_REQUEST")
	setString(&c.Kafka.JSONResponseTopic, "KAFKA_TOPIC_JSON_RESPONSES")
	setString(&c.Kafka.XMLRequestTopic, "KAFKA_TOPIC_XML_REQUEST")
	setString(&c.Kafka.XMLResponseTopic, "KAFKA_TOPIC_XML_RESPONSES")
	setBool(&c.Kafka.Enabled, "KAFKA_ENABLED")

	setString(&c.ISO.Port, "ISO8583_PORT")
	setBool(&c.ISO.Enabled, "ISO8583_ENABLED")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setBool(&c.Pricing.StrictValidation, "PRICING_STRICT_VALIDATION")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "catalog.json"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "rental-pricing-group"
	}
	if c.ISO.Port == "" {
		c.ISO.Port = "8583"
	}
	if c.Auth.TokenTTLMinutes == 0 {
		c.Auth.TokenTTLMinutes = 60
	}
	if c.Scheduler.CatalogReload == "" {
		c.Scheduler.CatalogReload = "0 */5 * * * *"
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "redis":
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return errors.New("database host, user and name are required for postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.JSONRequestTopic == "" && c.Kafka.XMLRequestTopic == "" {
			return errors.New("at least one kafka request topic is required")
		}
		if (c.Kafka.JSONRequestTopic != "" && c.Kafka.JSONResponseTopic == "") ||
			(c.Kafka.XMLRequestTopic != "" && c.Kafka.XMLResponseTopic == "") {
			return errors.New("each kafka request topic needs a response topic")
		}
	}

	if len(c.Auth.Admins) > 0 && c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required when admins are configured")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
