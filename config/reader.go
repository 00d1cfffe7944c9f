package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN строка подключения для gorm postgres
func (c DBConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, port, c.User, c.Password, c.DBName, sslMode,
	)
}

type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Addr пустой, если redis не настроен
func (c RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis    RedisConfig `yaml:"redis"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Logs struct {
		Level string `yaml:"level"`
		Dev   bool   `yaml:"dev"`
	} `yaml:"logs"`
	JWT struct {
		Secret string        `yaml:"secret"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"jwt"`
}

// Addr адрес, на котором слушает http сервер
func (c *ConfigSchema) Addr() string {
	port := c.Backend.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", c.Backend.Host, port)
}

// envOverrides переменные окружения, перекрывающие значения из yaml
type envOverrides struct {
	DBHost        string        `env:"DB_HOST"`
	DBPort        int           `env:"DB_PORT"`
	DBUser        string        `env:"DB_USER"`
	DBPassword    string        `env:"DB_PASSWORD"`
	DBName        string        `env:"DB_NAME"`
	RedisHost     string        `env:"REDIS_HOST"`
	RedisPort     int           `env:"REDIS_PORT"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RabbitMQURL   string        `env:"RABBITMQ_URL"`
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTTTL        time.Duration `env:"JWT_TTL"`
	LogLevel      string        `env:"LOG_LEVEL"`
	LogDev        bool          `env:"LOG_DEV"`
	BackendPort   int           `env:"BACKEND_PORT"`
}

// LoadConfig читает yaml, .env и переменные окружения.
// Возвращает готовую конфигурацию, которую дальше передают явно.
func LoadConfig(filePath string) (*ConfigSchema, error) {
	conf := &ConfigSchema{}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filePath, err)
		}
	}

	// .env не обязателен
	_ = godotenv.Load()

	if err := applyEnv(conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyEnv(conf *ConfigSchema) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&conf.Databases.Master.Host, o.DBHost)
	setInt(&conf.Databases.Master.Port, o.DBPort)
	setString(&conf.Databases.Master.User, o.DBUser)
	setString(&conf.Databases.Master.Password, o.DBPassword)
	setString(&conf.Databases.Master.DBName, o.DBName)
	setString(&conf.Redis.Host, o.RedisHost)
	setInt(&conf.Redis.Port, o.RedisPort)
	setString(&conf.Redis.Password, o.RedisPassword)
	setString(&conf.RabbitMQ.URL, o.RabbitMQURL)
	setString(&conf.JWT.Secret, o.JWTSecret)
	setString(&conf.Logs.Level, o.LogLevel)
	setInt(&conf.Backend.Port, o.BackendPort)
	if o.JWTTTL > 0 {
		conf.JWT.TTL = o.JWTTTL
	}
	if o.LogDev {
		conf.Logs.Dev = true
	}
	return nil
}

func (c *ConfigSchema) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is not configured")
	}
	if c.Databases.Master.Host == "" {
		return errors.New("master database configuration is missing")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
