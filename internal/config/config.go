package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"admissions-platform/pkg/database"
	"admissions-platform/pkg/logging"
)

// Config is the full runtime configuration shared by every command
type Config struct {
	Environment    string               `yaml:"environment" default:"development" validate:"oneof=development test production"`
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Logging        LoggingConfig        `yaml:"logging"`
	Cache          CacheConfig          `yaml:"cache"`
	Analysis       AnalysisConfig       `yaml:"analysis"`
	Recommendation RecommendationConfig `yaml:"recommendation"`
	Ingestion      IngestionConfig      `yaml:"ingestion"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s" validate:"gt=0"`
}

// DatabaseConfig configures the PostgreSQL pool
type DatabaseConfig struct {
	Host            string        `yaml:"host" default:"localhost" validate:"required"`
	Port            int           `yaml:"port" default:"5432" validate:"min=1,max=65535"`
	User            string        `yaml:"user" default:"admissions" validate:"required"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database" default:"admissions" validate:"required"`
	SSLMode         string        `yaml:"sslmode" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"25" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5" validate:"min=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" default:"5m"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

// CacheConfig selects the analysis result cache backend
type CacheConfig struct {
	Backend      string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis"`
	RedisAddr    string        `yaml:"redis_addr" default:"localhost:6379" validate:"required_if=Backend redis"`
	RedisPass    string        `yaml:"redis_password"`
	RedisDB      int           `yaml:"redis_db" default:"0" validate:"min=0"`
	Prefix       string        `yaml:"prefix" default:"admissions"`
	MemoryMaxLen int           `yaml:"memory_max_entries" default:"10000" validate:"min=1"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
}

// AnalysisConfig configures the analysis service
type AnalysisConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" default:"1h" validate:"gte=0"`
}

// RecommendationConfig configures the recommendation service
type RecommendationConfig struct {
	LookbackYears int `yaml:"lookback_years" default:"3" validate:"min=1,max=20"`
}

// IngestionConfig configures CSV imports
type IngestionConfig struct {
	BatchSize int `yaml:"batch_size" default:"500" validate:"min=1,max=10000"`
}

var validate = validator.New()

// LoadConfig builds the configuration from, in increasing precedence:
// struct defaults, the YAML file at $CONFIG_PATH (if set), and environment
// variables. A .env file in the working directory is loaded first when present.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return Load(os.Getenv("CONFIG_PATH"))
}

// Load reads an optional YAML file, applies defaults and environment
// overrides, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func loadDotEnv() error {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	strVars := map[string]*string{
		"APP_ENV":        &c.Environment,
		"SERVER_HOST":    &c.Server.Host,
		"DB_HOST":        &c.Database.Host,
		"DB_USER":        &c.Database.User,
		"DB_PASSWORD":    &c.Database.Password,
		"DB_NAME":        &c.Database.Database,
		"DB_SSLMODE":     &c.Database.SSLMode,
		"LOG_LEVEL":      &c.Logging.Level,
		"LOG_FORMAT":     &c.Logging.Format,
		"CACHE_BACKEND":  &c.Cache.Backend,
		"REDIS_ADDR":     &c.Cache.RedisAddr,
		"REDIS_PASSWORD": &c.Cache.RedisPass,
	}
	for name, dst := range strVars {
		if v, ok := os.LookupEnv(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	intVars := map[string]*int{
		"SERVER_PORT":          &c.Server.Port,
		"DB_PORT":              &c.Database.Port,
		"DB_MAX_OPEN_CONNS":    &c.Database.MaxOpenConns,
		"DB_MAX_IDLE_CONNS":    &c.Database.MaxIdleConns,
		"RECOMMEND_LOOKBACK":   &c.Recommendation.LookbackYears,
		"INGESTION_BATCH_SIZE": &c.Ingestion.BatchSize,
	}
	for name, dst := range intVars {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s: invalid integer %q", name, v)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("ANALYSIS_CACHE_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env ANALYSIS_CACHE_TTL: %w", err)
		}
		c.Analysis.CacheTTL = d
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			msgs := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Postgres converts the settings into a database.Config
func (d DatabaseConfig) Postgres() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// NewLogger builds the logger for a command, console output when Format is "console"
func (l LoggingConfig) NewLogger(service, version string) *logging.StructuredLogger {
	level := logging.ParseLevel(l.Level)
	if l.Format == "console" {
		return logging.NewConsoleLogger(service, version, level)
	}
	return logging.NewStructuredLogger(service, version, level)
}
