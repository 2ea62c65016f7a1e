package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once   sync.Once
	config *Config
)

// Config is the full application configuration shared by all services.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Casbin   CasbinConfig   `mapstructure:"casbin"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig holds listener host/port and timeouts in seconds.
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`
	WriteTimeout int    `mapstructure:"writeTimeout"`
}

// DatabaseConfig holds the relational store settings.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Database     string `mapstructure:"database"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	case "sqlite":
		// file path as DSN; empty means in-memory
		if c.Database == "" {
			return ":memory:"
		}
		return c.Database
	default:
		return ""
	}
}

// RedisConfig holds the redis settings.
// Mode "memory" starts an embedded miniredis, useful for dev and tests.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
	Mode     string `mapstructure:"mode"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	Expire int64  `mapstructure:"expire"`
}

// AuthConfig holds the session/role resolution settings.
//
// AdminEmails is the static allowlist: matching emails (case-insensitive)
// are granted admin regardless of the role store, so a role-table
// misconfiguration can never lock out the designated operator accounts.
type AuthConfig struct {
	AdminEmails    []string `mapstructure:"adminEmails"`
	LookupTimeout  int      `mapstructure:"lookupTimeout"`  // per-lookup, seconds
	ResolveTimeout int      `mapstructure:"resolveTimeout"` // whole resolution, seconds
}

// LookupTimeoutDuration returns the per-lookup timeout, defaulting to 5s.
func (c *AuthConfig) LookupTimeoutDuration() time.Duration {
	if c.LookupTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.LookupTimeout) * time.Second
}

// ResolveTimeoutDuration returns the overall resolve timeout, defaulting to 8s.
func (c *AuthConfig) ResolveTimeoutDuration() time.Duration {
	if c.ResolveTimeout <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.ResolveTimeout) * time.Second
}

// CasbinConfig holds the policy model path.
type CasbinConfig struct {
	ModelPath string `mapstructure:"modelPath"`
}

// StorageConfig holds document upload settings.
type StorageConfig struct {
	UploadDir     string `mapstructure:"uploadDir"`
	MaxUploadSize int64  `mapstructure:"maxUploadSize"` // bytes
}

// LogConfig holds log output settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// Init loads the configuration once. An empty path falls back to the
// ./configs/config.yaml search path.
func Init(configPath string) error {
	var err error
	once.Do(func() {
		config = &Config{}
		err = loadConfig(configPath)
	})
	return err
}

func loadConfig(configPath string) error {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// environment-specific overlay, e.g. config.prod.yaml
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = v.GetString("app.env")
	}
	if env != "" && env != "default" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("failed to merge env config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	resolveEnvVars(config)

	return nil
}

// resolveEnvVars expands ${VAR} placeholders in secret-bearing fields.
func resolveEnvVars(cfg *Config) {
	cfg.Database.Host = resolveEnvVar(cfg.Database.Host)
	cfg.Database.Username = resolveEnvVar(cfg.Database.Username)
	cfg.Database.Password = resolveEnvVar(cfg.Database.Password)
	cfg.Database.Database = resolveEnvVar(cfg.Database.Database)
	cfg.Redis.Host = resolveEnvVar(cfg.Redis.Host)
	cfg.Redis.Password = resolveEnvVar(cfg.Redis.Password)
	cfg.JWT.Secret = resolveEnvVar(cfg.JWT.Secret)
}

func resolveEnvVar(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envKey := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return value
}

// Get returns the loaded configuration.
func Get() *Config {
	if config == nil {
		panic("config not initialized, call Init first")
	}
	return config
}

// GetDatabase returns the database section.
func GetDatabase() *DatabaseConfig {
	return &Get().Database
}

// GetRedis returns the redis section.
func GetRedis() *RedisConfig {
	return &Get().Redis
}

// GetJWT returns the jwt section.
func GetJWT() *JWTConfig {
	return &Get().JWT
}

// GetAuth returns the auth section.
func GetAuth() *AuthConfig {
	return &Get().Auth
}

// GetStorage returns the storage section.
func GetStorage() *StorageConfig {
	return &Get().Storage
}

// GetLog returns the log section.
func GetLog() *LogConfig {
	return &Get().Log
}

// IsDev reports whether the app runs in a development environment.
func IsDev() bool {
	return Get().App.Env == "dev" || Get().App.Env == "development"
}

// IsProd reports whether the app runs in a production environment.
func IsProd() bool {
	return Get().App.Env == "prod" || Get().App.Env == "production"
}
