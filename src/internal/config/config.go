package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GUZEL_SERVER_PORT
const EnvPrefix = "GUZEL"

// Config holds all configuration values
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Debug    bool           `mapstructure:"debug"`
}

// PathsConfig locates the application state on disk
type PathsConfig struct {
	Data         string `mapstructure:"data" validate:"required"`
	Temp         string `mapstructure:"temp"`
	Settings     string `mapstructure:"settings" validate:"required"`
	Translations string `mapstructure:"translations" validate:"required"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path" validate:"required"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
	// AdminPassword seeds the admin account on first start. Empty disables seeding.
	AdminPassword string `mapstructure:"admin_password"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	// RateLimit is requests per second per client IP; 0 disables limiting
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"gte=0"`
}

type SecurityConfig struct {
	SecretKey string        `mapstructure:"secret_key" validate:"required,min=16"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load loads configuration from defaults, an optional config file and
// GUZEL_* environment variables. An empty configFile searches the platform
// config directory and the working directory for config.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(expandPath(PlatformDirectories().Config))
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	resolvePaths(v)

	// Generate secret key if not set
	if v.GetString("security.secret_key") == "" {
		key, err := generateSecretKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secret key: %w", err)
		}
		v.Set("security.secret_key", key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dirs := PlatformDirectories()

	// Path defaults
	v.SetDefault("paths.data", dirs.Data)
	v.SetDefault("paths.temp", dirs.Temp)
	v.SetDefault("paths.settings", "{paths.data}/settings.json")
	v.SetDefault("paths.translations", "{paths.data}/translations")

	// Database defaults
	v.SetDefault("database.path", "{paths.data}/guzel_clinic.db")
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("database.admin_password", "admin")

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8642)
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)

	// Security defaults
	v.SetDefault("security.secret_key", "")
	v.SetDefault("security.token_ttl", "15m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("debug", false)
}

// resolvePaths substitutes {key} references with other config values and
// expands environment variables in every paths.* and database.path value.
func resolvePaths(v *viper.Viper) {
	keys := v.AllKeys()

	data := expandPath(v.GetString("paths.data"))
	v.Set("paths.data", data)

	for _, key := range keys {
		if !strings.HasPrefix(key, "paths.") && key != "database.path" {
			continue
		}
		value := v.GetString(key)
		if strings.Contains(value, "{") && strings.Contains(value, "}") {
			for _, varKey := range keys {
				varPattern := fmt.Sprintf("{%s}", varKey)
				if strings.Contains(value, varPattern) {
					value = strings.ReplaceAll(value, varPattern, v.GetString(varKey))
				}
			}
		}
		v.Set(key, expandPath(value))
	}
}

func generateSecretKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Validate checks the decoded configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
